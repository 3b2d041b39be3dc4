// Package transport carries trigger calls, goal actions, and topic streams
// over gRPC.
//
// Messages are plain Go structs encoded with a JSON codec registered under the
// "json" content subtype; service descriptors are declared by hand. The gRPC
// health service on the same server keeps the default proto codec.
//
// Client side:
// - Node owns one *grpc.ClientConn; trigger, action, and topic handles are
//   small values sharing it.
//
// - Node.Spin services the connection state machine for the process lifetime.
//
// Server side:
// - Server hosts named triggers, named actions (one executing goal per
//   action; a newer goal preempts the older one), and named topics.
package transport

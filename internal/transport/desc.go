package transport

import (
	"context"

	"google.golang.org/grpc"
)

const (
	triggerService = "teach.Trigger"
	actionService  = "teach.Action"
	topicService   = "teach.Topic"

	methodTriggerCall = "/teach.Trigger/Call"
	methodSendGoal    = "/teach.Action/SendGoal"
	methodGetResult   = "/teach.Action/GetResult"
	methodCancelGoal  = "/teach.Action/CancelGoal"
	methodFeedback    = "/teach.Action/Feedback"
	methodSubscribe   = "/teach.Topic/Subscribe"
)

type triggerServer interface {
	Call(ctx context.Context, req *TriggerRequest) (*TriggerReply, error)
}

type actionServer interface {
	SendGoal(ctx context.Context, req *GoalRequest) (*GoalReply, error)
	GetResult(ctx context.Context, req *GoalRef) (*ResultReply, error)
	CancelGoal(ctx context.Context, req *GoalRef) (*CancelReply, error)
	Feedback(req *GoalRef, stream grpc.ServerStream) error
}

type topicServer interface {
	Subscribe(req *SubscribeRequest, stream grpc.ServerStream) error
}

func unaryHandler[Req, Resp any](fullMethod string, call func(srv any, ctx context.Context, req *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func serverStreamHandler[Req any](call func(srv any, req *Req, stream grpc.ServerStream) error) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		in := new(Req)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		return call(srv, in, stream)
	}
}

var triggerServiceDesc = grpc.ServiceDesc{
	ServiceName: triggerService,
	HandlerType: (*triggerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Call",
			Handler: unaryHandler(methodTriggerCall, func(srv any, ctx context.Context, req *TriggerRequest) (*TriggerReply, error) {
				return srv.(triggerServer).Call(ctx, req)
			}),
		},
	},
	Metadata: "teach/trigger",
}

var actionServiceDesc = grpc.ServiceDesc{
	ServiceName: actionService,
	HandlerType: (*actionServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SendGoal",
			Handler: unaryHandler(methodSendGoal, func(srv any, ctx context.Context, req *GoalRequest) (*GoalReply, error) {
				return srv.(actionServer).SendGoal(ctx, req)
			}),
		},
		{
			MethodName: "GetResult",
			Handler: unaryHandler(methodGetResult, func(srv any, ctx context.Context, req *GoalRef) (*ResultReply, error) {
				return srv.(actionServer).GetResult(ctx, req)
			}),
		},
		{
			MethodName: "CancelGoal",
			Handler: unaryHandler(methodCancelGoal, func(srv any, ctx context.Context, req *GoalRef) (*CancelReply, error) {
				return srv.(actionServer).CancelGoal(ctx, req)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "Feedback",
			Handler: serverStreamHandler(func(srv any, req *GoalRef, stream grpc.ServerStream) error {
				return srv.(actionServer).Feedback(req, stream)
			}),
			ServerStreams: true,
		},
	},
	Metadata: "teach/action",
}

var topicServiceDesc = grpc.ServiceDesc{
	ServiceName: topicService,
	HandlerType: (*topicServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName: "Subscribe",
			Handler: serverStreamHandler(func(srv any, req *SubscribeRequest, stream grpc.ServerStream) error {
				return srv.(topicServer).Subscribe(req, stream)
			}),
			ServerStreams: true,
		},
	},
	Metadata: "teach/topic",
}

package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/teachctl/internal/command"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

var (
	ErrUnknownService = errors.New("transport: unknown service")
	ErrUnknownAction  = errors.New("transport: unknown action")
	ErrUnknownTopic   = errors.New("transport: unknown topic")
	ErrUnknownGoal    = errors.New("transport: unknown goal")
	ErrPreempted      = errors.New("transport: goal preempted")
	ErrGoalCanceled   = errors.New("transport: goal canceled")
)

type rpcPhase int

const (
	// phaseSend covers calls that never reached a server transport.
	phaseSend rpcPhase = iota
	// phaseDelivered covers calls bound to a server stream. Only routing
	// refusals from the server still count as dispatch failures.
	phaseDelivered
	// phaseAwait covers waits on an already-accepted request.
	phaseAwait
)

// sendPhase reports whether a call got as far as a server stream. p is filled
// by grpc.Peer once a transport stream exists.
func sendPhase(p *peer.Peer) rpcPhase {
	if p != nil && p.Addr != nil {
		return phaseDelivered
	}
	return phaseSend
}

// classifyRPC maps a gRPC error onto the command failure sentinels.
// Before a stream exists, Unavailable, Unimplemented and NotFound mean the
// endpoint could not take the request (dispatch failure). Once delivered, only
// Unimplemented and NotFound do; a dropped connection is a transport failure.
// Every error while awaiting is a transport failure. Caller deadlines keep
// context.DeadlineExceeded in the chain.
func classifyRPC(ctx context.Context, phase rpcPhase, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s: %w", command.ErrTransport, op, ctxErr)
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %s: %w", command.ErrTransport, op, err)
	}
	switch phase {
	case phaseSend:
		switch st.Code() {
		case codes.Unavailable, codes.Unimplemented, codes.NotFound:
			return fmt.Errorf("%w: %s: %s", command.ErrDispatch, op, st.Message())
		}
	case phaseDelivered:
		switch st.Code() {
		case codes.Unimplemented, codes.NotFound:
			return fmt.Errorf("%w: %s: %s", command.ErrDispatch, op, st.Message())
		}
	}
	return fmt.Errorf("%w: %s: %s: %s", command.ErrTransport, op, st.Code(), st.Message())
}

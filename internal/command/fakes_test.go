package command

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

type fakeTrigger struct {
	name  string
	resp  TriggerResponse
	err   error
	block bool
	// errAfterCancel, when set with block, is returned once ctx ends instead
	// of the context error.
	errAfterCancel error
	calls          atomic.Int64
}

func (f *fakeTrigger) Name() string { return f.name }

func (f *fakeTrigger) Call(ctx context.Context) (TriggerResponse, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		if f.errAfterCancel != nil {
			return TriggerResponse{}, f.errAfterCancel
		}
		return TriggerResponse{}, fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
	}
	if f.err != nil {
		return TriggerResponse{}, f.err
	}
	return f.resp, nil
}

type fakeHandle struct {
	id       string
	result   GoalResult
	err      error
	block    bool
	feedback chan Feedback

	mu       sync.Mutex
	canceled bool
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Result(ctx context.Context) (GoalResult, error) {
	if h.block {
		<-ctx.Done()
		return GoalResult{}, ctx.Err()
	}
	if h.err != nil {
		return GoalResult{}, h.err
	}
	return h.result, nil
}

func (h *fakeHandle) Feedback() <-chan Feedback { return h.feedback }

func (h *fakeHandle) Cancel(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.canceled = true
	return nil
}

func (h *fakeHandle) wasCanceled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.canceled
}

type fakeAction struct {
	name    string
	handle  *fakeHandle
	sendErr error

	// onSend runs before the goal is answered.
	onSend func()

	mu    sync.Mutex
	goals []MatchGoal
}

func (a *fakeAction) Name() string { return a.name }

func (a *fakeAction) SendGoal(ctx context.Context, goal MatchGoal) (GoalHandle, error) {
	a.mu.Lock()
	a.goals = append(a.goals, goal)
	a.mu.Unlock()
	if a.onSend != nil {
		a.onSend()
	}
	if a.sendErr != nil {
		return nil, a.sendErr
	}
	return a.handle, nil
}

func (a *fakeAction) sent() []MatchGoal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]MatchGoal(nil), a.goals...)
}

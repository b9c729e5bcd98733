package effect

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/reflowkit/reflow/diag"
	"github.com/reflowkit/reflow/internal/canceller"
)

// Runner interprets effect values. Exec blocks until the effect has fully
// completed or been cancelled; callers that only need handoff use Prepare and
// run the returned closure on their own goroutine.
//
// Deliver re-enters the single-writer context with one emission. It is called
// from task goroutines and must serialize internally (the store's Send does).
type Runner[A any] struct {
	Deliver   func(Emission[A])
	Canceller *canceller.Registry
	Sink      diag.Sink
}

// Exec executes the effect under ctx, blocking until done. Task bodies
// observe cancellation cooperatively through the context; emissions after
// cancellation are dropped.
func (r Runner[A]) Exec(ctx context.Context, e Effect[A]) {
	r.Prepare(ctx, e)()
}

// Prepare performs the synchronous part of execution — cancellation
// registration and cancel-in-flight resolution — and returns the closure
// doing the actual work. Arming happens depth-first in operand order, so
// within one merged effect every Cancellable is registered before any
// sibling Cancel runs: a reducer step that both starts and cancels work
// under one id behaves deterministically.
//
// The returned closure must be called exactly once.
func (r Runner[A]) Prepare(ctx context.Context, e Effect[A]) func() {
	switch e.op {
	case opSync:
		return func() {
			for _, em := range e.sync {
				if ctx.Err() != nil {
					return
				}
				r.Deliver(em)
			}
		}

	case opRun:
		return func() { r.execTask(ctx, e) }

	case opMerge:
		jobs := make([]func(), len(e.children))
		for i, child := range e.children {
			jobs[i] = r.Prepare(ctx, child)
		}
		return func() {
			var wg sync.WaitGroup
			for _, job := range jobs {
				wg.Add(1)
				go func(run func()) {
					defer wg.Done()
					run()
				}(job)
			}
			wg.Wait()
		}

	case opConcat:
		// Later operands arm only once their predecessor finished: a task
		// registers when it starts, not when the chain is built. Operands
		// after a cancellation still run; their bodies see the cancelled
		// context and bail out on their own.
		children := e.children
		return func() {
			for _, child := range children {
				r.Exec(ctx, child)
			}
		}

	case opCancellable:
		taskCtx, cancel := context.WithCancel(ctx)
		if e.inFlight {
			r.Canceller.Cancel(e.id)
		}
		unregister := r.Canceller.Register(e.id, cancel)
		inner := *e.inner
		return func() {
			defer unregister()
			defer cancel()
			r.Exec(taskCtx, inner)
		}

	case opCancel:
		return func() { r.Canceller.Cancel(e.id) }

	default:
		return func() {}
	}
}

func (r Runner[A]) execTask(ctx context.Context, e Effect[A]) {
	taskID := uuid.New().String()

	defer func() {
		if rec := recover(); rec != nil {
			r.sink().Error("panic in task body", map[string]any{
				"taskId": taskID,
				"panic":  rec,
			})
		}
	}()

	emit := func(a A) {
		if ctx.Err() != nil {
			return
		}
		r.Deliver(Emission[A]{Action: a})
	}

	err := e.body(ctx, emit)
	if err == nil {
		return
	}
	if isCancellation(err) {
		return
	}
	if e.onError != nil {
		e.onError(ctx, err, emit)
		return
	}
	r.sink().Warn("unhandled task error", map[string]any{
		"taskId":   taskID,
		"priority": e.priority,
		"error":    err.Error(),
	})
}

func (r Runner[A]) sink() diag.Sink {
	if r.Sink != nil {
		return r.Sink
	}
	return diag.Current()
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

package effect_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reflowkit/reflow/diag"
	"github.com/reflowkit/reflow/effect"
	"github.com/reflowkit/reflow/internal/canceller"
)

// harness wires a runner to a concurrent action recorder.
type harness[A any] struct {
	mu       sync.Mutex
	actions  []A
	runner   effect.Runner[A]
	registry *canceller.Registry
	recorder *diag.Recorder
}

func newHarness[A any]() *harness[A] {
	h := &harness[A]{
		registry: canceller.New(),
		recorder: diag.NewRecorder(),
	}
	h.runner = effect.Runner[A]{
		Deliver: func(em effect.Emission[A]) {
			h.mu.Lock()
			h.actions = append(h.actions, em.Action)
			h.mu.Unlock()
		},
		Canceller: h.registry,
		Sink:      h.recorder,
	}
	return h
}

func (h *harness[A]) got() []A {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]A, len(h.actions))
	copy(out, h.actions)
	return out
}

func TestRunner_TaskEmitsActions(t *testing.T) {
	h := newHarness[string]()

	e := effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
		emit("one")
		time.Sleep(10 * time.Millisecond)
		emit("two")
		return nil
	})
	h.runner.Exec(context.Background(), e)

	assert.Equal(t, []string{"one", "two"}, h.got())
}

func TestRunner_UnhandledErrorBecomesDiagnostic(t *testing.T) {
	h := newHarness[string]()

	e := effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
		return errors.New("boom")
	})
	h.runner.Exec(context.Background(), e)

	require.Equal(t, 1, h.recorder.Len())
	rec := h.recorder.Records()[0]
	assert.Equal(t, diag.LevelWarn, rec.Level)
	assert.Equal(t, "unhandled task error", rec.Message)
	assert.Equal(t, "boom", rec.Fields["error"])
	assert.Empty(t, h.got())
}

func TestRunner_HandledErrorMayEmit(t *testing.T) {
	h := newHarness[string]()

	e := effect.Run(
		func(ctx context.Context, emit effect.Emit[string]) error {
			return errors.New("fetch failed")
		},
		effect.OnError(func(ctx context.Context, err error, emit effect.Emit[string]) {
			emit("error:" + err.Error())
		}),
	)
	h.runner.Exec(context.Background(), e)

	assert.Equal(t, []string{"error:fetch failed"}, h.got())
	assert.Zero(t, h.recorder.Len())
}

func TestRunner_CancellationIsSilent(t *testing.T) {
	h := newHarness[string]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
		<-ctx.Done()
		emit("never delivered")
		return ctx.Err()
	})
	h.runner.Exec(ctx, e)

	assert.Empty(t, h.got(), "emissions after cancellation are dropped")
	assert.Zero(t, h.recorder.Len(), "cancellation is never a diagnostic")
}

func TestRunner_PanicBecomesErrorDiagnostic(t *testing.T) {
	h := newHarness[string]()

	e := effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
		panic("bad body")
	})
	h.runner.Exec(context.Background(), e)

	require.Equal(t, 1, h.recorder.Len())
	rec := h.recorder.Records()[0]
	assert.Equal(t, diag.LevelError, rec.Level)
	assert.Equal(t, "bad body", rec.Fields["panic"])
}

func TestRunner_ConcatHappensBefore(t *testing.T) {
	h := newHarness[string]()

	first := effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
		time.Sleep(50 * time.Millisecond)
		emit("first-done")
		return nil
	})
	second := effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
		emit("second")
		return nil
	})
	h.runner.Exec(context.Background(), effect.Concat(first, second))

	require.Equal(t, []string{"first-done", "second"}, h.got(),
		"no action from the second task may be observed before the first completed")
}

func TestRunner_MergeRunsOperandsConcurrently(t *testing.T) {
	h := newHarness[string]()

	slow := effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
		time.Sleep(80 * time.Millisecond)
		emit("slow")
		return nil
	})
	fast := effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
		emit("fast")
		return nil
	})

	start := time.Now()
	h.runner.Exec(context.Background(), effect.Merge(slow, fast, effect.Send("sync")))
	elapsed := time.Since(start)

	assert.ElementsMatch(t, []string{"slow", "fast", "sync"}, h.got())
	assert.Less(t, elapsed, 160*time.Millisecond, "operands must not run sequentially")
}

func TestRunner_CancelTerminatesRegisteredTask(t *testing.T) {
	h := newHarness[string]()

	started := make(chan struct{})
	stopped := make(chan struct{})

	task := effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
		close(started)
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	}).Cancellable("download", false)

	go h.runner.Exec(context.Background(), task)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task never started")
	}

	h.runner.Exec(context.Background(), effect.Cancel[string]("download"))

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("task was not cancelled")
	}
}

func TestRunner_CancelAbsentIDIsNoop(t *testing.T) {
	h := newHarness[string]()
	h.runner.Exec(context.Background(), effect.Cancel[string]("nobody-home"))
	assert.Zero(t, h.recorder.Len())
}

func TestRunner_CancelInFlightReplacesPriorTask(t *testing.T) {
	h := newHarness[string]()

	firstStopped := make(chan struct{})
	firstStarted := make(chan struct{})

	first := effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
		close(firstStarted)
		<-ctx.Done()
		close(firstStopped)
		return ctx.Err()
	}).Cancellable("search", false)

	go h.runner.Exec(context.Background(), first)
	select {
	case <-firstStarted:
	case <-time.After(time.Second):
		t.Fatal("first task never started")
	}

	second := effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
		emit("second-result")
		return nil
	}).Cancellable("search", true)
	h.runner.Exec(context.Background(), second)

	select {
	case <-firstStopped:
	case <-time.After(time.Second):
		t.Fatal("cancel-in-flight did not cancel the prior task")
	}
	assert.Equal(t, []string{"second-result"}, h.got())
}

// Pins the open question: two tasks registered independently under an equal
// id coexist, and a single Cancel terminates both.
func TestRunner_SharedCancelID_CancelHitsAll(t *testing.T) {
	h := newHarness[string]()

	var wg sync.WaitGroup
	started := make(chan struct{}, 2)
	stopped := make(chan string, 2)

	mk := func(name string) effect.Effect[string] {
		return effect.Run(func(ctx context.Context, emit effect.Emit[string]) error {
			started <- struct{}{}
			<-ctx.Done()
			stopped <- name
			return ctx.Err()
		}).Cancellable("shared", false)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.runner.Exec(context.Background(), effect.Merge(mk("a"), mk("b")))
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("tasks never started")
		}
	}
	require.Equal(t, 2, h.registry.Active("shared"))

	h.runner.Exec(context.Background(), effect.Cancel[string]("shared"))
	wg.Wait()

	names := []string{<-stopped, <-stopped}
	assert.ElementsMatch(t, []string{"a", "b"}, names)
	assert.Zero(t, h.registry.Active("shared"))
}

func TestRunner_MappedTaskPreservesOrderAndCount(t *testing.T) {
	h := newHarness[string]()

	source := effect.Run(func(ctx context.Context, emit effect.Emit[int]) error {
		for i := 1; i <= 5; i++ {
			emit(i)
		}
		return nil
	})
	h.runner.Exec(context.Background(), effect.Map(source, func(n int) string {
		return fmt.Sprintf("n=%d", n)
	}))

	assert.Equal(t, []string{"n=1", "n=2", "n=3", "n=4", "n=5"}, h.got())
}

func TestRunner_MappedCancellableKeepsItsID(t *testing.T) {
	h := newHarness[string]()

	started := make(chan struct{})
	stopped := make(chan struct{})

	inner := effect.Run(func(ctx context.Context, emit effect.Emit[int]) error {
		close(started)
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	}).Cancellable("ticker", false)

	go h.runner.Exec(context.Background(), effect.Map(inner, func(n int) string { return "" }))

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task never started")
	}
	h.registry.Cancel("ticker")

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("mapped effect lost its cancellation id")
	}
}

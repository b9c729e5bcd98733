// Package store is the runtime that drives a composed reducer tree: it
// serializes state mutation onto a single writer, broadcasts snapshots to
// observers, and executes the effects reducers return.
package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/reflowkit/reflow/diag"
	"github.com/reflowkit/reflow/effect"
	"github.com/reflowkit/reflow/internal/canceller"
	"github.com/reflowkit/reflow/reducer"
)

// Store owns one feature tree: its state, its composed reducer, the
// cancellation registry, and every task spawned by effect execution.
//
// All reductions are serialized under an exclusive lock, so no two reducer
// invocations in the same tree ever run concurrently. Effect execution is
// concurrent; completed task steps re-enter through Send.
type Store[S, A any] struct {
	id  string
	cfg Config

	mu      sync.Mutex
	state   S
	reducer reducer.Reducer[S, A]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	registry *canceller.Registry
	runner   effect.Runner[A]
	sink     diag.Sink

	obsMu     sync.Mutex
	observers map[int]chan S
	nextObs   int

	onEmission func(effect.Emission[A])
}

// Option configures a Store at construction.
type Option[S, A any] func(*Store[S, A])

// WithDiag overrides the process-wide diagnostics sink for this store.
func WithDiag[S, A any](sink diag.Sink) Option[S, A] {
	return func(s *Store[S, A]) { s.sink = sink }
}

// WithConfig replaces the default runtime tuning.
func WithConfig[S, A any](cfg Config) Option[S, A] {
	return func(s *Store[S, A]) { s.cfg = cfg.normalized() }
}

// WithObserveBuffer sets the per-observer channel capacity.
func WithObserveBuffer[S, A any](n int) Option[S, A] {
	return func(s *Store[S, A]) {
		if n > 0 {
			s.cfg.ObserveBuffer = n
		}
	}
}

// WithEmissionHook installs a callback invoked with every emission before its
// action is reduced. The emission carries the opaque transition hint
// unchanged; this is the integration point for UI layers that consume it.
func WithEmissionHook[S, A any](hook func(effect.Emission[A])) Option[S, A] {
	return func(s *Store[S, A]) { s.onEmission = hook }
}

// New builds a store around an initial state and a composed reducer.
func New[S, A any](initial S, r reducer.Reducer[S, A], opts ...Option[S, A]) *Store[S, A] {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store[S, A]{
		id:        uuid.New().String(),
		cfg:       DefaultConfig(),
		state:     initial,
		reducer:   r,
		ctx:       ctx,
		cancel:    cancel,
		registry:  canceller.New(),
		observers: make(map[int]chan S),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runner = effect.Runner[A]{
		Deliver:   s.deliver,
		Canceller: s.registry,
		Sink:      s.sink,
	}
	return s
}

// Send injects an action into the single-writer context: reduce, snapshot,
// broadcast, then hand the resulting effect off for execution. It returns
// once the effect has been handed off, not once it completes. Purely
// synchronous effects are delivered inline before returning.
func (s *Store[S, A]) Send(action A) {
	if s.closed.Load() {
		s.diagSink().Warn("send on closed store", map[string]any{"storeId": s.id})
		return
	}

	s.mu.Lock()
	eff := s.reducer.Reduce(&s.state, action)
	snapshot := s.state
	s.mu.Unlock()

	s.broadcast(snapshot)
	s.handOff(eff)
}

func (s *Store[S, A]) deliver(em effect.Emission[A]) {
	if s.onEmission != nil {
		s.onEmission(em)
	}
	s.Send(em.Action)
}

func (s *Store[S, A]) handOff(eff effect.Effect[A]) {
	if eff.IsNone() {
		return
	}
	// Prepare arms cancellation registration synchronously: once Send
	// returns, Cancel with the effect's id reliably reaches it even if its
	// task body has not started yet.
	job := s.runner.Prepare(s.ctx, eff)
	if eff.Immediate() {
		job()
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		job()
	}()
}

// State returns a snapshot of the current state.
func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancel pre-emptively terminates every running effect registered under id.
// Callable from any goroutine; used e.g. when a view disappears.
func (s *Store[S, A]) Cancel(id any) {
	s.registry.Cancel(id)
}

// Observe returns a channel of state snapshots, one after each completed
// transition, starting with transitions that happen after the call. The
// subscription ends when ctx is done or the store closes; the channel is
// closed either way.
//
// Delivery is bounded: when an observer falls behind, the oldest buffered
// snapshot is evicted to make room for the newest.
func (s *Store[S, A]) Observe(ctx context.Context) <-chan S {
	ch := make(chan S, s.cfg.ObserveBuffer)

	s.obsMu.Lock()
	if s.closed.Load() {
		s.obsMu.Unlock()
		close(ch)
		return ch
	}
	key := s.nextObs
	s.nextObs++
	s.observers[key] = ch
	s.obsMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.ctx.Done():
		}
		s.obsMu.Lock()
		if _, live := s.observers[key]; live {
			delete(s.observers, key)
			close(ch)
		}
		s.obsMu.Unlock()
	}()

	return ch
}

func (s *Store[S, A]) broadcast(snapshot S) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for _, ch := range s.observers {
		select {
		case ch <- snapshot:
		default:
			// Full observer: evict the oldest snapshot, then retry once. The
			// second send only loses a race against another broadcaster.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Close cancels every in-flight task, waits for them to finish, and closes
// all observer channels. Idempotent; Send after Close is dropped with a
// diagnostic.
func (s *Store[S, A]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
	s.wg.Wait()

	s.obsMu.Lock()
	for key, ch := range s.observers {
		delete(s.observers, key)
		close(ch)
	}
	s.obsMu.Unlock()
}

func (s *Store[S, A]) diagSink() diag.Sink {
	if s.sink != nil {
		return s.sink
	}
	return diag.Current()
}

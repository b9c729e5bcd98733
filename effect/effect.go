package effect

import "context"

// Emit is the callback a task body uses to feed actions back into the
// runtime. It may be called any number of times, synchronously or after
// suspension. Once the task's context is cancelled, further calls are
// dropped.
type Emit[A any] func(action A)

// Emission is one action on its way back into the runtime, together with the
// opaque transition hint it was sent with (nil when unhinted). The hint is
// passed through unchanged; the runtime never interprets it.
type Emission[A any] struct {
	Action A
	Hint   any
}

// Priority is an opaque scheduling hint attached to a task. The Go runtime
// has no goroutine priorities; the hint is carried into diagnostics and made
// available to task bodies that want to act on it.
type Priority int

const (
	PriorityUnspecified Priority = iota
	PriorityBackground
	PriorityUtility
	PriorityUserInitiated
	PriorityHigh
)

type op uint8

const (
	opNone op = iota
	opSync
	opRun
	opMerge
	opConcat
	opCancellable
	opCancel
)

// Effect is an inert description of zero, one, or many future actions. It is
// a value: combining effects builds new values and never mutates or executes
// the operands. A Runner interprets the value exactly once.
type Effect[A any] struct {
	op   op
	sync []Emission[A]

	priority Priority
	body     func(ctx context.Context, emit Emit[A]) error
	onError  func(ctx context.Context, err error, emit Emit[A])

	children []Effect[A]

	inner    *Effect[A]
	id       any
	inFlight bool
}

// None is the effect that performs no work and emits nothing. It is the
// identity of both Merge and Concat.
func None[A any]() Effect[A] {
	return Effect[A]{op: opNone}
}

// Send emits exactly one action back into the runtime.
func Send[A any](action A) Effect[A] {
	return Effect[A]{op: opSync, sync: []Emission[A]{{Action: action}}}
}

// SendHinted is Send with an opaque transition hint attached to the emission.
func SendHinted[A any](action A, hint any) Effect[A] {
	return Effect[A]{op: opSync, sync: []Emission[A]{{Action: action, Hint: hint}}}
}

// Batch emits a fixed ordered sequence of actions. The sequence is delivered
// in order; an empty batch is None.
func Batch[A any](actions ...A) Effect[A] {
	if len(actions) == 0 {
		return None[A]()
	}
	ems := make([]Emission[A], len(actions))
	for i, a := range actions {
		ems[i] = Emission[A]{Action: a}
	}
	return Effect[A]{op: opSync, sync: ems}
}

// RunOption configures a task effect.
type RunOption[A any] func(*Effect[A])

// WithPriority attaches a scheduling hint to the task.
func WithPriority[A any](p Priority) RunOption[A] {
	return func(e *Effect[A]) { e.priority = p }
}

// OnError installs an error handler for the task. The handler may itself
// emit actions (an error-state action, typically). Cancellation never
// reaches the handler.
func OnError[A any](handler func(ctx context.Context, err error, emit Emit[A])) RunOption[A] {
	return func(e *Effect[A]) { e.onError = handler }
}

// Run wraps an asynchronous unit of work. The body runs on its own goroutine
// when the effect is executed and feeds actions back through emit. Returning
// a cancellation error is swallowed silently; any other error goes to the
// OnError handler or, absent one, to the diagnostics sink as a non-fatal
// warning.
func Run[A any](body func(ctx context.Context, emit Emit[A]) error, opts ...RunOption[A]) Effect[A] {
	e := Effect[A]{op: opRun, body: body}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Merge combines effects to execute concurrently. None operands vanish,
// nested merges flatten, and purely synchronous operands coalesce into a
// single emission sequence, so the identity and associativity laws hold by
// construction.
func Merge[A any](effects ...Effect[A]) Effect[A] {
	var sync []Emission[A]
	var rest []Effect[A]
	for _, e := range effects {
		switch e.op {
		case opNone:
		case opSync:
			sync = append(sync, e.sync...)
		case opMerge:
			for _, c := range e.children {
				if c.op == opSync {
					sync = append(sync, c.sync...)
				} else {
					rest = append(rest, c)
				}
			}
		default:
			rest = append(rest, e)
		}
	}
	if len(sync) > 0 {
		rest = append([]Effect[A]{{op: opSync, sync: sync}}, rest...)
	}
	switch len(rest) {
	case 0:
		return None[A]()
	case 1:
		return rest[0]
	}
	return Effect[A]{op: opMerge, children: rest}
}

// Concat combines effects to execute strictly in order: operand N+1 starts
// only after operand N has fully completed or observed cancellation. None
// operands vanish and nested concats flatten.
func Concat[A any](effects ...Effect[A]) Effect[A] {
	var flat []Effect[A]
	for _, e := range effects {
		switch e.op {
		case opNone:
		case opConcat:
			flat = append(flat, e.children...)
		default:
			flat = append(flat, e)
		}
	}
	switch len(flat) {
	case 0:
		return None[A]()
	case 1:
		return flat[0]
	}
	return Effect[A]{op: opConcat, children: flat}
}

// Immediate reports whether the effect contains no task work, i.e. executing
// it completes synchronously on the calling goroutine. The store uses this to
// deliver pure emission effects inline.
func (e Effect[A]) Immediate() bool {
	switch e.op {
	case opNone, opSync, opCancel:
		return true
	case opRun:
		return false
	case opCancellable:
		return e.inner.Immediate()
	default:
		for _, c := range e.children {
			if !c.Immediate() {
				return false
			}
		}
		return true
	}
}

// IsNone reports whether the effect is the identity.
func (e Effect[A]) IsNone() bool {
	return e.op == opNone
}

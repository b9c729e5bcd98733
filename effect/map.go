package effect

import "context"

// Map retags an effect into another action type by applying transform to
// every action it would emit. Scheduling and cancellation structure are
// preserved: a mapped task is still the same task under the same ids, its
// emissions rewritten on the way out. Map distributes over Merge and Concat.
func Map[A, B any](e Effect[A], transform func(A) B) Effect[B] {
	switch e.op {
	case opNone:
		return None[B]()

	case opSync:
		ems := make([]Emission[B], len(e.sync))
		for i, em := range e.sync {
			ems[i] = Emission[B]{Action: transform(em.Action), Hint: em.Hint}
		}
		return Effect[B]{op: opSync, sync: ems}

	case opRun:
		body := e.body
		mapped := Effect[B]{
			op:       opRun,
			priority: e.priority,
			body: func(ctx context.Context, emit Emit[B]) error {
				return body(ctx, func(a A) { emit(transform(a)) })
			},
		}
		if onError := e.onError; onError != nil {
			mapped.onError = func(ctx context.Context, err error, emit Emit[B]) {
				onError(ctx, err, func(a A) { emit(transform(a)) })
			}
		}
		return mapped

	case opMerge, opConcat:
		children := make([]Effect[B], len(e.children))
		for i, c := range e.children {
			children[i] = Map(c, transform)
		}
		return Effect[B]{op: e.op, children: children}

	case opCancellable:
		inner := Map(*e.inner, transform)
		return Effect[B]{op: opCancellable, inner: &inner, id: e.id, inFlight: e.inFlight}

	case opCancel:
		return Effect[B]{op: opCancel, id: e.id}

	default:
		return None[B]()
	}
}

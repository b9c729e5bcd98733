package effect

// Cancellable registers the effect's running work under id for the lifetime
// of its execution, so a later Cancel with an equal id terminates it.
//
// If cancelInFlight is set, any work already registered under an equal id is
// cancelled before this effect starts. When several tasks register under the
// same id without cancelInFlight they coexist; Cancel then terminates all of
// them.
//
// Ids are compared structurally (==), so composite keys scope cancellation:
// the collection adapter uses (element-key, collection-scope) pairs to keep
// sibling elements' effects independent.
func (e Effect[A]) Cancellable(id any, cancelInFlight bool) Effect[A] {
	if e.op == opNone && !cancelInFlight {
		return e
	}
	inner := e
	return Effect[A]{op: opCancellable, inner: &inner, id: id, inFlight: cancelInFlight}
}

// Cancel produces an effect that, when executed, terminates every running
// effect registered under an id equal to id and emits nothing. Cancelling an
// id with no registrations is a no-op.
func Cancel[A any](id any) Effect[A] {
	return Effect[A]{op: opCancel, id: id}
}

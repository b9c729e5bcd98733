// Package reducer provides the pure transition-function type and the
// combinators that compose reducers into a tree: sequencing, conditional
// branches, homogeneous lists, child scoping, keyed-collection adaptation,
// and change detection. Composition is ordinary value construction; the tree
// is built once and never mutated afterwards.
package reducer

import (
	"github.com/reflowkit/reflow/effect"
)

// Reducer is a transition function over a feature's state. Reduce mutates
// the state in place and returns the effect describing any follow-up work.
// Invocations of one composed tree are serialized by the store; reducers
// need no internal synchronization.
type Reducer[S, A any] interface {
	Reduce(state *S, action A) effect.Effect[A]
}

// Func adapts a plain function to the Reducer interface.
type Func[S, A any] func(state *S, action A) effect.Effect[A]

func (f Func[S, A]) Reduce(state *S, action A) effect.Effect[A] {
	return f(state, action)
}

// Empty is the identity reducer: no state change, None effect.
func Empty[S, A any]() Reducer[S, A] {
	return Func[S, A](func(*S, A) effect.Effect[A] {
		return effect.None[A]()
	})
}

// Sequence invokes first then second against the same state and action, so
// second observes mutations first already made. Their effects are merged and
// therefore run concurrently: the ordering applies to state edits only.
func Sequence[S, A any](first, second Reducer[S, A]) Reducer[S, A] {
	return Func[S, A](func(state *S, action A) effect.Effect[A] {
		a := first.Reduce(state, action)
		b := second.Reduce(state, action)
		return effect.Merge(a, b)
	})
}

// Combine invokes every reducer against the same state and action in order,
// folding their effects left to right with Merge, seeded with None.
func Combine[S, A any](reducers ...Reducer[S, A]) Reducer[S, A] {
	return Func[S, A](func(state *S, action A) effect.Effect[A] {
		out := effect.None[A]()
		for _, r := range reducers {
			out = effect.Merge(out, r.Reduce(state, action))
		}
		return out
	})
}

// Conditional forwards every invocation into exactly one branch, chosen once
// at construction.
func Conditional[S, A any](useFirst bool, first, second Reducer[S, A]) Reducer[S, A] {
	if useFirst {
		return first
	}
	return second
}

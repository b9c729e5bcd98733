package reducer

import (
	"github.com/reflowkit/reflow/effect"
)

// OnChange wraps base so that react runs whenever the derived value of state
// changes across a reduction step. The derived value is captured before and
// after base; when they differ, react(old, new) builds a reducer that runs
// against the already-mutated state and the same action, and its effect is
// merged with base's.
//
// Apply this to leaf-level derived values: it adds an equality check to every
// action routed through it.
func OnChange[S, A any, V comparable](
	base Reducer[S, A],
	of func(*S) V,
	react func(oldValue, newValue V) Reducer[S, A],
) Reducer[S, A] {
	return OnChangeEq(base, of, func(a, b V) bool { return a == b }, react)
}

// OnChangeEq is OnChange with a caller-supplied equality, for derived values
// that are not comparable or need semantic comparison.
func OnChangeEq[S, A any, V any](
	base Reducer[S, A],
	of func(*S) V,
	eq func(a, b V) bool,
	react func(oldValue, newValue V) Reducer[S, A],
) Reducer[S, A] {
	return Func[S, A](func(state *S, action A) effect.Effect[A] {
		oldValue := of(state)
		eff := base.Reduce(state, action)
		newValue := of(state)
		if eq(oldValue, newValue) {
			return eff
		}
		extra := react(oldValue, newValue).Reduce(state, action)
		return effect.Merge(eff, extra)
	})
}

package reducer

import (
	"github.com/reflowkit/reflow/effect"
)

// Scope pulls a child reducer into parent space.
//
// state projects the parent state to the child's slice of it, returned as a
// pointer so the child mutates in place. extract pulls a child action out of
// a parent action; embed injects one back. The pair must be mutual inverses
// on the success path: extract(embed(ca)) == (ca, true).
//
// Parent actions that do not extract leave state untouched and produce None.
// Child effects are retagged into parent-action space through effect.Map, so
// their scheduling and cancellation ids survive unchanged.
func Scope[PS, PA, CS, CA any](
	state func(*PS) *CS,
	extract func(PA) (CA, bool),
	embed func(CA) PA,
	child Reducer[CS, CA],
) Reducer[PS, PA] {
	return Func[PS, PA](func(parent *PS, action PA) effect.Effect[PA] {
		ca, ok := extract(action)
		if !ok {
			return effect.None[PA]()
		}
		eff := child.Reduce(state(parent), ca)
		return effect.Map(eff, embed)
	})
}

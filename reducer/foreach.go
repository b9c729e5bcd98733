package reducer

import (
	"slices"

	"github.com/reflowkit/reflow/diag"
	"github.com/reflowkit/reflow/effect"
	"github.com/reflowkit/reflow/identified"
)

// ElementID scopes a cancellation id to one element of a keyed collection.
// Two ElementIDs are equal iff key and scope both are, so cancelling one
// element's effects never touches its siblings.
type ElementID[K comparable] struct {
	Key   K
	Scope string
}

// ForEach lifts a per-element child reducer over a keyed collection embedded
// in parent state, and cleans up after removals: any element present before
// the parent reducer ran but absent afterwards has its in-flight effects
// cancelled.
//
// collection projects the parent state to the element array; scope names the
// collection and becomes part of every element's composite cancellation id.
// extract pulls (element key, child action) out of a parent action; embed
// injects one back and must invert extract on the success path.
//
// The child reducer runs before the parent. This lets an element react to
// the very action that triggers its own removal; the post-hoc key-set diff
// then covers removals decided elsewhere in the tree.
func ForEach[PS, PA any, K comparable, CS, CA any](
	parent Reducer[PS, PA],
	collection func(*PS) *identified.Array[K, CS],
	scope string,
	extract func(PA) (K, CA, bool),
	embed func(K, CA) PA,
	child Reducer[CS, CA],
) Reducer[PS, PA] {
	return Func[PS, PA](func(state *PS, action PA) effect.Effect[PA] {
		childEff := effect.None[PA]()
		if key, ca, ok := extract(action); ok {
			if elem, found := collection(state).Ptr(key); !found {
				// An action raced with its element's removal. Drop it and keep
				// going; the adapter stays usable.
				diag.Warn("action for missing collection element", map[string]any{
					"scope": scope,
					"key":   key,
				})
			} else {
				eff := child.Reduce(elem, ca)
				childEff = effect.Map(eff, func(c CA) PA { return embed(key, c) }).
					Cancellable(ElementID[K]{Key: key, Scope: scope}, false)
			}
		}

		before := collection(state).Keys()
		parentEff := parent.Reduce(state, action)
		after := collection(state).Keys()

		if slices.Equal(before, after) {
			return effect.Merge(childEff, parentEff)
		}

		effects := []effect.Effect[PA]{childEff, parentEff}
		for _, key := range before {
			if !slices.Contains(after, key) {
				effects = append(effects, effect.Cancel[PA](ElementID[K]{Key: key, Scope: scope}))
			}
		}
		return effect.Merge(effects...)
	})
}

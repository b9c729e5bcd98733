// Package canceller maps cancellation ids to the live tasks registered under
// them. The table is sharded by an xxhash of the id so concurrent Cancel and
// Register calls from task goroutines never contend on a single lock.
package canceller

import (
	"context"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const numShards = 16

// Registry is a process-local table of id → running-task cancel functions.
//
// Ids are arbitrary comparable values; two ids address the same entry iff
// they are equal under ==. Several tasks may register under an equal id at
// the same time; Cancel terminates all of them.
type Registry struct {
	shards [numShards]shard
}

type shard struct {
	mu      sync.Mutex
	entries map[any][]*registration
}

type registration struct {
	cancel context.CancelFunc
}

func New() *Registry {
	reg := &Registry{}
	for i := range reg.shards {
		reg.shards[i].entries = make(map[any][]*registration)
	}
	return reg
}

// Register records cancel under id and returns a deregistration handle. The
// handle is idempotent and must be called when the task finishes, whether it
// completed or was cancelled.
func (r *Registry) Register(id any, cancel context.CancelFunc) (unregister func()) {
	sh := r.shardOf(id)
	entry := &registration{cancel: cancel}

	sh.mu.Lock()
	sh.entries[id] = append(sh.entries[id], entry)
	sh.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sh.mu.Lock()
			defer sh.mu.Unlock()
			live := sh.entries[id]
			for i, reg := range live {
				if reg == entry {
					sh.entries[id] = append(live[:i], live[i+1:]...)
					break
				}
			}
			if len(sh.entries[id]) == 0 {
				delete(sh.entries, id)
			}
		})
	}
}

// Cancel terminates every task currently registered under an id equal to id.
// Cancelling an absent id is a no-op.
func (r *Registry) Cancel(id any) {
	sh := r.shardOf(id)

	sh.mu.Lock()
	live := sh.entries[id]
	delete(sh.entries, id)
	sh.mu.Unlock()

	// Cancel funcs run outside the shard lock: a cancelled task may call its
	// own unregister handle synchronously.
	for _, reg := range live {
		reg.cancel()
	}
}

// Active reports how many tasks are registered under id.
func (r *Registry) Active(id any) int {
	sh := r.shardOf(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return len(sh.entries[id])
}

func (r *Registry) shardOf(id any) *shard {
	// Equal comparable values of the same type format identically, so equal
	// ids always land in the same shard.
	h := xxhash.Sum64String(fmt.Sprintf("%T|%v", id, id))
	return &r.shards[h%numShards]
}

// pkg/maple/epoch.go
package maple

import (
	"sync"
	"sync/atomic"
)

// reclaimer provides epoch-based deferred reclamation (spec.md section 2
// item 11, section 5 "Reclamation"). This is the external collaborator
// the spec's scope explicitly hands off ("the reader-side deferred-
// reclamation mechanism... the spec states the contract it needs"); we
// still implement a concrete one, in the same shape as the teacher's
// epoch manager, so the tree is runnable and testable end to end.
//
// Contract: a node is retired (added to the topiary) after its
// replacement has been published, and is only actually freed once every
// reader that could have observed it has left its read section.
type reclaimer struct {
	globalEpoch uint64

	readers sync.Map // id -> *readerState

	retiredMu sync.Mutex
	retired   map[uint64][]*node // topiary, keyed by retirement epoch

	nextReaderID uint64
}

type readerState struct {
	epoch  uint64
	active int32
}

func newReclaimer() *reclaimer {
	return &reclaimer{globalEpoch: 1, retired: make(map[uint64][]*node)}
}

// ReadGuard represents one reader's read section. Obtained from
// reclaimer.enter (Tree.Load, FindNext, FindPrev and Cursor each take
// one), released with Leave.
type ReadGuard struct {
	r     *reclaimer
	state *readerState
	id    uint64
}

func (r *reclaimer) enter() *ReadGuard {
	id := atomic.AddUint64(&r.nextReaderID, 1)
	st := &readerState{epoch: atomic.LoadUint64(&r.globalEpoch)}
	atomic.StoreInt32(&st.active, 1)
	r.readers.Store(id, st)
	return &ReadGuard{r: r, state: st, id: id}
}

// Leave ends the read section, allowing its epoch's retirees to be
// reclaimed once every other reader has also left.
func (g *ReadGuard) Leave() {
	if g == nil || g.state == nil {
		return
	}
	atomic.StoreInt32(&g.state.active, 0)
	g.r.readers.Delete(g.id)
}

func (r *reclaimer) advance() uint64 {
	return atomic.AddUint64(&r.globalEpoch, 1)
}

// retireAll marks every node in a write's dead list (its topiary, spec.md
// Glossary) dead, then adds it to the reclaimer at the current epoch. Per
// section 5's ordering rule this must only be called after the
// replacement subtree has been published - i.e. after the parent-slot/
// root-word store that makes the new nodes reachable - since the moment
// markDead runs, any reader still holding a pointer into one of these
// nodes (having loaded it before publication) must restart from root on
// its next ascent or descent.
func (r *reclaimer) retireAll(nodes []*node) {
	if len(nodes) == 0 {
		return
	}
	for _, n := range nodes {
		n.markDead()
	}
	epoch := atomic.LoadUint64(&r.globalEpoch)
	r.retiredMu.Lock()
	r.retired[epoch] = append(r.retired[epoch], nodes...)
	r.retiredMu.Unlock()
}

// reclaim frees (drops references to) every topiary entry retired before
// the oldest epoch any active reader could still be in. Returns the
// number of nodes reclaimed.
func (r *reclaimer) reclaim() int {
	min := r.minActiveEpoch()
	r.retiredMu.Lock()
	defer r.retiredMu.Unlock()
	n := 0
	for epoch, nodes := range r.retired {
		if epoch < min {
			n += len(nodes)
			delete(r.retired, epoch)
		}
	}
	return n
}

func (r *reclaimer) minActiveEpoch() uint64 {
	min := atomic.LoadUint64(&r.globalEpoch)
	r.readers.Range(func(_, v any) bool {
		st := v.(*readerState)
		if atomic.LoadInt32(&st.active) == 1 && st.epoch < min {
			min = st.epoch
		}
		return true
	})
	return min
}

// pendingCount reports how many nodes are awaiting reclamation.
func (r *reclaimer) pendingCount() int {
	r.retiredMu.Lock()
	defer r.retiredMu.Unlock()
	n := 0
	for _, nodes := range r.retired {
		n += len(nodes)
	}
	return n
}

func (r *reclaimer) activeReaders() int {
	n := 0
	r.readers.Range(func(_, v any) bool {
		st := v.(*readerState)
		if atomic.LoadInt32(&st.active) == 1 {
			n++
		}
		return true
	})
	return n
}

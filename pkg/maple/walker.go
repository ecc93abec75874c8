// pkg/maple/walker.go
package maple

// WalkerState names the positions spec.md section 4.9 enumerates for a
// tree traversal: never descended (Start), sitting on a live slot (Live),
// no match for the requested index (None), and a failed operation
// (Error, paired with Walker.err).
type WalkerState uint8

const (
	WalkerStart WalkerState = iota
	WalkerLive
	WalkerNone
	WalkerError
)

// WalkerStats is the running diagnostic spec.md section 2 item 3 asks a
// walk to accumulate: Depth is how many nodes descendTo visited; FullRun
// is the number of consecutive full nodes ending at the deepest node
// visited (a non-full node resets it to 0); EmptyRun is the number of
// consecutive internal levels, ending at the last internal node visited,
// whose chosen slot records a nonzero gap (a zero-gap slot resets it, so
// it stays 0 on a tree without AllocMode).
type WalkerStats struct {
	Depth    int
	FullRun  int
	EmptyRun int
}

// Walker carries one traversal's position through the tree: the node and
// slot it currently sits on, that node's covering range (cached so
// ascent/descent decisions don't need to re-read it), a pending error, and
// a reserve list of candidate offsets a caller can record with Reserve
// before committing to one (spec.md section 4.8). Tree.Alloc and
// Tree.AllocRev search with findGap and do not use the reserve list.
//
// tree, when non-nil, is the walker's only way to ever see a root newer
// than the one it started with. root is a snapshot taken at construction
// (or at the last refreshRoot); a write racing to completion concurrently
// can retire and mark dead anything reachable from it, including root
// itself, between one walker call and the next. Spec.md section 4.3's
// "caller restarts from root" on a dead-node detection means the tree's
// *current* root, not the walker's increasingly stale one - tree gives
// descendTo a way to fetch that.
type Walker struct {
	tree  *Tree
	root  encPtr
	state WalkerState
	node  *node
	slot  int

	min, max uint64

	err   error
	stats WalkerStats

	reserve []uint64
}

// newWalker builds a walker positioned at root. t may be nil for a walker
// built directly against a detached root (as in tests exercising the node
// layer in isolation) - such a walker cannot refresh a dead root and
// instead reads through it as a frozen snapshot (descendTo).
func newWalker(t *Tree, root encPtr) *Walker {
	w := &Walker{tree: t, root: root, state: WalkerStart}
	if !root.isNode() {
		w.state = WalkerNone
	}
	return w
}

// refreshRoot re-fetches the tree's currently published root, the
// counterpart of Cursor.Resume's re-walk against c.t.loadRoot(). Reports
// whether a live root was obtained; a false return means the tree is
// currently empty (or this walker has no tree to refresh from), and the
// caller should stop retrying rather than spin.
func (w *Walker) refreshRoot() bool {
	if w.tree == nil {
		return false
	}
	fresh := w.tree.loadRoot()
	if !fresh.isNode() {
		return false
	}
	w.root = fresh
	return true
}

func (w *Walker) fail(err error) {
	w.state = WalkerError
	w.err = err
	w.node = nil
}

// Reserve appends a candidate offset to the walker's pending-allocation
// list without committing it - a caller doing a multi-step gap search
// (spec.md's "reserve list") can inspect this before the enclosing write
// actually stores anything.
func (w *Walker) Reserve(offset uint64) { w.reserve = append(w.reserve, offset) }

// Reserved returns the offsets accumulated so far via Reserve.
func (w *Walker) Reserved() []uint64 { return w.reserve }

// Stats returns the depth/full-run/empty-run counters the last descent
// accumulated.
func (w *Walker) Stats() WalkerStats { return w.stats }

// State reports the walker's current position kind.
func (w *Walker) State() WalkerState { return w.state }

// Err reports the error a WalkerError state carries.
func (w *Walker) Err() error { return w.err }

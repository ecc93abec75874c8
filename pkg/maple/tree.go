// pkg/maple/tree.go
package maple

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// UMAX is the fixed upper bound every tree covers: the index space is
// always [0, UMAX], exactly as spec.md section 1 describes.
const UMAX = ^uint64(0)

// Stats tracks running counters for a Tree, exposed the way the teacher's
// CowBTreeStats exposes its own (pkg/cowbtree/cowbtree.go) - plain
// atomically-updated counters, not a full metrics subsystem.
type Stats struct {
	Height     int64
	StoreCount int64
	EraseCount int64
	LoadCount  int64
	AllocCount int64
}

// Config selects a tree's mode at construction time.
type Config struct {
	// AllocMode forces every internal node, at every height, to the gap-
	// tracking variant (invariant I4) so Alloc/AllocRev can search. Off by
	// default since maintaining gaps costs a write on every ancestor.
	AllocMode bool

	// RCU marks the tree as reader-visible: concurrent Load/Cursor/FindNext
	// calls may be in flight while a write runs, so the write path must
	// always clone rather than reuse a live node in place (write.go).
	RCU bool

	// ArenaNodes, when > 0, pre-reserves backing memory for roughly this
	// many nodes' slot arrays via one mmap mapping (arena.go), rather than
	// letting ordinary per-node allocation churn the Go heap. Useful when a
	// tree is built up by many StoreRange calls; 0 disables it.
	ArenaNodes int
}

// Tree is a maple tree handle (spec.md section 3, "Entity: Tree handle").
// Exactly one goroutine may call a mutating method (StoreRange,
// InsertRange, Erase, Alloc, AllocRev, Destroy) at a time - writeMu
// serializes them, mirroring the teacher's CowBTree.writeMu. Any number of
// goroutines may call Load, FindNext, FindPrev, or hold a Cursor
// concurrently with that writer: they pin an epoch (epoch.go) and read
// through an atomically-swapped root pointer, never blocking on writeMu.
type Tree struct {
	root unsafe.Pointer // *encPtr, always non-nil once constructed

	writeMu sync.Mutex
	rec     *reclaimer
	arena   *nodeArena

	cfg    Config
	stats  Stats
	closed int32
}

// NewTree constructs an empty tree (mtree_init).
func NewTree(cfg Config) *Tree {
	t := &Tree{rec: newReclaimer(), cfg: cfg}
	empty := ptrNone
	atomic.StorePointer(&t.root, unsafe.Pointer(&empty))
	if cfg.ArenaNodes > 0 {
		if a, err := newNodeArena(cfg.ArenaNodes); err == nil {
			t.arena = a
		}
	}
	return t
}

func (t *Tree) loadRoot() encPtr {
	p := (*encPtr)(atomic.LoadPointer(&t.root))
	if p == nil {
		return ptrNone
	}
	return *p
}

func (t *Tree) publishRoot(p encPtr) {
	snap := p
	atomic.StorePointer(&t.root, unsafe.Pointer(&snap))
}

func (t *Tree) isClosed() bool { return atomic.LoadInt32(&t.closed) == 1 }

// Load performs a point lookup (mtree_load), returning the value stored
// at index and whether it is present.
func (t *Tree) Load(index uint64) (Value, bool) {
	if t.isClosed() {
		return absentValue, false
	}
	atomic.AddInt64(&t.stats.LoadCount, 1)
	guard := t.rec.enter()
	defer guard.Leave()

	root := t.loadRoot()
	if !root.isNode() {
		return absentValue, false
	}
	v := loadAt(root.node, index)
	return v, !v.IsAbsent()
}

// FindNext returns the first non-absent range at or after index
// (mas_find/mtree_next), spec.md section 4.3.
func (t *Tree) FindNext(index uint64) (lo, hi uint64, value Value, ok bool) {
	if t.isClosed() {
		return 0, 0, absentValue, false
	}
	guard := t.rec.enter()
	defer guard.Leave()

	root := t.loadRoot()
	if !root.isNode() {
		return 0, 0, absentValue, false
	}
	w := newWalker(t, root)
	w.descendTo(index)
	if w.state != WalkerLive {
		return 0, 0, absentValue, false
	}
	if w.Value().IsAbsent() && !w.NextValue() {
		return 0, 0, absentValue, false
	}
	lo, hi = w.Range()
	return lo, hi, w.Value(), true
}

// FindPrev is FindNext's mirror (mas_prev), returning the last non-absent
// range at or before index.
func (t *Tree) FindPrev(index uint64) (lo, hi uint64, value Value, ok bool) {
	if t.isClosed() {
		return 0, 0, absentValue, false
	}
	guard := t.rec.enter()
	defer guard.Leave()

	root := t.loadRoot()
	if !root.isNode() {
		return 0, 0, absentValue, false
	}
	w := newWalker(t, root)
	w.descendTo(index)
	if w.state != WalkerLive {
		return 0, 0, absentValue, false
	}
	if w.Value().IsAbsent() && !w.PrevValue() {
		return 0, 0, absentValue, false
	}
	lo, hi = w.Range()
	return lo, hi, w.Value(), true
}

// Cursor returns a read cursor pinned to the tree's current root. The
// caller must call Close (or Pause then never Resume) when done with it.
func (t *Tree) Cursor() *Cursor {
	guard := t.rec.enter()
	return newCursor(t, guard, t.loadRoot())
}

// StoreRange stores value over [lo,hi], overwriting whatever was there
// (mtree_store_range).
func (t *Tree) StoreRange(lo, hi uint64, value Value) error {
	return t.storeRangeOp(lo, hi, value, true)
}

// InsertRange stores value over [lo,hi] only if every index in that range
// currently reads absent, failing with ErrAlreadyExists otherwise
// (mtree_insert_range).
func (t *Tree) InsertRange(lo, hi uint64, value Value) error {
	return t.storeRangeOp(lo, hi, value, false)
}

// Erase clears [lo,hi] back to absent (mtree_erase / a store of NULL).
func (t *Tree) Erase(lo, hi uint64) error {
	err := t.storeRangeOp(lo, hi, absentValue, true)
	if err == nil {
		atomic.AddInt64(&t.stats.EraseCount, 1)
	}
	return err
}

func (t *Tree) storeRangeOp(lo, hi uint64, value Value, overwrite bool) error {
	if t.isClosed() {
		return ErrClosed
	}
	if lo > hi {
		return ErrInvalidArgument
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.storeRangeLocked(lo, hi, value, overwrite)
}

// storeRangeLocked runs the write pipeline against the current root and
// publishes the result. Callers must already hold writeMu.
func (t *Tree) storeRangeLocked(lo, hi uint64, value Value, overwrite bool) error {
	root := t.loadRoot()
	var rootNode *node
	if root.isNode() {
		rootNode = root.node
	} else {
		// Bootstrap: an empty tree becomes one absent leaf covering the
		// whole index space, then the ordinary write pipeline runs
		// against it exactly as it would against any other leaf - this
		// keeps the partition-coverage invariant trivially satisfied
		// without a special-cased first-insert path.
		rootNode = allocNode(t.arena, VariantLeafWide, 0, UMAX)
		rootNode.values[0] = absentValue
		rootNode.live = 1
	}

	c := &writeCtx{lo: lo, hi: hi, value: value, overwrite: overwrite, alloc: t.cfg.AllocMode, rcu: t.cfg.RCU, arena: t.arena}
	outs, err := storeRange(rootNode, c)
	if err != nil {
		return err
	}

	newRoot := t.wrapRootIfNeeded(outs)
	t.publishRoot(newRoot)
	t.rec.advance()
	t.rec.retireAll(c.dead)
	atomic.AddInt64(&t.stats.StoreCount, 1)
	atomic.StoreInt64(&t.stats.Height, treeHeight(newRoot.node))
	t.rec.reclaim()
	return nil
}

// wrapRootIfNeeded turns the one or more top-level nodes a root-level
// write produced into a single published root, growing the tree by one
// level (a fresh internal node holding all of them) when storeRange
// returned more than one node, and shrinking it via shrinkChain when the result collapsed to a single
// child (spec.md section 4.7's grow/shrink, subsumed here by dynamic
// variant selection rather than a separate rebalance pass - see
// DESIGN.md).
func (t *Tree) wrapRootIfNeeded(outs []*node) encPtr {
	for len(outs) > 1 {
		var variant Variant
		if t.cfg.AllocMode {
			variant = VariantInternalAlloc
		} else {
			variant = chooseVariant(false, false, len(outs))
		}
		nd := allocNode(t.arena, variant, outs[0].min, outs[len(outs)-1].max)
		for i, child := range outs {
			nd.children[i] = child
			if t.cfg.AllocMode {
				nd.gaps[i] = childGap(child)
			}
			if i < len(outs)-1 {
				nd.pivots[i] = child.max
			}
		}
		nd.live = len(outs)
		nd.adoptChildren()
		outs = []*node{nd}
	}
	return t.shrinkChain(outs[0])
}

// shrinkChain collapses a chain of internal nodes each holding exactly
// one child down to that child, the root-side complement of
// wrapRootIfNeeded's growth.
func (t *Tree) shrinkChain(n *node) encPtr {
	for !n.isLeaf() && n.live == 1 {
		n = n.childAt(0)
	}
	n.setParent(nil, 0, true)
	return encodeNode(n, true)
}

func treeHeight(n *node) int64 {
	h := int64(1)
	for n != nil && !n.isLeaf() {
		h++
		n = n.childAt(0)
	}
	return h
}

// Alloc finds the lowest-address size-unit gap within [lo,hi] and stores
// value there, returning the offset chosen (mtree_alloc_range, spec.md
// section 4.8). Only valid on a tree constructed with Config.AllocMode:
// the gap index findGap relies on (spec.md section 2 item 5, "Gap index
// (allocation-mode only)") is only maintained on alloc-mode trees, so
// gapAt is always 0 on an ordinary tree and every slot would be pruned.
func (t *Tree) Alloc(lo, hi, size uint64, value Value) (uint64, error) {
	if t.isClosed() {
		return 0, ErrClosed
	}
	if !t.cfg.AllocMode {
		return 0, ErrInvalidArgument
	}
	if size == 0 || lo > hi {
		return 0, ErrInvalidArgument
	}
	if size-1 > hi-lo {
		return 0, ErrBusy
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	offset, ok := t.findGapLocked(lo, hi, size, false)
	if !ok {
		return 0, ErrBusy
	}
	if err := t.storeRangeLocked(offset, offset+size-1, value, false); err != nil {
		return 0, err
	}
	atomic.AddInt64(&t.stats.AllocCount, 1)
	return offset, nil
}

// AllocRev is Alloc's reverse-search counterpart (mtree_alloc_rrange):
// it returns the highest-address fit within [lo,hi] instead of the
// lowest. Like Alloc, only valid on an AllocMode tree.
func (t *Tree) AllocRev(lo, hi, size uint64, value Value) (uint64, error) {
	if t.isClosed() {
		return 0, ErrClosed
	}
	if !t.cfg.AllocMode {
		return 0, ErrInvalidArgument
	}
	if size == 0 || lo > hi {
		return 0, ErrInvalidArgument
	}
	if size-1 > hi-lo {
		return 0, ErrBusy
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	offset, ok := t.findGapLocked(lo, hi, size, true)
	if !ok {
		return 0, ErrBusy
	}
	if err := t.storeRangeLocked(offset, offset+size-1, value, false); err != nil {
		return 0, err
	}
	atomic.AddInt64(&t.stats.AllocCount, 1)
	return offset, nil
}

func (t *Tree) findGapLocked(lo, hi, size uint64, reverse bool) (uint64, bool) {
	root := t.loadRoot()
	if !root.isNode() {
		return lo, true
	}
	rlo, _, ok := findGap(root.node, lo, hi, size, reverse)
	return rlo, ok
}

// Destroy recursively marks every node in the tree dead and releases the
// arena, if any. The tree must not be used afterward. This mirrors
// mtree_destroy, which the distilled spec dropped but original_source
// keeps as the teardown every other operation assumes exists.
func (t *Tree) Destroy() error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.isClosed() {
		return ErrClosed
	}
	atomic.StoreInt32(&t.closed, 1)

	root := t.loadRoot()
	if root.isNode() {
		destroySubtree(root.node)
	}
	t.publishRoot(ptrNone)
	t.rec.advance()
	if t.arena != nil {
		return t.arena.close()
	}
	return nil
}

func destroySubtree(n *node) {
	if n == nil || n.isDead() {
		return
	}
	if !n.isLeaf() {
		for i := 0; i < n.live; i++ {
			destroySubtree(n.childAt(i))
		}
	}
	n.markDead()
}

// StatsSnapshot returns a copy of the tree's running counters.
func (t *Tree) StatsSnapshot() Stats {
	return Stats{
		Height:     atomic.LoadInt64(&t.stats.Height),
		StoreCount: atomic.LoadInt64(&t.stats.StoreCount),
		EraseCount: atomic.LoadInt64(&t.stats.EraseCount),
		LoadCount:  atomic.LoadInt64(&t.stats.LoadCount),
		AllocCount: atomic.LoadInt64(&t.stats.AllocCount),
	}
}

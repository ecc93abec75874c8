// pkg/maple/arena.go
package maple

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// nodeArena pre-reserves raw memory for node slot arrays (pivots, values,
// gaps) via one anonymous mmap mapping, the way the teacher's pkg/pager
// reserves page-cache memory up front instead of letting per-page make()
// calls churn the allocator. Bulk construction (many StoreRange calls on a
// tree built with Config.ArenaNodes, see tree.go) is the case this
// actually matters for: building a tree from millions of sorted ranges
// otherwise triggers one small heap allocation per node.
//
// children slices are never carried by the arena - they hold *node
// pointers the garbage collector must be able to see and trace, and an
// anonymous mmap region is opaque to the GC's pointer scanner.
type nodeArena struct {
	region []byte
	words  []uint64
	next   int
}

const arenaDefaultNodes = 4096

// wordsPerNode is sized for the widest variant's pivot, value, and gap
// arrays combined (maxFanout-1 pivots + maxFanout values + maxFanout gaps).
const wordsPerNode = (maxFanout - 1) + maxFanout + maxFanout

func newNodeArena(capacityNodes int) (*nodeArena, error) {
	if capacityNodes <= 0 {
		capacityNodes = arenaDefaultNodes
	}
	size := capacityNodes * wordsPerNode * 8
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	words := unsafe.Slice((*uint64)(unsafe.Pointer(&region[0])), len(region)/8)
	return &nodeArena{region: region, words: words}, nil
}

// close unmaps the arena's backing memory. Callers must not use any node
// whose slices were carved from this arena afterward.
func (a *nodeArena) close() error {
	if a == nil || a.region == nil {
		return nil
	}
	err := unix.Munmap(a.region)
	a.region = nil
	a.words = nil
	return err
}

func (a *nodeArena) takeWords(n int) ([]uint64, bool) {
	if a == nil || n == 0 || a.next+n > len(a.words) {
		return nil, false
	}
	s := a.words[a.next : a.next+n : a.next+n]
	a.next += n
	for i := range s {
		s[i] = 0
	}
	return s, true
}

func (a *nodeArena) takePivots(n int) []uint64 {
	if n == 0 {
		return nil
	}
	if s, ok := a.takeWords(n); ok {
		return s
	}
	return make([]uint64, n)
}

func (a *nodeArena) takeGaps(n int) []uint64 {
	if s, ok := a.takeWords(n); ok {
		return s
	}
	return make([]uint64, n)
}

// takeValues reinterprets a raw word slice as []Value when it comes from
// the arena (Value's underlying type is uint64, so the layouts coincide),
// and otherwise just allocates a plain []Value.
func (a *nodeArena) takeValues(n int) []Value {
	if s, ok := a.takeWords(n); ok {
		return unsafe.Slice((*Value)(unsafe.Pointer(&s[0])), n)
	}
	return make([]Value, n)
}

// allocNode builds a node the way newNode does, but carves its slot
// arrays out of arena when one is supplied. A nil arena behaves exactly
// like newNode.
func allocNode(arena *nodeArena, variant Variant, min, max uint64) *node {
	n := &node{variant: variant, min: min, max: max}
	c := slotsOf(variant)
	if !isDenseVariant(variant) {
		n.pivots = arena.takePivots(c - 1)
	}
	if isLeafVariant(variant) {
		n.values = arena.takeValues(c)
	} else {
		n.children = make([]*node, c)
		if isAllocVariant(variant) {
			n.gaps = arena.takeGaps(c)
		}
	}
	return n
}

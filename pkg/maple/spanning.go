// pkg/maple/spanning.go
package maple

// writeCtx carries the parameters of one store_range operation through the
// recursive rebuild. lo/hi/value/overwrite never change across the
// recursion; only the node being rebuilt does.
type writeCtx struct {
	lo, hi    uint64
	value     Value
	overwrite bool
	alloc     bool
	rcu       bool // reader-visible: disables in-place reuse, not append
	arena     *nodeArena
	dead      []*node
}

func (c *writeCtx) retire(n *node) {
	if n != nil {
		c.dead = append(c.dead, n)
	}
}

// storeRange is the write pipeline's single entry point for both the
// single-leaf case (spec.md section 4.4) and the spanning case (section
// 4.5): it rebuilds the subtree rooted at nd so that [c.lo,c.hi] reads as
// c.value afterward, and returns the replacement node(s) for nd's old
// slot. A node whose range does not intersect [c.lo,c.hi] is never even
// visited - the caller (storeRangeInternal) filters those out and reuses
// the existing pointer untouched, which is what makes untouched siblings
// free (no clone, no allocation).
func storeRange(nd *node, c *writeCtx) ([]*node, error) {
	if nd.isLeaf() {
		return storeRangeLeaf(nd, c)
	}
	return storeRangeInternal(nd, c)
}

func storeRangeLeaf(nd *node, c *writeCtx) ([]*node, error) {
	if canAppend(nd, c.lo, c.hi, c.value) {
		// The appended range sits strictly past every existing slot, so
		// there is nothing there to conflict with regardless of overwrite.
		appendLeaf(nd, c.value)
		return []*node{nd}, nil
	}

	entries, err := buildLeafStage(nd, c.lo, c.hi, c.value, c.overwrite)
	if err != nil {
		return nil, err
	}
	entries = coalesceAbsent(entries)

	if !c.rcu && !isDenseVariant(nd.variant) && len(entries) <= nd.cap() {
		reuseLeaf(nd, entries)
		return []*node{nd}, nil
	}

	outs := chopLeaf(entries, nd.min, nd.max, c.arena)
	c.retire(nd)
	return outs, nil
}

// storeRangeInternal partitions nd's live children into an untouched
// prefix, a run of touched children rebuilt recursively, and an untouched
// suffix, then chops the combined child list into the replacement node(s)
// for nd (spec.md section 4.5 steps 3-4: "ascend one level; the current
// staging buffer becomes the child set of the next level's working
// node... copy in any untouched left/right siblings"). Every touched
// child is recursed into, even one [c.lo,c.hi] fully swallows: storeRange
// already produces the correct single-value replacement for that case
// (buildLeafStage degenerates to one entry spanning the whole leaf), and
// skipping the recursion would drop the range from the tree entirely
// instead of replacing it.
func storeRangeInternal(nd *node, c *writeCtx) ([]*node, error) {
	var buf stageBuffer
	i := 0

	for i < nd.live {
		_, chi := nd.rangeOf(i)
		if chi < c.lo {
			buf.push(childEntry(chi, nd.childAt(i), nd.gapAt(i)))
			i++
			continue
		}
		break
	}

	for i < nd.live {
		clo, _ := nd.rangeOf(i)
		if clo > c.hi {
			break
		}
		child := nd.childAt(i)
		outs, err := storeRange(child, c)
		if err != nil {
			return nil, err
		}
		for _, out := range outs {
			buf.push(childEntry(out.max, out, childGap(out)))
		}
		i++
	}

	for i < nd.live {
		_, chi := nd.rangeOf(i)
		buf.push(childEntry(chi, nd.childAt(i), nd.gapAt(i)))
		i++
	}

	combined := make([]stageEntry, buf.n)
	copy(combined, buf.slice())
	outs := chopInternal(combined, nd.min, nd.max, c.alloc, c.arena)
	c.retire(nd)
	return outs, nil
}

// childGap computes the gap value an internal slot should record for
// child, per invariant I4: the largest maximal empty sub-range within the
// child's subtree.
func childGap(child *node) uint64 {
	if child.isLeaf() {
		return leafMaxGap(child)
	}
	return child.maxGap()
}

// leafMaxGap scans a leaf's slots for the widest absent run. Adjacent
// absent slots are always coalesced by coalesceAbsent (storeRangeLeaf,
// chopLeaf), so each
// absent slot already represents a maximal run on its own.
func leafMaxGap(nd *node) uint64 {
	var best uint64
	for i := 0; i < nd.live; i++ {
		if !nd.valueAt(i).IsAbsent() {
			continue
		}
		lo, hi := nd.rangeOf(i)
		if size := hi - lo + 1; size > best {
			best = size
		}
	}
	return best
}

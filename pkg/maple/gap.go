// pkg/maple/gap.go
package maple

// findGapLeaf scans a leaf node for the lowest (or, in reverse, highest)
// absent run at least size units wide, within [lo,hi]. It returns the
// size-unit piece at the low end (or, in reverse, the high end) of that
// run clamped to [lo,hi], so the returned range is always a subrange of an
// actual absent run, never a synthesized one. Only slots of this one leaf
// are considered: an absent run that continues into a neighbouring leaf is
// measured only up to this leaf's boundary.
func findGapLeaf(nd *node, lo, hi, size uint64, reverse bool) (uint64, uint64, bool) {
	if !reverse {
		for i := 0; i < nd.live; i++ {
			slo, shi := nd.rangeOf(i)
			if shi < lo {
				continue
			}
			if slo > hi {
				break
			}
			if !nd.valueAt(i).IsAbsent() {
				continue
			}
			rlo, rhi := clampRange(slo, shi, lo, hi)
			if rhi-rlo+1 >= size {
				return rlo, rlo + size - 1, true
			}
		}
		return 0, 0, false
	}

	for i := nd.live - 1; i >= 0; i-- {
		slo, shi := nd.rangeOf(i)
		if slo > hi {
			continue
		}
		if shi < lo {
			break
		}
		if !nd.valueAt(i).IsAbsent() {
			continue
		}
		rlo, rhi := clampRange(slo, shi, lo, hi)
		if rhi-rlo+1 >= size {
			return rhi - size + 1, rhi, true
		}
	}
	return 0, 0, false
}

func clampRange(slo, shi, lo, hi uint64) (uint64, uint64) {
	if slo < lo {
		slo = lo
	}
	if shi > hi {
		shi = hi
	}
	return slo, shi
}

// findGap descends the tree looking for the lowest (or highest, in
// reverse) size-unit absent run within [lo,hi], using the gap index
// (invariant I4) to prune subtrees that cannot possibly contain a big
// enough run - spec.md section 4.8, "Gap-aware allocation search."
func findGap(nd *node, lo, hi, size uint64, reverse bool) (uint64, uint64, bool) {
	if nd == nil {
		return 0, 0, false
	}
	if nd.isLeaf() {
		return findGapLeaf(nd, lo, hi, size, reverse)
	}

	order := make([]int, nd.live)
	for i := range order {
		order[i] = i
	}
	if reverse {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}

	for _, i := range order {
		slo, shi := nd.rangeOf(i)
		if shi < lo || slo > hi {
			continue
		}
		if nd.gapAt(i) < size {
			continue
		}
		child := nd.childAt(i)
		if rlo, rhi, ok := findGap(child, lo, hi, size, reverse); ok {
			return rlo, rhi, true
		}
	}
	return 0, 0, false
}

// pkg/maple/write.go
package maple

// buildLeafStage assembles the post-image of a leaf after storing value
// over [lo,hi] (spec.md section 4.4 step 1-3). hi is clamped to nd.max
// here, so every emitted entry's hi is <= nd.max; lo smaller than nd.min is handled the same way (no
// prefix fragment is emitted below nd.min, since there is nothing there).
func buildLeafStage(nd *node, lo, hi uint64, value Value, overwrite bool) ([]stageEntry, error) {
	if hi > nd.max {
		hi = nd.max
	}
	effLo := lo
	if effLo < nd.min {
		effLo = nd.min
	}

	var buf stageBuffer
	i := 0

	// Verbatim prefix: slots entirely before effLo.
	for i < nd.live {
		_, shi := nd.rangeOf(i)
		if shi < effLo {
			buf.push(leafEntry(shi, nd.valueAt(i)))
			i++
			continue
		}
		break
	}

	if i < nd.live {
		slo, _ := nd.rangeOf(i)
		if !overwrite {
			for j := i; j < nd.live; j++ {
				jlo, _ := nd.rangeOf(j)
				if jlo > hi {
					break
				}
				if !nd.valueAt(j).IsAbsent() {
					return nil, ErrAlreadyExists
				}
			}
		}

		// Prefix fragment of the first overlapping slot, if it starts
		// before effLo - always preserved regardless of its value, since
		// a leaf's slots must fully partition [nd.min, nd.max].
		if slo < effLo {
			buf.push(leafEntry(effLo-1, nd.valueAt(i)))
		}

		// Advance past every slot whose range intersects [effLo,hi].
		last := i
		for last < nd.live {
			jlo, _ := nd.rangeOf(last)
			if jlo > hi {
				break
			}
			last++
		}

		buf.push(leafEntry(hi, value))

		// Suffix fragment of the last overlapping slot, if it extends
		// past hi.
		if last > i {
			_, jhi := nd.rangeOf(last - 1)
			if jhi > hi {
				buf.push(leafEntry(jhi, nd.valueAt(last-1)))
			}
		}
		i = last
	} else {
		// No live slot intersects [effLo,hi]; the store range is at or
		// past the end of this leaf's current content - pure append.
		buf.push(leafEntry(hi, value))
	}

	// Verbatim suffix: remaining slots untouched.
	for ; i < nd.live; i++ {
		_, shi := nd.rangeOf(i)
		buf.push(leafEntry(shi, nd.valueAt(i)))
	}

	out := make([]stageEntry, buf.n)
	copy(out, buf.slice())
	return out, nil
}

// canAppend recognizes the pure-append fast path of spec.md section 4.4:
// "the staging buffer's pivot at position b_end-1 equal to last means the
// inserted range terminates at end-of-node." When the new range starts
// exactly where the node's live content ends and runs to the node's own
// max, the write can overwrite pivots/slots in place without touching
// anything before it - safe even under concurrent readers, since readers
// that already loaded this node still see a fully consistent prefix.
// rangeOf always reports nd.max as the last live slot's upper bound, so
// the check only passes for a range that starts past nd.max; a range that
// overlaps nd never takes this path.
func canAppend(nd *node, lo, hi uint64, value Value) bool {
	if isDenseVariant(nd.variant) {
		return false // dense leaves carry no pivot array to rewrite
	}
	if nd.live == 0 || nd.live >= nd.cap() {
		return false
	}
	if hi != nd.max {
		return false
	}
	_, lastHi := nd.rangeOf(nd.live - 1)
	if lastHi == ^uint64(0) || lo != lastHi+1 {
		return false
	}
	if value.IsAbsent() && nd.valueAt(nd.live-1).IsAbsent() {
		return false // would create two adjacent absent slots; fall through
	}
	return true
}

// appendLeaf performs the in-place append canAppend validated.
func appendLeaf(nd *node, value Value) {
	_, lastHi := nd.rangeOf(nd.live - 1)
	nd.pivots[nd.live-1] = lastHi
	nd.values[nd.live] = value
	nd.live++
}

// reuseLeaf rewrites nd's slots in place to match entries, clearing any
// trailing slots - spec.md section 4.4 step 4, "Reuse: if reader-visible
// mode is off and the staged image fits, rewrite the node in place and
// clear trailing slots." Only safe when the tree is not in reader-visible
// (RCU) mode.
func reuseLeaf(nd *node, entries []stageEntry) {
	for i, e := range entries {
		nd.values[i] = e.value
		if i < len(entries)-1 {
			nd.pivots[i] = e.hi
		}
	}
	for i := len(entries); i < nd.cap(); i++ {
		nd.values[i] = absentValue
		if i < len(nd.pivots) {
			nd.pivots[i] = 0
		}
	}
	nd.live = len(entries)
}

// loadAt returns the value stored at index within the subtree rooted at
// nd, descending leaf-ward. It never allocates or mutates.
func loadAt(nd *node, index uint64) Value {
	for {
		if nd == nil {
			return absentValue
		}
		slot := nd.slotFor(index)
		if nd.isLeaf() {
			return nd.valueAt(slot)
		}
		nd = nd.childAt(slot)
	}
}

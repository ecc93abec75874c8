// pkg/maple/stage.go
package maple

// stageEntry is one slot of a post-image being assembled in a stageBuffer.
// For a leaf stage, hi/value are meaningful; for an internal stage,
// hi/child/gap are meaningful. lo is never stored - it is always the
// previous entry's hi+1, or the containing node's min for entry 0,
// mirroring node.rangeOf.
type stageEntry struct {
	hi    uint64
	value Value
	child *node
	gap   uint64
}

func leafEntry(hi uint64, v Value) stageEntry  { return stageEntry{hi: hi, value: v} }
func childEntry(hi uint64, c *node, gap uint64) stageEntry {
	return stageEntry{hi: hi, child: c, gap: gap}
}

// stageCap is sized to 2*maxFanout+2 per spec.md section 2 item 6 and
// section 9's design notes ("Staging buffer sized to 2*maxFanout + 2: keep
// as a stack-allocated value... do not heap-allocate per write"). In Go
// terms that means a fixed-size array value, not a slice backed by a fresh
// heap allocation.
const stageCap = 2*maxFanout + 2

// stageBuffer is the over-sized scratch structure of spec.md section 2
// item 6. It accumulates merged/inserted entries during a write and is
// then chopped into one, two, or three newly-allocated target nodes.
type stageBuffer struct {
	entries [stageCap]stageEntry
	n       int
}

func (s *stageBuffer) reset() { s.n = 0 }

func (s *stageBuffer) push(e stageEntry) {
	if s.n >= stageCap {
		panic("maple: staging buffer overflow")
	}
	s.entries[s.n] = e
	s.n++
}

func (s *stageBuffer) slice() []stageEntry { return s.entries[:s.n] }

// coalesceAbsent implements the "extend-null" rule of spec.md section 4.4
// step 3: when neighboring slots are both absent, merge them into one so
// consecutive absent ranges never fragment into multiple slots.
func coalesceAbsent(entries []stageEntry) []stageEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].value == absentValue && e.value == absentValue && e.child == nil {
			out[n-1].hi = e.hi
			continue
		}
		out = append(out, e)
	}
	return out
}

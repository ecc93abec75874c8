// pkg/maple/iterate.go
package maple

// First positions the walker at the tree's first slot (find_first,
// spec.md section 4.3).
func (w *Walker) First() bool {
	root := w.root.node
	if root == nil {
		w.state = WalkerNone
		return false
	}
	w.descendTo(root.min)
	return w.state == WalkerLive
}

// Last positions the walker at the tree's last slot (find_last).
func (w *Walker) Last() bool {
	root := w.root.node
	if root == nil {
		w.state = WalkerNone
		return false
	}
	w.descendTo(root.max)
	return w.state == WalkerLive
}

// Next advances to the next live slot (find_next), ascending through
// parent back-references until it finds a node with an unvisited next
// child, then descending to that child's leftmost leaf. A dead node
// encountered while ascending forces a restart-from-root at the old
// slot's max+1, per the dead-node protocol.
func (w *Walker) Next() bool {
	if w.state != WalkerLive || w.node == nil {
		return false
	}
	if w.slot+1 < w.node.live {
		w.slot++
		return true
	}

	cur := w.node
	oldMax := w.node.max
	for {
		if cur.parent.root || cur.parent.node == nil {
			w.state = WalkerNone
			w.node = nil
			return false
		}
		if cur.isDead() {
			return w.restartAfter(oldMax)
		}
		parent := cur.parent.node
		pslot := cur.parent.slot
		if pslot+1 < parent.live {
			next := leftmostLeaf(parent.childAt(pslot + 1))
			if next == nil {
				w.state = WalkerNone
				w.node = nil
				return false
			}
			w.node = next
			w.slot = 0
			w.min, w.max = next.min, next.max
			w.state = WalkerLive
			return true
		}
		cur = parent
	}
}

// Prev is Next's mirror image (find_prev).
func (w *Walker) Prev() bool {
	if w.state != WalkerLive || w.node == nil {
		return false
	}
	if w.slot > 0 {
		w.slot--
		return true
	}

	cur := w.node
	oldMin := w.node.min
	for {
		if cur.parent.root || cur.parent.node == nil {
			w.state = WalkerNone
			w.node = nil
			return false
		}
		if cur.isDead() {
			return w.restartBefore(oldMin)
		}
		parent := cur.parent.node
		pslot := cur.parent.slot
		if pslot > 0 {
			prev := rightmostLeaf(parent.childAt(pslot - 1))
			if prev == nil {
				w.state = WalkerNone
				w.node = nil
				return false
			}
			w.node = prev
			w.slot = prev.live - 1
			w.min, w.max = prev.min, prev.max
			w.state = WalkerLive
			return true
		}
		cur = parent
	}
}

func (w *Walker) restartAfter(oldMax uint64) bool {
	if oldMax == ^uint64(0) {
		w.state = WalkerNone
		w.node = nil
		return false
	}
	w.descendTo(oldMax + 1)
	return w.state == WalkerLive
}

func (w *Walker) restartBefore(oldMin uint64) bool {
	if oldMin == 0 {
		w.state = WalkerNone
		w.node = nil
		return false
	}
	w.descendTo(oldMin - 1)
	return w.state == WalkerLive
}

// Value returns the payload at the walker's current slot, or the absent
// sentinel if it isn't positioned on a live slot.
func (w *Walker) Value() Value {
	if w.state != WalkerLive {
		return absentValue
	}
	return w.node.valueAt(w.slot)
}

// Range returns the inclusive range the walker's current slot covers.
func (w *Walker) Range() (lo, hi uint64) {
	if w.state != WalkerLive {
		return 0, 0
	}
	return w.node.rangeOf(w.slot)
}

// FirstValue/LastValue/NextValue/PrevValue are First/Last/Next/Prev
// filtered to skip absent slots - the form callers iterating stored
// entries (rather than raw partition slots) actually want.
func (w *Walker) FirstValue() bool {
	if !w.First() {
		return false
	}
	if !w.Value().IsAbsent() {
		return true
	}
	return w.NextValue()
}

func (w *Walker) LastValue() bool {
	if !w.Last() {
		return false
	}
	if !w.Value().IsAbsent() {
		return true
	}
	return w.PrevValue()
}

func (w *Walker) NextValue() bool {
	for w.Next() {
		if !w.Value().IsAbsent() {
			return true
		}
	}
	return false
}

func (w *Walker) PrevValue() bool {
	for w.Prev() {
		if !w.Value().IsAbsent() {
			return true
		}
	}
	return false
}

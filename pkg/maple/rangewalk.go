// pkg/maple/rangewalk.go
package maple

// descendTo is the range_walk primitive of spec.md section 4.3: descend
// from the root to the unique leaf slot containing index, accumulating
// WalkerStats along the way. If a dead node is encountered mid-descent
// (its parent field names itself - the dead-node protocol of section 4.3
// and the Glossary), the whole descent restarts from the root rather than
// trying to patch up the partial walk, since a dead node gives no useful
// information about where its live replacement now lives.
//
// "Restart from root" means the tree's *current* published root, not the
// pointer this Walker happened to capture earlier - a write racing to
// completion can retire and mark dead anything reachable from that old
// root, including nodes well below it, at any time. Re-walking the same
// frozen root would retrace the identical path and hit the same dead node
// forever, so every retry calls refreshRoot to fetch whatever the tree
// currently publishes before trying again. A walker built without a *Tree
// (w.tree == nil) has no current root to fetch; it instead treats its one
// root as a frozen, internally-consistent snapshot and reads straight
// through a dead root, since nothing below an unreplaced node is ever
// mutated in place (append aside, always safe to observe mid-update -
// write.go).
func (w *Walker) descendTo(index uint64) {
	for {
		root := w.root.node
		if root == nil {
			w.state = WalkerNone
			w.node = nil
			return
		}

		w.stats = WalkerStats{}
		cur := root
		dead := false
		frozen := w.tree == nil

		for {
			if cur.isDead() && !(frozen && cur == root) {
				dead = true
				break
			}
			if index < cur.min || index > cur.max {
				w.state = WalkerNone
				w.node = nil
				return
			}

			w.stats.Depth++
			if cur.isFull() {
				w.stats.FullRun++
			} else {
				w.stats.FullRun = 0
			}

			if cur.isLeaf() {
				w.node = cur
				w.min, w.max = cur.min, cur.max
				w.slot = cur.slotFor(index)
				w.state = WalkerLive
				return
			}

			slot := cur.slotFor(index)
			if cur.gapAt(slot) == 0 {
				w.stats.EmptyRun = 0
			} else {
				w.stats.EmptyRun++
			}
			child := cur.childAt(slot)
			if child == nil {
				w.state = WalkerNone
				w.node = nil
				return
			}
			cur = child
		}

		if dead {
			if !w.refreshRoot() {
				w.state = WalkerNone
				w.node = nil
				return
			}
			continue
		}
	}
}

func leftmostLeaf(n *node) *node {
	for n != nil && !n.isLeaf() {
		n = n.childAt(0)
	}
	return n
}

func rightmostLeaf(n *node) *node {
	for n != nil && !n.isLeaf() {
		n = n.childAt(n.live - 1)
	}
	return n
}

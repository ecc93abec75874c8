// pkg/maple/cursor.go
package maple

// Cursor is the public, reader-visible iteration handle built on Walker
// and a reclamation read epoch (epoch.go). It pins the epoch for as long
// as it is live, so every node it can reach stays valid to dereference,
// and releases that pin on Close - or temporarily on Pause, so a
// long-lived caller iterating across many operations never blocks
// reclamation of nodes retired by writers running in between
// (spec.md section 4.9's pause/resume).
type Cursor struct {
	t     *Tree
	guard *ReadGuard
	w     *Walker

	index uint64 // resume point recorded by Pause
	atEnd bool
}

func newCursor(t *Tree, guard *ReadGuard, root encPtr) *Cursor {
	return &Cursor{t: t, guard: guard, w: newWalker(t, root)}
}

func (c *Cursor) First() bool { return c.w.FirstValue() }
func (c *Cursor) Last() bool  { return c.w.LastValue() }
func (c *Cursor) Next() bool  { return c.w.NextValue() }
func (c *Cursor) Prev() bool  { return c.w.PrevValue() }

func (c *Cursor) Value() Value           { return c.w.Value() }
func (c *Cursor) Range() (lo, hi uint64) { return c.w.Range() }
func (c *Cursor) Stats() WalkerStats     { return c.w.Stats() }
func (c *Cursor) Err() error             { return c.w.err }

// Pause releases the cursor's read epoch without losing its logical
// position: it records the current slot's starting index (or that
// iteration had already run off one end) so Resume can re-walk from the
// then-current root.
func (c *Cursor) Pause() {
	switch c.w.state {
	case WalkerLive:
		c.index, _ = c.w.Range()
		c.atEnd = false
	case WalkerNone:
		c.atEnd = true
	}
	if c.guard != nil {
		c.guard.Leave()
		c.guard = nil
	}
}

// Resume re-enters a read epoch against the tree's current root and
// re-walks to the index Pause recorded.
func (c *Cursor) Resume() {
	if c.guard != nil {
		return
	}
	c.guard = c.t.rec.enter()
	c.w = newWalker(c.t, c.t.loadRoot())
	if c.atEnd {
		c.w.state = WalkerNone
		return
	}
	c.w.descendTo(c.index)
}

// Close releases the cursor's read epoch for good. A Cursor must not be
// used after Close.
func (c *Cursor) Close() {
	if c.guard != nil {
		c.guard.Leave()
		c.guard = nil
	}
}

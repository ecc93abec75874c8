// pkg/maple/epoch_test.go
package maple

import "testing"

func TestReclaimerHoldsRetiredNodesWhileReaderActive(t *testing.T) {
	r := newReclaimer()
	guard := r.enter()

	r.retireAll([]*node{{}, {}})
	r.advance()

	if n := r.reclaim(); n != 0 {
		t.Fatalf("reclaim() = %d while a reader from the retiring epoch is active, want 0", n)
	}

	guard.Leave()
	r.advance()
	if n := r.reclaim(); n != 2 {
		t.Fatalf("reclaim() = %d after the reader left, want 2", n)
	}
}

func TestReclaimerMultipleReaders(t *testing.T) {
	r := newReclaimer()
	g1 := r.enter()
	g2 := r.enter()

	if n := r.activeReaders(); n != 2 {
		t.Fatalf("activeReaders() = %d, want 2", n)
	}

	r.retireAll([]*node{{}})
	r.advance()
	g1.Leave()
	if n := r.reclaim(); n != 0 {
		t.Fatalf("reclaim() = %d while g2 is still active, want 0", n)
	}

	g2.Leave()
	if n := r.activeReaders(); n != 0 {
		t.Fatalf("activeReaders() = %d after both left, want 0", n)
	}
	if n := r.reclaim(); n != 1 {
		t.Fatalf("reclaim() = %d, want 1", n)
	}
}

// pkg/maple/tree_test.go
package maple

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
)

func TestTreeBasicStoreLoad(t *testing.T) {
	tr := NewTree(Config{})
	defer tr.Destroy()

	if err := tr.StoreRange(10, 20, Value(100)); err != nil {
		t.Fatalf("StoreRange failed: %v", err)
	}

	v, ok := tr.Load(15)
	if !ok || v != 100 {
		t.Fatalf("Load(15) = %v, %v; want 100, true", v, ok)
	}

	v, ok = tr.Load(25)
	if ok || !v.IsAbsent() {
		t.Fatalf("Load(25) = %v, %v; want absent, false", v, ok)
	}
}

func TestTreeOverwriteAndInsertConflict(t *testing.T) {
	tr := NewTree(Config{})
	defer tr.Destroy()

	if err := tr.InsertRange(0, 9, Value(1)); err != nil {
		t.Fatalf("InsertRange failed: %v", err)
	}
	if err := tr.InsertRange(5, 14, Value(2)); err != ErrAlreadyExists {
		t.Fatalf("InsertRange overlap = %v; want ErrAlreadyExists", err)
	}
	if err := tr.StoreRange(5, 14, Value(2)); err != nil {
		t.Fatalf("StoreRange overlap should succeed: %v", err)
	}
	if v, _ := tr.Load(0); v != 1 {
		t.Errorf("Load(0) = %v, want 1", v)
	}
	if v, _ := tr.Load(10); v != 2 {
		t.Errorf("Load(10) = %v, want 2", v)
	}
}

func TestTreeErase(t *testing.T) {
	tr := NewTree(Config{})
	defer tr.Destroy()

	if err := tr.StoreRange(0, 99, Value(7)); err != nil {
		t.Fatalf("StoreRange failed: %v", err)
	}
	if err := tr.Erase(40, 59); err != nil {
		t.Fatalf("Erase failed: %v", err)
	}
	if v, ok := tr.Load(50); ok || !v.IsAbsent() {
		t.Errorf("Load(50) after erase = %v, %v; want absent", v, ok)
	}
	if v, _ := tr.Load(10); v != 7 {
		t.Errorf("Load(10) = %v, want 7", v)
	}
	if v, _ := tr.Load(90); v != 7 {
		t.Errorf("Load(90) = %v, want 7", v)
	}
}

// TestTreeSpanningWrite stores three adjacent 100-unit ranges, then one
// store that covers the tail of the first, all of the second and the head
// of the third. The three ranges plus the trailing absent slot fit in the
// single root leaf, so the covering store is handled inside that leaf
// rather than across several leaves.
func TestTreeSpanningWrite(t *testing.T) {
	tr := NewTree(Config{})
	defer tr.Destroy()

	if err := tr.StoreRange(0, 99, Value(1)); err != nil {
		t.Fatalf("store A: %v", err)
	}
	if err := tr.StoreRange(100, 199, Value(2)); err != nil {
		t.Fatalf("store B: %v", err)
	}
	if err := tr.StoreRange(200, 299, Value(3)); err != nil {
		t.Fatalf("store C: %v", err)
	}

	if err := tr.StoreRange(50, 250, Value(4)); err != nil {
		t.Fatalf("spanning store: %v", err)
	}

	cases := []struct {
		idx  uint64
		want Value
	}{
		{0, 1}, {49, 1}, {50, 4}, {150, 4}, {250, 4}, {251, 3}, {299, 3},
	}
	for _, c := range cases {
		if v, _ := tr.Load(c.idx); v != c.want {
			t.Errorf("Load(%d) = %v, want %v", c.idx, v, c.want)
		}
	}
}

func TestTreeAllocAndAllocRev(t *testing.T) {
	tr := NewTree(Config{AllocMode: true})
	defer tr.Destroy()

	if err := tr.StoreRange(0, 999, Value(1)); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if err := tr.Erase(100, 199); err != nil {
		t.Fatalf("erase gap: %v", err)
	}

	offset, err := tr.Alloc(0, 999, 50, Value(9))
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if offset != 100 {
		t.Errorf("Alloc offset = %d, want 100 (lowest fit)", offset)
	}
	if v, _ := tr.Load(100); v != 9 {
		t.Errorf("Load(100) after Alloc = %v, want 9", v)
	}

	if err := tr.Erase(500, 599); err != nil {
		t.Fatalf("erase second gap: %v", err)
	}
	offset, err = tr.AllocRev(0, 999, 50, Value(11))
	if err != nil {
		t.Fatalf("AllocRev: %v", err)
	}
	if offset != 550 {
		t.Errorf("AllocRev offset = %d, want 550 (highest fit within the gap)", offset)
	}
}

func TestTreeAllocBusyWhenNoFit(t *testing.T) {
	tr := NewTree(Config{AllocMode: true})
	defer tr.Destroy()

	if err := tr.StoreRange(0, 99, Value(1)); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if _, err := tr.Alloc(0, 99, 200, Value(2)); err != ErrBusy {
		t.Fatalf("Alloc oversized = %v, want ErrBusy", err)
	}
}

func TestTreeAllocRequiresAllocMode(t *testing.T) {
	tr := NewTree(Config{})
	defer tr.Destroy()

	if err := tr.StoreRange(0, 99, Value(1)); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if _, err := tr.Alloc(0, 99, 10, Value(2)); err != ErrInvalidArgument {
		t.Fatalf("Alloc on a non-AllocMode tree = %v, want ErrInvalidArgument", err)
	}
	if _, err := tr.AllocRev(0, 99, 10, Value(2)); err != ErrInvalidArgument {
		t.Fatalf("AllocRev on a non-AllocMode tree = %v, want ErrInvalidArgument", err)
	}
}

func TestTreeIterationOrder(t *testing.T) {
	tr := NewTree(Config{})
	defer tr.Destroy()

	for i := 0; i < 20; i++ {
		lo := uint64(i * 10)
		if err := tr.StoreRange(lo, lo+4, Value(i+1)); err != nil {
			t.Fatalf("store %d: %v", i, err)
		}
	}

	c := tr.Cursor()
	defer c.Close()

	var got []Value
	for ok := c.First(); ok; ok = c.Next() {
		got = append(got, c.Value())
	}
	if len(got) != 20 {
		t.Fatalf("iterated %d entries, want 20", len(got))
	}
	for i, v := range got {
		if v != Value(i+1) {
			t.Errorf("entry %d = %v, want %v", i, v, i+1)
		}
	}

	// Walk backward from the end and check it mirrors forward order.
	var back []Value
	for ok := c.Last(); ok; ok = c.Prev() {
		back = append(back, c.Value())
	}
	if len(back) != 20 {
		t.Fatalf("reverse iterated %d entries, want 20", len(back))
	}
	for i := range back {
		if back[i] != got[len(got)-1-i] {
			t.Errorf("reverse[%d] = %v, want %v", i, back[i], got[len(got)-1-i])
		}
	}
}

func TestTreeCursorPauseResume(t *testing.T) {
	tr := NewTree(Config{RCU: true})
	defer tr.Destroy()

	for i := 0; i < 10; i++ {
		lo := uint64(i * 10)
		if err := tr.StoreRange(lo, lo+9, Value(i+1)); err != nil {
			t.Fatalf("store %d: %v", i, err)
		}
	}

	c := tr.Cursor()
	defer c.Close()
	if !c.First() {
		t.Fatal("First failed")
	}
	if v := c.Value(); v != 1 {
		t.Fatalf("first value = %v, want 1", v)
	}

	c.Pause()
	// A write happens while the cursor is paused - this must not be
	// blocked or corrupted by the paused cursor holding an old epoch.
	if err := tr.StoreRange(1000, 1009, Value(99)); err != nil {
		t.Fatalf("store while paused: %v", err)
	}
	c.Resume()

	if v := c.Value(); v != 1 {
		t.Fatalf("value after resume = %v, want 1 (position preserved)", v)
	}
	count := 1
	for c.Next() {
		count++
	}
	if count != 11 {
		t.Fatalf("total entries after resume = %d, want 11", count)
	}
}

func TestTreeFindNextFindPrev(t *testing.T) {
	tr := NewTree(Config{})
	defer tr.Destroy()

	if err := tr.StoreRange(100, 199, Value(1)); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := tr.StoreRange(300, 399, Value(2)); err != nil {
		t.Fatalf("store: %v", err)
	}

	lo, hi, v, ok := tr.FindNext(0)
	if !ok || lo != 100 || hi != 199 || v != 1 {
		t.Fatalf("FindNext(0) = [%d,%d]=%v,%v; want [100,199]=1,true", lo, hi, v, ok)
	}

	lo, hi, v, ok = tr.FindNext(200)
	if !ok || lo != 300 || hi != 399 || v != 2 {
		t.Fatalf("FindNext(200) = [%d,%d]=%v,%v; want [300,399]=2,true", lo, hi, v, ok)
	}

	lo, hi, v, ok = tr.FindPrev(250)
	if !ok || lo != 100 || hi != 199 || v != 1 {
		t.Fatalf("FindPrev(250) = [%d,%d]=%v,%v; want [100,199]=1,true", lo, hi, v, ok)
	}

	if _, _, _, ok := tr.FindNext(400); ok {
		t.Fatalf("FindNext(400) should find nothing past the last stored range")
	}
}

func TestTreeManyInsertsThenVerify(t *testing.T) {
	tr := NewTree(Config{})
	defer tr.Destroy()

	n := 2000
	for i := 0; i < n; i++ {
		lo := uint64(i * 3)
		if err := tr.StoreRange(lo, lo+1, Value(i+1)); err != nil {
			t.Fatalf("store %d: %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		lo := uint64(i * 3)
		v, ok := tr.Load(lo)
		if !ok || v != Value(i+1) {
			t.Fatalf("Load(%d) = %v, %v; want %v, true", lo, v, ok, i+1)
		}
		if v, _ := tr.Load(lo + 2); !v.IsAbsent() {
			t.Fatalf("Load(%d) (gap) = %v; want absent", lo+2, v)
		}
	}
}

// TestTreeConcurrentReadsDuringWrites mirrors the teacher's
// TestCowBTreeConcurrentReadsAndWrites: readers must never observe a
// torn or corrupted node while a writer is actively rebuilding the tree.
func TestTreeConcurrentReadsDuringWrites(t *testing.T) {
	tr := NewTree(Config{RCU: true})
	defer tr.Destroy()

	for i := 0; i < 200; i++ {
		lo := uint64(i * 10)
		if err := tr.StoreRange(lo, lo+9, Value(i+1)); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	var wg sync.WaitGroup
	stop := int32(0)
	errs := int32(0)

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for atomic.LoadInt32(&stop) == 0 {
				idx := uint64(rng.Intn(2000))
				v, ok := tr.Load(idx)
				// Seeded values are 1..200; the writer below stores 1000..1199.
				if ok && !((v >= 1 && v <= 200) || (v >= 1000 && v <= 1199)) {
					atomic.AddInt32(&errs, 1)
				}
			}
		}(int64(r))
	}

	for i := 0; i < 200; i++ {
		lo := uint64(i * 10)
		if err := tr.StoreRange(lo, lo+4, Value(i+1000)); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	atomic.StoreInt32(&stop, 1)
	wg.Wait()

	if errs != 0 {
		t.Fatalf("%d reads observed an impossible value during concurrent writes", errs)
	}
}

func TestTreeDestroyRejectsFurtherUse(t *testing.T) {
	tr := NewTree(Config{})
	if err := tr.StoreRange(0, 9, Value(1)); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := tr.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := tr.Destroy(); err != ErrClosed {
		t.Fatalf("second Destroy = %v, want ErrClosed", err)
	}
	if err := tr.StoreRange(0, 9, Value(2)); err != ErrClosed {
		t.Fatalf("StoreRange after Destroy = %v, want ErrClosed", err)
	}
	if _, ok := tr.Load(5); ok {
		t.Fatalf("Load after Destroy should report nothing")
	}
}

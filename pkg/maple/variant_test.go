// pkg/maple/variant_test.go
package maple

import "testing"

func TestChooseVariantNarrowestFit(t *testing.T) {
	cases := []struct {
		leaf, alloc bool
		n           int
		want        Variant
	}{
		{true, false, 1, VariantLeafSparse},
		{true, false, 4, VariantLeafSparse},
		{true, false, 5, VariantLeafRange},
		{true, false, 16, VariantLeafWide},
		{false, false, 3, VariantInternalSparse},
		{false, false, 9, VariantInternalWide},
		{false, true, 1, VariantInternalAlloc},
	}
	for _, c := range cases {
		got := chooseVariant(c.leaf, c.alloc, c.n)
		if got != c.want {
			t.Errorf("chooseVariant(%v,%v,%d) = %v, want %v", c.leaf, c.alloc, c.n, got, c.want)
		}
	}
}

func TestChooseVariantPanicsOnOverflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on staged image exceeding widest variant")
		}
	}()
	chooseVariant(true, false, maxFanout+1)
}

func TestChooseLeafVariantDenseShape(t *testing.T) {
	entries := []stageEntry{
		leafEntry(10, Value(1)),
		leafEntry(11, Value(2)),
		leafEntry(12, Value(3)),
	}
	got := chooseLeafVariant(false, entries, 10)
	if got != VariantLeafDense {
		t.Errorf("chooseLeafVariant(contiguous unit run) = %v, want VariantLeafDense", got)
	}
}

func TestChooseLeafVariantNotDenseWithGap(t *testing.T) {
	entries := []stageEntry{
		leafEntry(10, Value(1)),
		leafEntry(11, absentValue),
		leafEntry(12, Value(3)),
	}
	got := chooseLeafVariant(false, entries, 10)
	if got == VariantLeafDense {
		t.Errorf("chooseLeafVariant with an absent slot must not choose dense")
	}
}

func TestMinSlotsNeverExceedsHalfCapacity(t *testing.T) {
	for v, info := range variantTable {
		if info.dense {
			continue
		}
		if 2*minSlots(v) > info.slots {
			t.Errorf("variant %v: 2*minSlots(%d) > slots(%d)", v, minSlots(v), info.slots)
		}
	}
}

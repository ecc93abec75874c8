// pkg/maple/gap_test.go
package maple

import "testing"

func TestFindGapLeafForwardAndReverse(t *testing.T) {
	nd := newNode(VariantLeafWide, 0, 99)
	nd.values[0] = Value(1)
	nd.pivots[0] = 19
	nd.values[1] = absentValue
	nd.pivots[1] = 49
	nd.values[2] = Value(2)
	nd.pivots[2] = 69
	nd.values[3] = absentValue
	nd.live = 4

	lo, hi, ok := findGapLeaf(nd, 0, 99, 20, false)
	if !ok || lo != 20 || hi != 39 {
		t.Fatalf("forward findGapLeaf = [%d,%d],%v; want [20,39],true", lo, hi, ok)
	}

	lo, hi, ok = findGapLeaf(nd, 0, 99, 20, true)
	if !ok || lo != 80 || hi != 99 {
		t.Fatalf("reverse findGapLeaf = [%d,%d],%v; want [80,99],true", lo, hi, ok)
	}

	if _, _, ok := findGapLeaf(nd, 0, 99, 31, false); ok {
		t.Fatalf("findGapLeaf should fail to fit a 31-unit request in the 30-unit gaps")
	}
}

func TestFindGapSkipsFullSubtrees(t *testing.T) {
	root := newNode(VariantInternalAlloc, 0, 199)

	full := newNode(VariantLeafWide, 0, 99)
	full.values[0] = Value(1)
	full.live = 1

	open := newNode(VariantLeafWide, 100, 199)
	open.values[0] = absentValue
	open.pivots[0] = 149
	open.values[1] = Value(2)
	open.live = 2

	root.children[0] = full
	root.gaps[0] = 0
	root.pivots[0] = 99
	root.children[1] = open
	root.gaps[1] = 50
	root.live = 2
	root.adoptChildren()

	lo, hi, ok := findGap(root, 0, 199, 50, false)
	if !ok || lo != 100 || hi != 149 {
		t.Fatalf("findGap = [%d,%d],%v; want [100,149],true", lo, hi, ok)
	}

	if _, _, ok := findGap(root, 0, 199, 51, false); ok {
		t.Fatalf("findGap should refuse a request wider than the only gap")
	}
}

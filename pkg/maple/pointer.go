// pkg/maple/pointer.go
package maple

// encPtr is the encoded node pointer of spec.md section 4.1. The C source
// this is ported from steals low bits out of a node address (alignment >=
// 128 bytes) to carry the variant tag and flags; Go gives us no such bits
// to steal, and the spec's own design notes anticipate exactly that case:
// "in a system without free low-bit space in pointers, represent encoded
// references as a small struct (address + tag word)." encPtr is that
// struct. It is always copied by value, mirroring the single machine-word
// copy the C core performs.
type encPtr struct {
	node    *node
	variant Variant
	root    bool // this pointer lives in the tree handle's root word
	kind    sentinelKind
}

// sentinelKind distinguishes the ordinary "points at a node" case from the
// special walker states spec.md section 4.9 enumerates: START (never
// descended), NONE (no match), ROOT (singleton tree, root IS the entry),
// ERROR(code) (last op failed). A real node pointer has kind == sentNode.
type sentinelKind uint8

const (
	sentNode sentinelKind = iota
	sentStart
	sentNone
	sentRoot
	sentError
)

func encodeNode(n *node, root bool) encPtr {
	return encPtr{node: n, variant: n.variant, root: root, kind: sentNode}
}

func (p encPtr) isNode() bool { return p.kind == sentNode && p.node != nil }

var (
	ptrStart = encPtr{kind: sentStart}
	ptrNone  = encPtr{kind: sentNone}
	ptrRoot  = encPtr{kind: sentRoot}
)

func ptrError() encPtr { return encPtr{kind: sentError} }

// parentFamily mirrors the three bits spec.md says the parent encoding
// steals to name "the parent's variant family (range-16 vs range-32 vs
// [a]range-64)" without storing the full variant enum. We keep an actual
// enum value rather than three raw bits since Go has no spare bits to pack
// them into, but the semantics - "recover family, not full variant, from
// the back-reference" - are preserved: two different full variants (e.g.
// VariantInternalRange and VariantInternalWide) can share a family.
type parentFamily uint8

const (
	familyNarrow parentFamily = iota // sparse variants: 5-bit slot index at bits 2-6 in the source
	familyWide                       // range/wide/alloc variants: 4-bit slot index at bits 3-6
)

func familyOf(v Variant) parentFamily {
	switch v {
	case VariantInternalSparse, VariantLeafSparse:
		return familyNarrow
	default:
		return familyWide
	}
}

// parentRef is the parent back-reference stored in every node's header
// (spec.md section 3, "Entity: Parent back-reference"). A node is dead
// when its parent field names itself (isDead).
type parentRef struct {
	node   *node // parent node, or the node itself if dead, or nil if root
	slot   int   // this node's slot index inside the parent
	family parentFamily
	root   bool // "parent" field instead names the tree handle
}

func (n *node) isDead() bool {
	return n.parent.node == n
}

func (n *node) markDead() {
	n.parent.node = n
}

func (n *node) parentSlot() int { return n.parent.slot }
func (n *node) parentVariantFamily() parentFamily { return n.parent.family }

// setParent establishes n's back-reference. Per the publication ordering
// rule (section 5 and design notes), this must be called, and every slot
// and pivot in n must be initialized, before n is written into any live
// parent slot or the tree's root word.
func (n *node) setParent(parent *node, slot int, root bool) {
	n.parent = parentRef{node: parent, slot: slot, root: root}
	if parent != nil {
		n.parent.family = familyOf(parent.variant)
	}
}

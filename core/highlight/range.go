package highlight

import "fmt"

// Range is a half-open interval [Lower, Upper) of byte offsets into an input
// string. Lower addresses the first byte covered; Upper addresses the first
// byte after the covered run. Offsets count UTF-8 bytes, not runes, so
// callers slicing multi-byte text must land on character boundaries
// themselves.
type Range struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// NewRange returns the range covering [a, b). The arguments may arrive in
// either order; the smaller becomes Lower. NewRange(5, 0) and NewRange(0, 5)
// are the same range.
func NewRange(a, b int) Range {
	if a > b {
		a, b = b, a
	}
	return Range{Lower: a, Upper: b}
}

// Len returns the number of bytes the range covers.
func (r Range) Len() int { return r.Upper - r.Lower }

// IsZero reports whether the range covers no bytes. Zero-width ranges never
// pass validation.
func (r Range) IsZero() bool { return r.Lower >= r.Upper }

// Overlaps reports whether r and other share at least one byte.
func (r Range) Overlaps(other Range) bool {
	return r.Lower < other.Upper && other.Lower < r.Upper
}

// Touches reports whether r and other meet exactly at a shared boundary,
// one ending where the other begins.
func (r Range) Touches(other Range) bool {
	return r.Upper == other.Lower || other.Upper == r.Lower
}

// Contains reports whether the byte at offset pos falls inside the range.
func (r Range) Contains(pos int) bool {
	return pos >= r.Lower && pos < r.Upper
}

// String renders the range in interval notation, e.g. "[0,5)".
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Lower, r.Upper)
}

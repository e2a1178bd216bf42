package highlight

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors for the two validation failure classes. The typed errors
// returned by Validate unwrap to one of these, so callers can sort failures
// with errors.Is without touching the concrete types.
var (
	// ErrRangesOutOfBounds reports a range that does not fit the input:
	// a negative offset, an Upper past the end, a Lower at or past the
	// end, or a zero-width range.
	ErrRangesOutOfBounds = errors.New("ranges out of bounds")

	// ErrOverlappingRanges reports two ranges that share at least one byte.
	ErrOverlappingRanges = errors.New("overlapping ranges")
)

// BoundsError identifies the first range, in caller order, that does not fit
// an input of InputLen bytes.
type BoundsError struct {
	Range    Range
	InputLen int
}

func (e *BoundsError) Error() string {
	if e.Range.IsZero() {
		return fmt.Sprintf("range %s covers no bytes", e.Range)
	}
	return fmt.Sprintf("range %s does not fit input of %d bytes", e.Range, e.InputLen)
}

func (e *BoundsError) Unwrap() error { return ErrRangesOutOfBounds }

// OverlapError identifies the first overlapping pair found after sorting by
// lower bound. First starts at or before Second.
type OverlapError struct {
	First  Range
	Second Range
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("range %s overlaps %s", e.Second, e.First)
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingRanges }

// Validate checks a range set against an input of inputLen bytes. Every
// range must satisfy 0 <= Lower < Upper <= inputLen, and no two ranges may
// overlap. Touching ranges, where one's Upper equals another's Lower, are
// adjacent rather than overlapping and pass.
//
// All bounds are checked before any overlap detection, so a set that fails
// both ways reports the bounds problem. The caller's slice is never
// reordered; overlap detection sorts a copy.
func Validate(inputLen int, ranges []Range) error {
	for _, r := range ranges {
		if r.Lower < 0 || r.IsZero() || r.Upper > inputLen {
			return &BoundsError{Range: r, InputLen: inputLen}
		}
	}

	if len(ranges) < 2 {
		return nil
	}

	sorted := sortedByLower(ranges)
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Lower < sorted[i-1].Upper {
			return &OverlapError{First: sorted[i-1], Second: sorted[i]}
		}
	}
	return nil
}

// sortedByLower returns a copy of ranges ordered by ascending Lower, ties
// broken by ascending Upper.
func sortedByLower(ranges []Range) []Range {
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Lower != sorted[j].Lower {
			return sorted[i].Lower < sorted[j].Lower
		}
		return sorted[i].Upper < sorted[j].Upper
	})
	return sorted
}

package highlight

import "strings"

// TouchMode selects how insertion renders two validated ranges that meet
// exactly at a shared boundary.
type TouchMode int

const (
	// TouchMerge folds touching ranges into one marker pair: the close and
	// open markers that would meet at the shared boundary are dropped, so
	// [0,5) and [5,11) render as a single highlighted run.
	TouchMerge TouchMode = iota

	// TouchSplit gives every range its own marker pair; a touch point
	// renders as a close marker immediately followed by an open marker.
	TouchSplit
)

// Default marker pair.
const (
	DefaultOpenMarker  = "<em>"
	DefaultCloseMarker = "</em>"
)

// Options control marker insertion. The zero value selects the default
// "<em>"/"</em>" pair with TouchMerge and no escaping.
type Options struct {
	// OpenMarker is inserted at every range start. Empty selects
	// DefaultOpenMarker.
	OpenMarker string

	// CloseMarker is inserted at every range end. Empty selects
	// DefaultCloseMarker.
	CloseMarker string

	// Touch selects the rendering of ranges that meet at a shared boundary.
	Touch TouchMode

	// Escape, when non-nil, transforms every input segment before it is
	// written, leaving the markers untouched. Set it to encoding.EscapeHTML
	// to emit markup-safe output.
	Escape func(string) string
}

func (o Options) normalized() Options {
	if o.OpenMarker == "" {
		o.OpenMarker = DefaultOpenMarker
	}
	if o.CloseMarker == "" {
		o.CloseMarker = DefaultCloseMarker
	}
	return o
}

func (o Options) escape(s string) string {
	if o.Escape == nil {
		return s
	}
	return o.Escape(s)
}

// boundaryKind distinguishes the two insertion events a range produces.
type boundaryKind int

const (
	boundaryStart boundaryKind = iota
	boundaryEnd
)

// boundary is one marker insertion point.
type boundary struct {
	pos  int
	kind boundaryKind
}

// boundaries expands validated ranges into an ordered event list. Emitting
// start then end per range, in ascending Lower order, yields positions that
// never decrease: validation guarantees each range ends at or before the
// next begins. At a touch point the earlier range's end event precedes the
// later range's start event; under TouchMerge such pairs cancel and are
// dropped.
func boundaries(ranges []Range, mode TouchMode) []boundary {
	events := make([]boundary, 0, 2*len(ranges))
	for _, r := range sortedByLower(ranges) {
		events = append(events,
			boundary{pos: r.Lower, kind: boundaryStart},
			boundary{pos: r.Upper, kind: boundaryEnd},
		)
	}
	if mode != TouchMerge {
		return events
	}

	kept := make([]boundary, 0, len(events))
	for i := 0; i < len(events); i++ {
		if events[i].kind == boundaryEnd && i+1 < len(events) &&
			events[i+1].kind == boundaryStart && events[i+1].pos == events[i].pos {
			i++
			continue
		}
		kept = append(kept, events[i])
	}
	return kept
}

// Apply validates ranges against input and returns a copy of input with
// opts' markers inserted at every surviving range boundary. On validation
// failure it returns "" and an error unwrapping to ErrRangesOutOfBounds or
// ErrOverlappingRanges; no partially annotated text is ever produced.
func Apply(input string, ranges []Range, opts Options) (string, error) {
	if err := Validate(len(input), ranges); err != nil {
		return "", err
	}
	o := opts.normalized()
	if len(ranges) == 0 {
		return o.escape(input), nil
	}

	var out strings.Builder
	cursor := 0
	for _, ev := range boundaries(ranges, o.Touch) {
		out.WriteString(o.escape(input[cursor:ev.pos]))
		if ev.kind == boundaryStart {
			out.WriteString(o.OpenMarker)
		} else {
			out.WriteString(o.CloseMarker)
		}
		cursor = ev.pos
	}
	out.WriteString(o.escape(input[cursor:]))
	return out.String(), nil
}

// Highlight annotates input with the default marker pair. It is shorthand
// for Apply with the zero Options.
func Highlight(input string, ranges []Range) (string, error) {
	return Apply(input, ranges, Options{})
}

// Strip removes every occurrence of opts' markers from s. For output
// produced by Apply without an Escape hook, Strip recovers the original
// input.
func Strip(s string, opts Options) string {
	o := opts.normalized()
	s = strings.ReplaceAll(s, o.OpenMarker, "")
	return strings.ReplaceAll(s, o.CloseMarker, "")
}

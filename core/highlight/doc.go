// Package highlight annotates plain text with marker pairs at
// caller-supplied byte ranges.
//
// The package is the pure core of Limelight: given an input string and a set
// of half-open ranges, it verifies the ranges are in bounds and mutually
// non-overlapping, then produces a new string with an open marker at every
// range start and a close marker at every range end. All original bytes are
// preserved in order; the operation is all-or-nothing and never partially
// annotates.
//
// # Ranges
//
// A Range covers [Lower, Upper) in UTF-8 byte offsets. Ranges may touch
// exactly at a shared boundary but may never overlap; how a touch point is
// rendered (one merged marker pair or two adjacent ones) is selected by
// Options.Touch.
//
// # Example
//
//	out, err := highlight.Highlight("Hello world", []highlight.Range{
//	    highlight.NewRange(0, 5),
//	})
//	// out == "<em>Hello</em> world"
//
// Everything here is free of I/O, logging, and shared state; functions are
// safe for concurrent use.
package highlight

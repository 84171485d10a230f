// Package transcript accumulates streamed transcript segments for one session.
package transcript

import "strings"

// Accumulator is the append-only, space-joined transcript of one recording session.
type Accumulator struct {
	raw      strings.Builder
	segments int
}

// Append adds one segment with a separating space. Empty segments are kept
// so the raw form mirrors what the channel delivered; Text normalizes spacing.
func (a *Accumulator) Append(segment string) {
	if a.segments > 0 {
		a.raw.WriteByte(' ')
	}
	a.raw.WriteString(segment)
	a.segments++
}

// Raw returns the untrimmed accumulated transcript.
func (a *Accumulator) Raw() string {
	return a.raw.String()
}

// Segments reports how many segments were appended.
func (a *Accumulator) Segments() int {
	return a.segments
}

// Text returns the trimmed transcript with internal whitespace runs collapsed.
func (a *Accumulator) Text() string {
	return Normalize(a.raw.String())
}

// Reset clears the accumulator for a new session.
func (a *Accumulator) Reset() {
	a.raw.Reset()
	a.segments = 0
}

// Normalize trims text and collapses whitespace runs to single spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Join assembles segments the same way an Accumulator would.
func Join(segments []string) string {
	var acc Accumulator
	for _, segment := range segments {
		acc.Append(segment)
	}
	return acc.Text()
}

// Package transcript accumulates recognizer results into interim and final
// text, and formats the elapsed-time and export views of a recording.
package transcript

import "strings"

// Result is one entry in the recognizer's result list.
type Result struct {
	Text  string
	Final bool
}

// Window is a result event: the full list of known results plus the index
// where new, not-yet-processed entries begin.
type Window struct {
	ResultIndex int
	Results     []Result
}

// Buffer holds the accumulated transcript for one recording.
type Buffer struct {
	Final   string
	Interim string
}

// Apply folds a result window into the buffer. Final entries grow Final;
// interim entries rebuild Interim from scratch.
func (b *Buffer) Apply(w Window) {
	start := w.ResultIndex
	if start < 0 {
		start = 0
	}

	var interim strings.Builder
	for i := start; i < len(w.Results); i++ {
		r := w.Results[i]
		if r.Final {
			b.Final += r.Text + " "
		} else {
			interim.WriteString(r.Text)
		}
	}
	b.Interim = interim.String()
}

// Display returns the text shown to the user.
func (b Buffer) Display() string {
	return b.Final + b.Interim
}

// Reset empties both accumulators.
func (b *Buffer) Reset() {
	b.Final = ""
	b.Interim = ""
}

// Exportable reports whether the final transcript has any content.
func (b Buffer) Exportable() bool {
	return strings.TrimSpace(b.Final) != ""
}

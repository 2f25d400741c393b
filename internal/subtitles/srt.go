package subtitles

import (
	"fmt"
	"math"
	"strings"
)

// Segment is one time-aligned span of transcript text.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// RenderSRT produces a SubRip track from time-aligned segments: sequential
// cue numbers, comma-millisecond timestamps, trimmed cue text. Segments with
// no text still emit a cue so numbering stays aligned with the source.
func RenderSRT(segments []Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		b.WriteString(fmt.Sprintf("%d\n", i+1))
		b.WriteString(Timestamp(seg.Start))
		b.WriteString(" --> ")
		b.WriteString(Timestamp(seg.End))
		b.WriteByte('\n')
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}

// Timestamp formats seconds as the SubRip HH:MM:SS,mmm form.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Round(seconds * 1000))
	millis := total % 1000
	whole := total / 1000
	hours := whole / 3600
	minutes := (whole % 3600) / 60
	secs := whole % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

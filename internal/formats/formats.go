// Package formats picks the streams worth offering to the user and renders them as text.
package formats

import (
	"cmp"
	"iter"
	"slices"
	"strconv"
	"strings"

	"tubefetch/internal/entity"
	"tubefetch/pkg/humanfmt"
	"tubefetch/pkg/ptr"
)

// NoCombinedStreams is the single line rendered when nothing qualifies.
const NoCombinedStreams = "no combined audio+video mp4 stream available; the closest alternative is picked at download time"

// Select returns the combined mp4 streams, highest first. Ties keep their input order.
// The input is not modified.
func Select(streams []entity.StreamDescriptor) []entity.StreamDescriptor {
	out := make([]entity.StreamDescriptor, 0, len(streams))

	for _, s := range streams {
		if s.Combined() {
			out = append(out, s)
		}
	}

	slices.SortStableFunc(out, func(a, b entity.StreamDescriptor) int {
		return cmp.Compare(ptr.Deref(b.Height), ptr.Deref(a.Height))
	})

	return out
}

// Line renders one stream as "720p (hd720, 30fps), approx size: 29.30 MB".
// The note, fps and size segments are left out when unknown.
func Line(s entity.StreamDescriptor) string {
	var b strings.Builder

	b.WriteString(strconv.Itoa(ptr.Deref(s.Height)))
	b.WriteString("p")

	var details []string
	if note := strings.TrimSpace(s.FormatNote); note != "" {
		details = append(details, note)
	}

	if s.FPS != nil && *s.FPS > 0 {
		details = append(details, strconv.FormatFloat(*s.FPS, 'f', -1, 64)+"fps")
	}

	if len(details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(details, ", "))
		b.WriteString(")")
	}

	if size, ok := s.Size(); ok {
		b.WriteString(", approx size: ")
		b.WriteString(humanfmt.ByteSize(size))
	}

	return b.String()
}

// Lines yields one display line per selected stream, or NoCombinedStreams when none qualify.
// Every iteration re-evaluates streams.
func Lines(streams []entity.StreamDescriptor) iter.Seq[string] {
	return func(yield func(string) bool) {
		selected := Select(streams)
		if len(selected) == 0 {
			yield(NoCombinedStreams)

			return
		}

		for _, s := range selected {
			if !yield(Line(s)) {
				return
			}
		}
	}
}

// Heights returns the distinct heights of the selected streams, highest first.
func Heights(streams []entity.StreamDescriptor) []int {
	var out []int

	for _, s := range Select(streams) {
		if h := ptr.Deref(s.Height); !slices.Contains(out, h) {
			out = append(out, h)
		}
	}

	return out
}

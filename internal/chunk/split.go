// Package chunk partitions oversized response text into bounded segments
// and caches them under short-lived retrieval keys.
package chunk

import "strings"

// newlineWindow is how far back from a cut point the splitter searches
// for a newline before giving up and cutting at the exact target size.
const newlineWindow = 500

// Segment is one contiguous slice of a response. Index is 1-based; Total
// is back-filled once the whole split is known.
type Segment struct {
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	Content string `json:"content"`
}

// Split partitions text into segments of at most targetSize bytes,
// preferring to cut just after a newline when one falls within the
// search window. Concatenating the segments in index order reproduces
// text exactly.
func Split(text string, targetSize int) []Segment {
	if targetSize < 1 {
		targetSize = 1
	}

	if len(text) <= targetSize {
		return []Segment{{Index: 1, Total: 1, Content: text}}
	}

	var segments []Segment
	remaining := text
	for len(remaining) > targetSize {
		cut := targetSize
		lo := cut - newlineWindow
		if lo < 0 {
			lo = 0
		}
		if nl := strings.LastIndexByte(remaining[lo:cut], '\n'); nl >= 0 {
			cut = lo + nl + 1
		}
		segments = append(segments, Segment{Index: len(segments) + 1, Content: remaining[:cut]})
		remaining = remaining[cut:]
	}
	if len(remaining) > 0 {
		segments = append(segments, Segment{Index: len(segments) + 1, Content: remaining})
	}

	for i := range segments {
		segments[i].Total = len(segments)
	}
	return segments
}

package title

import (
	"strings"

	"github.com/Gendalf4ever/archivist/internal/domain"
	"github.com/Gendalf4ever/archivist/internal/extract"
)

const (
	// maxTitleLen caps every resolved title.
	maxTitleLen = 200

	// maxSourceLen is the length at which surrounding text stops looking
	// like a title and starts looking like an essay.
	maxSourceLen = 300
)

// FromContext tries to derive a video title from the message text itself,
// without touching the network. Two passes, first hit wins:
//
//  1. For each line containing a video-platform marker, take the
//     immediately preceding line, provided it is non-empty, is not itself a
//     URL, and its trimmed length stays under maxSourceLen.
//  2. Strip every URL from the text; if the remainder is non-empty and
//     under maxSourceLen, use it.
//
// Returns "" when neither pass produces anything.
func FromContext(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !containsVideoMarker(line) || i == 0 {
			continue
		}
		prev := lines[i-1]
		if strings.HasPrefix(prev, "http") {
			continue
		}
		if t := strings.TrimSpace(prev); okLength(t) {
			return truncate(t, maxTitleLen)
		}
	}

	remainder := strings.TrimSpace(extract.Strip(text))
	if okLength(remainder) {
		return truncate(remainder, maxTitleLen)
	}
	return ""
}

func containsVideoMarker(line string) bool {
	for _, marker := range domain.VideoMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

func okLength(s string) bool {
	n := len([]rune(s))
	return n > 0 && n < maxSourceLen
}

// truncate cuts s to at most n runes, never splitting a rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

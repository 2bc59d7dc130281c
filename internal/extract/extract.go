// Package extract scans free-form message text for URLs.
package extract

import "regexp"

// urlPattern matches an http or https scheme followed by any run of
// non-whitespace characters. No further validation is applied; the store
// keeps whatever the pattern captured.
var urlPattern = regexp.MustCompile(`https?://\S+`)

// Links returns every URL-like substring of text in order of appearance,
// byte-for-byte as matched. No normalization and no deduplication. Empty
// text yields nil.
func Links(text string) []string {
	if text == "" {
		return nil
	}
	return urlPattern.FindAllString(text, -1)
}

// Strip removes every URL-like substring from text, leaving the
// surrounding prose. Used by the title heuristics.
func Strip(text string) string {
	return urlPattern.ReplaceAllString(text, "")
}

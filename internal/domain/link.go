package domain

import (
	"net/url"
	"strings"
	"time"
)

// Link is one captured URL occurrence. Links are immutable after creation:
// the store only ever inserts and reads them, never updates or deletes.
type Link struct {
	// ID is assigned by the store on insert.
	ID int64 `json:"id"`

	// ChatID is the isolation boundary. Every query is scoped to it.
	ChatID string `json:"chat_id"`

	// UserID identifies the author of the message the URL came from.
	UserID string `json:"user_id"`

	// Username is the author's display name. May be empty; the transport
	// layer falls back to an identifier-derived string when it is.
	Username string `json:"username"`

	// URL is the extracted string, byte-for-byte as it appeared in the text.
	URL string `json:"url"`

	// Domain is the lower-cased host of URL with a leading "www." stripped,
	// computed at insert time. "unknown" when the URL does not parse.
	Domain string `json:"domain"`

	// Title is an optional human-readable label. Empty unless resolution
	// succeeded. Records written before titles existed unmarshal with an
	// empty Title, which reads the same as resolution having failed.
	Title string `json:"title,omitempty"`

	// MessageText is the full original message the URL was extracted from.
	MessageText string `json:"message_text"`

	// CapturedAt is the insertion timestamp, set by the store when zero.
	CapturedAt time.Time `json:"captured_at"`
}

// Preset is a named keyword filter. (ChatID, Name) is unique per channel,
// enforced by an existence check before insert rather than atomically.
type Preset struct {
	ID         int64     `json:"id"`
	ChatID     string    `json:"chat_id"`
	Name       string    `json:"name"`
	SearchTerm string    `json:"search_term"`
	CreatedAt  time.Time `json:"created_at"`
}

// UnknownDomain is the sentinel Domain for URLs that fail to parse.
const UnknownDomain = "unknown"

// VideoMarkers are the host substrings of the built-in video category.
var VideoMarkers = []string{"youtube.com", "youtu.be"}

// DomainOf computes the Domain field for a URL: the host component,
// lower-cased, with one leading "www." stripped. Any parse failure or an
// empty host yields UnknownDomain.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return UnknownDomain
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// IsVideoURL reports whether the URL belongs to a known video platform.
// It matches on the raw string the way the capture path classifies links,
// so it works even for URLs whose host does not parse cleanly.
func IsVideoURL(rawURL string) bool {
	for _, marker := range VideoMarkers {
		if strings.Contains(rawURL, marker) {
			return true
		}
	}
	return false
}

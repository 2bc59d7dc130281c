package retrieve

import (
	"fmt"
	"strings"

	"github.com/Gendalf4ever/archivist/internal/domain"
)

const (
	// MessageLimit is the transport's per-message character budget.
	MessageLimit = 4000

	previewLen      = 50
	dateLayout      = "02.01.2006"
	datePlaceholder = "N/A"
)

// FormatLinks renders a numbered list of links in the order received; the
// caller controls ordering through the store. With showTitle set, entries
// that carry a title render it prominently and drop the message preview;
// all other entries show the URL with a short preview of the source text.
func FormatLinks(links []domain.Link, showTitle bool) string {
	var b strings.Builder
	for i, link := range links {
		date := datePlaceholder
		if !link.CapturedAt.IsZero() {
			date = link.CapturedAt.Format(dateLayout)
		}
		author := link.Username
		if author == "" {
			author = "Unknown"
		}

		if showTitle && link.Title != "" {
			fmt.Fprintf(&b, "%d. <b>%s</b>\n", i+1, link.Title)
			fmt.Fprintf(&b, "🔗 <code>%s</code>\n", link.URL)
			fmt.Fprintf(&b, "👤 %s | 📅 %s\n\n", author, date)
			continue
		}

		fmt.Fprintf(&b, "%d. <code>%s</code>\n", i+1, link.URL)
		fmt.Fprintf(&b, "👤 %s | 📅 %s\n", author, date)
		if preview := previewOf(link.MessageText); preview != "" {
			fmt.Fprintf(&b, "💬 <i>%s</i>\n", preview)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// previewOf shortens the source text to its first 50 runes, with an
// ellipsis when truncated.
func previewOf(text string) string {
	runes := []rune(text)
	if len(runes) > previewLen {
		return string(runes[:previewLen]) + "..."
	}
	return text
}

// Chunk splits s into pieces of at most n runes each. Concatenating the
// pieces reproduces s exactly; splits land on rune boundaries so multi-byte
// text survives. Empty input yields no chunks.
func Chunk(s string, n int) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	chunks := make([]string, 0, (len(runes)+n-1)/n)
	for start := 0; start < len(runes); start += n {
		end := start + n
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

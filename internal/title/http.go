package title

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
	"github.com/sirupsen/logrus"
)

// HTTPResolver fetches a page over plain HTTP and reads its title from the
// Open Graph meta tag, falling back to the <title> element. It is the
// default resolver; video platforms serve both in static markup.
type HTTPResolver struct {
	client  *http.Client
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewHTTPResolver creates an HTTP title resolver. timeout bounds one whole
// resolution, retries included.
func NewHTTPResolver(client *http.Client, timeout time.Duration, logger logrus.FieldLogger) *HTTPResolver {
	return &HTTPResolver{
		client:  client,
		timeout: timeout,
		log:     logger.WithField("component", "title_resolver"),
	}
}

// ResolveTitle fetches the URL and extracts a title, retrying transient
// failures with backoff inside the resolver's timeout.
func (r *HTTPResolver) ResolveTitle(ctx context.Context, url string) (string, error) {
	log := r.log.WithField("url", url)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var title string
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
			req.Header.Set("Accept", "text/html,application/xhtml+xml")
			req.Header.Set("Accept-Language", "en-US,en;q=0.9")

			resp, err := r.client.Do(req)
			if err != nil {
				log.WithError(err).Debug("Title fetch failed, will retry")
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					log.WithError(closeErr).Warn("Failed to close response body")
				}
			}()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			doc, err := goquery.NewDocumentFromReader(resp.Body)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("parse HTML: %w", err))
			}
			title = pageTitle(doc)
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).WithField("attempt", n).Debug("Retrying title fetch")
		}),
	)
	if err != nil {
		return "", fmt.Errorf("fetch title for %s: %w", url, err)
	}

	if title != "" {
		log.WithField("title", truncate(title, 50)).Debug("Resolved title remotely")
	}
	return truncate(title, maxTitleLen), nil
}

func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if t := strings.TrimSpace(og); t != "" {
			return t
		}
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

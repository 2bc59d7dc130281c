package title

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// BrowserResolver resolves titles with a headless browser. It exists for
// pages that only render their title under JavaScript; the HTTP resolver
// covers everything else far more cheaply.
type BrowserResolver struct {
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewBrowserResolver creates a browser-backed title resolver. A fresh
// browser is launched per resolution and torn down afterwards.
func NewBrowserResolver(timeout time.Duration, logger logrus.FieldLogger) *BrowserResolver {
	return &BrowserResolver{
		timeout: timeout,
		log:     logger.WithField("component", "title_resolver"),
	}
}

// ResolveTitle navigates to the URL and reads the <title> element text.
func (r *BrowserResolver) ResolveTitle(ctx context.Context, url string) (title string, err error) {
	log := r.log.WithField("url", url)

	path, exists := launcher.LookPath()
	if !exists {
		return "", errors.New("browser executable not found")
	}
	u := launcher.New().Bin(path).MustLaunch()
	browser := rod.New().ControlURL(u)
	if err = browser.Connect(); err != nil {
		return "", fmt.Errorf("connect to browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Error closing browser instance")
			if err == nil {
				err = fmt.Errorf("close browser: %w", closeErr)
			}
		}
	}()

	var page *rod.Page
	page, err = browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Error closing page")
		}
	}()

	pageCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	page = page.Context(pageCtx)

	if err = page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("title fetch timed out for %s: %w", url, pageCtx.Err())
		}
		return "", fmt.Errorf("wait for page load: %w", err)
	}

	titleElement, err := page.Element("title")
	if err != nil {
		log.WithError(err).Debug("Page has no title element")
		return "", nil
	}
	text, err := titleElement.Text()
	if err != nil {
		return "", fmt.Errorf("read title element: %w", err)
	}

	title = truncate(strings.TrimSpace(text), maxTitleLen)
	log.WithField("title", truncate(title, 50)).Debug("Resolved title via browser")
	return title, nil
}

// Package capture turns inbound chat messages into stored link records.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Gendalf4ever/archivist/internal/domain"
	"github.com/Gendalf4ever/archivist/internal/extract"
	"github.com/Gendalf4ever/archivist/internal/storage"
	"github.com/Gendalf4ever/archivist/internal/title"
)

// Inbound carries what the transport layer knows about one message.
type Inbound struct {
	ChatID   string
	UserID   string
	Username string
	// Text is the message text or caption. Empty means nothing to capture.
	Text string
}

// Pipeline extracts URLs from inbound messages, enriches video links with a
// title and persists each occurrence.
type Pipeline struct {
	repo     storage.Repository
	resolver title.Resolver
	log      logrus.FieldLogger
}

// New creates a capture pipeline. resolver may be nil, in which case only
// the text heuristics produce titles.
func New(repo storage.Repository, resolver title.Resolver, logger logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		repo:     repo,
		resolver: resolver,
		log:      logger.WithField("component", "capture"),
	}
}

// HandleMessage processes one inbound message. Command messages (leading
// "/") and empty payloads are ignored; they are routed elsewhere by the
// transport layer.
//
// Links are processed in extraction order. A storage failure on one link
// does not stop the rest: each failure is logged and the joined errors are
// returned so the transport boundary can report a generic failure.
func (p *Pipeline) HandleMessage(ctx context.Context, msg Inbound) error {
	if msg.Text == "" || strings.HasPrefix(msg.Text, "/") {
		return nil
	}

	urls := extract.Links(msg.Text)
	if len(urls) == 0 {
		return nil
	}
	log := p.log.WithField("chat_id", msg.ChatID)
	log.WithField("count", len(urls)).Debug("Found links in message")

	var errs []error
	for _, u := range urls {
		link := domain.Link{
			ChatID:      msg.ChatID,
			UserID:      msg.UserID,
			Username:    msg.Username,
			URL:         u,
			Domain:      domain.DomainOf(u),
			Title:       p.resolveTitle(ctx, msg.Text, u),
			MessageText: msg.Text,
		}

		if err := p.repo.SaveLink(ctx, link); err != nil {
			log.WithError(err).WithField("url", u).Error("Failed to save link")
			errs = append(errs, fmt.Errorf("save link %s: %w", u, err))
			continue
		}
		log.WithFields(logrus.Fields{
			"url":    u,
			"domain": link.Domain,
		}).Info("Link captured")
	}
	return errors.Join(errs...)
}

// resolveTitle enriches video links only: surrounding-text heuristics first,
// then the remote resolver. Remote failures surface as an absent title and
// never abort the capture.
func (p *Pipeline) resolveTitle(ctx context.Context, text, url string) string {
	if !domain.IsVideoURL(url) {
		return ""
	}
	if t := title.FromContext(text); t != "" {
		return t
	}
	if p.resolver == nil {
		return ""
	}
	t, err := p.resolver.ResolveTitle(ctx, url)
	if err != nil {
		p.log.WithError(err).WithField("url", url).Debug("Remote title lookup failed")
		return ""
	}
	return t
}

// Package retrieve answers link queries and shapes the replies.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Gendalf4ever/archivist/internal/domain"
	"github.com/Gendalf4ever/archivist/internal/storage"
)

// DefaultLimit bounds every retrieval query.
const DefaultLimit = 50

// Engine runs the three retrieval modes over the store and formats results
// into transport-sized message chunks.
type Engine struct {
	repo  storage.Repository
	limit int
	log   logrus.FieldLogger
}

// NewEngine creates a retrieval engine with the default result limit.
func NewEngine(repo storage.Repository, logger logrus.FieldLogger) *Engine {
	return &Engine{
		repo:  repo,
		limit: DefaultLimit,
		log:   logger.WithField("component", "retrieve"),
	}
}

// All returns every captured link for the chat as formatted chunks, or nil
// when the chat has none.
func (e *Engine) All(ctx context.Context, chatID string) ([]string, error) {
	links, err := e.repo.AllLinks(ctx, chatID, e.limit)
	if err != nil {
		return nil, fmt.Errorf("all links for chat %s: %w", chatID, err)
	}
	if len(links) == 0 {
		return nil, nil
	}
	return Chunk("All links:\n\n"+FormatLinks(links, false), MessageLimit), nil
}

// Videos returns the video-platform links for the chat, titles shown.
func (e *Engine) Videos(ctx context.Context, chatID string) ([]string, error) {
	links, err := e.repo.CategoryLinks(ctx, chatID, domain.VideoMarkers, e.limit)
	if err != nil {
		return nil, fmt.Errorf("video links for chat %s: %w", chatID, err)
	}
	if len(links) == 0 {
		return nil, nil
	}
	return Chunk("YouTube links:\n\n"+FormatLinks(links, true), MessageLimit), nil
}

// ByPreset resolves a preset by name and runs its keyword query. found is
// false when the chat has no such preset; that is not an error, the
// transport decides whether to say anything. With found true and nil
// chunks, the preset matched nothing.
func (e *Engine) ByPreset(ctx context.Context, chatID, name string) (chunks []string, found bool, err error) {
	preset, err := e.repo.Preset(ctx, chatID, strings.ToLower(name))
	if err != nil {
		return nil, false, fmt.Errorf("preset %q for chat %s: %w", name, chatID, err)
	}
	if preset == nil {
		return nil, false, nil
	}

	e.log.WithFields(logrus.Fields{
		"chat_id": chatID,
		"preset":  preset.Name,
	}).Info("Running preset query")

	links, err := e.repo.MatchingLinks(ctx, chatID, preset.SearchTerm, e.limit)
	if err != nil {
		return nil, true, fmt.Errorf("links matching %q: %w", preset.SearchTerm, err)
	}
	if len(links) == 0 {
		return nil, true, nil
	}
	header := fmt.Sprintf("Results for '%s':\n\n", preset.SearchTerm)
	return Chunk(header+FormatLinks(links, false), MessageLimit), true, nil
}

// CreatePreset validates the command arguments and creates the preset. The
// returned string is the user-facing reply; malformed input and duplicate
// names are usage feedback, not errors. The existence check and the insert
// are not atomic, so concurrent duplicate creations can slip through.
func (e *Engine) CreatePreset(ctx context.Context, chatID string, args []string) (string, error) {
	if len(args) < 2 {
		return "Usage: /add_preset <name> <keyword>", nil
	}

	name := strings.ToLower(args[0])
	term := strings.Join(args[1:], " ")

	exists, err := e.repo.PresetExists(ctx, chatID, name)
	if err != nil {
		return "", fmt.Errorf("checking preset %q: %w", name, err)
	}
	if exists {
		return fmt.Sprintf("Preset '%s' already exists", name), nil
	}

	err = e.repo.CreatePreset(ctx, domain.Preset{
		ChatID:     chatID,
		Name:       name,
		SearchTerm: term,
	})
	if err != nil {
		return "", fmt.Errorf("creating preset %q: %w", name, err)
	}
	return fmt.Sprintf("Preset '%s' created! Use /%s to run it.", name, name), nil
}

// ListPresets renders the chat's presets, newest first, or "" when there
// are none.
func (e *Engine) ListPresets(ctx context.Context, chatID string) (string, error) {
	presets, err := e.repo.Presets(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("presets for chat %s: %w", chatID, err)
	}
	if len(presets) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Your presets:\n\n")
	for _, p := range presets {
		fmt.Fprintf(&b, "/%s - %s\n", p.Name, p.SearchTerm)
	}
	return b.String(), nil
}

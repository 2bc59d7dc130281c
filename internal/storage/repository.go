package storage

import (
	"context"

	"github.com/Gendalf4ever/archivist/internal/domain"
)

// Repository defines the persistence operations for captured links and
// presets. Having it as an interface lets us swap storage implementations
// (SQLite, BadgerDB) without touching the capture or retrieval logic.
//
// Links and presets are append-only: there are no update or delete
// operations. Every method is scoped to a chat; a record saved for one chat
// never surfaces in queries for another. All read methods return newest
// first and an empty slice, not an error, when nothing matches. Any failure
// of the underlying medium wraps and propagates to the caller.
type Repository interface {
	// SaveLink inserts a new immutable link record. CapturedAt is set to
	// the current time when zero.
	SaveLink(ctx context.Context, link domain.Link) error

	// AllLinks returns up to limit links for the chat, newest first.
	AllLinks(ctx context.Context, chatID string, limit int) ([]domain.Link, error)

	// CategoryLinks returns links whose domain contains any of the given
	// marker substrings.
	CategoryLinks(ctx context.Context, chatID string, markers []string, limit int) ([]domain.Link, error)

	// MatchingLinks returns links whose URL or message text contains term.
	// Case sensitivity is a property of the implementation and is
	// documented on each one.
	MatchingLinks(ctx context.Context, chatID, term string, limit int) ([]domain.Link, error)

	// CreatePreset inserts a preset. It provides no uniqueness guarantee
	// on its own; callers check PresetExists first.
	CreatePreset(ctx context.Context, preset domain.Preset) error

	// PresetExists reports whether a preset with the name exists for the chat.
	PresetExists(ctx context.Context, chatID, name string) (bool, error)

	// Preset returns the preset with the given name, or (nil, nil) when
	// there is none. Absence is not an error.
	Preset(ctx context.Context, chatID, name string) (*domain.Preset, error)

	// Presets returns every preset for the chat, newest first.
	Presets(ctx context.Context, chatID string) ([]domain.Preset, error)

	// Close gracefully shuts down the repository.
	Close() error
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/Gendalf4ever/archivist/internal/domain"
)

// SQLiteRepository implements Repository on a single SQLite database file.
// It is the default driver.
type SQLiteRepository struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// runs schema bootstrap plus additive migrations.
func NewSQLiteRepository(dbPath string, logger logrus.FieldLogger) (*SQLiteRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	r := &SQLiteRepository{
		db:  db,
		log: logger.WithField("component", "repository"),
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	r.log.WithField("path", dbPath).Info("SQLite repository opened")
	return r, nil
}

// migrate creates the tables if missing and applies additive column
// migrations. Deployments that predate the title column get it added here;
// existing rows read back with a NULL title, treated as absent.
func (r *SQLiteRepository) migrate() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			domain TEXT NOT NULL,
			message_text TEXT NOT NULL DEFAULT '',
			captured_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_chat ON links(chat_id, captured_at)`,
		`CREATE TABLE IF NOT EXISTS presets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			name TEXT NOT NULL,
			search_term TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_presets_chat ON presets(chat_id, name)`,
	}
	for _, stmt := range ddl {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap DDL: %w", err)
		}
	}

	// Schema evolution: the title column arrived after the first
	// deployments. ALTER TABLE cannot live inside CREATE TABLE IF NOT
	// EXISTS, so probe for the column first to stay idempotent.
	if err := r.migrateTitleColumn(); err != nil {
		return fmt.Errorf("migrating title column: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) migrateTitleColumn() error {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('links') WHERE name = 'title'`,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking title column: %w", err)
	}
	if count > 0 {
		return nil
	}

	r.log.Info("Adding title column to links table")
	if _, err := r.db.Exec(`ALTER TABLE links ADD COLUMN title TEXT`); err != nil {
		return fmt.Errorf("adding title column: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	r.log.Info("Closing SQLite repository")
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// SaveLink inserts a new link row.
func (r *SQLiteRepository) SaveLink(ctx context.Context, link domain.Link) error {
	if link.CapturedAt.IsZero() {
		link.CapturedAt = time.Now().UTC()
	}
	var title any
	if link.Title != "" {
		title = link.Title
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO links (chat_id, user_id, username, url, domain, title, message_text, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		link.ChatID, link.UserID, link.Username, link.URL, link.Domain, title, link.MessageText, link.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting link: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"chat_id": link.ChatID,
		"domain":  link.Domain,
	}).Debug("Link saved")
	return nil
}

const linkColumns = `id, chat_id, user_id, username, url, domain, title, message_text, captured_at`

// AllLinks returns up to limit links for the chat, newest first.
func (r *SQLiteRepository) AllLinks(ctx context.Context, chatID string, limit int) ([]domain.Link, error) {
	return r.queryLinks(ctx,
		`SELECT `+linkColumns+` FROM links WHERE chat_id = ?
		 ORDER BY captured_at DESC, id DESC LIMIT ?`,
		chatID, limit,
	)
}

// CategoryLinks returns links whose domain contains any marker substring.
func (r *SQLiteRepository) CategoryLinks(ctx context.Context, chatID string, markers []string, limit int) ([]domain.Link, error) {
	if len(markers) == 0 {
		return []domain.Link{}, nil
	}
	clauses := make([]string, len(markers))
	args := []any{chatID}
	for i, m := range markers {
		clauses[i] = "domain LIKE ?"
		args = append(args, "%"+m+"%")
	}
	args = append(args, limit)

	return r.queryLinks(ctx,
		`SELECT `+linkColumns+` FROM links WHERE chat_id = ? AND (`+strings.Join(clauses, " OR ")+`)
		 ORDER BY captured_at DESC, id DESC LIMIT ?`,
		args...,
	)
}

// MatchingLinks returns links whose URL or message text contains term.
// Matching uses SQLite LIKE, which is case-insensitive for ASCII letters, so
// a preset keyword "habr" also matches "Habr". Non-ASCII letters compare
// case-sensitively.
func (r *SQLiteRepository) MatchingLinks(ctx context.Context, chatID, term string, limit int) ([]domain.Link, error) {
	pattern := "%" + term + "%"
	return r.queryLinks(ctx,
		`SELECT `+linkColumns+` FROM links WHERE chat_id = ? AND (url LIKE ? OR message_text LIKE ?)
		 ORDER BY captured_at DESC, id DESC LIMIT ?`,
		chatID, pattern, pattern, limit,
	)
}

func (r *SQLiteRepository) queryLinks(ctx context.Context, query string, args ...any) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		var link domain.Link
		var title sql.NullString
		if err := rows.Scan(
			&link.ID, &link.ChatID, &link.UserID, &link.Username,
			&link.URL, &link.Domain, &title, &link.MessageText, &link.CapturedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning link row: %w", err)
		}
		link.Title = title.String
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating link rows: %w", err)
	}
	return links, nil
}

// CreatePreset inserts a preset row. No unique index backs (chat_id, name):
// two concurrent creations of the same name both land, and Preset then
// returns the older row.
func (r *SQLiteRepository) CreatePreset(ctx context.Context, preset domain.Preset) error {
	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO presets (chat_id, name, search_term, created_at) VALUES (?, ?, ?, ?)`,
		preset.ChatID, preset.Name, preset.SearchTerm, preset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting preset: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"chat_id": preset.ChatID,
		"name":    preset.Name,
	}).Info("Preset created")
	return nil
}

// PresetExists reports whether the chat has a preset with the name.
func (r *SQLiteRepository) PresetExists(ctx context.Context, chatID, name string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM presets WHERE chat_id = ? AND name = ?`,
		chatID, name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking preset existence: %w", err)
	}
	return count > 0, nil
}

// Preset returns the named preset or (nil, nil) when absent. When duplicates
// exist the oldest row wins.
func (r *SQLiteRepository) Preset(ctx context.Context, chatID, name string) (*domain.Preset, error) {
	var p domain.Preset
	err := r.db.QueryRowContext(ctx,
		`SELECT id, chat_id, name, search_term, created_at FROM presets
		 WHERE chat_id = ? AND name = ? ORDER BY id LIMIT 1`,
		chatID, name,
	).Scan(&p.ID, &p.ChatID, &p.Name, &p.SearchTerm, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting preset %q: %w", name, err)
	}
	return &p, nil
}

// Presets returns every preset for the chat, newest first.
func (r *SQLiteRepository) Presets(ctx context.Context, chatID string) ([]domain.Preset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, chat_id, name, search_term, created_at FROM presets
		 WHERE chat_id = ? ORDER BY created_at DESC, id DESC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying presets: %w", err)
	}
	defer rows.Close()

	presets := []domain.Preset{}
	for rows.Next() {
		var p domain.Preset
		if err := rows.Scan(&p.ID, &p.ChatID, &p.Name, &p.SearchTerm, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning preset row: %w", err)
		}
		presets = append(presets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating preset rows: %w", err)
	}
	return presets, nil
}

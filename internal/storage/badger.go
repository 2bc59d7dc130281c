package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Gendalf4ever/archivist/internal/domain"
)

// BadgerRepository implements Repository on an embedded BadgerDB. Links are
// JSON values under chat-scoped keys; presets are keyed by name, so creating
// a duplicate overwrites and the later write wins.
type BadgerRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log logrus.FieldLogger
}

// NewBadgerRepository opens the database at dbPath.
func NewBadgerRepository(dbPath string, logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db at %s: %w", dbPath, err)
	}

	seq, err := db.GetSequence([]byte("seq:link"), 100)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating link sequence: %w", err)
	}

	logger.WithField("path", dbPath).Info("Badger repository opened")
	return &BadgerRepository{
		db:  db,
		seq: seq,
		log: logger.WithField("component", "repository"),
	}, nil
}

// Close releases the ID sequence and closes the database.
func (r *BadgerRepository) Close() error {
	r.log.Info("Closing Badger repository")
	if err := r.seq.Release(); err != nil {
		r.log.WithError(err).Warn("Error releasing link sequence")
	}
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("closing badger db: %w", err)
	}
	return nil
}

// linkKey keys a link by chat and insertion sequence. The zero-padded
// sequence keeps keys lexically ordered by insertion.
func linkKey(chatID string, id uint64) []byte {
	return []byte(fmt.Sprintf("link:%s:%020d", chatID, id))
}

func linkPrefix(chatID string) []byte {
	return []byte(fmt.Sprintf("link:%s:", chatID))
}

func presetKey(chatID, name string) []byte {
	return []byte(fmt.Sprintf("preset:%s:%s", chatID, name))
}

func presetPrefix(chatID string) []byte {
	return []byte(fmt.Sprintf("preset:%s:", chatID))
}

// SaveLink stores a new link record under a fresh sequence ID.
func (r *BadgerRepository) SaveLink(ctx context.Context, link domain.Link) error {
	if link.CapturedAt.IsZero() {
		link.CapturedAt = time.Now().UTC()
	}

	id, err := r.seq.Next()
	if err != nil {
		return fmt.Errorf("allocating link id: %w", err)
	}
	link.ID = int64(id)

	value, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("marshaling link: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(linkKey(link.ChatID, id), value))
	})
	if err != nil {
		return fmt.Errorf("saving link: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"chat_id": link.ChatID,
		"domain":  link.Domain,
	}).Debug("Link saved")
	return nil
}

// AllLinks returns up to limit links for the chat, newest first.
func (r *BadgerRepository) AllLinks(ctx context.Context, chatID string, limit int) ([]domain.Link, error) {
	return r.scanLinks(chatID, limit, func(domain.Link) bool { return true })
}

// CategoryLinks returns links whose domain contains any marker substring.
func (r *BadgerRepository) CategoryLinks(ctx context.Context, chatID string, markers []string, limit int) ([]domain.Link, error) {
	return r.scanLinks(chatID, limit, func(link domain.Link) bool {
		for _, m := range markers {
			if strings.Contains(link.Domain, m) {
				return true
			}
		}
		return false
	})
}

// MatchingLinks returns links whose URL or message text contains term.
// Matching is a byte substring check and therefore case-sensitive, unlike
// the SQLite driver's LIKE.
func (r *BadgerRepository) MatchingLinks(ctx context.Context, chatID, term string, limit int) ([]domain.Link, error) {
	return r.scanLinks(chatID, limit, func(link domain.Link) bool {
		return strings.Contains(link.URL, term) || strings.Contains(link.MessageText, term)
	})
}

// scanLinks iterates the chat's link prefix, keeps records passing match,
// sorts newest first and cuts to limit.
func (r *BadgerRepository) scanLinks(chatID string, limit int, match func(domain.Link) bool) ([]domain.Link, error) {
	links := []domain.Link{}

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := linkPrefix(chatID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var link domain.Link
				if err := json.Unmarshal(val, &link); err != nil {
					return fmt.Errorf("unmarshaling link at key %s: %w", item.Key(), err)
				}
				if match(link) {
					links = append(links, link)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning links for chat %s: %w", chatID, err)
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].CapturedAt.Equal(links[j].CapturedAt) {
			return links[i].ID > links[j].ID
		}
		return links[i].CapturedAt.After(links[j].CapturedAt)
	})
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

// CreatePreset stores a preset under its name key. A second creation with
// the same name overwrites the first.
func (r *BadgerRepository) CreatePreset(ctx context.Context, preset domain.Preset) error {
	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = time.Now().UTC()
	}

	value, err := json.Marshal(preset)
	if err != nil {
		return fmt.Errorf("marshaling preset: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(presetKey(preset.ChatID, preset.Name), value))
	})
	if err != nil {
		return fmt.Errorf("saving preset: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"chat_id": preset.ChatID,
		"name":    preset.Name,
	}).Info("Preset created")
	return nil
}

// PresetExists reports whether the chat has a preset with the name.
func (r *BadgerRepository) PresetExists(ctx context.Context, chatID, name string) (bool, error) {
	p, err := r.Preset(ctx, chatID, name)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// Preset returns the named preset or (nil, nil) when absent.
func (r *BadgerRepository) Preset(ctx context.Context, chatID, name string) (*domain.Preset, error) {
	var preset *domain.Preset

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(presetKey(chatID, name))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var p domain.Preset
			if err := json.Unmarshal(val, &p); err != nil {
				return fmt.Errorf("unmarshaling preset: %w", err)
			}
			preset = &p
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("getting preset %q: %w", name, err)
	}
	return preset, nil
}

// Presets returns every preset for the chat, newest first.
func (r *BadgerRepository) Presets(ctx context.Context, chatID string) ([]domain.Preset, error) {
	presets := []domain.Preset{}

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := presetPrefix(chatID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var p domain.Preset
				if err := json.Unmarshal(val, &p); err != nil {
					return fmt.Errorf("unmarshaling preset at key %s: %w", item.Key(), err)
				}
				presets = append(presets, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning presets for chat %s: %w", chatID, err)
	}

	sort.Slice(presets, func(i, j int) bool {
		return presets[i].CreatedAt.After(presets[j].CreatedAt)
	})
	return presets, nil
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}

package retrieve

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gendalf4ever/archivist/internal/domain"
	"github.com/Gendalf4ever/archivist/internal/storage"
)

func setupEngine(t *testing.T) (*Engine, storage.Repository) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, repo.Close()) })

	return NewEngine(repo, log), repo
}

func TestEngineAll(t *testing.T) {
	e, repo := setupEngine(t)
	ctx := context.Background()

	chunks, err := e.All(ctx, "100")
	require.NoError(t, err)
	assert.Nil(t, chunks, "no links yields no chunks, not an error")

	require.NoError(t, repo.SaveLink(ctx, domain.Link{
		ChatID: "100", UserID: "1", Username: "alice",
		URL: "https://example.com/x", Domain: "example.com",
		MessageText: "look https://example.com/x",
	}))

	chunks, err = e.All(ctx, "100")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "All links:")
	assert.Contains(t, chunks[0], "https://example.com/x")
}

func TestEngineVideos(t *testing.T) {
	e, repo := setupEngine(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveLink(ctx, domain.Link{
		ChatID: "100", UserID: "1", URL: "https://youtube.com/watch?v=1",
		Domain: "youtube.com", Title: "A Talk",
	}))
	require.NoError(t, repo.SaveLink(ctx, domain.Link{
		ChatID: "100", UserID: "1", URL: "https://habr.com/1", Domain: "habr.com",
	}))

	chunks, err := e.Videos(ctx, "100")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "<b>A Talk</b>")
	assert.NotContains(t, chunks[0], "habr.com")
}

func TestEngineByPreset(t *testing.T) {
	e, repo := setupEngine(t)
	ctx := context.Background()

	// Unknown preset: a tagged miss, not an error.
	chunks, found, err := e.ByPreset(ctx, "100", "habr")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, chunks)

	reply, err := e.CreatePreset(ctx, "100", []string{"habr", "habr"})
	require.NoError(t, err)
	assert.Contains(t, reply, "created")

	// Preset exists but matches nothing.
	chunks, found, err = e.ByPreset(ctx, "100", "habr")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, chunks)

	require.NoError(t, repo.SaveLink(ctx, domain.Link{
		ChatID: "100", UserID: "1", URL: "https://example.com/mirror",
		Domain: "example.com", MessageText: "mirrored from habr.com",
	}))

	chunks, found, err = e.ByPreset(ctx, "100", "habr")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "Results for 'habr':")
	assert.Contains(t, chunks[0], "https://example.com/mirror")

	// Lookup is case-normalized like creation.
	_, found, err = e.ByPreset(ctx, "100", "HABR")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestEngineCreatePresetUsage(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()

	reply, err := e.CreatePreset(ctx, "100", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Usage:")

	reply, err = e.CreatePreset(ctx, "100", []string{"onlyname"})
	require.NoError(t, err)
	assert.Contains(t, reply, "Usage:")
}

func TestEngineCreatePresetDuplicate(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()

	_, err := e.CreatePreset(ctx, "100", []string{"habr", "habr"})
	require.NoError(t, err)

	reply, err := e.CreatePreset(ctx, "100", []string{"HABR", "something else"})
	require.NoError(t, err)
	assert.Contains(t, reply, "already exists", "names are case-normalized before the existence check")
}

func TestEngineCreatePresetJoinsMultiWordTerm(t *testing.T) {
	e, repo := setupEngine(t)
	ctx := context.Background()

	_, err := e.CreatePreset(ctx, "100", []string{"go", "golang", "weekly"})
	require.NoError(t, err)

	p, err := repo.Preset(ctx, "100", "go")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "golang weekly", p.SearchTerm)
}

func TestEngineListPresets(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()

	out, err := e.ListPresets(ctx, "100")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = e.CreatePreset(ctx, "100", []string{"habr", "habr"})
	require.NoError(t, err)

	out, err = e.ListPresets(ctx, "100")
	require.NoError(t, err)
	assert.Contains(t, out, "/habr - habr")
}

func TestEngineRespectsLimit(t *testing.T) {
	e, repo := setupEngine(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < DefaultLimit+10; i++ {
		require.NoError(t, repo.SaveLink(ctx, domain.Link{
			ChatID: "100", UserID: "1", URL: "https://example.com/p",
			Domain: "example.com", CapturedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	chunks, err := e.All(ctx, "100")
	require.NoError(t, err)
	joined := ""
	for _, c := range chunks {
		joined += c
	}
	assert.Contains(t, joined, "50. <code>")
	assert.NotContains(t, joined, "51. <code>")
}

package capture

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gendalf4ever/archivist/internal/domain"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeRepo records saved links in memory and can fail selected URLs.
type fakeRepo struct {
	saved   []domain.Link
	failURL string
}

func (f *fakeRepo) SaveLink(_ context.Context, link domain.Link) error {
	if f.failURL != "" && link.URL == f.failURL {
		return errors.New("storage unreachable")
	}
	f.saved = append(f.saved, link)
	return nil
}

func (f *fakeRepo) AllLinks(context.Context, string, int) ([]domain.Link, error) {
	return f.saved, nil
}

func (f *fakeRepo) CategoryLinks(context.Context, string, []string, int) ([]domain.Link, error) {
	return nil, nil
}

func (f *fakeRepo) MatchingLinks(context.Context, string, string, int) ([]domain.Link, error) {
	return nil, nil
}

func (f *fakeRepo) CreatePreset(context.Context, domain.Preset) error { return nil }

func (f *fakeRepo) PresetExists(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeRepo) Preset(context.Context, string, string) (*domain.Preset, error) {
	return nil, nil
}

func (f *fakeRepo) Presets(context.Context, string) ([]domain.Preset, error) { return nil, nil }

func (f *fakeRepo) Close() error { return nil }

// resolverFunc adapts a func to title.Resolver.
type resolverFunc func(ctx context.Context, url string) (string, error)

func (fn resolverFunc) ResolveTitle(ctx context.Context, url string) (string, error) {
	return fn(ctx, url)
}

func TestHandleMessageSavesEveryLink(t *testing.T) {
	repo := &fakeRepo{}
	p := New(repo, nil, testLogger())

	err := p.HandleMessage(context.Background(), Inbound{
		ChatID:   "100",
		UserID:   "1",
		Username: "alice",
		Text:     "two links http://a.example/x and https://b.example/y here",
	})
	require.NoError(t, err)
	require.Len(t, repo.saved, 2)

	assert.Equal(t, "http://a.example/x", repo.saved[0].URL)
	assert.Equal(t, "a.example", repo.saved[0].Domain)
	assert.Equal(t, "https://b.example/y", repo.saved[1].URL)
	assert.Equal(t, "100", repo.saved[0].ChatID)
	assert.Equal(t, "two links http://a.example/x and https://b.example/y here", repo.saved[0].MessageText)
	assert.Empty(t, repo.saved[0].Title, "non-video links carry no title")
}

func TestHandleMessageIgnoresCommandsAndEmptyText(t *testing.T) {
	repo := &fakeRepo{}
	p := New(repo, nil, testLogger())

	require.NoError(t, p.HandleMessage(context.Background(), Inbound{ChatID: "100", Text: ""}))
	require.NoError(t, p.HandleMessage(context.Background(), Inbound{
		ChatID: "100",
		Text:   "/all_links https://example.com",
	}))
	assert.Empty(t, repo.saved)
}

func TestHandleMessageHeuristicTitleSkipsResolver(t *testing.T) {
	repo := &fakeRepo{}
	var resolverCalled bool
	resolver := resolverFunc(func(context.Context, string) (string, error) {
		resolverCalled = true
		return "remote title", nil
	})
	p := New(repo, resolver, testLogger())

	err := p.HandleMessage(context.Background(), Inbound{
		ChatID: "100",
		UserID: "1",
		Text:   "Amazing Video\nhttps://youtube.com/watch?v=123",
	})
	require.NoError(t, err)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "Amazing Video", repo.saved[0].Title)
	assert.False(t, resolverCalled, "heuristic hit must not trigger a remote lookup")
}

func TestHandleMessageRemoteTitleFallback(t *testing.T) {
	repo := &fakeRepo{}
	resolver := resolverFunc(func(_ context.Context, url string) (string, error) {
		return "Remote Video Title", nil
	})
	p := New(repo, resolver, testLogger())

	err := p.HandleMessage(context.Background(), Inbound{
		ChatID: "100",
		UserID: "1",
		Text:   "https://youtu.be/abc123",
	})
	require.NoError(t, err)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "Remote Video Title", repo.saved[0].Title)
}

func TestHandleMessageResolverFailureIsSwallowed(t *testing.T) {
	repo := &fakeRepo{}
	resolver := resolverFunc(func(context.Context, string) (string, error) {
		return "", errors.New("network down")
	})
	p := New(repo, resolver, testLogger())

	err := p.HandleMessage(context.Background(), Inbound{
		ChatID: "100",
		UserID: "1",
		Text:   "https://youtube.com/watch?v=123",
	})
	require.NoError(t, err, "a failed title lookup must never abort capture")
	require.Len(t, repo.saved, 1)
	assert.Empty(t, repo.saved[0].Title)
}

func TestHandleMessageResolverNotCalledForNonVideo(t *testing.T) {
	repo := &fakeRepo{}
	var resolverCalled bool
	resolver := resolverFunc(func(context.Context, string) (string, error) {
		resolverCalled = true
		return "", nil
	})
	p := New(repo, resolver, testLogger())

	err := p.HandleMessage(context.Background(), Inbound{
		ChatID: "100",
		UserID: "1",
		Text:   "https://habr.com/post/1",
	})
	require.NoError(t, err)
	assert.False(t, resolverCalled)
}

func TestHandleMessageIsolatesStorageFailures(t *testing.T) {
	repo := &fakeRepo{failURL: "https://b.example/fails"}
	p := New(repo, nil, testLogger())

	err := p.HandleMessage(context.Background(), Inbound{
		ChatID: "100",
		UserID: "1",
		Text:   "https://a.example/ok https://b.example/fails https://c.example/also-ok",
	})
	require.Error(t, err, "storage failures propagate to the caller")
	require.Len(t, repo.saved, 2, "links after the failing one are still processed")
	assert.Equal(t, "https://a.example/ok", repo.saved[0].URL)
	assert.Equal(t, "https://c.example/also-ok", repo.saved[1].URL)
}

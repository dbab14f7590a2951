package publish

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/emile/config"
	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/frontmatter"
	"github.com/teranos/emile/history"
	"github.com/teranos/emile/schedule"
	"github.com/teranos/emile/social"
)

var t0 = time.Date(2024, 6, 27, 14, 0, 5, 0, time.UTC)

type fakeBuilder struct {
	mu     sync.Mutex
	builds int
	err    error
}

func (b *fakeBuilder) Build(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.builds++
	return b.err
}

type fakeAnnouncer struct {
	results []social.Result
	got     []social.Status
}

func (a *fakeAnnouncer) Publish(ctx context.Context, status social.Status) []social.Result {
	a.got = append(a.got, status)
	return a.results
}

type fakeGit struct {
	calls     []string
	committed []string
	pullErr   error
}

func (g *fakeGit) Pull(ctx context.Context) error {
	g.calls = append(g.calls, "pull")
	return g.pullErr
}

func (g *fakeGit) CommitPublished(ctx context.Context, slug string, paths ...string) error {
	g.calls = append(g.calls, "commit "+slug)
	g.committed = append(g.committed, paths...)
	return nil
}

func testSite(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Root:              t.TempDir(),
		DraftsCreationDir: "content/drafts",
		ScheduleDir:       "content/drafts/scheduled",
		PublishDest:       "content/posts",
		Timezone:          2,
		BaseURL:           "https://blog.test",
		DefaultLang:       "en",
	}
	require.NoError(t, os.MkdirAll(cfg.SchedulePath(), 0755))
	require.NoError(t, os.MkdirAll(cfg.PublishPath(), 0755))
	return cfg
}

func withSocial(t *testing.T, cfg *config.Config) {
	t.Helper()
	tpl := cfg.TemplatesPath()
	require.NoError(t, os.MkdirAll(tpl, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tpl, "social.txt"), []byte("{title} {link} {tags}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tpl, "social_link.txt"), []byte("Discuss on {links}"), 0644))
	cfg.Social = &config.SocialConfig{
		SocialTemplate: "social.txt",
		LinkTemplate:   "social_link.txt",
		LinkTag:        config.DefaultLinkTag,
		FilteredTag:    []string{"english"},
	}
}

func scheduledPost(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	path := filepath.Join(cfg.SchedulePath(), name)
	content := "+++\n" +
		"title = \"Foo\"\n" +
		"date = 2024-06-27T14:00:00\n" +
		"draft = true\n" +
		"tags = [\"english\", \"rust\"]\n" +
		"\n" +
		"[extra]\n" +
		"comment = true\n" +
		"+++\n" +
		"Hello.\n\n" + config.DefaultLinkTag + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func memoryStore(t *testing.T) *history.Store {
	t.Helper()
	db, err := history.OpenWithMigrations(history.MemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return history.NewStore(db)
}

func fixedNow() time.Time { return t0 }

func TestPublishMovesAndRewrites(t *testing.T) {
	cfg := testSite(t)
	src := scheduledPost(t, cfg, "foo.md")
	b := &fakeBuilder{}

	out, err := New(cfg, b, WithNow(fixedNow)).Publish(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, out.Skipped)
	assert.Equal(t, filepath.Join(cfg.PublishPath(), "foo.md"), out.Dest)
	assert.Equal(t, "foo", out.Slug)

	assert.NoFileExists(t, src)
	require.FileExists(t, out.Dest)

	doc, err := frontmatter.ReadFile(out.Dest)
	require.NoError(t, err)
	assert.False(t, doc.Draft)
	assert.False(t, doc.HasKey("draft"))

	date, ok, err := doc.Date(cfg.Location())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, date.Equal(t0))
	assert.Contains(t, string(doc.Bytes()), "date = 2024-06-27T16:00:05+02:00")
	assert.Contains(t, string(doc.Bytes()), "[extra]\ncomment = true")

	assert.Equal(t, 1, b.builds, "no social config means a single build")
}

func TestPublishRefusesExistingDestination(t *testing.T) {
	cfg := testSite(t)
	src := scheduledPost(t, cfg, "foo.md")
	dest := filepath.Join(cfg.PublishPath(), "foo.md")
	require.NoError(t, os.WriteFile(dest, []byte("+++\ntitle = \"Old\"\n+++\n"), 0644))

	_, err := New(cfg, &fakeBuilder{}).Publish(context.Background(), src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIO))
	assert.FileExists(t, src)

	old, _ := os.ReadFile(dest)
	assert.Contains(t, string(old), "Old")
}

func TestPublishRefusesSameSlug(t *testing.T) {
	cfg := testSite(t)
	src := scheduledPost(t, cfg, "2024-06-27-foo.md")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PublishPath(), "2023-01-01-foo.md"), []byte("+++\n+++\n"), 0644))

	_, err := New(cfg, &fakeBuilder{}).Publish(context.Background(), src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIO))
	assert.Contains(t, err.Error(), "2023-01-01-foo.md")
	assert.FileExists(t, src)
}

func TestPublishGuard(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		cfg := testSite(t)
		b := &fakeBuilder{}

		out, err := New(cfg, b).Publish(context.Background(), filepath.Join(cfg.SchedulePath(), "gone.md"))
		require.NoError(t, err)
		assert.True(t, out.Skipped)
		assert.Zero(t, b.builds)
	})

	t.Run("already published leftover", func(t *testing.T) {
		cfg := testSite(t)
		src := filepath.Join(cfg.SchedulePath(), "foo.md")
		require.NoError(t, os.WriteFile(src, []byte("+++\ntitle = \"Foo\"\n+++\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(cfg.PublishPath(), "foo.md"), []byte("+++\ntitle = \"Foo\"\n+++\n"), 0644))
		b := &fakeBuilder{}

		out, err := New(cfg, b).Publish(context.Background(), src)
		require.NoError(t, err)
		assert.True(t, out.Skipped)
		assert.Zero(t, b.builds)
	})

	t.Run("history says published", func(t *testing.T) {
		cfg := testSite(t)
		store := memoryStore(t)
		b := &fakeBuilder{}
		p := New(cfg, b, WithHistory(store), WithNow(fixedNow))

		src := scheduledPost(t, cfg, "foo.md")
		_, err := p.Publish(context.Background(), src)
		require.NoError(t, err)

		// Same post dropped in the schedule dir again, published one moved away
		require.NoError(t, os.Remove(filepath.Join(cfg.PublishPath(), "foo.md")))
		src = scheduledPost(t, cfg, "foo.md")

		out, err := p.Publish(context.Background(), src)
		require.NoError(t, err)
		assert.True(t, out.Skipped)
		assert.FileExists(t, src)
		assert.Equal(t, 1, b.builds)
	})

	t.Run("malformed source", func(t *testing.T) {
		cfg := testSite(t)
		src := filepath.Join(cfg.SchedulePath(), "bad.md")
		require.NoError(t, os.WriteFile(src, []byte("no header"), 0644))

		_, err := New(cfg, &fakeBuilder{}).Publish(context.Background(), src)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrParse))
	})
}

func TestPublishBuildFailureKeepsPost(t *testing.T) {
	cfg := testSite(t)
	store := memoryStore(t)
	src := scheduledPost(t, cfg, "foo.md")
	b := &fakeBuilder{err: errors.NewBuildError("error: bad template", "zola build failed")}

	out, err := New(cfg, b, WithHistory(store), WithNow(fixedNow)).Publish(context.Background(), src)
	require.NoError(t, err)
	require.Error(t, out.BuildErr)
	assert.True(t, errors.Is(out.BuildErr, errors.ErrBuild))
	assert.FileExists(t, out.Dest)

	done, err := store.IsPublished("foo")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestPublishAnnouncesAndInsertsLinks(t *testing.T) {
	cfg := testSite(t)
	withSocial(t, cfg)
	src := scheduledPost(t, cfg, "foo.md")
	b := &fakeBuilder{}
	ann := &fakeAnnouncer{results: []social.Result{
		{Platform: "Mastodon", Instance: "mastodon.test", URL: "https://mastodon.test/@me/1"},
		{Platform: "Bluesky", Instance: "bsky.social", Err: errors.NewSocialError("unauthorized")},
	}}
	store := memoryStore(t)

	out, err := New(cfg, b, WithAnnouncer(ann), WithHistory(store), WithNow(fixedNow)).Publish(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, ann.got, 1)
	assert.Equal(t, "Foo https://blog.test/posts/foo/ #Rust #RustLang", ann.got[0].Text)
	assert.Equal(t, "[Mastodon](https://mastodon.test/@me/1)", out.Links)

	content, err := os.ReadFile(out.Dest)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Discuss on [Mastodon](https://mastodon.test/@me/1)")
	assert.NotContains(t, string(content), "Bluesky")
	assert.NotContains(t, string(content), config.DefaultLinkTag)
	assert.Equal(t, 2, b.builds, "links are followed by a second build")

	recent, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, out.Links, recent[0].Links)
}

func TestPublishAllPlatformsFail(t *testing.T) {
	cfg := testSite(t)
	withSocial(t, cfg)
	src := scheduledPost(t, cfg, "foo.md")
	b := &fakeBuilder{}
	ann := &fakeAnnouncer{results: []social.Result{
		{Platform: "Mastodon", Err: errors.NewSocialError("timeout")},
	}}

	out, err := New(cfg, b, WithAnnouncer(ann)).Publish(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, out.Links)
	assert.Equal(t, 1, b.builds)

	content, err := os.ReadFile(out.Dest)
	require.NoError(t, err)
	assert.Contains(t, string(content), config.DefaultLinkTag)
}

func TestPublishGit(t *testing.T) {
	cfg := testSite(t)
	src := scheduledPost(t, cfg, "foo.md")
	g := &fakeGit{pullErr: errors.NewIOError("offline")}

	out, err := New(cfg, &fakeBuilder{}, WithGit(g)).Publish(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"pull", "commit foo"}, g.calls)
	assert.Equal(t, []string{out.Dest}, g.committed)
}

func TestPublishFailureRecorded(t *testing.T) {
	cfg := testSite(t)
	store := memoryStore(t)
	src := scheduledPost(t, cfg, "foo.md")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PublishPath(), "foo.md"), []byte("+++\n+++\n"), 0644))

	_, err := New(cfg, &fakeBuilder{}, WithHistory(store), WithNow(fixedNow)).Publish(context.Background(), src)
	require.Error(t, err)

	recent, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, history.StatusFailed, recent[0].Status)
	assert.Contains(t, recent[0].Error, "already exists")
}

func TestHandleSchedulesIntoPipeline(t *testing.T) {
	cfg := testSite(t)
	src := scheduledPost(t, cfg, "foo.md")
	p := New(cfg, &fakeBuilder{}, WithNow(fixedNow))

	var h schedule.Handler = p.Handle
	require.NoError(t, h(context.Background(), schedule.Job{Path: src, At: t0}))
	assert.FileExists(t, filepath.Join(cfg.PublishPath(), "foo.md"))
}

func TestPublishIntoContentRoot(t *testing.T) {
	cfg := testSite(t)
	cfg.PublishDest = "content"
	src := scheduledPost(t, cfg, "foo.md")
	b := &fakeBuilder{}

	out, err := New(cfg, b, WithNow(fixedNow)).Publish(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Root, "content", "foo.md"), out.Dest)
	assert.NoFileExists(t, src)

	doc, err := frontmatter.ReadFile(out.Dest)
	require.NoError(t, err)
	assert.False(t, doc.Draft)
	date, _, err := doc.Date(cfg.Location())
	require.NoError(t, err)
	assert.False(t, date.After(t0))
	assert.Equal(t, 1, b.builds)
}

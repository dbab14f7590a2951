package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/emile/config"
	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/frontmatter"
)

func testSite(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	tpl := filepath.Join(root, "templates")
	require.NoError(t, os.MkdirAll(tpl, 0755))

	files := map[string]string{
		"social.txt":         "New post: {title}\n{link}\n\n{tags}\n",
		"social.fr.txt":      "Nouvel article : {title}\n{link}\n\n{tags}\n",
		"social_link.txt":    "Discuss on {links}",
		"social_link.fr.txt": "Discuter sur {links}",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tpl, name), []byte(content), 0644))
	}

	return &config.Config{
		Root:        root,
		BaseURL:     "https://blog.example",
		DefaultLang: "en",
		Social: &config.SocialConfig{
			SocialTemplate: "social.txt",
			LinkTemplate:   "social_link.txt",
			LinkTag:        config.DefaultLinkTag,
			TagLang:        []config.TagLang{{Tag: "english", Lang: "en"}, {Tag: "french", Lang: "fr"}},
			FilteredTag:    []string{"english", "french"},
		},
	}
}

func parseDoc(t *testing.T, header string) *frontmatter.Document {
	t.Helper()
	doc, err := frontmatter.Parse([]byte("+++\n" + header + "\n+++\nbody\n"))
	require.NoError(t, err)
	return doc
}

func TestRender(t *testing.T) {
	cfg := testSite(t)

	t.Run("default language", func(t *testing.T) {
		doc := parseDoc(t, `title = "Borrowing"`+"\n"+`tags = ["english", "rust"]`)

		st, err := Render(cfg, doc, "/site/content/posts/borrowing.md")
		require.NoError(t, err)
		assert.Equal(t, "en", st.Lang)
		assert.Equal(t, "https://blog.example/posts/borrowing/", st.Link)
		assert.Equal(t, "New post: Borrowing\nhttps://blog.example/posts/borrowing/\n\n#Rust #RustLang", st.Text)
		assert.NotContains(t, strings.ToLower(st.Text), "english")
	})

	t.Run("language from tag", func(t *testing.T) {
		doc := parseDoc(t, `title = "Bonjour"`+"\n"+`tags = ["french", "static site"]`)

		st, err := Render(cfg, doc, "/site/content/posts/bonjour.md")
		require.NoError(t, err)
		assert.Equal(t, "fr", st.Lang)
		assert.Equal(t, "Nouvel article : Bonjour\nhttps://blog.example/posts/bonjour/\n\n#StaticSite", st.Text)
	})

	t.Run("missing language template", func(t *testing.T) {
		cfg.Social.TagLang = append(cfg.Social.TagLang, config.TagLang{Tag: "spanish", Lang: "es"})
		doc := parseDoc(t, `title = "Hola"`+"\n"+`tags = ["spanish"]`)

		_, err := Render(cfg, doc, "/site/content/posts/hola.md")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrIO))
	})
}

func TestLanguage(t *testing.T) {
	sc := &config.SocialConfig{TagLang: []config.TagLang{{Tag: "french", Lang: "fr"}, {Tag: "german", Lang: "de"}}}

	tests := []struct {
		name string
		sc   *config.SocialConfig
		tags []string
		want string
	}{
		{"no social config", nil, []string{"french"}, "en"},
		{"no match", sc, []string{"go"}, "en"},
		{"match", sc, []string{"go", "german"}, "de"},
		{"first mapping wins", sc, []string{"german", "french"}, "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Language(tt.sc, "en", tt.tags))
		})
	}
}

func TestFormatTags(t *testing.T) {
	tests := []struct {
		name     string
		tags     []string
		filtered []string
		want     string
	}{
		{"filtered and rust", []string{"english", "rust"}, []string{"english"}, "#Rust #RustLang "},
		{"camel case", []string{"static-site", "Web Dev"}, nil, "#StaticSite #WebDev "},
		{"capitalized rust", []string{"Rust"}, nil, "#Rust #RustLang "},
		{"nothing left", []string{"english"}, []string{"english"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTags(Hashtags(tt.tags, tt.filtered)))
		})
	}
}

func TestFormatLinksSkipsFailures(t *testing.T) {
	results := []Result{
		{Platform: "Mastodon", URL: "https://mastodon.social/@me/1"},
		{Platform: "Bluesky", Err: errors.NewSocialError("boom")},
		{Platform: "Mastodon", URL: "https://fosstodon.org/@me/2"},
	}
	assert.Equal(t,
		"[Mastodon](https://mastodon.social/@me/1), [Mastodon](https://fosstodon.org/@me/2)",
		FormatLinks(results))
	assert.Empty(t, FormatLinks(nil))
}

func TestLinkText(t *testing.T) {
	cfg := testSite(t)
	results := []Result{{Platform: "Bluesky", URL: "https://bsky.app/profile/me/post/abc"}}

	text, err := LinkText(cfg, "fr", results)
	require.NoError(t, err)
	assert.Equal(t, "Discuter sur [Bluesky](https://bsky.app/profile/me/post/abc)", text)
}

type fakeClient struct {
	platform string
	url      string
	err      error
	panics   bool
	got      []Status
}

func (f *fakeClient) Platform() string { return f.platform }
func (f *fakeClient) Instance() string { return strings.ToLower(f.platform) + ".test" }
func (f *fakeClient) Post(ctx context.Context, st Status) (string, error) {
	f.got = append(f.got, st)
	if f.panics {
		panic("nil map")
	}
	return f.url, f.err
}

func TestPublisherIsolatesFailures(t *testing.T) {
	a := &fakeClient{platform: "Mastodon", url: "https://m.test/1"}
	b := &fakeClient{platform: "Bluesky", err: errors.New("connection refused")}
	c := &fakeClient{platform: "Broken", panics: true}

	results := NewPublisherWithClients(a, b, c).Publish(context.Background(), Status{Text: "hi"})
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "https://m.test/1", results[0].URL)

	require.Error(t, results[1].Err)
	assert.True(t, errors.Is(results[1].Err, errors.ErrSocial))

	require.Error(t, results[2].Err)
	assert.True(t, errors.Is(results[2].Err, errors.ErrSocial))

	assert.Equal(t, "[Mastodon](https://m.test/1)", FormatLinks(results))
	assert.Len(t, b.got, 1, "every platform is tried")
}

func TestNewPublisherRejectsUnknownAPI(t *testing.T) {
	_, err := NewPublisher([]config.SocialInstance{{Server: "x", API: "myspace"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
}

func TestMastodonPost(t *testing.T) {
	var posted toot
	var idempotencyKey, auth string
	bookmarked := false

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/statuses":
			auth = r.Header.Get("Authorization")
			idempotencyKey = r.Header.Get("Idempotency-Key")
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			w.Write([]byte(`{"id":"42","uri":"https://mastodon.test/users/me/statuses/42"}`))
		case "/api/v1/statuses/42/bookmark":
			bookmarked = true
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	env := map[string]string{"MASTODON_TOKEN": "secret"}
	pub, err := NewPublisher(
		[]config.SocialInstance{{Server: strings.TrimPrefix(srv.URL, "http://"), API: "mastodon", TokenVar: "MASTODON_TOKEN"}},
		WithInsecure(),
		WithHTTPClient(srv.Client()),
		WithGetenv(func(k string) string { return env[k] }),
	)
	require.NoError(t, err)

	results := pub.Publish(context.Background(), Status{Text: "New post", Lang: "fr"})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "https://mastodon.test/users/me/statuses/42", results[0].URL)
	assert.Equal(t, "Mastodon", results[0].Platform)

	assert.Equal(t, "Bearer secret", auth)
	// sha256("New post")
	assert.Len(t, idempotencyKey, 64)
	assert.Equal(t, toot{Status: "New post", Visibility: "public", Language: "fr"}, posted)
	assert.True(t, bookmarked)
}

func TestTootOmitsEmptyLanguage(t *testing.T) {
	body, err := json.Marshal(toot{Status: "New post", Visibility: "public"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"New post","visibility":"public"}`, string(body))
}

func TestMastodonErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"Validation failed: Text character limit of 500 exceeded"}`))
	}))
	defer srv.Close()

	inst := []config.SocialInstance{{Server: strings.TrimPrefix(srv.URL, "http://"), API: "mastodon", TokenVar: "TOKEN"}}

	t.Run("missing token", func(t *testing.T) {
		pub, err := NewPublisher(inst, WithInsecure(), WithGetenv(func(string) string { return "" }))
		require.NoError(t, err)

		r := pub.Publish(context.Background(), Status{Text: "x"})[0]
		require.Error(t, r.Err)
		assert.True(t, errors.Is(r.Err, errors.ErrSocial))
		assert.Contains(t, errors.FlattenHints(r.Err), "export TOKEN")
	})

	t.Run("rejected status", func(t *testing.T) {
		pub, err := NewPublisher(inst, WithInsecure(), WithHTTPClient(srv.Client()),
			WithGetenv(func(string) string { return "t" }))
		require.NoError(t, err)

		r := pub.Publish(context.Background(), Status{Text: "x"})[0]
		require.Error(t, r.Err)
		assert.True(t, errors.Is(r.Err, errors.ErrSocial))
		assert.Contains(t, errors.FlattenDetails(r.Err), "character limit")
		assert.Empty(t, r.URL)
	})
}

func TestBlueskyPost(t *testing.T) {
	var record map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/xrpc/com.atproto.server.createSession":
			var in map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "me.bsky.social", in["identifier"])
			assert.Equal(t, "app-password", in["password"])
			w.Write([]byte(`{"accessJwt":"a","refreshJwt":"r","handle":"me.bsky.social","did":"did:plc:abc123"}`))
		case "/xrpc/com.atproto.repo.createRecord":
			assert.Equal(t, "Bearer a", r.Header.Get("Authorization"))
			var in map[string]interface{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			record, _ = in["record"].(map[string]interface{})
			w.Write([]byte(`{"uri":"at://did:plc:abc123/app.bsky.feed.post/3kxyz","cid":"bafy"}`))
		case "/xrpc/app.bsky.actor.getProfile":
			assert.Equal(t, "did:plc:abc123", r.URL.Query().Get("actor"))
			w.Write([]byte(`{"did":"did:plc:abc123","handle":"me.bsky.social"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	env := map[string]string{"BSKY_HANDLE": "me.bsky.social", "BSKY_PASSWORD": "app-password"}
	pub, err := NewPublisher(
		[]config.SocialInstance{{
			Server:    strings.TrimPrefix(srv.URL, "http://"),
			API:       "bluesky",
			HandleVar: "BSKY_HANDLE",
			TokenVar:  "BSKY_PASSWORD",
		}},
		WithInsecure(),
		WithHTTPClient(srv.Client()),
		WithGetenv(func(k string) string { return env[k] }),
	)
	require.NoError(t, err)

	results := pub.Publish(context.Background(), Status{Text: "New post https://blog.test/posts/x/ #Go", Lang: "en"})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "https://bsky.app/profile/me.bsky.social/post/3kxyz", results[0].URL)

	require.NotNil(t, record)
	assert.Equal(t, "New post https://blog.test/posts/x/ #Go", record["text"])
	assert.Equal(t, []interface{}{"en"}, record["langs"])
	facets, _ := record["facets"].([]interface{})
	assert.Len(t, facets, 2)
}

func TestParseRecordURI(t *testing.T) {
	did, rkey, err := parseRecordURI("at://did:plc:u5cwb2mwiv2bfq53cjufe6yn/app.bsky.feed.post/3k4duaz5vfs2b")
	require.NoError(t, err)
	assert.Equal(t, "did:plc:u5cwb2mwiv2bfq53cjufe6yn", did)
	assert.Equal(t, "3k4duaz5vfs2b", rkey)

	did, rkey, err = parseRecordURI("at://did:web:blog.test/app.bsky.feed.post/3k4duaz5vfs2b")
	require.NoError(t, err)
	assert.Equal(t, "did:web:blog.test", did)
	assert.Equal(t, "3k4duaz5vfs2b", rkey)

	_, _, err = parseRecordURI("https://example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSocial))
}

func TestFacets(t *testing.T) {
	text := "Read https://blog.test/posts/hello/ now #Go #StaticSite"
	facets := Facets(text)
	require.Len(t, facets, 3)

	link := facets[0]
	require.NotNil(t, link.Features[0].RichtextFacet_Link)
	assert.Equal(t, "https://blog.test/posts/hello/", link.Features[0].RichtextFacet_Link.Uri)
	assert.Equal(t, "https://blog.test/posts/hello/", text[link.Index.ByteStart:link.Index.ByteEnd])

	tag := facets[1]
	require.NotNil(t, tag.Features[0].RichtextFacet_Tag)
	assert.Equal(t, "Go", tag.Features[0].RichtextFacet_Tag.Tag)
	assert.Equal(t, "#Go", text[tag.Index.ByteStart:tag.Index.ByteEnd])

	assert.Equal(t, "StaticSite", facets[2].Features[0].RichtextFacet_Tag.Tag)
}

func TestFacetsUseByteOffsets(t *testing.T) {
	text := "Café ☕ #Go"
	facets := Facets(text)
	require.Len(t, facets, 1)
	assert.Equal(t, "#Go", text[facets[0].Index.ByteStart:facets[0].Index.ByteEnd])
	assert.Empty(t, Facets("#1 is not a tag"))
}

package social

import (
	"context"
	"net/http"
	"regexp"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"

	"github.com/teranos/emile/errors"
)

// Bluesky posts to a PDS over XRPC with an app password.
type Bluesky struct {
	server    string
	host      string
	handleVar string
	tokenVar  string
	getenv    func(string) string
	http      *http.Client
}

func (b *Bluesky) Platform() string { return "Bluesky" }
func (b *Bluesky) Instance() string { return b.server }

var recordURI = regexp.MustCompile(`at://(did:[a-z]+:[^/]+)/app\.bsky\.feed\.post/([[:alnum:]]+)`)

// Post creates an app.bsky.feed.post with link and hashtag facets and
// returns its bsky.app URL.
func (b *Bluesky) Post(ctx context.Context, status Status) (string, error) {
	handle, err := credential(b.getenv, b.handleVar)
	if err != nil {
		return "", err
	}
	password, err := credential(b.getenv, b.tokenVar)
	if err != nil {
		return "", err
	}

	client := &xrpc.Client{Host: b.host, Client: b.http}
	session, err := comatproto.ServerCreateSession(ctx, client, &comatproto.ServerCreateSession_Input{
		Identifier: handle,
		Password:   password,
	})
	if err != nil {
		return "", errors.WrapSocial(err, "create session on %s for %s", b.server, handle)
	}
	client.Auth = &xrpc.AuthInfo{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		Did:        session.Did,
	}

	post := &appbsky.FeedPost{
		Text:      status.Text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Facets:    Facets(status.Text),
	}
	if status.Lang != "" {
		post.Langs = []string{status.Lang}
	}

	resp, err := comatproto.RepoCreateRecord(ctx, client, &comatproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       session.Did,
		Record:     &util.LexiconTypeDecoder{Val: post},
	})
	if err != nil {
		return "", errors.WrapSocial(err, "create post on %s", b.server)
	}

	did, rkey, err := parseRecordURI(resp.Uri)
	if err != nil {
		return "", err
	}

	profile, err := appbsky.ActorGetProfile(ctx, client, did)
	if err != nil {
		return "", errors.WrapSocial(err, "get profile %s", did)
	}
	return "https://bsky.app/profile/" + profile.Handle + "/post/" + rkey, nil
}

func parseRecordURI(uri string) (did, rkey string, err error) {
	m := recordURI.FindStringSubmatch(uri)
	if m == nil {
		return "", "", errors.NewSocialError("cannot find did and record key in %q", uri)
	}
	return m[1], m[2], nil
}

var (
	urlPattern = regexp.MustCompile(`(?:^|\W)(https?://(?:www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b(?:[-a-zA-Z0-9()@:%_+.~#?&/=]*[-a-zA-Z0-9@%_+~#/=])?)`)
	tagPattern = regexp.MustCompile(`(?:^|\s)(#[^\d\s]\S*)`)
)

// Facets finds links and hashtags in text. Offsets are byte offsets, as
// the richtext lexicon requires.
func Facets(text string) []*appbsky.RichtextFacet {
	var facets []*appbsky.RichtextFacet

	for _, m := range urlPattern.FindAllStringSubmatchIndex(text, -1) {
		facets = append(facets, &appbsky.RichtextFacet{
			Index: &appbsky.RichtextFacet_ByteSlice{ByteStart: int64(m[2]), ByteEnd: int64(m[3])},
			Features: []*appbsky.RichtextFacet_Features_Elem{{
				RichtextFacet_Link: &appbsky.RichtextFacet_Link{Uri: text[m[2]:m[3]]},
			}},
		})
	}

	for _, m := range tagPattern.FindAllStringSubmatchIndex(text, -1) {
		facets = append(facets, &appbsky.RichtextFacet{
			Index: &appbsky.RichtextFacet_ByteSlice{ByteStart: int64(m[2]), ByteEnd: int64(m[3])},
			Features: []*appbsky.RichtextFacet_Features_Elem{{
				RichtextFacet_Tag: &appbsky.RichtextFacet_Tag{Tag: text[m[2]+1 : m[3]]},
			}},
		})
	}

	return facets
}

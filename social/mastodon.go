package social

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/logger"
)

// Mastodon posts statuses through the Mastodon REST API.
type Mastodon struct {
	server   string
	baseURL  string
	tokenVar string
	getenv   func(string) string
	http     *http.Client
}

func (m *Mastodon) Platform() string { return "Mastodon" }
func (m *Mastodon) Instance() string { return m.server }

type toot struct {
	Status     string `json:"status"`
	Visibility string `json:"visibility"`
	Language   string `json:"language,omitempty"`
}

type mastodonStatus struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// Post publishes a public status, then bookmarks it so it is easy to find
// again. The Idempotency-Key is derived from the text, so the server drops
// a repeated identical post.
func (m *Mastodon) Post(ctx context.Context, status Status) (string, error) {
	token, err := credential(m.getenv, m.tokenVar)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(toot{Status: status.Text, Visibility: "public", Language: status.Lang})
	if err != nil {
		return "", errors.WrapSocial(err, "encode status")
	}

	sum := sha256.Sum256([]byte(status.Text))
	headers := map[string]string{"Idempotency-Key": hex.EncodeToString(sum[:])}

	var created mastodonStatus
	if err := m.do(ctx, "/api/v1/statuses", token, body, headers, &created); err != nil {
		return "", err
	}
	if created.URI == "" {
		return "", errors.NewSocialError("%s returned a status without uri", m.server)
	}

	if err := m.do(ctx, "/api/v1/statuses/"+created.ID+"/bookmark", token, nil, nil, nil); err != nil {
		// The status is out; losing the bookmark is not worth losing the link.
		logger.ComponentLogger("social").Warnw("Bookmark failed",
			logger.FieldInstance, m.server,
			logger.FieldURL, created.URI,
			logger.FieldError, err)
	}
	return created.URI, nil
}

func (m *Mastodon) do(ctx context.Context, path, token string, body []byte, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.WrapSocial(err, "build request for %s", m.server)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return errors.WrapSocial(err, "POST %s%s", m.server, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.WrapSocial(err, "read response from %s", m.server)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.WithDetail(
			errors.NewSocialError("POST %s%s: %s", m.server, path, resp.Status),
			string(data),
		)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.WrapSocial(err, "decode response from %s", m.server)
	}
	return nil
}

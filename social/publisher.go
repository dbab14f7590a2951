package social

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/emile/config"
	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/logger"
)

// Result is the outcome of posting to one instance.
type Result struct {
	Platform string
	Instance string
	URL      string
	Err      error
}

// Client posts a status to one account.
type Client interface {
	Platform() string
	Instance() string
	Post(ctx context.Context, status Status) (url string, err error)
}

// Publisher posts to every configured instance.
type Publisher struct {
	clients []Client
	logger  *zap.SugaredLogger
}

// Option configures NewPublisher.
type Option func(*options)

type options struct {
	getenv     func(string) string
	httpClient *http.Client
	scheme     string
}

// WithGetenv replaces os.Getenv for credential lookup.
func WithGetenv(getenv func(string) string) Option {
	return func(o *options) { o.getenv = getenv }
}

// WithHTTPClient sets the client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithInsecure talks plain http to the instances. Tests only.
func WithInsecure() Option {
	return func(o *options) { o.scheme = "http" }
}

// NewPublisher builds one client per configured instance. Credentials are
// read when posting, so a missing env var fails that platform only.
func NewPublisher(instances []config.SocialInstance, opts ...Option) (*Publisher, error) {
	o := options{
		getenv:     os.Getenv,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		scheme:     "https",
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Publisher{logger: logger.AddPublishSymbol(logger.ComponentLogger("social"))}
	for _, inst := range instances {
		host := o.scheme + "://" + strings.TrimSuffix(inst.Server, "/")
		switch strings.ToLower(inst.API) {
		case config.APIMastodon:
			p.clients = append(p.clients, &Mastodon{
				server:   inst.Server,
				baseURL:  host,
				tokenVar: inst.TokenVar,
				getenv:   o.getenv,
				http:     o.httpClient,
			})
		case config.APIBluesky:
			p.clients = append(p.clients, &Bluesky{
				server:    inst.Server,
				host:      host,
				handleVar: inst.HandleVar,
				tokenVar:  inst.TokenVar,
				getenv:    o.getenv,
				http:      o.httpClient,
			})
		default:
			return nil, errors.NewConfigError("unknown social api %q for %s", inst.API, inst.Server)
		}
	}
	return p, nil
}

// NewPublisherWithClients uses the given clients as is.
func NewPublisherWithClients(clients ...Client) *Publisher {
	return &Publisher{
		clients: clients,
		logger:  logger.AddPublishSymbol(logger.ComponentLogger("social")),
	}
}

// Publish posts status everywhere, in configuration order. One result is
// returned per instance; a failure never stops the other platforms.
func (p *Publisher) Publish(ctx context.Context, status Status) []Result {
	results := make([]Result, 0, len(p.clients))
	for _, c := range p.clients {
		r := Result{Platform: c.Platform(), Instance: c.Instance()}
		r.URL, r.Err = post(ctx, c, status)

		if r.Err != nil {
			p.logger.Errorw("Announcement failed",
				logger.FieldPlatform, r.Platform,
				logger.FieldInstance, r.Instance,
				logger.FieldError, r.Err)
		} else {
			p.logger.Infow("Announced",
				logger.FieldPlatform, r.Platform,
				logger.FieldInstance, r.Instance,
				logger.FieldURL, r.URL)
		}
		results = append(results, r)
	}
	return results
}

func post(ctx context.Context, c Client, status Status) (url string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.NewSocialError("%s client panicked: %v", c.Platform(), rec)
		}
	}()

	url, err = c.Post(ctx, status)
	if err != nil && !errors.Is(err, errors.ErrSocial) {
		err = errors.WrapSocial(err, "post to %s", c.Instance())
	}
	return url, err
}

// Len returns the number of configured instances.
func (p *Publisher) Len() int {
	return len(p.clients)
}

func credential(getenv func(string) string, name string) (string, error) {
	if name == "" {
		return "", errors.NewSocialError("no environment variable configured")
	}
	v := getenv(name)
	if v == "" {
		return "", errors.WithHintf(
			errors.NewSocialError("`%s` env var is not defined", name),
			"export %s before running emile", name,
		)
	}
	return v, nil
}

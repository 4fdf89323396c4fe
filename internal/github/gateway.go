package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v66/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"

	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
)

type Config struct {
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
	UserAgent  string
}

// Installation is the subset of a GitHub App installation the relay needs.
type Installation struct {
	ID           int64
	AccountLogin string
}

// DispatchResponse is GitHub's raw answer to a repository_dispatch call.
type DispatchResponse struct {
	StatusCode int
	Body       []byte
}

// Gateway is the relay's only path to the GitHub REST API. Every call takes
// the bearer it should authenticate with: an App JWT for the app endpoints,
// an installation or static token for repository endpoints.
type Gateway interface {
	CreateInstallationToken(ctx context.Context, appJWT string, installationID int64) (domain.InstallationToken, error)
	FindRepositoryInstallation(ctx context.Context, appJWT string, repo domain.Repository) (Installation, error)
	ListInstallations(ctx context.Context, appJWT string) ([]Installation, error)
	ListTopics(ctx context.Context, token string, repo domain.Repository) ([]string, error)
	Dispatch(ctx context.Context, token string, repo domain.Repository, req domain.DispatchRequest) (*DispatchResponse, error)
}

type gateway struct {
	cfg     Config
	baseURL *url.URL
	base    http.RoundTripper
	cache   *responseCache
}

// NewGateway builds a gateway on top of base, which defaults to
// http.DefaultTransport. Topic lookups always reach GitHub; an in-memory LRU
// shared by all calls lets unchanged topics come back as 304s.
func NewGateway(cfg Config, base http.RoundTripper) (Gateway, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com/"
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing github api url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("github api url %q must be absolute", cfg.BaseURL)
	}
	if base == nil {
		base = http.DefaultTransport
	}
	cache, err := newResponseCache(responseCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}

	return &gateway{
		cfg:     cfg,
		baseURL: baseURL,
		base:    base,
		cache:   cache,
	}, nil
}

// client returns a go-github client that authenticates every request with
// token. The chain is oauth2 -> [httpcache -> revalidate] -> api version -> base.
func (g *gateway) client(token string, cached bool) *gogithub.Client {
	var rt http.RoundTripper = &versionTransport{base: g.base, version: g.cfg.APIVersion}
	if cached {
		cacheTransport := httpcache.NewTransport(g.cache)
		cacheTransport.Transport = &revalidateTransport{base: rt}
		rt = cacheTransport
	}

	httpClient := &http.Client{
		Timeout: g.cfg.Timeout,
		Transport: &oauth2.Transport{
			Base:   rt,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		},
	}

	c := gogithub.NewClient(httpClient)
	c.BaseURL = g.baseURL
	if g.cfg.UserAgent != "" {
		c.UserAgent = g.cfg.UserAgent
	}
	return c
}

// versionTransport pins X-GitHub-Api-Version on every outbound request.
type versionTransport struct {
	base    http.RoundTripper
	version string
}

func (t *versionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.version == "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("X-GitHub-Api-Version", t.version)
	return t.base.RoundTrip(r)
}

package credential

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/forma22-agency/gh-dispatch-relay/common/clock"
	"github.com/forma22-agency/gh-dispatch-relay/common/logger"
	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
	"github.com/forma22-agency/gh-dispatch-relay/internal/github"
)

// RefreshMargin is the minimum remaining lifetime of a cached installation
// token. Tokens closer to expiry are re-minted.
const RefreshMargin = 5 * time.Minute

// Provider yields the credential used for every GitHub call made on behalf
// of a relayed event.
type Provider interface {
	Resolve(ctx context.Context, repo domain.Repository) (domain.Credential, error)
}

type Options struct {
	// StaticToken wins over App authentication when set.
	StaticToken string
	// App is nil when no App identity is configured.
	App *domain.AppIdentity
	// InstallationID skips auto-discovery when non-zero.
	InstallationID int64
	Clock          clock.Clock
}

type provider struct {
	gateway        github.Gateway
	staticToken    string
	signer         *appSigner
	installationID int64
	clock          clock.Clock

	tokens        *tokenCache
	installations *installationIndex
	flights       singleflight.Group
}

// NewProvider fails only when an App identity is present but unusable.
// A provider with no credential source at all is valid; its Resolve calls
// return domain.ErrConfiguration.
func NewProvider(gateway github.Gateway, opts Options) (Provider, error) {
	p := &provider{
		gateway:        gateway,
		staticToken:    opts.StaticToken,
		installationID: opts.InstallationID,
		clock:          opts.Clock,
		tokens:         newTokenCache(RefreshMargin),
		installations:  newInstallationIndex(),
	}
	if p.clock == nil {
		p.clock = clock.Real()
	}

	if opts.App != nil && opts.StaticToken == "" {
		signer, err := newAppSigner(*opts.App)
		if err != nil {
			return nil, err
		}
		p.signer = signer
	}

	return p, nil
}

func (p *provider) Resolve(ctx context.Context, repo domain.Repository) (domain.Credential, error) {
	if p.staticToken != "" {
		return domain.StaticToken{Value: p.staticToken}, nil
	}
	if p.signer == nil {
		return nil, domain.ErrConfiguration
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "relay.credential"})

	installationID, discovered, err := p.installationFor(ctx, repo)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{InstallationID: &installationID})

	if tok, ok := p.tokens.get(installationID, p.clock.Now()); ok {
		slog.DebugContext(ctx, "installation token cache hit")
		return tok, nil
	}

	tok, err := p.mint(ctx, installationID)
	if err != nil {
		if discovered {
			p.installations.forget(repo.Owner)
		}
		return nil, err
	}
	return tok, nil
}

// installationFor returns the configured installation, or discovers the one
// covering repo's owner. discovered is true when the id came from discovery.
func (p *provider) installationFor(ctx context.Context, repo domain.Repository) (int64, bool, error) {
	if p.installationID != 0 {
		return p.installationID, false, nil
	}
	if id, ok := p.installations.get(repo.Owner); ok {
		return id, true, nil
	}

	v, err := p.do(ctx, "installation:"+ownerKey(repo.Owner), func(ctx context.Context) (any, error) {
		id, err := p.discover(ctx, repo)
		if err != nil {
			return nil, err
		}
		p.installations.put(repo.Owner, id)
		return id, nil
	})
	if err != nil {
		return 0, false, err
	}
	return v.(int64), true, nil
}

func (p *provider) discover(ctx context.Context, repo domain.Repository) (int64, error) {
	appJWT, err := p.signer.sign(p.clock.Now())
	if err != nil {
		return 0, err
	}

	inst, err := p.gateway.FindRepositoryInstallation(ctx, appJWT, repo)
	if err == nil {
		slog.InfoContext(ctx, "discovered installation for repository",
			"installation_id", inst.ID, "repository", repo.FullName())
		return inst.ID, nil
	}
	if !github.IsNotFound(err) {
		return 0, &domain.UpstreamAuthError{Op: "find repository installation", StatusCode: github.StatusCode(err), Err: err}
	}

	installations, err := p.gateway.ListInstallations(ctx, appJWT)
	if err != nil {
		return 0, &domain.UpstreamAuthError{Op: "list installations", StatusCode: github.StatusCode(err), Err: err}
	}
	for _, inst := range installations {
		if strings.EqualFold(inst.AccountLogin, repo.Owner) {
			slog.InfoContext(ctx, "discovered installation for owner",
				"installation_id", inst.ID, "owner", repo.Owner)
			return inst.ID, nil
		}
	}

	slog.WarnContext(ctx, "no app installation matches owner",
		"owner", repo.Owner, "installations", len(installations))
	return 0, fmt.Errorf("%w for owner %q", domain.ErrInstallationNotFound, repo.Owner)
}

func (p *provider) mint(ctx context.Context, installationID int64) (domain.InstallationToken, error) {
	v, err := p.do(ctx, "token:"+strconv.FormatInt(installationID, 10), func(ctx context.Context) (any, error) {
		// Another flight may have refreshed the entry since our lookup.
		if tok, ok := p.tokens.get(installationID, p.clock.Now()); ok {
			return tok, nil
		}

		appJWT, err := p.signer.sign(p.clock.Now())
		if err != nil {
			return nil, err
		}
		tok, err := p.gateway.CreateInstallationToken(ctx, appJWT, installationID)
		if err != nil {
			slog.ErrorContext(ctx, "minting installation token failed", "error", err)
			return nil, &domain.UpstreamAuthError{Op: "mint installation token", StatusCode: github.StatusCode(err), Err: err}
		}

		p.tokens.put(tok)
		slog.InfoContext(ctx, "minted installation token", "expires_at", tok.ExpiresAt)
		return tok, nil
	})
	if err != nil {
		return domain.InstallationToken{}, err
	}
	return v.(domain.InstallationToken), nil
}

// do collapses concurrent calls sharing key into one execution of fn. The
// shared call runs detached from any single caller's cancellation; each
// caller still stops waiting when its own ctx is done.
func (p *provider) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := p.flights.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

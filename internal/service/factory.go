package service

import (
	"fmt"
	"log/slog"

	"github.com/forma22-agency/gh-dispatch-relay/common/clock"
	"github.com/forma22-agency/gh-dispatch-relay/core/config"
	"github.com/forma22-agency/gh-dispatch-relay/internal/credential"
	"github.com/forma22-agency/gh-dispatch-relay/internal/dispatch"
	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
	"github.com/forma22-agency/gh-dispatch-relay/internal/github"
	"github.com/forma22-agency/gh-dispatch-relay/internal/mapper"
	"github.com/forma22-agency/gh-dispatch-relay/internal/policy"
	"github.com/forma22-agency/gh-dispatch-relay/internal/resolver"
)

// Services wires the relay pipeline once per process. The credential
// provider, and with it the token cache, is shared by every request.
type Services struct {
	resolver    resolver.Resolver
	credentials credential.Provider
	policy      policy.Evaluator
	dispatcher  dispatch.Client
	relayCfg    RelayConfig
	logger      *slog.Logger
}

func NewServices(cfg config.Config, gateway github.Gateway, clk clock.Clock, logger *slog.Logger) (*Services, error) {
	opts := credential.Options{
		StaticToken:    cfg.GitHub.Token,
		InstallationID: cfg.App.InstallationID,
		Clock:          clk,
	}
	if cfg.App.Enabled() {
		opts.App = &domain.AppIdentity{AppID: cfg.App.AppID, PrivateKey: cfg.App.PrivateKey}
	}
	credentials, err := credential.NewProvider(gateway, opts)
	if err != nil {
		return nil, fmt.Errorf("creating credential provider: %w", err)
	}

	mode, err := domain.ParseTopicsMode(cfg.Topics.Mode)
	if err != nil {
		return nil, err
	}

	return &Services{
		resolver: resolver.New(
			resolver.Config{Owner: cfg.GitHub.Owner, Name: cfg.GitHub.Repo},
			mapper.NewStackRoxImageMapper(),
		),
		credentials: credentials,
		policy:      policy.NewEvaluator(gateway),
		dispatcher:  dispatch.NewClient(gateway),
		relayCfg: RelayConfig{
			EventType: cfg.Relay.EventType,
			Topics:    domain.NewTopicsPolicy(cfg.Topics.Allowed, mode),
		},
		logger: logger,
	}, nil
}

func (s *Services) Relay() RelayService {
	return NewRelayService(s.resolver, s.credentials, s.policy, s.dispatcher, s.relayCfg, s.logger)
}

func (s *Services) Credentials() credential.Provider {
	return s.credentials
}

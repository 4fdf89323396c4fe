package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/forma22-agency/gh-dispatch-relay/common/logger"
	"github.com/forma22-agency/gh-dispatch-relay/internal/credential"
	"github.com/forma22-agency/gh-dispatch-relay/internal/dispatch"
	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
	"github.com/forma22-agency/gh-dispatch-relay/internal/policy"
	"github.com/forma22-agency/gh-dispatch-relay/internal/resolver"
)

type RelayParams struct {
	DeliveryID string
	// Alert is the decoded webhook body, used to locate image references.
	Alert any
	// Raw is the body as received, forwarded as client_payload.alert.
	Raw json.RawMessage
}

type RelayResult struct {
	DeliveryID string
	Repository domain.Repository
	EventType  string
}

type RelayConfig struct {
	EventType string
	Topics    domain.TopicsPolicy
}

// RelayService forwards one inbound alert to GitHub as a repository_dispatch
// event. A rejected dispatch is returned as *domain.DispatchFailure.
type RelayService interface {
	Relay(ctx context.Context, params RelayParams) (*RelayResult, error)
}

type relayService struct {
	resolver    resolver.Resolver
	credentials credential.Provider
	policy      policy.Evaluator
	dispatcher  dispatch.Client
	cfg         RelayConfig
	logger      *slog.Logger
}

func NewRelayService(
	resolver resolver.Resolver,
	credentials credential.Provider,
	policy policy.Evaluator,
	dispatcher dispatch.Client,
	cfg RelayConfig,
	logger *slog.Logger,
) RelayService {
	if logger == nil {
		logger = slog.Default()
	}
	return &relayService{
		resolver:    resolver,
		credentials: credentials,
		policy:      policy,
		dispatcher:  dispatcher,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *relayService) Relay(ctx context.Context, params RelayParams) (*RelayResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DeliveryID: logger.Ptr(params.DeliveryID),
		EventType:  logger.Ptr(s.cfg.EventType),
		Component:  "relay.service",
	})

	clientPayload, err := wrapAlert(params)
	if err != nil {
		return nil, err
	}

	repo, err := s.resolveRepository(ctx, params.Alert)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{Repository: logger.Ptr(repo.FullName())})

	cred, err := s.resolveCredential(ctx, repo)
	if err != nil {
		return nil, err
	}

	if s.cfg.Topics.Enabled() {
		if err := s.checkTopics(ctx, repo, cred); err != nil {
			return nil, err
		}
	}

	outcome, err := s.dispatch(ctx, repo, cred, domain.DispatchRequest{
		EventType:     s.cfg.EventType,
		ClientPayload: clientPayload,
	})
	if err != nil {
		return nil, err
	}

	switch o := outcome.(type) {
	case domain.DispatchSuccess:
		s.logger.InfoContext(ctx, "alert relayed")
		return &RelayResult{
			DeliveryID: params.DeliveryID,
			Repository: o.Repository,
			EventType:  s.cfg.EventType,
		}, nil
	case *domain.DispatchFailure:
		return nil, o
	default:
		return nil, fmt.Errorf("unexpected dispatch outcome %T", outcome)
	}
}

func (s *relayService) resolveRepository(ctx context.Context, alert any) (domain.Repository, error) {
	sc := logger.StartSpan(ctx, "relay.resolve_repository")
	defer sc.End()

	repo, err := s.resolver.Resolve(sc.Context(), alert)
	if err != nil {
		sc.RecordError(err)
		s.logger.WarnContext(ctx, "repository resolution failed", "error", err)
		return domain.Repository{}, fmt.Errorf("resolving repository: %w", err)
	}
	return repo, nil
}

func (s *relayService) resolveCredential(ctx context.Context, repo domain.Repository) (domain.Credential, error) {
	sc := logger.StartSpan(ctx, "relay.resolve_credential")
	defer sc.End()

	cred, err := s.credentials.Resolve(sc.Context(), repo)
	if err != nil {
		sc.RecordError(err)
		s.logger.ErrorContext(ctx, "credential resolution failed", "error", err)
		return nil, fmt.Errorf("resolving credential: %w", err)
	}
	return cred, nil
}

func (s *relayService) checkTopics(ctx context.Context, repo domain.Repository, cred domain.Credential) error {
	sc := logger.StartSpan(ctx, "relay.evaluate_topics")
	defer sc.End()

	decision, err := s.policy.Evaluate(sc.Context(), repo, cred, s.cfg.Topics)
	if err != nil {
		sc.RecordError(err)
		s.logger.ErrorContext(ctx, "topics lookup failed", "error", err)
		return fmt.Errorf("evaluating topics policy: %w", err)
	}
	if decision != domain.DecisionAdmit {
		s.logger.InfoContext(ctx, "repository denied by topics policy", "mode", s.cfg.Topics.Mode)
		return domain.ErrPolicyDenied
	}
	return nil
}

func (s *relayService) dispatch(ctx context.Context, repo domain.Repository, cred domain.Credential, req domain.DispatchRequest) (domain.DispatchOutcome, error) {
	sc := logger.StartSpan(ctx, "relay.dispatch")
	defer sc.End()

	outcome, err := s.dispatcher.Dispatch(sc.Context(), repo, cred, req)
	if err != nil {
		sc.RecordError(err)
		s.logger.ErrorContext(ctx, "repository dispatch failed", "error", err)
		return nil, fmt.Errorf("dispatching: %w", err)
	}
	if failure, ok := outcome.(*domain.DispatchFailure); ok {
		sc.RecordError(failure)
	}
	return outcome, nil
}

// wrapAlert builds {"alert": <body>}. The raw body is preferred so key order
// and number formatting survive.
func wrapAlert(params RelayParams) (json.RawMessage, error) {
	alert := params.Raw
	if len(alert) == 0 {
		encoded, err := json.Marshal(params.Alert)
		if err != nil {
			return nil, fmt.Errorf("encoding alert: %w", err)
		}
		alert = encoded
	}

	payload, err := json.Marshal(struct {
		Alert json.RawMessage `json:"alert"`
	}{Alert: alert})
	if err != nil {
		return nil, fmt.Errorf("encoding client payload: %w", err)
	}
	return payload, nil
}

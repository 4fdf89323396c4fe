package dispatch

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/forma22-agency/gh-dispatch-relay/common/logger"
	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
	"github.com/forma22-agency/gh-dispatch-relay/internal/github"
)

// maxLoggedBody caps how much of a rejected response body reaches the logs.
const maxLoggedBody = 512

// Dispatcher is the slice of the GitHub gateway the client needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, token string, repo domain.Repository, req domain.DispatchRequest) (*github.DispatchResponse, error)
}

// Client fires repository_dispatch events. It never retries.
type Client interface {
	Dispatch(ctx context.Context, repo domain.Repository, cred domain.Credential, req domain.DispatchRequest) (domain.DispatchOutcome, error)
}

type client struct {
	gateway Dispatcher
}

func NewClient(gateway Dispatcher) Client {
	return &client{gateway: gateway}
}

// Dispatch returns DispatchSuccess on 204 and *DispatchFailure carrying
// GitHub's status and body for anything else. An error means GitHub never
// answered.
func (c *client) Dispatch(ctx context.Context, repo domain.Repository, cred domain.Credential, req domain.DispatchRequest) (domain.DispatchOutcome, error) {
	resp, err := c.gateway.Dispatch(ctx, cred.Token(), repo, req)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "repository dispatch", Err: err}
	}

	if resp.StatusCode == http.StatusNoContent {
		slog.InfoContext(ctx, "repository dispatch accepted")
		return domain.DispatchSuccess{Repository: repo}, nil
	}

	slog.WarnContext(ctx, "repository dispatch rejected",
		"status", resp.StatusCode,
		"body", logger.Truncate(string(resp.Body), maxLoggedBody))
	return &domain.DispatchFailure{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}

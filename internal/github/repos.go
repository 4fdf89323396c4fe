package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	gogithub "github.com/google/go-github/v66/github"

	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
)

type topicsResponse struct {
	Names []string `json:"names"`
}

type dispatchBody struct {
	EventType     string          `json:"event_type"`
	ClientPayload json.RawMessage `json:"client_payload,omitempty"`
}

func repoPath(repo domain.Repository, suffix string) string {
	return fmt.Sprintf("repos/%s/%s/%s", url.PathEscape(repo.Owner), url.PathEscape(repo.Name), suffix)
}

// ListTopics returns the repository's topics. Responses go through the ETag
// cache; the body is read to EOF so the cache can store it.
func (g *gateway) ListTopics(ctx context.Context, token string, repo domain.Repository) ([]string, error) {
	client := g.client(token, true)

	req, err := client.NewRequest(http.MethodGet, repoPath(repo, "topics"), nil)
	if err != nil {
		return nil, fmt.Errorf("github: list topics: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.BareDo(ctx, req)
	if err != nil {
		return nil, wrapError("list topics", resp, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("github: list topics: reading body: %w", err)
	}

	var topics topicsResponse
	if err := json.Unmarshal(data, &topics); err != nil {
		return nil, fmt.Errorf("github: list topics: decoding body: %w", err)
	}
	return topics.Names, nil
}

// Dispatch fires a repository_dispatch event. Any HTTP answer, including
// errors, comes back as a DispatchResponse with the body untouched; only
// transport failures are returned as errors.
func (g *gateway) Dispatch(ctx context.Context, token string, repo domain.Repository, dr domain.DispatchRequest) (*DispatchResponse, error) {
	client := g.client(token, false)

	req, err := client.NewRequest(http.MethodPost, repoPath(repo, "dispatches"), dispatchBody{
		EventType:     dr.EventType,
		ClientPayload: dr.ClientPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("github: dispatch: %w", err)
	}

	resp, err := client.BareDo(ctx, req)
	if resp == nil || resp.Response == nil {
		return nil, fmt.Errorf("github: dispatch: %w", err)
	}
	defer resp.Body.Close()

	// go-github drains 202 bodies into the error value.
	var accepted *gogithub.AcceptedError
	if errors.As(err, &accepted) {
		return &DispatchResponse{StatusCode: resp.StatusCode, Body: accepted.Raw}, nil
	}

	data, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("github: dispatch: reading body: %w", readErr)
	}
	return &DispatchResponse{StatusCode: resp.StatusCode, Body: data}, nil
}

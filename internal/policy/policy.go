package policy

import (
	"context"
	"log/slog"

	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
	"github.com/forma22-agency/gh-dispatch-relay/internal/github"
)

// TopicsLister is the slice of the GitHub gateway the evaluator needs.
type TopicsLister interface {
	ListTopics(ctx context.Context, token string, repo domain.Repository) ([]string, error)
}

// Evaluator decides whether a repository may receive a dispatch.
type Evaluator interface {
	Evaluate(ctx context.Context, repo domain.Repository, cred domain.Credential, policy domain.TopicsPolicy) (domain.Decision, error)
}

type evaluator struct {
	topics TopicsLister
}

func NewEvaluator(topics TopicsLister) Evaluator {
	return &evaluator{topics: topics}
}

// Evaluate admits without calling GitHub when the policy is disabled. A
// failed topic lookup is an error, never a deny.
func (e *evaluator) Evaluate(ctx context.Context, repo domain.Repository, cred domain.Credential, policy domain.TopicsPolicy) (domain.Decision, error) {
	if !policy.Enabled() {
		return domain.DecisionAdmit, nil
	}

	topics, err := e.topics.ListTopics(ctx, cred.Token(), repo)
	if err != nil {
		return "", &domain.UpstreamError{Op: "list repository topics", StatusCode: github.StatusCode(err), Err: err}
	}

	decision := Decide(policy, topics)
	slog.DebugContext(ctx, "topics policy evaluated",
		"mode", policy.Mode, "topics", topics, "decision", decision)
	return decision, nil
}

// Decide applies policy to a repository's topics. Matching is exact and
// case-sensitive.
func Decide(policy domain.TopicsPolicy, topics []string) domain.Decision {
	if !policy.Enabled() {
		return domain.DecisionAdmit
	}

	present := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		present[t] = struct{}{}
	}

	switch policy.Mode {
	case domain.TopicsModeAll:
		for allowed := range policy.AllowedTopics {
			if _, ok := present[allowed]; !ok {
				return domain.DecisionDeny
			}
		}
		return domain.DecisionAdmit
	default:
		for allowed := range policy.AllowedTopics {
			if _, ok := present[allowed]; ok {
				return domain.DecisionAdmit
			}
		}
		return domain.DecisionDeny
	}
}

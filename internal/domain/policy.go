package domain

import "fmt"

// TopicsMode selects how allowed topics are matched against a repository.
type TopicsMode string

const (
	// TopicsModeAny admits when the repository carries at least one allowed topic.
	TopicsModeAny TopicsMode = "any"
	// TopicsModeAll admits when the repository carries every allowed topic.
	TopicsModeAll TopicsMode = "all"
)

func ParseTopicsMode(s string) (TopicsMode, error) {
	switch TopicsMode(s) {
	case TopicsModeAny, TopicsModeAll:
		return TopicsMode(s), nil
	case "":
		return TopicsModeAny, nil
	default:
		return "", fmt.Errorf("unknown topics mode %q", s)
	}
}

// TopicsPolicy restricts dispatch to repositories labelled with allowed topics.
// An empty AllowedTopics set disables the policy.
type TopicsPolicy struct {
	AllowedTopics map[string]struct{}
	Mode          TopicsMode
}

// NewTopicsPolicy builds a policy from a topic list. Duplicates and empty
// entries are dropped; comparison stays case-sensitive.
func NewTopicsPolicy(topics []string, mode TopicsMode) TopicsPolicy {
	allowed := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		if topic != "" {
			allowed[topic] = struct{}{}
		}
	}
	return TopicsPolicy{AllowedTopics: allowed, Mode: mode}
}

func (p TopicsPolicy) Enabled() bool {
	return len(p.AllowedTopics) > 0
}

// Decision is the result of a policy evaluation.
type Decision string

const (
	DecisionAdmit Decision = "admit"
	DecisionDeny  Decision = "deny"
)

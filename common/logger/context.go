package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// The webhook handler seeds the delivery ID; each relay stage adds what it resolves.
type LogFields struct {
	DeliveryID     *string // Snowflake ID assigned to the inbound webhook
	Repository     *string // Resolved owner/name
	EventType      *string // repository_dispatch event type
	InstallationID *int64  // GitHub App installation backing the credential
	Component      string  // Component name, e.g. "relay.credential"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.DeliveryID != nil {
		result.DeliveryID = new.DeliveryID
	}
	if new.Repository != nil {
		result.Repository = new.Repository
	}
	if new.EventType != nil {
		result.EventType = new.EventType
	}
	if new.InstallationID != nil {
		result.InstallationID = new.InstallationID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen bytes, appending "..." if truncated.
// Used for upstream response bodies, which can be arbitrarily large.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

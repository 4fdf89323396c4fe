package domain

import (
	"encoding/json"
	"fmt"
)

// DispatchRequest is the body of a repository_dispatch call. ClientPayload is
// forwarded to GitHub without inspection.
type DispatchRequest struct {
	EventType     string
	ClientPayload json.RawMessage
}

// DispatchOutcome is one of DispatchSuccess or *DispatchFailure.
type DispatchOutcome interface {
	isDispatchOutcome()
}

// DispatchSuccess means GitHub accepted the event with 204 No Content.
type DispatchSuccess struct {
	Repository Repository
}

func (DispatchSuccess) isDispatchOutcome() {}

// DispatchFailure carries GitHub's own status and body for any response other
// than 204. The relay hands both back to its caller untouched.
type DispatchFailure struct {
	StatusCode int
	Body       []byte
}

func (*DispatchFailure) isDispatchOutcome() {}

func (f *DispatchFailure) Error() string {
	return fmt.Sprintf("dispatch rejected by github: HTTP %d", f.StatusCode)
}

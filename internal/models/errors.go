package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UpstreamError reports a non-success answer from a news source. Details
// holds the upstream body as JSON.
type UpstreamError struct {
	Source  string
	Status  int
	Details json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Source, e.Status, string(e.Details))
}

// NewUpstreamError builds an UpstreamError from a raw response body. A body
// that is not JSON is carried as a JSON string.
func NewUpstreamError(source string, status int, body []byte) *UpstreamError {
	trimmed := strings.TrimSpace(string(body))
	details := json.RawMessage(trimmed)
	if trimmed == "" || !json.Valid(details) {
		details, _ = json.Marshal(trimmed)
	}
	return &UpstreamError{Source: source, Status: status, Details: details}
}

package core

import (
	"encoding/json"
	"fmt"
)

// APIError is a failure answered by the backend: the request completed
// but came back with a non-2xx status. It is distinct from
// ErrConnectivity, which means no response arrived at all.
type APIError struct {
	Status  int    // HTTP status code
	Message string // Backend-provided message text
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// DecodeAPIError builds an APIError from a non-2xx response body.
// Django-style backends spread the message across several shapes:
// {"detail": "..."}, {"error": "..."}, {"message": "..."}, or a field
// error map like {"username": ["This field is required."]}. The first
// recognizable message wins.
func DecodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = string(body)
		return apiErr
	}

	for _, field := range []string{"detail", "error", "message"} {
		if raw, ok := payload[field]; ok {
			var msg string
			if json.Unmarshal(raw, &msg) == nil && msg != "" {
				apiErr.Message = msg
				return apiErr
			}
		}
	}

	// Fall back to the first field error
	for _, raw := range payload {
		var msgs []string
		if json.Unmarshal(raw, &msgs) == nil && len(msgs) > 0 {
			apiErr.Message = msgs[0]
			return apiErr
		}
		var msg string
		if json.Unmarshal(raw, &msg) == nil && msg != "" {
			apiErr.Message = msg
			return apiErr
		}
	}

	return apiErr
}

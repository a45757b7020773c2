package promptdeck

import "fmt"

// Error represents an error response from the PromptDeck API.
type Error struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Body       string `json:"body,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("promptdeck: %s (status: %d)", e.Message, e.StatusCode)
}

// IsRetryable returns true if the error might be resolved by retrying.
func (e *Error) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// IsAuthError returns true if the error is related to authentication.
func (e *Error) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsNotFound returns true if the resource was not found.
func (e *Error) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsAPIError checks if an error is a PromptDeck API error.
func IsAPIError(err error) (*Error, bool) {
	if e, ok := err.(*Error); ok {
		return e, true
	}
	return nil, false
}

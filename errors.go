package agentgate

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by responses rejected with 401
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited is matched by responses rejected with 429
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound is matched by responses rejected with 404
	ErrNotFound = errors.New("not found")
)

// ResponseError is a non-2xx answer from the gateway
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("agentgate: %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match the sentinel of the status class
func (e *ResponseError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

package searchdb

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrBackend     = errors.New("search backend error")
	ErrUnavailable = errors.New("search backend unavailable")
)

type NotFoundError struct {
	Index string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s/%s", e.Index, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// BackendError is a non-2xx response from the search backend. The body is
// kept as returned so callers can pass it on unchanged.
type BackendError struct {
	StatusCode int
	Body       []byte
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("search backend returned status %d: %s", e.StatusCode, string(e.Body))
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

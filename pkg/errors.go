package kdown

import (
	"fmt"
	"strings"
)

// APIError is a domain-level failure reported by a provider's API after
// a successful HTTP exchange. Message carries the provider's own error
// text.
type APIError struct {
	Provider string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

// NetworkError reports an HTTP status outside the [200,300) window.
type NetworkError struct {
	URL        string
	StatusCode int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.StatusCode, e.URL)
}

// ContentTypeError reports a response whose Content-Type does not
// prefix-match any entry of the acceptable set.
type ContentTypeError struct {
	URL         string
	ContentType string
	Acceptable  []string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("unacceptable content type %q for %s (want one of: %s)",
		e.ContentType, e.URL, strings.Join(e.Acceptable, ", "))
}

// FilesystemError reports a destination directory or file write problem.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem error at %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

package restclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyPath = errors.New("empty resource path")
	ErrNotFound  = errors.New("resource not found")
	ErrTimeout   = errors.New("request timed out")
)

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("agribench api error %d: %s %s", e.Code, e.Method, e.URL)
	}
	return fmt.Sprintf("agribench api error %d: %s %s: %s", e.Code, e.Method, e.URL, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// StatusCode extracts the HTTP status carried by err, or 0 when err did not
// come from a response.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

package farmcache

import (
	"errors"
	"fmt"
)

var ErrNoScope = errors.New("no farm selected")

// FetchError is the normalized read failure pages see. Status is the HTTP
// status of the failed response, 0 for transport failures and timeouts.
type FetchError struct {
	Key    Key
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("fetch %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d: %v", e.Key, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

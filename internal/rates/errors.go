package rates

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoData matches an APIError for a base currency the remote source does not quote.
var ErrNoData = errors.New("no data for base")

// NetworkError reports that the remote source could not be reached.
type NetworkError struct {
	Base string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch rates for %s: %v", e.Base, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError reports a failure answered by the remote source itself, either an
// HTTP status outside 2xx or a body that does not carry rates.
type APIError struct {
	Base       string
	StatusCode int    // 0 when the HTTP exchange succeeded
	Type       string // error-type from the body, if any
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("rate API error for %s: %s (status: %d)", e.Base, e.Message, e.StatusCode)
	case e.Type != "":
		return fmt.Sprintf("rate API error for %s: %s (%s)", e.Base, e.Message, e.Type)
	default:
		return fmt.Sprintf("rate API error for %s: %s", e.Base, e.Message)
	}
}

// Is lets errors.Is(err, ErrNoData) match a 404 answer.
func (e *APIError) Is(target error) bool {
	return target == ErrNoData && e.StatusCode == http.StatusNotFound
}

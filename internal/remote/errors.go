package remote

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned when a response body cannot be decoded.
var ErrMalformedPayload = errors.New("malformed payload")

// StatusError is returned for non-success HTTP responses.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// IsNotFound reports whether err is a 404 from the remote service.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status == 404
}

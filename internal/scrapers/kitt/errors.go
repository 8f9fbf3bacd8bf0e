package kitt

import (
	"errors"
	"fmt"
)

// ErrForeignHost is returned when asked to fetch a url outside the host the
// credential is scoped to, the cookie is never sent there.
var ErrForeignHost = errors.New("kitt: url is outside the portal")

// TransportError is returned when the portal answers with a 4xx/5xx status.
type TransportError struct {
	Url        string
	StatusCode int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("kitt: GET %s: status %d", e.Url, e.StatusCode)
}

// ParseError is returned when a structural marker that must be present is missing.
type ParseError struct {
	// Url is the page that was being parsed.
	Url string
	// Marker is the selector (and attribute, if any) that was not found.
	Marker string
	// Context locates the element, ex. the week and card index.
	Context string
}

func (e *ParseError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("kitt: parse %s: missing %s", e.Url, e.Marker)
	}
	return fmt.Sprintf("kitt: parse %s: missing %s (%s)", e.Url, e.Marker, e.Context)
}

package render

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotAuthenticated     = errors.New("render: session is not authenticated")
	ErrAlreadyAuthenticated = errors.New("render: session is already authenticated")
	ErrDomainMismatch       = errors.New("render: credential is not scoped to the portal domain")
	ErrClosed               = errors.New("render: session is closed")
	ErrBusy                 = errors.New("render: session is in use")
	// ErrNotReady is returned by Browser.WaitVisible when the wait times out.
	ErrNotReady = errors.New("render: readiness signal not observed")
)

// RenderTimeoutError is returned when the content never became ready.
type RenderTimeoutError struct {
	Url      string
	Selector string
	Timeout  time.Duration
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("render: %s: %q not visible after %s", e.Url, e.Selector, e.Timeout)
}

func (e *RenderTimeoutError) Unwrap() error {
	return ErrNotReady
}

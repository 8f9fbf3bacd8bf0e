package render

import (
	"context"
	"time"
)

// Cookie is a cookie injected into the browser.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// Browser is one page of a browser automation driver.
//
// note: fault injection point
type Browser interface {
	AddCookie(ctx context.Context, cookie Cookie) error
	// Navigate loads target and waits for the load event.
	Navigate(ctx context.Context, target string) error
	// WaitVisible blocks until an element matching selector is visible, it
	// returns ErrNotReady (possibly wrapped) once timeout passes.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// PDF prints the current page.
	PDF(ctx context.Context) ([]byte, error)
	// Content is the serialized DOM of the current page.
	Content(ctx context.Context) (string, error)
	// Snapshot is an mhtml archive of the current page.
	Snapshot(ctx context.Context) ([]byte, error)
	// Close releases the page and the driver behind it.
	Close() error
}

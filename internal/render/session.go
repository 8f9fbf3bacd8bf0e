package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"kittexport/internal/components/assert"
	"kittexport/internal/components/telemetry"
	"kittexport/internal/scrapers/kitt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("kittexport/render")

const (
	report_session_login  = "session.login"
	report_session_export = "session.export"
	report_session_close  = "session.close"
)

// State is where a Session is in its lifetime.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateRendering
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateRendering:
		return "rendering"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type SessionOptions struct {
	// RootUrl is the portal root, the credential must be scoped to its host.
	RootUrl string
	// ReadySelector must match a visible element before a page is exported,
	// defaults to "body".
	ReadySelector string
	// RenderTimeout bounds the wait for ReadySelector, defaults to 30 seconds.
	RenderTimeout time.Duration
	Telemetry     telemetry.API
}

// Session owns one browser page, authenticates it once and exports pages
// rendered by it.
//
// Unauthenticated -> (Login) -> Authenticated -> (Export) -> Rendering -> Authenticated
//
// A Session must not be used from more than one goroutine at a time, calls
// made while another call is running fail with ErrBusy.
type Session struct {
	lock    sync.Mutex
	browser Browser
	state   atomic.Int32

	root          *url.URL
	readySelector string
	renderTimeout time.Duration
	tel           telemetry.API
}

// NewSession takes ownership of browser and points it at the portal root.
// The browser is closed if this fails.
func NewSession(ctx context.Context, browser Browser, opts SessionOptions) (*Session, error) {
	assert.NotNil(browser)
	assert.NotNil(opts.Telemetry)

	if opts.ReadySelector == "" {
		opts.ReadySelector = "body"
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = time.Second * 30
	}

	root, err := url.Parse(opts.RootUrl)
	if err != nil || !root.IsAbs() {
		browser.Close()
		return nil, fmt.Errorf("render: invalid root url %q", opts.RootUrl)
	}

	s := &Session{
		browser:       browser,
		root:          root,
		readySelector: opts.ReadySelector,
		renderTimeout: opts.RenderTimeout,
		tel:           telemetry.NewScopedAPI("render_session", opts.Telemetry),
	}

	// cookies can only be set for a domain the page is on
	if err := browser.Navigate(ctx, root.String()); err != nil {
		browser.Close()
		return nil, fmt.Errorf("render: open %s: %w", root, err)
	}
	return s, nil
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// Login injects the credential as a session cookie and reloads the root so the
// portal picks it up. A session can be authenticated exactly once.
func (s *Session) Login(ctx context.Context, credential kitt.Credential) error {
	if !s.lock.TryLock() {
		return ErrBusy
	}
	defer s.lock.Unlock()

	switch s.State() {
	case StateClosed:
		return ErrClosed
	case StateAuthenticated:
		return ErrAlreadyAuthenticated
	}
	if !credential.ScopedTo(s.root) {
		return fmt.Errorf("%w: %q is not %q", ErrDomainMismatch, credential.Domain, s.root.Hostname())
	}

	err := s.browser.AddCookie(ctx, Cookie{
		Name:   credential.Name,
		Value:  credential.Value,
		Domain: credential.Domain,
		Path:   "/",
	})
	if err != nil {
		s.tel.ReportBroken(report_session_login, fmt.Errorf("add cookie: %w", err))
		return fmt.Errorf("render: login: %w", err)
	}
	if err := s.browser.Navigate(ctx, s.root.String()); err != nil {
		s.tel.ReportBroken(report_session_login, fmt.Errorf("refresh: %w", err))
		return fmt.Errorf("render: login: %w", err)
	}

	s.setState(StateAuthenticated)
	return nil
}

// Export renders contentUrl and writes it to destination in the given format,
// replacing whatever was there. Nothing is written unless the whole export
// succeeds.
func (s *Session) Export(ctx context.Context, contentUrl, destination string, format Format) error {
	if !format.Valid() {
		return &UnsupportedFormatError{Format: string(format)}
	}
	if !s.lock.TryLock() {
		return ErrBusy
	}
	defer s.lock.Unlock()

	switch s.State() {
	case StateUnauthenticated:
		return ErrNotAuthenticated
	case StateClosed:
		return ErrClosed
	}

	ctx, span := tracer.Start(ctx, "session:Export")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", contentUrl),
		attribute.String("format", string(format)),
	)

	s.setState(StateRendering)
	defer s.setState(StateAuthenticated)

	data, err := s.render(ctx, contentUrl, format)
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		s.tel.ReportBroken(report_session_export, err, contentUrl)
		return err
	}

	if err := writeFile(destination, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		s.tel.ReportBroken(report_session_export, err, destination)
		return fmt.Errorf("render: save %s: %w", contentUrl, err)
	}
	span.SetAttributes(attribute.Int("bytes", len(data)))
	return nil
}

func (s *Session) render(ctx context.Context, contentUrl string, format Format) ([]byte, error) {
	if err := s.browser.Navigate(ctx, contentUrl); err != nil {
		return nil, fmt.Errorf("render: navigate %s: %w", contentUrl, err)
	}

	err := s.browser.WaitVisible(ctx, s.readySelector, s.renderTimeout)
	if errors.Is(err, ErrNotReady) {
		return nil, &RenderTimeoutError{
			Url:      contentUrl,
			Selector: s.readySelector,
			Timeout:  s.renderTimeout,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("render: wait for %s: %w", contentUrl, err)
	}

	var data []byte
	switch format {
	case FormatPDF:
		data, err = s.browser.PDF(ctx)
	case FormatMHTML:
		data, err = s.browser.Snapshot(ctx)
	case FormatHTML, FormatMarkdown:
		var content string
		content, err = s.browser.Content(ctx)
		if err != nil {
			break
		}
		if format == FormatHTML {
			data = []byte(content)
			break
		}
		data, err = toMarkdown(contentUrl, content)
	}
	if err != nil {
		return nil, fmt.Errorf("render: serialize %s to %s: %w", contentUrl, format, err)
	}
	return data, nil
}

// Close releases the browser, it is safe to call more than once.
func (s *Session) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.State() == StateClosed {
		return nil
	}
	s.setState(StateClosed)
	err := s.browser.Close()
	if err != nil {
		s.tel.ReportWarning(report_session_close, err)
	}
	return err
}

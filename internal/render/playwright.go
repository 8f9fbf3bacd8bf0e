package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kittexport/internal/scrapers/kitt"

	"github.com/playwright-community/playwright-go"
)

// defaultNavigationTimeout applies when the context carries no deadline.
const defaultNavigationTimeout = time.Second * 60

type PlaywrightOptions struct {
	// Headless runs chromium without a window.
	Headless bool
	// Install downloads the playwright driver and chromium before launching.
	Install bool
}

type playwrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// LaunchPlaywright starts a playwright driver with a single chromium page.
func LaunchPlaywright(opts PlaywrightOptions) (Browser, error) {
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
	}
	if opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	p := &playwrightBrowser{pw: pw}

	p.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("launch chromium: %w", err), p.Close())
	}
	p.context, err = p.browser.NewContext()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create browser context: %w", err), p.Close())
	}
	p.page, err = p.context.NewPage()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create page: %w", err), p.Close())
	}
	return p, nil
}

// timeoutMs converts what is left of the context deadline into a playwright timeout.
func timeoutMs(ctx context.Context, fallback time.Duration) *float64 {
	timeout := fallback
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout < time.Millisecond {
		timeout = time.Millisecond
	}
	return playwright.Float(float64(timeout.Milliseconds()))
}

// interruptOnCancel calls interrupt once ctx is done, until the returned
// release is called. Driver calls do not observe ctx themselves.
func interruptOnCancel(ctx context.Context, interrupt func() error) (release func() bool) {
	return context.AfterFunc(ctx, func() {
		if err := interrupt(); err != nil {
			slog.Debug("interrupt playwright page", "err", err)
		}
	})
}

// closePage aborts whatever the page is doing, pending driver calls on it
// return with an error.
func (p *playwrightBrowser) closePage() error {
	return p.page.Close()
}

func (p *playwrightBrowser) AddCookie(ctx context.Context, cookie Cookie) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.context.AddCookies([]playwright.OptionalCookie{{
		Name:   cookie.Name,
		Value:  cookie.Value,
		Domain: playwright.String(cookie.Domain),
		Path:   playwright.String(cookie.Path),
	}})
}

func (p *playwrightBrowser) Navigate(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer interruptOnCancel(ctx, p.closePage)()

	res, err := p.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   timeoutMs(ctx, defaultNavigationTimeout),
	})
	if err != nil {
		return err
	}
	// res is nil for same-document navigations
	if res != nil && res.Status() >= 400 {
		return &kitt.TransportError{Url: target, StatusCode: res.Status()}
	}
	return nil
}

func (p *playwrightBrowser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer interruptOnCancel(ctx, p.closePage)()

	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: timeoutMs(ctx, timeout),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return err
}

func (p *playwrightBrowser) PDF(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer interruptOnCancel(ctx, p.closePage)()

	return p.page.PDF(playwright.PagePdfOptions{
		Format:          playwright.String("A4"),
		PrintBackground: playwright.Bool(true),
	})
}

func (p *playwrightBrowser) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	defer interruptOnCancel(ctx, p.closePage)()

	return p.page.Content()
}

func (p *playwrightBrowser) Snapshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer interruptOnCancel(ctx, p.closePage)()

	cdp, err := p.context.NewCDPSession(p.page)
	if err != nil {
		return nil, fmt.Errorf("create cdp session: %w", err)
	}
	defer cdp.Detach()

	result, err := cdp.Send("Page.captureSnapshot", map[string]interface{}{
		"format": "mhtml",
	})
	if err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}
	fields, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("capture snapshot: unexpected result %T", result)
	}
	data, ok := fields["data"].(string)
	if !ok {
		return nil, fmt.Errorf("capture snapshot: missing data")
	}
	return []byte(data), nil
}

func (p *playwrightBrowser) Close() error {
	var errs []error
	if p.page != nil {
		errs = append(errs, p.page.Close())
	}
	if p.context != nil {
		errs = append(errs, p.context.Close())
	}
	if p.browser != nil {
		errs = append(errs, p.browser.Close())
	}
	if p.pw != nil {
		errs = append(errs, p.pw.Stop())
	}
	return errors.Join(errs...)
}

type OpenOptions struct {
	Session    SessionOptions
	Playwright PlaywrightOptions
}

// Open launches chromium through playwright and wraps it in a Session, the
// caller owns the session and must Close it.
func Open(ctx context.Context, opts OpenOptions) (*Session, error) {
	browser, err := LaunchPlaywright(opts.Playwright)
	if err != nil {
		return nil, err
	}
	return NewSession(ctx, browser, opts.Session)
}

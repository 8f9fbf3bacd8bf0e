package pipeline

import (
	"context"
	"fmt"
	"time"

	"kittexport/internal/components/assert"
	"kittexport/internal/components/chrono"
	"kittexport/internal/components/telemetry"
	"kittexport/internal/render"
	"kittexport/internal/scrapers/kitt"
)

// Config is everything a full export needs, it is what the cli fills in.
type Config struct {
	BaseUrl        string
	CampId         string
	CookieName     string
	CookieValue    string
	DestinationDir string
	Format         render.Format

	ReadySelector    string
	RenderTimeout    time.Duration
	RequestTimeout   time.Duration
	Headless         bool
	InstallBrowser   bool
	CloudflareBypass bool
	ContinueOnError  bool

	Telemetry telemetry.API
}

// Run exports every lecture of a camp with a real http client and a
// playwright browser. The browser is released on every return path.
func Run(ctx context.Context, cfg Config) (Report, error) {
	assert.NotNil(cfg.Telemetry)
	assert.NotEmptyStr(cfg.CampId)

	if cfg.BaseUrl == "" {
		cfg.BaseUrl = kitt.DefaultBaseUrl
	}
	if !cfg.Format.Valid() {
		return Report{}, &render.UnsupportedFormatError{Format: string(cfg.Format)}
	}

	credential, err := kitt.NewCredential(cfg.CookieName, cfg.CookieValue, cfg.BaseUrl)
	if err != nil {
		return Report{}, err
	}

	client, err := kitt.NewClient(kitt.ClientOptions{
		BaseUrl:          cfg.BaseUrl,
		Credential:       credential,
		Timeout:          cfg.RequestTimeout,
		CloudflareBypass: cfg.CloudflareBypass,
		Telemetry:        cfg.Telemetry,
	})
	if err != nil {
		return Report{}, err
	}
	catalog := kitt.NewCatalog(client, cfg.Telemetry)

	session, err := render.Open(ctx, render.OpenOptions{
		Session: render.SessionOptions{
			RootUrl:       cfg.BaseUrl,
			ReadySelector: cfg.ReadySelector,
			RenderTimeout: cfg.RenderTimeout,
			Telemetry:     cfg.Telemetry,
		},
		Playwright: render.PlaywrightOptions{
			Headless: cfg.Headless,
			Install:  cfg.InstallBrowser,
		},
	})
	if err != nil {
		return Report{}, fmt.Errorf("open browser session: %w", err)
	}
	defer session.Close()

	if err := session.Login(ctx, credential); err != nil {
		return Report{}, err
	}

	p := New(catalog, session, chrono.StandardImpl{}, cfg.Telemetry)
	return p.ExportAll(ctx, Options{
		CampId:          cfg.CampId,
		DestinationDir:  cfg.DestinationDir,
		Format:          cfg.Format,
		ContinueOnError: cfg.ContinueOnError,
	})
}

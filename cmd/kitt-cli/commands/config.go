package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"kittexport/internal/components/telemetry"
	"kittexport/internal/pipeline"
	"kittexport/internal/render"
	"kittexport/internal/scrapers/kitt"
	"kittexport/lib/configutil"

	"github.com/spf13/cobra"
)

const cookieEnv = "KITT_COOKIE_VALUE"

// Config is the content of kitt.json5.
type Config struct {
	Camp                 string `json:"camp"`
	CookieName           string `json:"cookie_name"`
	CookieValue          string `json:"cookie_value"`
	BaseUrl              string `json:"base_url"`
	Format               string `json:"format"`
	OutputDir            string `json:"output_dir"`
	RenderTimeoutSeconds int    `json:"render_timeout_seconds"`
	ReadySelector        string `json:"ready_selector"`
	Headless             *bool  `json:"headless"`
	ContinueOnError      bool   `json:"continue_on_error"`

	// RenderTimeout comes from --render-timeout and wins over
	// RenderTimeoutSeconds when set.
	RenderTimeout time.Duration `json:"-"`
}

// connection flags shared by every command that talks to the portal
type portalFlags struct {
	camp       string
	cookieName string
	baseUrl    string
	cloudflare bool
}

func (f *portalFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.camp, "camp", "", "The camp id, as in /camps/<id>/lectures.")
	cmd.Flags().StringVar(&f.cookieName, "cookie-name", "", "The name of the session cookie.")
	cmd.Flags().StringVar(&f.baseUrl, "base-url", kitt.DefaultBaseUrl, "The root of the portal.")
	cmd.Flags().BoolVar(&f.cloudflare, "cloudflare", false, "Send requests with browser-like tls and headers.")
}

// loadConfig reads the config file (if any) and lets flags that were set on
// the command line win over it.
func loadConfig(cmd *cobra.Command, flags portalFlags) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](configPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file, using flags only", "path", configPath)
		err = nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
	}

	if cmd.Flags().Changed("camp") || cfg.Camp == "" {
		cfg.Camp = flags.camp
	}
	if cmd.Flags().Changed("cookie-name") || cfg.CookieName == "" {
		cfg.CookieName = flags.cookieName
	}
	if cmd.Flags().Changed("base-url") || cfg.BaseUrl == "" {
		cfg.BaseUrl = flags.baseUrl
	}
	if value, ok := os.LookupEnv(cookieEnv); ok {
		cfg.CookieValue = value
	}

	if cfg.Camp == "" {
		return Config{}, fmt.Errorf("no camp given, set --camp or \"camp\" in %s", configPath)
	}
	if cfg.CookieName == "" || cfg.CookieValue == "" {
		return Config{}, fmt.Errorf(
			"no session cookie given, set \"cookie_name\" and \"cookie_value\" in %s or %s in the environment",
			configPath, cookieEnv,
		)
	}
	return cfg, nil
}

func (c Config) pipelineConfig(cloudflare bool) (pipeline.Config, error) {
	format := render.FormatPDF
	if c.Format != "" {
		parsed, err := render.ParseFormat(c.Format)
		if err != nil {
			return pipeline.Config{}, err
		}
		format = parsed
	}
	headless := true
	if c.Headless != nil {
		headless = *c.Headless
	}
	renderTimeout := c.RenderTimeout
	if renderTimeout <= 0 {
		renderTimeout = time.Duration(c.RenderTimeoutSeconds) * time.Second
	}
	outputDir := c.OutputDir
	if outputDir == "" {
		outputDir = "lectures"
	}

	return pipeline.Config{
		BaseUrl:          c.BaseUrl,
		CampId:           c.Camp,
		CookieName:       c.CookieName,
		CookieValue:      c.CookieValue,
		DestinationDir:   outputDir,
		Format:           format,
		ReadySelector:    c.ReadySelector,
		RenderTimeout:    renderTimeout,
		Headless:         headless,
		CloudflareBypass: cloudflare,
		ContinueOnError:  c.ContinueOnError,
		Telemetry:        telemetry.SlogAPI{},
	}, nil
}

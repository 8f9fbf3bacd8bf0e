// client.go contains the authenticated http side of the kitt scraper, every
// page the catalog reads goes through Client.Fetch.

package kitt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kittexport/internal/components/assert"
	"kittexport/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("kittexport/scrapers/kitt")

const (
	report_client_fetch = "client.fetch"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type ClientOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl    string
	Credential Credential
	// Timeout of a single request, defaults to 30 seconds.
	Timeout time.Duration
	// RateLimit defaults to 2 requests per second, use rate.Inf to disable.
	RateLimit rate.Limit
	// CloudflareBypass wraps the transport with browser-like tls and headers.
	CloudflareBypass bool
	Telemetry        telemetry.API
}

// Client issues authenticated GET requests against the portal.
type Client struct {
	BaseUrl    *url.URL
	Http       *resty.Client
	Credential Credential

	tel telemetry.API
}

func NewClient(opts ClientOptions) (*Client, error) {
	assert.NotNil(opts.Telemetry)
	tel := telemetry.NewScopedAPI("kitt_client", opts.Telemetry)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 2
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("kitt: parse base url: %w", err)
	}
	if !baseUrl.IsAbs() {
		return nil, fmt.Errorf("kitt: base url %q is not absolute", opts.BaseUrl)
	}
	if !strings.HasSuffix(baseUrl.Path, "/") {
		baseUrl.Path += "/"
	}
	if !opts.Credential.ScopedTo(baseUrl) {
		return nil, fmt.Errorf(
			"kitt: credential is scoped to %q but the portal is %q",
			opts.Credential.Domain, baseUrl.Hostname(),
		)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetCookie(&http.Cookie{
		Name:   opts.Credential.Name,
		Value:  opts.Credential.Value,
		Domain: opts.Credential.Domain,
		Path:   "/",
	})

	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(opts.RateLimit, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		BaseUrl:    baseUrl,
		Http:       httpClient,
		Credential: opts.Credential,
		tel:        tel,
	}, nil
}

// Resolve turns a reference found in a page (absolute, root-relative or
// relative) into an absolute url against the portal base.
func (c *Client) Resolve(ref string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("kitt: resolve %q: %w", ref, err)
	}
	return c.BaseUrl.ResolveReference(parsed), nil
}

// Fetch GETs an absolute url and returns the body. A 4xx/5xx status is
// returned as *TransportError, nothing is retried. Urls on any host other
// than the credential's fail with ErrForeignHost before a request is made.
func (c *Client) Fetch(ctx context.Context, target string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", target))

	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("kitt: GET %s: %w", target, err)
	}
	if parsed.IsAbs() && !c.Credential.ScopedTo(parsed) {
		err := fmt.Errorf("%w: %s is not on %s", ErrForeignHost, target, c.Credential.Domain)
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportWarning(report_client_fetch, err)
		return "", err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		c.tel.ReportBroken(report_client_fetch, fmt.Errorf("fetch: %w", err), target)
		return "", fmt.Errorf("kitt: GET %s: %w", target, err)
	}

	span.SetAttributes(attribute.Int("status", res.StatusCode()))
	if res.IsError() {
		err := &TransportError{Url: target, StatusCode: res.StatusCode()}
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportBroken(report_client_fetch, err)
		return "", err
	}

	return res.String(), nil
}

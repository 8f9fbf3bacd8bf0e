package kitt

import (
	"fmt"
	"net/url"
)

// DefaultBaseUrl is the root of the Le Wagon course portal.
const DefaultBaseUrl = "https://kitt.lewagon.com"

// Lecture is one lecture card of a camp's lecture listing.
type Lecture struct {
	Week        string
	Name        string
	HomePageUrl *url.URL
	// ContentUrl is nil when the lecture home page has no content frame,
	// meaning the lecture has no online material.
	ContentUrl *url.URL
}

func (l Lecture) HasContent() bool {
	return l.ContentUrl != nil
}

func (l Lecture) String() string {
	content := "<none>"
	if l.ContentUrl != nil {
		content = l.ContentUrl.String()
	}
	return fmt.Sprintf("%s / %s (%s -> %s)", l.Week, l.Name, l.HomePageUrl, content)
}

// Credential is a pre-obtained session cookie and the domain it is scoped to.
// The http client and the browser session both present it, so both must agree
// on the domain.
type Credential struct {
	Name   string
	Value  string
	Domain string
}

// NewCredential scopes a cookie to the host of baseUrl.
func NewCredential(name, value, baseUrl string) (Credential, error) {
	if name == "" {
		return Credential{}, fmt.Errorf("credential: cookie name is empty")
	}
	if value == "" {
		return Credential{}, fmt.Errorf("credential: cookie value is empty")
	}
	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: parse base url: %w", err)
	}
	if parsed.Hostname() == "" {
		return Credential{}, fmt.Errorf("credential: base url %q has no host", baseUrl)
	}
	return Credential{Name: name, Value: value, Domain: parsed.Hostname()}, nil
}

// ScopedTo reports whether the credential is valid for the host of u.
func (c Credential) ScopedTo(u *url.URL) bool {
	return u != nil && c.Domain == u.Hostname()
}

package kitt

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"kittexport/internal/components/telemetry"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	testCookieName  = "_kitt2017_"
	testCookieValue = "s3cr3t"
)

// fakePortal serves fixed pages and rejects requests without the session cookie.
type fakePortal struct {
	server *httptest.Server
	pages  map[string]string

	lock     sync.Mutex
	requests []string
}

func newFakePortal(t testing.TB, pages map[string]string) *fakePortal {
	p := &fakePortal{pages: pages}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.lock.Lock()
		p.requests = append(p.requests, r.URL.Path)
		p.lock.Unlock()

		cookie, err := r.Cookie(testCookieName)
		if err != nil || cookie.Value != testCookieValue {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page, ok := p.pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	}))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) requested() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string(nil), p.requests...)
}

func (p *fakePortal) client(t testing.TB, cookieValue string) *Client {
	cred, err := NewCredential(testCookieName, cookieValue, p.server.URL)
	require.NoError(t, err)
	client, err := NewClient(ClientOptions{
		BaseUrl:    p.server.URL,
		Credential: cred,
		RateLimit:  rate.Inf,
		Telemetry:  &telemetry.Recorder{},
	})
	require.NoError(t, err)
	return client
}

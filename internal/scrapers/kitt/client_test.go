package kitt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kittexport/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestFetchSendsCredential(t *testing.T) {
	portal := newFakePortal(t, map[string]string{
		"/hello": "<p>hi</p>",
	})
	client := portal.client(t, testCookieValue)

	body, err := client.Fetch(context.Background(), portal.server.URL+"/hello")
	require.NoError(t, err)
	require.Equal(t, "<p>hi</p>", body)
}

func TestFetchRefusesForeignHost(t *testing.T) {
	portal := newFakePortal(t, map[string]string{})
	client := portal.client(t, testCookieValue)

	var seenCookies []string
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCookies = append(seenCookies, r.Header.Get("cookie"))
		w.Write([]byte("<p>elsewhere</p>"))
	}))
	defer foreign.Close()

	// same server, but a host the credential is not scoped to
	target := strings.Replace(foreign.URL, "127.0.0.1", "localhost", 1) + "/x"

	_, err := client.Fetch(context.Background(), target)
	require.ErrorIs(t, err, ErrForeignHost)
	require.Empty(t, seenCookies)
}

func TestFetchTransportError(t *testing.T) {
	portal := newFakePortal(t, map[string]string{})

	cases := []struct {
		name   string
		cookie string
		path   string
		status int
	}{
		{name: "unauthenticated", cookie: "wrong", path: "/hello", status: http.StatusUnauthorized},
		{name: "missing page", cookie: testCookieValue, path: "/nope", status: http.StatusNotFound},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			client := portal.client(t, test.cookie)
			target := portal.server.URL + test.path

			_, err := client.Fetch(context.Background(), target)
			var transportErr *TransportError
			require.True(t, errors.As(err, &transportErr), "got %v", err)
			require.Equal(t, test.status, transportErr.StatusCode)
			require.Equal(t, target, transportErr.Url)
		})
	}
}

func TestNewClientRejectsForeignCredential(t *testing.T) {
	cred, err := NewCredential(testCookieName, testCookieValue, "https://elsewhere.example")
	require.NoError(t, err)

	_, err = NewClient(ClientOptions{
		BaseUrl:    "https://kitt.lewagon.com",
		Credential: cred,
		Telemetry:  &telemetry.Recorder{},
	})
	require.Error(t, err)
}

func TestNewCredential(t *testing.T) {
	cred, err := NewCredential("a", "b", "https://kitt.lewagon.com/")
	require.NoError(t, err)
	require.Equal(t, Credential{Name: "a", Value: "b", Domain: "kitt.lewagon.com"}, cred)

	_, err = NewCredential("", "b", "https://kitt.lewagon.com")
	require.Error(t, err)
	_, err = NewCredential("a", "", "https://kitt.lewagon.com")
	require.Error(t, err)
	_, err = NewCredential("a", "b", "not a url")
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	cred, err := NewCredential("a", "b", "https://portal.example")
	require.NoError(t, err)
	client, err := NewClient(ClientOptions{
		BaseUrl:    "https://portal.example",
		Credential: cred,
		Telemetry:  &telemetry.Recorder{},
	})
	require.NoError(t, err)

	cases := []struct {
		ref      string
		expected string
	}{
		{ref: "/camps/1133/lectures/1", expected: "https://portal.example/camps/1133/lectures/1"},
		{ref: "camps/1133/lectures", expected: "https://portal.example/camps/1133/lectures"},
		{ref: " /karr/content/intro.html ", expected: "https://portal.example/karr/content/intro.html"},
		{ref: "https://cdn.example/x.html", expected: "https://cdn.example/x.html"},
	}
	for _, test := range cases {
		resolved, err := client.Resolve(test.ref)
		require.NoError(t, err)
		require.Equal(t, test.expected, resolved.String())
	}
}

package solver

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient answers from a fixed path table and records every request.
// Methods it does not override panic through the nil embedded client.
type stubClient struct {
	tls_client.HttpClient
	jar      http.CookieJar
	pages    map[string]string
	requests []*http.Request
}

func (c *stubClient) GetCookieJar() http.CookieJar { return c.jar }
func (c *stubClient) SetCookieJar(jar http.CookieJar) { c.jar = jar }
func (c *stubClient) GetCookies(u *url.URL) []*http.Cookie { return c.jar.Cookies(u) }

func (c *stubClient) Do(req *http.Request) (*http.Response, error) {
	c.requests = append(c.requests, req)
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	body, ok := c.pages[req.URL.Path]
	if !ok {
		return &http.Response{StatusCode: 404, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestScriptPath(t *testing.T) {
	f, err := NewFetcherWithClient(nil, "https://example.com/", FetchOptions{})
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain", `<html><script type="text/javascript"  src="/assets/a1b2.js"></script>`, "/assets/a1b2.js"},
		{"nonce", `<script type="text/javascript" nonce="r4nd" src="/s/x.js"></script>`, "/s/x.js"},
		{"first wins", `<script type="text/javascript" src="/one.js"></script><script type="text/javascript" src="/two.js"></script>`, "/one.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ScriptPath(tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = f.ScriptPath(`<script src="/module.js" type="module"></script>`)
	assert.True(t, errors.Is(err, ErrNoScriptPath))
}

func TestResolve(t *testing.T) {
	f, err := NewFetcherWithClient(nil, "https://example.com/app/", FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/app/login", f.resolve(DefaultLoginPath))
	assert.Equal(t, "https://example.com/s/x.js", f.resolve("/s/x.js"))
	assert.Equal(t, "https://cdn.example.net/x.js", f.resolve("https://cdn.example.net/x.js"))
}

func TestNewFetcherRejectsBadPattern(t *testing.T) {
	_, err := NewFetcherWithClient(nil, "https://example.com/", FetchOptions{ScriptPattern: "("})
	assert.Error(t, err)
}

func newStubClient() *stubClient {
	return &stubClient{pages: map[string]string{
		"/login":       `<script type="text/javascript" src="/s/bundle.js"></script>`,
		"/s/bundle.js": "var a = 1;",
	}}
}

func TestFetchBundle(t *testing.T) {
	client := newStubClient()
	f, err := NewFetcherWithClient(client, "https://example.com/", FetchOptions{})
	require.NoError(t, err)
	require.NotNil(t, client.jar)

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "run")

	src, err := f.FetchBundle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "var a = 1;", src)

	require.Len(t, client.requests, 2)
	for _, req := range client.requests {
		assert.Equal(t, "run", req.Context().Value(key{}))
		// cookies come from the jar only
		assert.Empty(t, req.Header.Get("cookie"))
	}
	assert.Equal(t, "document", client.requests[0].Header.Get("sec-fetch-dest"))
	assert.Equal(t, "script", client.requests[1].Header.Get("sec-fetch-dest"))
}

func TestFetchBundleCancelled(t *testing.T) {
	client := newStubClient()
	f, err := NewFetcherWithClient(client, "https://example.com/", FetchOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.FetchBundle(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, client.requests, 1)
}

func TestFetchBundleMissingScript(t *testing.T) {
	client := newStubClient()
	delete(client.pages, "/s/bundle.js")
	f, err := NewFetcherWithClient(client, "https://example.com/", FetchOptions{})
	require.NoError(t, err)

	_, err = f.FetchBundle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

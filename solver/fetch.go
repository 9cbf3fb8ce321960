package solver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
	DefaultScriptPattern = `<script type="text/javascript"\s+(?:nonce="[^"]*"\s+)?src="([^"]+)"`
	DefaultLoginPath     = "login"

	maxBundleSize = 8 * 1024 * 1024
)

var ErrNoScriptPath = errors.New("no script path found")

type FetchOptions struct {
	LoginPath      string
	ScriptPattern  string
	UserAgent      string
	TimeoutSeconds int
	Logger         *log.Entry
}

// Fetcher downloads the bundle referenced by a host's login page. Cookies the
// page sets reach the script request through the client's cookie jar.
type Fetcher struct {
	client        tls_client.HttpClient
	hostURL       *url.URL
	loginPath     string
	scriptPattern *regexp.Regexp
	userAgent     string
	logger        *log.Entry
}

func NewFetcher(hostURL string, opts FetchOptions) (*Fetcher, error) {
	if opts.TimeoutSeconds <= 0 {
		opts.TimeoutSeconds = 30
	}

	jar := tls_client.NewCookieJar()

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(opts.TimeoutSeconds),
		tls_client.WithClientProfile(profiles.Chrome_133),
		tls_client.WithCookieJar(jar),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithDisableHttp3(),
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}

	return NewFetcherWithClient(client, hostURL, opts)
}

func NewFetcherWithClient(client tls_client.HttpClient, hostURL string, opts FetchOptions) (*Fetcher, error) {
	u, err := url.Parse(hostURL)
	if err != nil {
		return nil, fmt.Errorf("invalid host url: %w", err)
	}
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}
	if opts.ScriptPattern == "" {
		opts.ScriptPattern = DefaultScriptPattern
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = log.NewEntry(log.StandardLogger())
	}
	if client != nil && client.GetCookieJar() == nil {
		client.SetCookieJar(tls_client.NewCookieJar())
	}

	re, err := regexp.Compile(opts.ScriptPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid script pattern: %w", err)
	}

	return &Fetcher{
		client:        client,
		hostURL:       u,
		loginPath:     opts.LoginPath,
		scriptPattern: re,
		userAgent:     opts.UserAgent,
		logger:        opts.Logger.WithField("component", "fetcher"),
	}, nil
}

// FetchBundle loads the login page, follows its script tag and returns the
// bundle source. Cancelling ctx aborts the request in flight.
func (f *Fetcher) FetchBundle(ctx context.Context) (string, error) {
	pageURL := f.resolve(f.loginPath)
	page, err := f.get(ctx, pageURL, "document")
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}

	path, err := f.ScriptPath(page)
	if err != nil {
		return "", err
	}

	scriptURL := f.resolve(path)
	f.logger.WithFields(log.Fields{
		"page":    pageURL,
		"script":  scriptURL,
		"cookies": len(f.client.GetCookies(f.hostURL)),
	}).Debug("found bundle script")

	script, err := f.get(ctx, scriptURL, "script")
	if err != nil {
		return "", fmt.Errorf("failed to fetch script: %w", err)
	}
	return script, nil
}

// FetchHash downloads the bundle and computes its file hash.
func (f *Fetcher) FetchHash(ctx context.Context, opts ...Option) (float64, error) {
	src, err := f.FetchBundle(ctx)
	if err != nil {
		return 0, err
	}
	return FileHash(ctx, src, opts...)
}

// ScriptPath returns the src attribute of the first script tag matching the
// configured pattern.
func (f *Fetcher) ScriptPath(body string) (string, error) {
	m := f.scriptPattern.FindStringSubmatch(body)
	if len(m) < 2 || m[1] == "" {
		return "", ErrNoScriptPath
	}
	return m[1], nil
}

func (f *Fetcher) resolve(ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return f.hostURL.String() + ref
	}
	return f.hostURL.ResolveReference(r).String()
}

func (f *Fetcher) get(ctx context.Context, target string, dest string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	f.setHeaders(req, dest)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBundleSize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (f *Fetcher) setHeaders(req *http.Request, dest string) {
	accept := "*/*"
	mode := "no-cors"
	site := "same-origin"
	if dest == "document" {
		accept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
		mode = "navigate"
		site = "none"
	}

	req.Header = http.Header{
		"sec-ch-ua":          {`"Google Chrome";v="143", "Chromium";v="143", "Not A(Brand";v="24"`},
		"sec-ch-ua-mobile":   {"?0"},
		"sec-ch-ua-platform": {`"Windows"`},
		"user-agent":         {f.userAgent},
		"accept":             {accept},
		"sec-fetch-site":     {site},
		"sec-fetch-mode":     {mode},
		"sec-fetch-dest":     {dest},
		"accept-encoding":    {"gzip, deflate, br, zstd"},
		"accept-language":    {"en-US,en;q=0.9"},
		http.HeaderOrderKey: {
			"sec-ch-ua",
			"sec-ch-ua-mobile",
			"sec-ch-ua-platform",
			"user-agent",
			"accept",
			"sec-fetch-site",
			"sec-fetch-mode",
			"sec-fetch-dest",
			"accept-encoding",
			"accept-language",
			"cookie",
		},
	}
}

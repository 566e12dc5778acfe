package scm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"scmcicd/internal/config"
	"scmcicd/pkg/logging"
)

const (
	// pageSize is the number of objects requested per list call.
	pageSize = 200

	defaultPollInterval = 2 * time.Second
)

// Client talks to the remote policy store. It is not safe for concurrent use;
// scm-cicd issues one call at a time.
type Client struct {
	baseURL     *url.URL
	tokenURL    string
	tokenSource oauth2.TokenSource
	http        *retryablehttp.Client

	commitTimeout time.Duration
	pollInterval  time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithRetryWait sets the bounds of the wait between retried requests.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// WithPollInterval sets the initial interval between commit job polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// NewClient builds a client from settings. No request is made until Connect
// or the first API call.
func NewClient(settings config.Settings, opts ...Option) (*Client, error) {
	if err := settings.ValidateCredentials(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(settings.APIBaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api_base_url %q: %w", settings.APIBaseURL, err)
	}

	var transport http.RoundTripper = http.DefaultTransport.(*http.Transport).Clone()
	if settings.RequestsPerSecond > 0 {
		burst := int(settings.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		transport = &rateLimitedTransport{
			base:    transport,
			limiter: rate.NewLimiter(rate.Limit(settings.RequestsPerSecond), burst),
		}
	}

	// The token endpoint gets its own client so token requests are neither
	// authenticated nor retried.
	tokenHTTP := &http.Client{Transport: transport, Timeout: settings.RequestTimeout()}
	ccConfig := &clientcredentials.Config{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		TokenURL:     settings.TokenURL,
		Scopes:       []string{"tsg_id:" + settings.TSGID},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenHTTP)
	tokenSource := ccConfig.TokenSource(tokenCtx)

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{
		Transport: &oauth2.Transport{Source: tokenSource, Base: transport},
		Timeout:   settings.RequestTimeout(),
	}
	rc.RetryMax = settings.MaxRetries
	rc.Logger = leveledLogger{}
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL:       base,
		tokenURL:      settings.TokenURL,
		tokenSource:   tokenSource,
		http:          rc,
		commitTimeout: settings.CommitPollTimeout(),
		pollInterval:  defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect acquires an access token, so bad credentials or an unreachable
// token endpoint are reported before any work starts.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &ConnectionError{Endpoint: c.tokenURL, Type: ConnectionErrorTimeout, Reason: err}
	}
	if _, err := c.tokenSource.Token(); err != nil {
		return c.classify(err, c.tokenURL)
	}
	logging.Debug(subsystem, "Acquired access token from %s", c.tokenURL)
	return nil
}

// checkRetry retries like the default policy but never retries a rejected
// token request.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return false, err
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func (c *Client) classify(err error, endpoint string) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &AuthError{Endpoint: c.tokenURL, Reason: err}
	}
	return ClassifyConnectionError(err, endpoint)
}

// do sends one request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := *c.baseURL
	u.Path = u.Path + path
	u.RawQuery = query.Encode()
	endpoint := u.String()

	var payload interface{}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.Debug(subsystem, "%s %s", method, endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return c.classify(err, endpoint)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ClassifyConnectionError(err, endpoint)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthError{Endpoint: endpoint, Reason: newAPIError(method, path, resp.StatusCode, data)}
	}
	if resp.StatusCode >= 400 {
		return newAPIError(method, path, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
	}
	return nil
}

// listPage is the envelope of every list response.
type listPage[T any] struct {
	Data   []T `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// listAll follows offset pagination until every object has been read.
func listAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var all []T
	offset := 0
	for {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("limit", fmt.Sprint(pageSize))
		q.Set("offset", fmt.Sprint(offset))

		var page listPage[T]
		if err := c.do(ctx, http.MethodGet, path, q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Data...)
		offset += len(page.Data)
		switch {
		case len(page.Data) == 0:
			return all, nil
		case page.Total > 0 && offset >= page.Total:
			return all, nil
		case page.Total == 0 && len(page.Data) < pageSize:
			return all, nil
		}
	}
}

// rateLimitedTransport waits on a token bucket before every request,
// retries included.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

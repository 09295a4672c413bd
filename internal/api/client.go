package api

import (
	"log/slog"
	"net/http"
	"time"
)

// Upstream hosts, selected by the capture URL's game_biz.
const (
	CNBaseURL     = "https://public-operation-hkrpg.mihoyo.com"
	GlobalBaseURL = "https://public-operation-hkrpg-sg.hoyoverse.com"
)

// Client provides access to the gacha record REST API.
type Client struct {
	baseURLs   map[string]string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. Retries are disabled unless
// WithRetries is given.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURLs: map[string]string{
			GameBizCN:     CNBaseURL,
			GameBizGlobal: GlobalBaseURL,
		},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   0,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the host used for one game_biz.
func WithBaseURL(gameBiz, baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURLs[gameBiz] = baseURL
	}
}

// baseURL returns the host for gameBiz.
func (c *Client) baseURL(gameBiz string) (string, error) {
	base, ok := c.baseURLs[gameBiz]
	if !ok {
		return "", &URLError{Reason: "unsupported game_biz " + gameBiz}
	}
	return base, nil
}

package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

var (
	// errTokenRequired is returned when the client has no bot token.
	errTokenRequired = errors.New("telegram token is required")
	// ErrAPI is wrapped around every unsuccessful Bot API reply.
	ErrAPI = errors.New("telegram API error")
)

// Client wraps the Bot API library with context-aware calls.
type Client struct {
	// api holds the token and endpoint; calls run on copies bound to a context.
	api *tgbotapi.BotAPI
	// http performs the requests.
	http *http.Client
	// baseURL is the API root without trailing slash.
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient returns a client for token. No request is made: the bot identity
// is not needed to post or to poll.
func NewClient(token string, timeout time.Duration, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errTokenRequired
	}

	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: DefaultAPIURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.api = &tgbotapi.BotAPI{
		Token:  token,
		Client: c.http,
		Buffer: 100,
	}
	c.api.SetAPIEndpoint(c.baseURL + "/bot%s/%s")

	return c, nil
}

// contextClient binds every request of one call to ctx.
type contextClient struct {
	ctx    context.Context //nolint:containedctx // Lives for a single library call.
	client *http.Client
}

// Do implements tgbotapi.HTTPClient.
func (c contextClient) Do(request *http.Request) (*http.Response, error) {
	return c.client.Do(request.WithContext(c.ctx))
}

// bind returns a copy of the library client whose requests honour ctx.
func (c *Client) bind(ctx context.Context) *tgbotapi.BotAPI {
	api := *c.api
	api.Client = contextClient{ctx: ctx, client: c.http}

	return &api
}

// request performs one Bot API call.
func (c *Client) request(ctx context.Context, method string, chattable tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	response, err := c.bind(ctx).Request(chattable)
	if err != nil {
		return nil, wrapError(method, err)
	}

	return response, nil
}

// wrapError maps library errors to ErrAPI and strips the request URL, which
// carries the token.
func wrapError(method string, err error) error {
	var (
		apiErr      *tgbotapi.Error
		apiErrValue tgbotapi.Error
		urlErr      *url.Error
	)

	switch {
	case errors.As(err, &apiErr):
		return fmt.Errorf("%w: %s: %d %s", ErrAPI, method, apiErr.Code, apiErr.Message)
	case errors.As(err, &apiErrValue):
		return fmt.Errorf("%w: %s: %d %s", ErrAPI, method, apiErrValue.Code, apiErrValue.Message)
	case errors.As(err, &urlErr):
		return fmt.Errorf("%s: %w", method, urlErr.Err)
	default:
		return fmt.Errorf("%s: %w", method, err)
	}
}

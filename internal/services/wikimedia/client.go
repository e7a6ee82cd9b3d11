package wikimedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"plantscope/internal/config"
	"plantscope/internal/language"
	"plantscope/internal/logging"
	"plantscope/internal/services"
)

const (
	component    = "wikimedia"
	maxBodyBytes = 8 << 20
	userAgent    = "plantscope/1.0"
)

// Lookuper resolves candidate names to articles.
type Lookuper interface {
	LookupArticles(ctx context.Context, names []string, lang string) ([][]Article, error)
}

// Client looks up articles in the On-Demand API.
type Client struct {
	tokens     *TokenManager
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Lookuper = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for per-item warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, component)
	}
}

// New creates a lookup client that authenticates through tokens.
func New(tokens *TokenManager, baseURL string, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("wikimedia token manager required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = config.DefaultWikimediaAPIURL
	}
	client := &Client{
		tokens:     tokens,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.NewComponentLogger(nil, component),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig wires a Client and its TokenManager from configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	tokens := NewTokenManagerFromConfig(cfg, logger)
	return New(tokens, cfg.Wikimedia.APIBaseURL,
		WithHTTPClient(&http.Client{Timeout: cfg.WikimediaTimeout()}),
		WithLogger(logger),
	)
}

// Tokens exposes the client's token manager.
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// LookupArticles fetches articles for each name in order. The result has one
// entry per name; a name whose lookup fails gets an empty list. Failures that
// affect every name (credentials, token refresh, cancellation) abort the whole
// call with an error marked services.ErrLookup and no results.
func (c *Client) LookupArticles(ctx context.Context, names []string, lang string) ([][]Article, error) {
	lang = language.Detect(lang)
	logger := logging.WithContext(ctx, c.logger)

	token, err := c.tokens.Ensure(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrLookup, component, "lookup", "obtain access token", err)
	}

	results := make([][]Article, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrLookup, component, "lookup", "cancelled", err)
		}
		articles, current, err := c.lookupOne(ctx, logger, name, lang, token)
		if err != nil {
			return nil, err
		}
		token = current
		results = append(results, articles)
	}
	return results, nil
}

// lookupOne returns the articles for one name along with the token in use
// afterwards. Only systemic failures are returned as errors.
func (c *Client) lookupOne(ctx context.Context, logger *slog.Logger, name, lang string, token *oauth2.Token) ([]Article, *oauth2.Token, error) {
	status, body, err := c.fetch(ctx, name, lang, token)
	if err == nil && status == http.StatusUnauthorized {
		refreshed, refreshErr := c.tokens.refreshAfterReject(ctx, token.AccessToken)
		if refreshErr != nil {
			return nil, token, services.Wrap(services.ErrLookup, component, "lookup", "refresh rejected token", refreshErr)
		}
		token = refreshed
		status, body, err = c.fetch(ctx, name, lang, token)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, token, services.Wrap(services.ErrLookup, component, "lookup", "cancelled", ctxErr)
		}
		c.warnItem(logger, name, "request failed", err)
		return []Article{}, token, nil
	}
	if status < 200 || status >= 300 {
		c.warnItem(logger, name, fmt.Sprintf("status %d", status), nil)
		return []Article{}, token, nil
	}
	articles, err := decodeArticles(body)
	if err != nil {
		c.warnItem(logger, name, "undecodable body", err)
		return []Article{}, token, nil
	}
	logger.Debug("wikimedia articles fetched",
		logging.String("name", name),
		logging.Int("articles", len(articles)),
	)
	return articles, token, nil
}

func (c *Client) fetch(ctx context.Context, name, lang string, token *oauth2.Token) (int, []byte, error) {
	endpoint := c.articleURL(name, lang)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response (latency=%v): %w", latency, err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) articleURL(name, lang string) string {
	return c.baseURL + "/articles/" + url.PathEscape(name) + "?filters[language]=" + url.QueryEscape(lang)
}

func (c *Client) warnItem(logger *slog.Logger, name, reason string, err error) {
	attrs := []logging.Attr{
		logging.String("name", name),
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "check the article title and Wikimedia credentials"),
		logging.String(logging.FieldImpact, "candidate shown without articles"),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	logging.WarnWithContext(logger, "wikimedia article lookup failed", "wikimedia_lookup_item_failed", attrs...)
}

package plantid

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"plantscope/internal/config"
	"plantscope/internal/imagefile"
	"plantscope/internal/logging"
	"plantscope/internal/services"
)

//go:embed sample_response.json
var sampleResponse []byte

const (
	component      = "plantid"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 16 << 20
	userAgent      = "plantscope/1.0"
)

// Identifier identifies plants in images.
type Identifier interface {
	Identify(ctx context.Context, img *imagefile.Image, debug bool) (*Response, error)
}

// Client calls the Plant.id v2 identify endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	samplePath string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Identifier = (*Client)(nil)

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

// WithSamplePath answers debug requests from a file instead of the bundled sample.
func WithSamplePath(path string) Option {
	return func(c *Client) {
		c.samplePath = strings.TrimSpace(path)
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, component)
	}
}

// New creates a Plant.id client. A blank API key is allowed; only
// non-debug identification requires it.
func New(apiKey, baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = config.DefaultPlantIDBaseURL
	}
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.NewComponentLogger(nil, component),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NewFromConfig builds a client from the [plantid] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	return New(cfg.PlantID.APIKey, cfg.PlantID.BaseURL,
		WithHTTPClient(&http.Client{Timeout: cfg.PlantIDTimeout()}),
		WithSamplePath(cfg.PlantID.SamplePath),
		WithLogger(logger),
	)
}

// Identify submits img for identification, or returns the sample response
// when debug is set.
func (c *Client) Identify(ctx context.Context, img *imagefile.Image, debug bool) (*Response, error) {
	logger := logging.WithContext(ctx, c.logger)
	if debug {
		resp, err := c.loadSample()
		if err != nil {
			return nil, err
		}
		logger.Info("plant.id sample response loaded",
			logging.String(logging.FieldEventType, "plantid_sample_loaded"),
			logging.Int("suggestions", len(resp.Suggestions)),
		)
		return resp, nil
	}

	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "identify", "API key is not configured", nil)
	}
	if img == nil {
		return nil, services.Wrap(services.ErrValidation, component, "identify", "no image selected", nil)
	}
	encoded, err := img.Base64()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(struct {
		Images []string `json:"images"`
	}{Images: []string{encoded}})
	if err != nil {
		return nil, services.Wrap(services.ErrEncoding, component, "identify", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/identify", bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrRequest, component, "identify", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, services.Wrap(services.ErrRequest, component, "identify", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrRequest, component, "identify", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
		return nil, services.Wrap(services.ErrRequest, component, "identify", "API request failed", statusErr)
	}

	decoded, err := decodeResponse(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrRequest, component, "identify", "decode response", err)
	}
	logger.Info("plant.id identification complete",
		logging.String(logging.FieldEventType, "plantid_identified"),
		logging.Int("suggestions", len(decoded.Suggestions)),
		logging.Int("image_bytes", len(img.Data)),
		logging.Duration("latency", latency),
	)
	return decoded, nil
}

func (c *Client) loadSample() (*Response, error) {
	data := sampleResponse
	source := "bundled sample"
	if c.samplePath != "" {
		fileData, err := os.ReadFile(c.samplePath)
		if err != nil {
			return nil, services.Wrap(services.ErrLoad, component, "load sample", "failed to load mock data", err)
		}
		data = fileData
		source = c.samplePath
	}
	resp, err := decodeResponse(data)
	if err != nil {
		return nil, services.Wrap(services.ErrLoad, component, "load sample", fmt.Sprintf("decode %s", source), err)
	}
	return resp, nil
}

// IsStatus reports whether err carries a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

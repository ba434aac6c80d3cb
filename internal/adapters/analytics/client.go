// Package analytics delivers recommendation click-through events to an
// external analytics collector over HTTP.
package analytics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ewilliams-labs/nextsong/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// Config holds collector connection settings. TokenURL, ClientID and
// ClientSecret are optional; when set, requests authenticate with OAuth2
// client credentials.
type Config struct {
	Endpoint     string
	TokenURL     string
	ClientID     string
	ClientSecret string
	MaxRetries   int
	BaseBackoff  time.Duration
}

// Client is an HTTP client for the analytics collector.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	maxRetries  int
	baseBackoff time.Duration
	logger      zerolog.Logger
}

// compile-time interface assertion
var _ ports.AnalyticsSink = (*Client)(nil)

// NewClient constructs a collector client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	httpClient := &http.Client{Timeout: defaultTimeout}
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = defaultTimeout
	}

	return &Client{
		httpClient:  httpClient,
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.BaseBackoff,
		logger:      logger.With().Str("component", "analytics").Logger(),
	}
}

// Publish posts a click event to the collector.
func (c *Client) Publish(ctx context.Context, ev ports.ClickEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("analytics adapter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/events", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("analytics adapter: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("analytics adapter: status %d", resp.StatusCode)
	}
}

package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/avacare/server/domain/repositories"
)

const (
	defaultAPIBaseURL     = "http://localhost:8765"
	defaultTimeoutSeconds = 10
)

// Config holds configuration for the vector memory service client
// Required fields: none (defaults target a local service)
// Optional fields with defaults:
// - APIBaseURL: base URL of the memory service (default: "http://localhost:8765")
// - APIKey: bearer token, sent only when set
// - TimeoutSeconds: request timeout (default: 10)
type Config struct {
	APIBaseURL     string
	APIKey         string
	TimeoutSeconds int
}

// NewConfigFromEnv creates a Config from environment variables
func NewConfigFromEnv() Config {
	config := Config{
		APIBaseURL: os.Getenv("MEMORY_SERVICE_URL"),
		APIKey:     os.Getenv("MEMORY_SERVICE_API_KEY"),
	}
	if timeoutStr := os.Getenv("MEMORY_SERVICE_TIMEOUT_SECONDS"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil && timeout > 0 {
			config.TimeoutSeconds = timeout
		}
	}
	return config
}

// ValidateConfig validates the memory service configuration
func ValidateConfig(config Config) error {
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	if config.APIBaseURL != "" {
		if _, err := url.Parse(config.APIBaseURL); err != nil {
			return fmt.Errorf("invalid memory service URL: %w", err)
		}
	}
	return nil
}

// Client talks to the external vector memory service. Memory is an
// enhancement: callers treat every failure as "no memory available".
type Client struct {
	apiBaseURL string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.MemoryStore = (*Client)(nil)

// NewClient creates a new memory service client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default memory service URL", zap.String("apiBaseURL", apiBaseURL))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return &Client{
		apiBaseURL: apiBaseURL,
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		logger:     logger,
	}, nil
}

var (
	sharedOnce   sync.Once
	sharedClient *Client
	sharedErr    error
)

// Shared returns the module-wide client handle, created once from the
// environment on first use and reused across requests for the lifetime of the
// process.
func Shared(logger *zap.Logger) (*Client, error) {
	sharedOnce.Do(func() {
		sharedClient, sharedErr = NewClient(NewConfigFromEnv(), logger)
	})
	return sharedClient, sharedErr
}

// Search returns text fragments relevant to the query, in service order
func (c *Client) Search(ctx context.Context, query string, userID string) ([]string, error) {
	body, err := json.Marshal(map[string]string{
		"query":   query,
		"user_id": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, "/v1/memories/search", body)
	if err != nil {
		return nil, err
	}

	fragments := NormalizeFragments(raw)
	c.logger.Info("Memory search completed",
		zap.String("userID", userID),
		zap.Int("fragments", len(fragments)))
	return fragments, nil
}

// Add appends one conversation exchange to the user's memory
func (c *Client) Add(ctx context.Context, text string, userID string) error {
	body, err := json.Marshal(map[string]string{
		"text":    text,
		"user_id": userID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal add request: %w", err)
	}

	if _, err := c.do(ctx, http.MethodPost, "/v1/memories", body); err != nil {
		return err
	}
	c.logger.Info("Memory stored", zap.String("userID", userID), zap.Int("length", len(text)))
	return nil
}

// GetAll returns every stored fragment for one user
func (c *Client) GetAll(ctx context.Context, userID string) ([]string, error) {
	raw, err := c.do(ctx, http.MethodGet, "/v1/memories?user_id="+url.QueryEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	return NormalizeFragments(raw), nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory service request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("memory service request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory service response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("memory service returned %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

package timesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cointhing/cointhing/internal/logging"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	maxBodySize = 64 << 10
)

// Info is the result of a successful fetch.
type Info struct {
	UTC       time.Time     // current time as reported by the source
	Timezone  string        // IANA name, e.g. "Europe/Zurich"
	RawOffset time.Duration // standard offset from UTC
	DSTOffset time.Duration // additional daylight saving offset, 0 when inactive
}

// Offset returns the total offset from UTC.
func (i Info) Offset() time.Duration {
	return i.RawOffset + i.DSTOffset
}

// Location returns a fixed zone with the fetched name and offset.
func (i Info) Location() *time.Location {
	return time.FixedZone(i.Timezone, int(i.Offset()/time.Second))
}

// Source is anything that can report the current time and zone.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Info, error)
}

// Client is the HTTP plumbing shared by all sources.
type Client struct {
	// BaseURL is the API root, e.g. "https://worldtimeapi.org"
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles the delay after every failed attempt
	UseExponentialBackoff bool
}

func newClient(baseURL string) Client {
	return Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// getJSON fetches path and decodes the body into out, retrying transient
// failures. Waiting between attempts stops early when ctx is done.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return NewNetworkError("request cancelled", ctx.Err())
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := c.getJSONAttempt(ctx, path, out)
		if err == nil {
			return nil
		}

		lastErr = err
		logging.Debug("Time fetch attempt failed",
			zap.String("url", c.BaseURL+path),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

func (c *Client) getJSONAttempt(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return NewNetworkError("failed to create GET request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return NewNetworkError("GET request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return NewNetworkError("failed to read response body", err)
	}
	logging.LogPayload("Time API response", body)

	if err := json.Unmarshal(body, out); err != nil {
		return NewParseError("failed to parse JSON response", err)
	}
	return nil
}

// New returns the source registered under name. "none" and "" return a nil
// Source and no error. zone is used by TimeAPI only.
func New(name, zone string, timeout time.Duration) (Source, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return nil, nil
	case "worldtimeapi":
		src := NewWorldTimeAPI()
		if timeout > 0 {
			src.SetTimeout(timeout)
		}
		return src, nil
	case "timeapi":
		src := NewTimeAPI(zone)
		if timeout > 0 {
			src.SetTimeout(timeout)
		}
		return src, nil
	default:
		return nil, NewConfigError(fmt.Sprintf("unknown time source %q", name))
	}
}

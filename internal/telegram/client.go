package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// Retry and backoff constants.
const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	userAgent      = "drivebot-go/0.1"
)

// DefaultBaseURL is the production Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Client is an HTTP client for the Telegram Bot API. It handles request
// construction, retry with exponential backoff, rate-limit hints, and error
// classification. The bot token is part of the request path and is never
// logged.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	// downloadClient carries no overall timeout: file downloads stream
	// arbitrarily large bodies and are bounded by the request context
	// instead. It shares the API client's transport.
	downloadClient *http.Client

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Bot API client. baseURL is typically DefaultBaseURL;
// tests point it at an httptest server.
func NewClient(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:        baseURL,
		token:          token,
		httpClient:     httpClient,
		downloadClient: &http.Client{Transport: httpClient.Transport},
		logger:         logger,
		sleepFunc:      timeSleep,
	}
}

// apiResponse is the Bot API envelope around every method result.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// call executes a Bot API method with the given JSON parameters, retrying
// network errors and retryable API errors, and decodes the result envelope
// into result (which may be nil for fire-and-forget methods).
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	var body []byte

	if params != nil {
		var err error

		body, err = json.Marshal(params)
		if err != nil {
			return fmt.Errorf("telegram: marshaling %s params: %w", method, err)
		}
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	var attempt int
	for {
		env, err := c.doOnce(ctx, url, body)
		if err != nil {
			// Context cancellation is not retryable.
			if ctx.Err() != nil {
				return fmt.Errorf("telegram: %s canceled: %w", method, ctx.Err())
			}

			// Network errors are retryable.
			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", method),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return fmt.Errorf("telegram: %s canceled: %w", method, sleepErr)
				}

				attempt++

				continue
			}

			return fmt.Errorf("telegram: %s failed after %d retries: %w", method, maxRetries, err)
		}

		if env.OK {
			if result != nil && len(env.Result) > 0 {
				if decErr := json.Unmarshal(env.Result, result); decErr != nil {
					return fmt.Errorf("telegram: decoding %s result: %w", method, decErr)
				}
			}

			c.logger.Debug("request succeeded", slog.String("method", method))

			return nil
		}

		retryAfter := 0
		if env.Parameters != nil {
			retryAfter = env.Parameters.RetryAfter
		}

		if isRetryable(env.ErrorCode) && attempt < maxRetries {
			backoff := c.retryBackoff(retryAfter, attempt)
			c.logger.Warn("retrying after API error",
				slog.String("method", method),
				slog.Int("code", env.ErrorCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return fmt.Errorf("telegram: %s canceled: %w", method, err)
			}

			attempt++

			continue
		}

		apiErr := &APIError{
			Code:        env.ErrorCode,
			Description: env.Description,
			RetryAfter:  retryAfter,
			Err:         classifyCode(env.ErrorCode),
		}

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", method),
				slog.Int("code", env.ErrorCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return apiErr
	}
}

// doOnce executes a single Bot API request (no retry) and parses the
// response envelope. The Bot API returns the envelope with an error_code on
// non-2xx statuses too, so the body is decoded regardless of status.
func (c *Client) doOnce(ctx context.Context, url string, body []byte) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env apiResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&env); decErr != nil {
		return nil, fmt.Errorf("decoding response (HTTP %d): %w", resp.StatusCode, decErr)
	}

	if !env.OK && env.ErrorCode == 0 {
		env.ErrorCode = resp.StatusCode
	}

	return &env, nil
}

// retryBackoff returns the backoff duration for a retryable API error.
// A retry_after hint from the server takes precedence.
func (c *Client) retryBackoff(retryAfter, attempt int) time.Duration {
	if retryAfter > 0 {
		return time.Duration(retryAfter) * time.Second
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package speech is the gateway to an OpenAI-compatible text-to-speech API.
//
// Each call may be billed by the provider, so only transport failures are
// retried, a bounded number of times. Any HTTP response from the provider,
// including 5xx, is returned to the caller as an *Error.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/readback/readback/internal/common"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const (
	speechPath      = "/v1/audio/speech"
	defaultBaseURL  = "https://api.openai.com"
	defaultModel    = "tts-1"
	maxErrorBody    = 4 << 10
	defaultRetry    = 200 * time.Millisecond
	defaultTimeout  = 60 * time.Second
)

// Config configures a Client. A zero RateLimit disables rate limiting.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Retries    int
	RetryBase  time.Duration
	RateLimit  float64
	RateBurst  int
	HTTPClient *http.Client
}

// Client calls the provider's speech endpoint.
type Client struct {
	apiKey    string
	endpoint  string
	model     string
	retries   uint64
	retryBase time.Duration
	limiter   *rate.Limiter
	http      *http.Client
}

// Error is a non-2xx response from the provider. It matches common.ErrSynthesis.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("speech provider returned %d: %s", e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error { return common.ErrSynthesis }

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetry
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}

	c := &Client{
		apiKey:    cfg.APIKey,
		endpoint:  strings.TrimRight(cfg.BaseURL, "/") + speechPath,
		model:     cfg.Model,
		retries:   uint64(cfg.Retries),
		retryBase: cfg.RetryBase,
		http:      cfg.HTTPClient,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Speak renders text with the given voice and returns MP3 bytes.
func (c *Client) Speak(ctx context.Context, voice, text string) ([]byte, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", common.ErrConfiguration)
	}

	body, err := json.Marshal(speechRequest{
		Model:          c.model,
		Voice:          voice,
		Input:          text,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, err
	}

	var audio []byte
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		audio, err = c.post(ctx, body)
		var te *transportError
		if errors.As(err, &te) && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// transportError marks failures where no HTTP response was received.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "speech request failed: " + e.err.Error() }

func (e *transportError) Unwrap() []error { return []error{common.ErrSynthesis, e.err} }

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", common.BearerScheme+" "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", common.AudioContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: err}
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: provider returned no audio", common.ErrSynthesis)
	}
	return audio, nil
}

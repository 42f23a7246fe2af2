// Package gateway sends pattern SMS through the IPPanel REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"
)

const (
	sendPatternPath = "/sms/pattern/normal/send"
	creditPath      = "/sms/accounting/credit/show"
)

var ErrCircuitOpen = errors.New("gateway circuit open")

// Request is one pattern-send order.
type Request struct {
	Recipient   string
	PatternCode string
	Variables   map[string]string
}

// Outcome reports what the provider did with a Request. Accepted means the
// provider acknowledged the message; otherwise ProviderStatus and ErrorDetail
// carry enough context for logging and admin notices.
type Outcome struct {
	Accepted       bool
	ProviderStatus int
	MessageID      int64
	ErrorDetail    string
}

// Config for the IPPanel client.
type Config struct {
	BaseURL     string
	APIKey      string
	Originator  string
	Enabled     bool
	Timeout     time.Duration // per attempt
	MaxAttempts int           // total attempts, retries included
	Backoff     time.Duration // linear: attempt * backoff
	Breaker     *MicroBreaker
}

type Client struct {
	baseURL     *url.URL
	apiKey      string
	originator  string
	enabled     bool
	maxAttempts int
	backoff     time.Duration
	client      *http.Client
	br          *MicroBreaker
}

func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	br := cfg.Breaker
	if br == nil {
		br = NewMicroBreaker(5, 30*time.Second)
	}
	return &Client{
		baseURL:     u,
		apiKey:      cfg.APIKey,
		originator:  cfg.Originator,
		enabled:     cfg.Enabled,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		client:      &http.Client{Timeout: cfg.Timeout},
		br:          br,
	}, nil
}

// Enabled reports whether sends are switched on in config.
func (c *Client) Enabled() bool { return c.enabled }

// sendPatternReq is the provider's pattern-send body.
type sendPatternReq struct {
	Code      string            `json:"code"`
	Sender    string            `json:"sender"`
	Recipient string            `json:"recipient"`
	Variable  map[string]string `json:"variable"`
}

// baseResponse is the provider's response envelope.
type baseResponse struct {
	Status       string          `json:"status"`
	Code         int             `json:"code"`
	Data         json.RawMessage `json:"data"`
	ErrorMessage string          `json:"error_message"`
}

type sendRes struct {
	MessageID int64 `json:"message_id"`
}

type creditRes struct {
	Credit float64 `json:"credit"`
}

// Send delivers one pattern SMS. Transient failures (network errors, 429, 5xx)
// are retried up to MaxAttempts with linear backoff; permanent failures (4xx)
// fail the outcome immediately. The caller's context bounds total latency.
func (c *Client) Send(ctx context.Context, req Request) Outcome {
	body := sendPatternReq{
		Code:      req.PatternCode,
		Sender:    c.originator,
		Recipient: req.Recipient,
		Variable:  req.Variables,
	}

	var last Outcome
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				last.ErrorDetail = "deadline exceeded: " + last.ErrorDetail
				return last
			case <-time.After(time.Duration(attempt-1) * c.backoff):
			}
		}

		if !c.br.TryAcquire() {
			return Outcome{ErrorDetail: ErrCircuitOpen.Error()}
		}

		out, retryable := c.attempt(ctx, body)
		if out.Accepted {
			c.br.OnSuccess()
			return out
		}

		c.br.OnFailure()
		last = out
		if !retryable {
			return out
		}
	}

	last.ErrorDetail = fmt.Sprintf("retries exhausted after %d attempts: %s", c.maxAttempts, last.ErrorDetail)
	return last
}

// attempt performs one HTTP round trip. The bool reports whether the failure
// class is worth retrying.
func (c *Client) attempt(ctx context.Context, body sendPatternReq) (Outcome, bool) {
	res, raw, err := c.post(ctx, sendPatternPath, body)
	if err != nil {
		// Per-attempt timeouts and connection failures are worth retrying;
		// a spent caller context is not.
		return Outcome{ErrorDetail: err.Error()}, ctx.Err() == nil && isTransportTransient(err)
	}

	switch {
	case res.StatusCode == http.StatusOK || res.StatusCode == http.StatusCreated:
		var env baseResponse
		if err := json.Unmarshal(raw, &env); err != nil {
			return Outcome{
				ProviderStatus: res.StatusCode,
				ErrorDetail:    fmt.Sprintf("undecodable provider response: %v", err),
			}, true
		}
		var sr sendRes
		if len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, &sr)
		}
		if sr.MessageID == 0 {
			return Outcome{
				ProviderStatus: env.Code,
				ErrorDetail:    "provider accepted without message id: " + env.ErrorMessage,
			}, true
		}
		return Outcome{Accepted: true, ProviderStatus: env.Code, MessageID: sr.MessageID}, false

	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
		return Outcome{
			ProviderStatus: res.StatusCode,
			ErrorDetail:    fmt.Sprintf("provider status %d: %s", res.StatusCode, truncate(raw)),
		}, true

	default:
		// 400/401/403/422: bad request, credential, recipient or credit problem
		return Outcome{
			ProviderStatus: res.StatusCode,
			ErrorDetail:    fmt.Sprintf("provider rejected with %d: %s", res.StatusCode, truncate(raw)),
		}, false
	}
}

// Credit returns the remaining provider credit.
func (c *Client) Credit(ctx context.Context) (float64, error) {
	res, raw, err := c.get(ctx, creditPath)
	if err != nil {
		return 0, err
	}
	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("provider status %d: %s", res.StatusCode, truncate(raw))
	}

	var env baseResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, fmt.Errorf("decode credit response: %w", err)
	}
	var cr creditRes
	if err := json.Unmarshal(env.Data, &cr); err != nil {
		return 0, fmt.Errorf("decode credit data: %w", err)
	}
	return cr.Credit, nil
}

func (c *Client) post(ctx context.Context, uri string, data any) (*http.Response, []byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, nil, err
	}
	return c.do(ctx, http.MethodPost, uri, bytes.NewReader(b))
}

func (c *Client) get(ctx context.Context, uri string) (*http.Response, []byte, error) {
	return c.do(ctx, http.MethodGet, uri, nil)
}

func (c *Client) do(ctx context.Context, method, uri string, body *bytes.Reader) (*http.Response, []byte, error) {
	u := *c.baseURL
	u.Path = path.Join(c.baseURL.Path, uri)

	var rd io.Reader
	if body != nil {
		rd = body
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Apikey", c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, err
	}
	return res, raw, nil
}

func isTransportTransient(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	var uerr *url.Error
	return errors.As(err, &uerr)
}

func truncate(raw []byte) string {
	const max = 256
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}

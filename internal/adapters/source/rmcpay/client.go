// Package rmcpay provides a resilient client for the rmcpay violation search endpoint
package rmcpay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	perr "citewatch/internal/platform/errors"
	"citewatch/internal/platform/logger"
)

const (
	searchPath       = "/rmcapi/api/violation_index.php/searchviolation"
	defaultTimeout   = 12 * time.Second
	defaultUA        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	defaultMaxRetry  = 3
	defaultRetryBase = 500 * time.Millisecond
)

// Options configures the Client
type Options struct {
	// BaseURL is the operator host, for example https://bostonma.rmcpay.com
	BaseURL string
	// OperatorID selects the tenant on shared rmcpay infrastructure
	OperatorID int
	UserAgent  string
	Timeout    time.Duration

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration
}

// Result is one conclusive key lookup
// Found false with a nil error means the key conclusively has no record
type Result struct {
	Key    int64
	Found  bool
	Record Violation
}

// Client is a minimal rmcpay search client with retries and rate limit handling
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("rmcpay"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// searchURL builds the full query for one key
// the endpoint wants every search field present even when empty
func (c *Client) searchURL(key int64) string {
	return fmt.Sprintf(
		"%s%s?operatorid=%d&violationnumber=%d&stateid=&lpn=&vin=&plate_type_id="+
			"&devicenumber=&payment_plan_id=&immobilization_id=&single_violation=0&omsessiondata=&",
		c.opts.BaseURL, searchPath, c.opts.OperatorID, key,
	)
}

// Lookup probes one key and classifies the answer
//
// conclusive answers come back as a Result, everything else as a coded error:
// Forbidden for 403 so callers can track streaks, TooManyRequests after retry
// budget on 429, Unavailable for transport and 5xx, Schema for unparseable bodies
func (c *Client) Lookup(ctx context.Context, key int64) (Result, error) {
	url := c.searchURL(key)
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Result{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "rmcpay new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
		req.Header.Set("Referer", c.opts.BaseURL+"/")

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if !c.shouldRetry(attempts) {
				return Result{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "rmcpay do failed")
			}
			back := c.backoff(attempts)
			c.log.Warn().Int64("key", key).Dur("retry_in", back).Int("attempt", attempts).
				Msg("rmcpay transport error retrying")
			c.sleep(back)
			attempts++
			continue
		}

		c.log.Debug().
			Int64("key", key).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Msg("rmcpay http response")

		switch resp.StatusCode {
		case http.StatusOK:
			return c.decode(key, resp.Body)
		case http.StatusNotFound:
			_ = drainAndClose(resp.Body)
			return Result{Key: key}, nil
		case http.StatusForbidden:
			// the operator blocks aggressively, let the caller decide on streaks
			_ = drainAndClose(resp.Body)
			return Result{}, perr.Newf(perr.ErrorCodeForbidden, "rmcpay forbidden for key %d", key)
		case http.StatusTooManyRequests:
			wait := retryAfter(resp.Header)
			if wait <= 0 {
				wait = c.backoff(attempts)
			}
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return Result{}, perr.Newf(perr.ErrorCodeTooManyRequests, "rmcpay rate limited")
			}
			c.log.Warn().Int64("key", key).Dur("sleep", wait).Msg("rmcpay rate limited backing off")
			c.sleep(wait)
			attempts++
			continue
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return Result{}, perr.Newf(perr.ErrorCodeUnavailable, "rmcpay transient server error")
			}
			back := c.backoff(attempts)
			c.log.Warn().Int64("key", key).Dur("retry_in", back).Int("attempt", attempts).
				Msg("rmcpay transient error retrying")
			c.sleep(back)
			attempts++
			continue
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return Result{}, perr.Newf(
				perr.ErrorCodeUnknown, "rmcpay unexpected status %d body %s", resp.StatusCode, string(body),
			)
		}
	}
}

// decode parses a 200 body into a Result
func (c *Client) decode(key int64, body io.ReadCloser) (Result, error) {
	defer func() { _ = body.Close() }()

	var env searchEnvelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeSchema, "rmcpay invalid json for key %d", key)
	}
	if len(env.Data) == 0 {
		return Result{Key: key}, nil
	}
	return Result{Key: key, Found: true, Record: env.Data[0]}, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase
	// simple exponential with cap
	ms := int64(d / time.Millisecond)
	ms = ms << uint(attempt)
	max := int64(30 * time.Second / time.Millisecond)
	if ms > max {
		ms = max
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}

func retryAfter(h http.Header) time.Duration {
	s := h.Get("Retry-After")
	if s == "" {
		return 0
	}
	var sec int
	if _, err := fmt.Sscanf(s, "%d", &sec); err != nil || sec <= 0 {
		return 0
	}
	return time.Duration(sec) * time.Second
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}

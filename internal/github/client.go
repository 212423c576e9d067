// Package github provides a small GitHub REST v3 client for the organization event feed
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	perr "github.com/rewired-gh/hubbub/internal/errors"
	"github.com/rewired-gh/hubbub/internal/logger"
)

const (
	baseURLDefault   = "https://api.github.com"
	defaultTimeout   = 10 * time.Second
	defaultUA        = "hubbub"
	defaultMaxRetry  = 3
	defaultRetryBase = 500 * time.Millisecond
	maxBackoff       = 30 * time.Second
	maxBodyBytes     = 4 << 20
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Token is a personal access token; empty means unauthenticated (60 requests/hour)
	Token string

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration
}

// Client provides access to the GitHub REST API
type Client struct {
	http  *http.Client
	opts  Options
	log   *zerolog.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new GitHub client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   logger.Named("github"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Authenticated reports whether requests carry a token
func (c *Client) Authenticated() bool { return c.opts.Token != "" }

// Do issues a GET with auth headers, an optional etag, retries and rate limit handling.
// target is either an API path or an absolute URL taken from a Link header.
// A 304 response is returned as is; the caller owns the body.
func (c *Client) Do(ctx context.Context, target string, etag string) (*http.Response, error) {
	url := target
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		url = c.opts.BaseURL + target
	}

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "github new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		if c.opts.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.Token)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !c.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github request failed")
			}
			back := c.backoff(attempts)
			c.log.Warn().Err(err).Dur("retry_in", back).Int("attempt", attempts).Msg("github transport error retrying")
			c.sleep(back)
			attempts++
			continue
		}

		rem, reset, retryAfter := parseRateHeaders(resp.Header)
		c.log.Debug().
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Int("rate_remaining", rem).
			Time("rate_reset", reset).
			Msg("github http response")

		switch {
		case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNotModified:
			return resp, nil

		case resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode == http.StatusForbidden && rateLimited(rem, reset, retryAfter):
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return nil, perr.Newf(perr.ErrorCodeTooManyRequests, "github rate limited (status %d)", resp.StatusCode)
			}
			wait := computeWait(rem, reset, retryAfter, c.now())
			if wait <= 0 {
				wait = c.backoff(attempts)
			}
			if wait > maxBackoff {
				// waiting out a long reset is the poll loop's job
				return nil, perr.Newf(perr.ErrorCodeTooManyRequests, "github rate limited until %s", reset.Format(time.RFC3339))
			}
			c.log.Warn().Dur("sleep", wait).Msg("github rate limited backing off")
			c.sleep(wait)
			attempts++
			continue

		case resp.StatusCode >= 500:
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return nil, perr.Newf(perr.ErrorCodeUnavailable, "github server error %d", resp.StatusCode)
			}
			back := c.backoff(attempts)
			c.log.Warn().Int("status", resp.StatusCode).Dur("retry_in", back).Int("attempt", attempts).Msg("github transient error retrying")
			c.sleep(back)
			attempts++
			continue

		default:
			return nil, statusError(resp)
		}
	}
}

// statusError reads a small tail of the body for diagnostics and closes it
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	_ = resp.Body.Close()
	msg := strings.TrimSpace(string(body))
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return perr.Newf(perr.ErrorCodeUnauthorized, "github rejected credentials: %s", msg)
	case http.StatusNotFound:
		return perr.Newf(perr.ErrorCodeNotFound, "github resource not found: %s", msg)
	default:
		return perr.Newf(perr.ErrorCodeUnknown, "github unexpected status %d body %s", resp.StatusCode, msg)
	}
}

// getJSON fetches target and decodes the body into out.
// It returns notModified=true with an untouched out on 304.
func (c *Client) getJSON(ctx context.Context, target, etag string, out any) (newETag string, link string, notModified bool, err error) {
	resp, err := c.Do(ctx, target, etag)
	if err != nil {
		return "", "", false, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("target", target).Msg("github close body failed")
		}
	}()

	if resp.StatusCode == http.StatusNotModified {
		return resp.Header.Get("ETag"), "", true, nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return "", "", false, perr.Wrapf(err, perr.ErrorCodeDecode, "failed to decode %s", target)
	}
	return resp.Header.Get("ETag"), resp.Header.Get("Link"), false, nil
}

// CurrentUser returns the login of the authenticated user
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	if !c.Authenticated() {
		return User{}, perr.Unauthorizedf("github login requires a token")
	}
	var u User
	if _, _, _, err := c.getJSON(ctx, "/user", "", &u); err != nil {
		return User{}, fmt.Errorf("github login failed: %w", err)
	}
	if u.Login == "" {
		return User{}, perr.Newf(perr.ErrorCodeDecode, "github login returned no user")
	}
	return u, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}

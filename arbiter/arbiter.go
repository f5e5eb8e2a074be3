/*
Package arbiter is the boundary with the external arbiter: the service that
reads the report of an ended round and decides how the distributable pools
are allocated.  The auction never decides by itself: the keeper sends the
report through a Client and submits the returned allocation with
Auction.ResolveByArbiter, which validates it.
*/
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dghubble/sling"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/tracerr"
	"golang.org/x/time/rate"
)

// ErrNoDecision is returned when the arbiter has not decided yet
var ErrNoDecision = errors.New("arbiter has no decision yet")

// Client asks the arbiter for the allocation of an ended round
type Client interface {
	Decide(ctx context.Context, report *common.RoundReport) (*common.Allocation, error)
}

// Config is the configuration of the HTTP arbiter client
type Config struct {
	// URL of the arbiter service
	URL string
	// Timeout of every request
	Timeout time.Duration
	// RateLimit is the maximum number of requests per second.  0 means no
	// limit.
	RateLimit float64
	// Burst is the maximum number of requests sent at once
	Burst int
}

type errorResponse struct {
	Message string `json:"message"`
}

// HTTPClient is a Client that posts the round report to an arbiter service.
// Requests are rate limited so that a keeper polling an undecided round
// doesn't flood the arbiter.
type HTTPClient struct {
	client  *sling.Sling
	limiter *rate.Limiter
}

// NewHTTPClient creates a new HTTPClient
func NewHTTPClient(cfg Config) *HTTPClient {
	tr := &http.Transport{
		MaxIdleConns:       10,               //nolint:gomnd
		IdleConnTimeout:    10 * time.Second, //nolint:gomnd
		DisableCompression: true,
	}
	httpClient := &http.Client{Transport: tr, Timeout: cfg.Timeout}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &HTTPClient{
		client:  sling.New().Base(cfg.URL).Client(httpClient),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Decide implements Client.  It returns ErrNoDecision when the arbiter
// answers 202 Accepted.
func (c *HTTPClient) Decide(ctx context.Context, report *common.RoundReport) (*common.Allocation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, tracerr.Wrap(err)
	}
	path := fmt.Sprintf("v1/rounds/%d/decision", report.Round.ID)
	req, err := c.client.New().Post(path).BodyJSON(report).Request()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	var allocation common.Allocation
	var failure errorResponse
	// The status is checked before the decoding error: 202 and error
	// responses may come without a body.
	resp, err := c.client.Do(req.WithContext(ctx), &allocation, &failure)
	switch {
	case resp == nil:
		return nil, tracerr.Wrap(err)
	case resp.StatusCode == http.StatusAccepted:
		return nil, tracerr.Wrap(ErrNoDecision)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, tracerr.Wrap(fmt.Errorf("arbiter error: status %v: %v", resp.StatusCode, failure.Message))
	case err != nil:
		return nil, tracerr.Wrap(err)
	}
	log.Debugw("arbiter decision received", "round", report.Round.ID, "entries", len(allocation.Entries))
	return &allocation, nil
}

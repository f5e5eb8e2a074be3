package ledger

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/dghubble/sling"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/tracerr"
)

// Config is the configuration of the HTTP ledger client
type Config struct {
	// URL of the ledger service
	URL string
	// Account is the account of the auction in the ledger
	Account ethCommon.Address
	// Timeout of every request
	Timeout time.Duration
}

// transferRequest is the body of the deposit and payout requests
type transferRequest struct {
	Account  ethCommon.Address `json:"account"`
	From     ethCommon.Address `json:"from"`
	To       ethCommon.Address `json:"to"`
	Currency common.Currency   `json:"currency"`
	Amount   string            `json:"amount"`
}

type transferResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Client is a ClientInterface implementation that talks to a ledger service
// over HTTP
type Client struct {
	cfg    Config
	client *sling.Sling
}

// NewClient creates a new Client
func NewClient(cfg Config) *Client {
	tr := &http.Transport{
		MaxIdleConns:       10,               //nolint:gomnd
		IdleConnTimeout:    10 * time.Second, //nolint:gomnd
		DisableCompression: true,
	}
	httpClient := &http.Client{Transport: tr, Timeout: cfg.Timeout}
	return &Client{
		cfg:    cfg,
		client: sling.New().Base(cfg.URL).Client(httpClient),
	}
}

// RequestDeposit implements ClientInterface
func (c *Client) RequestDeposit(ctx context.Context, from ethCommon.Address,
	currency common.Currency, amount *big.Int) error {
	return c.transfer(ctx, "v1/deposits", transferRequest{
		Account:  c.cfg.Account,
		From:     from,
		Currency: currency,
		Amount:   amount.String(),
	})
}

// RequestPayout implements ClientInterface
func (c *Client) RequestPayout(ctx context.Context, to ethCommon.Address,
	currency common.Currency, amount *big.Int) error {
	return c.transfer(ctx, "v1/payouts", transferRequest{
		Account:  c.cfg.Account,
		To:       to,
		Currency: currency,
		Amount:   amount.String(),
	})
}

func (c *Client) transfer(ctx context.Context, path string, body transferRequest) error {
	req, err := c.client.New().Post(path).BodyJSON(body).Request()
	if err != nil {
		return tracerr.Wrap(err)
	}
	var success transferResponse
	var failure errorResponse
	resp, err := c.client.Do(req.WithContext(ctx), &success, &failure)
	if err != nil {
		return tracerr.Wrap(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tracerr.Wrap(fmt.Errorf("%w: status %v: %v",
			ErrTransferRejected, resp.StatusCode, failure.Message))
	}
	if !success.Accepted {
		return tracerr.Wrap(fmt.Errorf("%w: %v", ErrTransferRejected, success.Reason))
	}
	log.Debugw("ledger transfer accepted", "path", path, "amount", body.Amount,
		"currency", body.Currency)
	return nil
}

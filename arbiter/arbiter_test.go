package arbiter

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientDecide(t *testing.T) {
	winner := ethCommon.HexToAddress("0x0000000000000000000000000000000000000b0b")
	decided := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/rounds/3/decision", r.URL.Path)
		var report common.RoundReport
		require.NoError(t, json.NewDecoder(r.Body).Decode(&report))
		assert.Equal(t, "hello world", report.Text)
		if !decided {
			// Still deciding: 202 without a body
			decided = true
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{"roundId":3,"entries":[` +
			`{"to":"` + winner.Hex() + `","currency":"prize","amount":116}]}`))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := NewHTTPClient(Config{URL: server.URL + "/", Timeout: time.Second})
	report := &common.RoundReport{
		Round: common.Round{ID: 3, PrizePool: big.NewInt(122), SecondaryPool: big.NewInt(0)},
		Text:  "hello world",
	}
	_, err := client.Decide(context.Background(), report)
	assert.Equal(t, ErrNoDecision, tracerr.Unwrap(err))

	allocation, err := client.Decide(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, common.RoundID(3), allocation.RoundID)
	require.Equal(t, 1, len(allocation.Entries))
	assert.Equal(t, winner, allocation.Entries[0].To)
	assert.Equal(t, common.CurrencyPrize, allocation.Entries[0].Currency)
	assert.Equal(t, "116", allocation.Entries[0].Amount.String())
}

func TestHTTPClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(Config{URL: server.URL + "/", Timeout: time.Second})
	_, err := client.Decide(context.Background(), &common.RoundReport{Round: common.Round{ID: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	// Error responses without a body still report the status
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer empty.Close()
	client = NewHTTPClient(Config{URL: empty.URL + "/", Timeout: time.Second})
	_, err = client.Decide(context.Background(), &common.RoundReport{Round: common.Round{ID: 1}})
	require.Error(t, err)
	assert.NotEqual(t, ErrNoDecision, tracerr.Unwrap(err))
	assert.Contains(t, err.Error(), "status 502")
}

func TestHTTPClientRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewHTTPClient(Config{URL: server.URL + "/", Timeout: time.Second, RateLimit: 0.001, Burst: 1})
	_, err := client.Decide(context.Background(), &common.RoundReport{Round: common.Round{ID: 1}})
	assert.Equal(t, ErrNoDecision, tracerr.Unwrap(err))

	// The next request would have to wait far longer than the context allows
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Decide(ctx, &common.RoundReport{Round: common.Round{ID: 1}})
	require.Error(t, err)
	assert.NotEqual(t, ErrNoDecision, tracerr.Unwrap(err))
}

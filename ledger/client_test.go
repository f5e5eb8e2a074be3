package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	account := ethCommon.HexToAddress("0x0000000000000000000000000000000000000abc")
	payer := ethCommon.HexToAddress("0x0000000000000000000000000000000000000a11")
	var requests []transferRequest
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case req.Amount == "13":
			_, _ = w.Write([]byte(`{"accepted":false,"reason":"frozen"}`))
		case req.Amount == "500":
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"message":"insufficient balance"}`))
		default:
			_, _ = w.Write([]byte(`{"accepted":true}`))
		}
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL + "/", Account: account, Timeout: time.Second})
	ctx := context.Background()
	require.NoError(t, client.RequestDeposit(ctx, payer, common.CurrencyPrize, big.NewInt(10)))
	require.NoError(t, client.RequestPayout(ctx, payer, common.CurrencySecondary, big.NewInt(7)))

	err := client.RequestDeposit(ctx, payer, common.CurrencyPrize, big.NewInt(13))
	assert.True(t, errors.Is(err, ErrTransferRejected))
	err = client.RequestPayout(ctx, payer, common.CurrencyPrize, big.NewInt(500))
	assert.True(t, errors.Is(err, ErrTransferRejected))

	require.Equal(t, 4, len(requests))
	assert.Equal(t, "/v1/deposits", paths[0])
	assert.Equal(t, "/v1/payouts", paths[1])
	assert.Equal(t, account, requests[0].Account)
	assert.Equal(t, payer, requests[0].From)
	assert.Equal(t, "10", requests[0].Amount)
	assert.Equal(t, payer, requests[1].To)
	assert.Equal(t, common.CurrencySecondary, requests[1].Currency)
}

package test

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hermeznetwork/slotauction/common"
)

// Timer is an interface to simulate a source of time, useful to advance time
// virtually.
type Timer interface {
	Time() int64
}

// Clock is a Timer whose time only changes when told to
type Clock struct {
	rw  sync.RWMutex
	now int64
}

// NewClock returns a Clock set at now
func NewClock(now int64) *Clock {
	return &Clock{now: now}
}

// Time returns the current time in unix seconds
func (c *Clock) Time() int64 {
	c.rw.RLock()
	defer c.rw.RUnlock()
	return c.now
}

// Advance moves the clock seconds forward
func (c *Clock) Advance(seconds int64) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.now += seconds
}

// Set moves the clock to now
func (c *Clock) Set(now int64) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.now = now
}

// GenKeys returns n deterministic private keys
func GenKeys(n int) []*ecdsa.PrivateKey {
	keys := make([]*ecdsa.PrivateKey, n)
	for i := range keys {
		key, err := crypto.HexToECDSA(fmt.Sprintf("%064x", i+1))
		if err != nil {
			panic(err)
		}
		keys[i] = key
	}
	return keys
}

// GenAddrs returns the addresses of the first n keys returned by GenKeys
func GenAddrs(n int) []ethCommon.Address {
	addrs := make([]ethCommon.Address, n)
	for i, key := range GenKeys(n) {
		addrs[i] = crypto.PubkeyToAddress(key.PublicKey)
	}
	return addrs
}

// AuctionVariables returns a valid set of variables for tests: minimum bid
// of 1, 2 slots per player, 75% of every bid to the current round, 5% fee,
// rounds of one hour, anti-snipe of 60s, one day of emergency grace and
// auto advance from 1.
func AuctionVariables(owner, arbiter ethCommon.Address) *common.AuctionVariables {
	return &common.AuctionVariables{
		Owner:                owner,
		Arbiter:              arbiter,
		MinBid:               big.NewInt(1),
		MaxSlotsPerPlayer:    2,
		SplitRatio:           7500,
		FeeRatio:             500,
		RoundDuration:        3600,
		AntiSnipeWindow:      60,
		AntiSnipeExtension:   60,
		EmergencyGrace:       86400,
		AutoAdvanceThreshold: big.NewInt(1),
	}
}

package node

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/config"
	dbUtils "github.com/hermeznetwork/slotauction/db"
	"github.com/hermeznetwork/slotauction/db/historydb"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/slotauction/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init("info", []string{"stdout"})
	os.Exit(m.Run())
}

var (
	addrs       = test.GenAddrs(3)
	owner       = addrs[0]
	arbiterAddr = addrs[1]
	alice       = addrs[2]
)

func testAuctionCfg() config.Auction {
	return config.Auction{
		Owner:                owner,
		Arbiter:              arbiterAddr,
		MinBid:               big.NewInt(1),
		MaxSlotsPerPlayer:    2,
		SplitRatio:           7500,
		FeeRatio:             500,
		RoundDuration:        config.Duration{Duration: time.Hour},
		AntiSnipeWindow:      config.Duration{Duration: time.Minute},
		AntiSnipeExtension:   config.Duration{Duration: time.Minute},
		EmergencyGrace:       config.Duration{Duration: 24 * time.Hour},
		AutoAdvanceThreshold: big.NewInt(1),
	}
}

func TestLoadAuction(t *testing.T) {
	database, err := dbUtils.InitTestSQLDB(t.TempDir())
	require.NoError(t, err)
	defer func() { assert.NoError(t, database.Close()) }()
	hdb := historydb.NewHistoryDB(database, database, nil)
	ledger := test.NewLedger(false)
	ledger.CtlMint(owner, common.CurrencyPrize, big.NewInt(1000))
	ledger.CtlMint(alice, common.CurrencyPrize, big.NewInt(1000))
	auctionCfg := testAuctionCfg()

	// No checkpoint: the configured variables are used
	a, err := loadAuction(hdb, ledger, &auctionCfg)
	require.NoError(t, err)
	assert.Equal(t, common.RoundPhaseNone, a.Status().Phase)
	assert.Equal(t, big.NewInt(1), a.Variables().MinBid)
	a.AddListener(historydb.NewRecorder(hdb))

	_, err = a.CreateRound(context.Background(), owner, big.NewInt(100))
	require.NoError(t, err)
	_, err = a.PlaceBid(context.Background(), alice, 3, "hello", big.NewInt(10))
	require.NoError(t, err)
	require.NoError(t, a.SetMinBid(owner, big.NewInt(5)))

	// The checkpoint wins over the configuration
	restored, err := loadAuction(hdb, ledger, &auctionCfg)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), restored.Variables().MinBid)
	round, err := restored.CurrentRound()
	require.NoError(t, err)
	assert.Equal(t, common.RoundID(1), round.ID)
	assert.Equal(t, "107", round.PrizePool.String())
	slots, err := restored.Slots(round.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", slots[3].Content)
	assert.Equal(t, "3", restored.Pools().PendingNext.String())
}

func TestKeeperAddr(t *testing.T) {
	addr, err := keeperAddr("")
	require.NoError(t, err)
	assert.Equal(t, ethCommon.Address{}, addr)

	// Private key 1
	addr, err = keeperAddr(fmt.Sprintf("%064x", 1))
	require.NoError(t, err)
	assert.Equal(t, ethCommon.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"), addr)

	_, err = keeperAddr("not a key")
	assert.Error(t, err)
}

func TestNodeStartStop(t *testing.T) {
	cfg := &config.Node{
		Auction: testAuctionCfg(),
		Database: config.Database{
			Driver: dbUtils.DialectSQLite,
			SQLite: config.SQLite{Path: fmt.Sprintf("%s/node.sqlite", t.TempDir())},
		},
		API: config.APIConfigParameters{
			Address:              "127.0.0.1:0",
			Writes:               true,
			MaxSQLConnections:    1,
			SQLConnectionTimeout: config.Duration{Duration: time.Second},
			SignatureMaxAge:      config.Duration{Duration: time.Minute},
		},
		Ledger: config.Ledger{
			URL:     "http://127.0.0.1:1",
			Account: owner,
		},
		Keeper: config.Keeper{
			Interval: config.Duration{Duration: 10 * time.Millisecond},
		},
	}
	n, err := NewNode(cfg)
	require.NoError(t, err)
	require.NotNil(t, n.nodeAPI)
	n.Start()
	time.Sleep(50 * time.Millisecond)
	n.Stop()

	cfg.Database.Driver = "mysql"
	_, err = NewNode(cfg)
	assert.Error(t, err)
}

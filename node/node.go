/*
Package node wires the slot auction node: the SQL history database, the
in-memory auction restored from the last checkpoint, the ledger and arbiter
clients, the keeper that resolves ended rounds and the HTTP API.

The node owns every long running goroutine.  Start launches them and Stop
cancels the shared context and waits for all of them to finish.
*/
package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/api"
	"github.com/hermeznetwork/slotauction/arbiter"
	"github.com/hermeznetwork/slotauction/auction"
	"github.com/hermeznetwork/slotauction/config"
	dbUtils "github.com/hermeznetwork/slotauction/db"
	"github.com/hermeznetwork/slotauction/db/historydb"
	"github.com/hermeznetwork/slotauction/keeper"
	"github.com/hermeznetwork/slotauction/ledger"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/slotauction/metric"
	"github.com/hermeznetwork/tracerr"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/russross/meddler"
)

// Node is the slot auction node
type Node struct {
	nodeAPI *NodeAPI
	auction *auction.Auction
	keeper  *keeper.Keeper

	// General
	cfg         *config.Node
	sqlConnRead *sqlx.DB
	sqlConn     *sqlx.DB
	ctx         context.Context
	wg          sync.WaitGroup
	cancel      context.CancelFunc
}

// initSQLDB opens the write and read connections to the configured
// database.  When no read server is configured the write connection is
// used for both.
func initSQLDB(cfg *config.Database) (dbWrite, dbRead *sqlx.DB, err error) {
	switch cfg.Driver {
	case dbUtils.DialectSQLite:
		dbWrite, err = dbUtils.InitSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, tracerr.Wrap(fmt.Errorf("dbUtils.InitSQLite: %w", err))
		}
		return dbWrite, dbWrite, nil
	case dbUtils.DialectPostgres:
		pg := cfg.PostgreSQL
		dbWrite, err = dbUtils.InitSQLDB(pg.PortWrite, pg.HostWrite, pg.UserWrite,
			pg.PasswordWrite, pg.NameWrite)
		if err != nil {
			return nil, nil, tracerr.Wrap(fmt.Errorf("dbUtils.InitSQLDB: %w", err))
		}
		if pg.HostRead == "" {
			return dbWrite, dbWrite, nil
		}
		dbRead, err = dbUtils.ConnectSQLDB(pg.PortRead, pg.HostRead, pg.UserRead,
			pg.PasswordRead, pg.NameRead)
		if err != nil {
			return nil, nil, tracerr.Wrap(fmt.Errorf("dbUtils.ConnectSQLDB: %w", err))
		}
		return dbWrite, dbRead, nil
	default:
		return nil, nil, tracerr.Wrap(fmt.Errorf("unsupported database driver %q", cfg.Driver))
	}
}

// loadAuction restores the auction from the checkpoint stored in the
// HistoryDB, or creates it from the configured variables if there is none
func loadAuction(hdb *historydb.HistoryDB, ledgerClient ledger.ClientInterface,
	vars *config.Auction) (*auction.Auction, error) {
	cp, err := hdb.GetCheckpoint()
	if errors.Is(err, historydb.ErrNoCheckpoint) {
		log.Infow("no checkpoint found, starting a new auction", "owner", vars.Owner.Hex(),
			"arbiter", vars.Arbiter.Hex())
		a, err := auction.NewAuction(ledgerClient, auction.RealTimer{}, vars.Variables())
		return a, tracerr.Wrap(err)
	} else if err != nil {
		return nil, tracerr.Wrap(fmt.Errorf("historyDB.GetCheckpoint: %w", err))
	}
	log.Infow("restoring auction from checkpoint", "lastRoundID", cp.LastRoundID,
		"timestamp", cp.Timestamp)
	a, err := auction.NewAuctionFromCheckpoint(ledgerClient, auction.RealTimer{}, cp)
	return a, tracerr.Wrap(err)
}

// keeperAddr returns the address of the keeper private key, or the zero
// address if none is configured
func keeperAddr(privateKey string) (ethCommon.Address, error) {
	if privateKey == "" {
		return ethCommon.Address{}, nil
	}
	key, err := ethCrypto.HexToECDSA(privateKey)
	if err != nil {
		return ethCommon.Address{}, tracerr.Wrap(fmt.Errorf("invalid Keeper.PrivateKey: %w", err))
	}
	return ethCrypto.PubkeyToAddress(key.PublicKey), nil
}

// NewNode creates a Node
func NewNode(cfg *config.Node) (*Node, error) {
	meddler.Debug = cfg.Debug.MeddlerLogs
	// Stablish DB connection
	dbWrite, dbRead, err := initSQLDB(&cfg.Database)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	var apiConnCon *dbUtils.APIConnectionController
	if cfg.API.Address != "" {
		apiConnCon = dbUtils.NewAPIConnectionController(
			cfg.API.MaxSQLConnections,
			cfg.API.SQLConnectionTimeout.Duration,
		)
	}
	historyDB := historydb.NewHistoryDB(dbRead, dbWrite, apiConnCon)

	ledgerClient := ledger.NewClient(ledger.Config{
		URL:     cfg.Ledger.URL,
		Account: cfg.Ledger.Account,
		Timeout: cfg.Ledger.Timeout.Duration,
	})
	a, err := loadAuction(historyDB, ledgerClient, &cfg.Auction)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	a.AddListener(historydb.NewRecorder(historyDB))

	addr, err := keeperAddr(cfg.Keeper.PrivateKey)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	var arbiterClient arbiter.Client
	if cfg.Arbiter.URL != "" {
		arbiterClient = arbiter.NewHTTPClient(arbiter.Config{
			URL:       cfg.Arbiter.URL,
			Timeout:   cfg.Arbiter.Timeout.Duration,
			RateLimit: cfg.Arbiter.RateLimit,
			Burst:     cfg.Arbiter.Burst,
		})
	}
	keep := keeper.NewKeeper(keeper.Config{
		Interval: cfg.Keeper.Interval.Duration,
		Addr:     addr,
	}, a, arbiterClient)

	var nodeAPI *NodeAPI
	if cfg.API.Address != "" {
		if cfg.Debug.GinDebugMode {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
		nodeAPI, err = NewNodeAPI(
			cfg.API.Address,
			cfg.API.ReadTimeout.Duration,
			cfg.API.WriteTimeout.Duration,
			a,
			historyDB,
			&api.Config{
				Writes:          cfg.API.Writes,
				SignatureMaxAge: cfg.API.SignatureMaxAge.Duration,
				Version:         Version,
			},
		)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Node{
		nodeAPI:     nodeAPI,
		auction:     a,
		keeper:      keep,
		cfg:         cfg,
		sqlConnRead: dbRead,
		sqlConn:     dbWrite,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Version is the version of the node reported by the API.  It's set at
// build time.
var Version = "dev"

// NodeAPI holds the node http API
type NodeAPI struct { //nolint:golint
	api          *api.API
	engine       *gin.Engine
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewNodeAPI creates a new NodeAPI (which internally calls api.NewAPI)
func NewNodeAPI(
	addr string,
	readTimeout, writeTimeout time.Duration,
	a *auction.Auction,
	hdb *historydb.HistoryDB,
	config *api.Config,
) (*NodeAPI, error) {
	engine := gin.Default()
	engine.Use(cors.Default())
	promMiddleware, err := metric.PrometheusMiddleware("/metrics", "/health")
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	engine.Use(promMiddleware)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	_api, err := api.NewAPI(
		*config,
		engine,
		a,
		hdb,
	)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &NodeAPI{
		addr:         addr,
		api:          _api,
		engine:       engine,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}, nil
}

// Run starts the http server of the NodeAPI.  To stop it, pass a context with
// cancelation.
func (a *NodeAPI) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:           a.addr,
		Handler:        a.engine,
		ReadTimeout:    a.readTimeout,
		WriteTimeout:   a.writeTimeout,
		MaxHeaderBytes: 1 << 20, //nolint:gomnd
	}
	go func() {
		log.Infof("NodeAPI is ready at %v", a.addr)
		if err := server.ListenAndServe(); err != nil && tracerr.Unwrap(err) != http.ErrServerClosed {
			log.Fatalf("Listen: %s\n", err)
		}
	}()

	<-ctx.Done()
	log.Info("Stopping NodeAPI...")
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:gomnd
	defer cancel()
	if err := server.Shutdown(ctxTimeout); err != nil {
		return tracerr.Wrap(err)
	}
	log.Info("NodeAPI done")
	return nil
}

// StartKeeper starts the keeper loop
func (n *Node) StartKeeper() {
	log.Info("Starting Keeper...")
	n.wg.Add(1)
	go func() {
		defer func() {
			log.Info("Keeper routine stopped")
			n.wg.Done()
		}()
		n.keeper.Run(n.ctx)
	}()
}

// StartNodeAPI starts the NodeAPI
func (n *Node) StartNodeAPI() {
	log.Info("Starting NodeAPI...")
	n.wg.Add(1)
	go func() {
		defer func() {
			log.Info("NodeAPI routine stopped")
			n.wg.Done()
		}()
		if err := n.nodeAPI.Run(n.ctx); err != nil {
			log.Fatalw("NodeAPI.Run", "err", err)
		}
	}()
}

// Start the node
func (n *Node) Start() {
	log.Infow("Starting node...", "owner", n.auction.Variables().Owner.Hex(),
		"arbiter", n.auction.Variables().Arbiter.Hex())
	if n.nodeAPI != nil {
		n.StartNodeAPI()
	}
	n.StartKeeper()
}

// Stop the node
func (n *Node) Stop() {
	log.Infow("Stopping node...")
	n.cancel()
	n.wg.Wait()
	if n.sqlConnRead != n.sqlConn {
		if err := n.sqlConnRead.Close(); err != nil {
			log.Errorw("Closing SQL read connection", "err", err)
		}
	}
	if err := n.sqlConn.Close(); err != nil {
		log.Errorw("Closing SQL connection", "err", err)
	}
}

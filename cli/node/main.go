package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/sling"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hermeznetwork/slotauction/api"
	"github.com/hermeznetwork/slotauction/common/apitypes"
	"github.com/hermeznetwork/slotauction/config"
	dbUtils "github.com/hermeznetwork/slotauction/db"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/slotauction/node"
	"github.com/hermeznetwork/tracerr"
	"github.com/jmoiron/sqlx"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

const (
	flagCfg    = "cfg"
	flagYes    = "yes"
	flagURL    = "url"
	flagSK     = "privatekey"
	flagMethod = "method"
	flagPath   = "path"
	flagBody   = "body"
)

func cmdWipeSQL(c *cli.Context) error {
	cfg, err := parseCli(c)
	if err != nil {
		return tracerr.Wrap(fmt.Errorf("error parsing flags and config: %w", err))
	}
	yes := c.Bool(flagYes)
	if !yes {
		fmt.Print("*WARNING* Are you sure you want to delete the SQL DB? [y/N]: ")
		var input string
		if _, err := fmt.Scanln(&input); err != nil {
			return tracerr.Wrap(err)
		}
		input = strings.ToLower(input)
		if !(input == "y" || input == "yes") {
			return nil
		}
	}
	db, err := connectSQLDB(&cfg.Database)
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer db.Close() //nolint:errcheck
	log.Info("Wiping SQL DB...")
	if err := dbUtils.MigrationsDown(db.DB, cfg.Database.Driver, 0); err != nil {
		return tracerr.Wrap(err)
	}
	return nil
}

func cmdMigrate(c *cli.Context) error {
	cfg, err := parseCli(c)
	if err != nil {
		return tracerr.Wrap(fmt.Errorf("error parsing flags and config: %w", err))
	}
	db, err := connectSQLDB(&cfg.Database)
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer db.Close() //nolint:errcheck
	log.Info("Running SQL migrations...")
	if err := dbUtils.MigrationsUp(db.DB, cfg.Database.Driver); err != nil {
		return tracerr.Wrap(err)
	}
	return nil
}

// connectSQLDB connects to the write database without running migrations
func connectSQLDB(cfg *config.Database) (*sqlx.DB, error) {
	switch cfg.Driver {
	case dbUtils.DialectSQLite:
		db, err := dbUtils.ConnectSQLite(cfg.SQLite.Path)
		return db, tracerr.Wrap(err)
	case dbUtils.DialectPostgres:
		db, err := dbUtils.ConnectSQLDB(
			cfg.PostgreSQL.PortWrite,
			cfg.PostgreSQL.HostWrite,
			cfg.PostgreSQL.UserWrite,
			cfg.PostgreSQL.PasswordWrite,
			cfg.PostgreSQL.NameWrite,
		)
		return db, tracerr.Wrap(err)
	default:
		return nil, tracerr.Wrap(fmt.Errorf("unsupported database driver %q", cfg.Driver))
	}
}

func cmdRun(c *cli.Context) error {
	cfg, err := parseCli(c)
	if err != nil {
		return tracerr.Wrap(fmt.Errorf("error parsing flags and config: %w", err))
	}
	log.Init(cfg.Log.Level, cfg.Log.Out)
	node, err := node.NewNode(cfg)
	if err != nil {
		return tracerr.Wrap(fmt.Errorf("error starting node: %w", err))
	}
	node.Start()

	stopCh := make(chan interface{})

	// catch ^C to send the stop signal
	ossig := make(chan os.Signal, 1)
	signal.Notify(ossig, os.Interrupt)
	go func() {
		for sig := range ossig {
			if sig == os.Interrupt {
				stopCh <- nil
			}
		}
	}()
	<-stopCh
	node.Stop()

	return nil
}

type apiError struct {
	Message string `json:"message"`
}

func apiGet(client *sling.Sling, path string, res interface{}) error {
	var failure apiError
	resp, err := client.New().Get(path).Receive(res, &failure)
	if err != nil {
		return tracerr.Wrap(err)
	}
	if resp.StatusCode != http.StatusOK {
		return tracerr.Wrap(fmt.Errorf("GET %v: status %v: %v", path, resp.StatusCode, failure.Message))
	}
	return nil
}

// cmdStatus prints the current round of a running node and its slots
func cmdStatus(c *cli.Context) error {
	httpClient := &http.Client{Timeout: 10 * time.Second} //nolint:gomnd
	client := sling.New().Base(strings.TrimSuffix(c.String(flagURL), "/") + "/").Client(httpClient)
	var status api.StatusAPI
	if err := apiGet(client, "v1/status", &status); err != nil {
		return tracerr.Wrap(err)
	}
	if status.Round == nil {
		fmt.Printf("Phase: %v\nPending next round pool: %v\n", status.Phase, status.Pools.PendingNext)
		return nil
	}
	round := status.Round
	fmt.Printf("Round %v: %v\n", round.ID, status.Phase)
	fmt.Printf("Prize pool: %v  Secondary pool: %v  Pending next: %v\n",
		round.PrizePool, round.SecondaryPool, status.Pools.PendingNext)
	if round.EndTime != 0 {
		fmt.Printf("Ends at: %v (%vs left)\n", time.Unix(round.EndTime, 0).UTC(), status.TimeLeft)
	}
	fmt.Printf("Players: %v  Bids: %v\n", status.Players, round.NumBids)
	fmt.Printf("Text: %q\n\n", status.Text)

	var slots api.SlotsAPI
	if err := apiGet(client, fmt.Sprintf("v1/rounds/%d/slots", round.ID), &slots); err != nil {
		return tracerr.Wrap(err)
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Slot", "Owner", "Word", "Highest")
	for _, slot := range slots.Slots {
		owner := "-"
		if slot.Owner != nil {
			owner = slot.Owner.Hex()
		}
		table.Append(
			strconv.Itoa(int(slot.SlotIdx)),
			owner,
			slot.Content,
			string(slot.HighestCumulative),
		)
	}
	table.Render()
	return nil
}

// cmdSign prints the headers that authenticate a write request to the API
func cmdSign(c *cli.Context) error {
	hexKey := strings.TrimPrefix(c.String(flagSK), "0x")
	sk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return tracerr.Wrap(err)
	}
	method := strings.ToUpper(c.String(flagMethod))
	timestamp := time.Now().Unix()
	sig, err := api.SignRequest(sk, method, c.String(flagPath), timestamp, []byte(c.String(flagBody)))
	if err != nil {
		return tracerr.Wrap(err)
	}
	fmt.Printf("%v: %v\n", api.HeaderSigner, crypto.PubkeyToAddress(sk.PublicKey).Hex())
	fmt.Printf("%v: %v\n", api.HeaderTimestamp, timestamp)
	fmt.Printf("%v: %v\n", api.HeaderSignature, *apitypes.NewEthSignature(sig))
	return nil
}

func parseCli(c *cli.Context) (*config.Node, error) {
	cfg, err := getConfig(c)
	if err != nil {
		if err := cli.ShowAppHelp(c); err != nil {
			panic(err)
		}
		return nil, tracerr.Wrap(err)
	}
	return cfg, nil
}

func getConfig(c *cli.Context) (*config.Node, error) {
	nodeCfgPath := c.String(flagCfg)
	if nodeCfgPath == "" {
		return nil, tracerr.Wrap(fmt.Errorf("required flag \"%v\" not set", flagCfg))
	}
	cfg, err := config.LoadNode(nodeCfgPath)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return cfg, nil
}

func main() {
	app := cli.NewApp()
	app.Name = "slotauction-node"
	app.Version = node.Version
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  flagCfg,
			Usage: "Node configuration `FILE`",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:    "wipesql",
			Aliases: []string{},
			Usage: "Wipe the SQL DB (rounds, bids, payouts and checkpoint), " +
				"leaving the DB in a clean state",
			Action: cmdWipeSQL,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:     flagYes,
					Usage:    "automatic yes to the prompt",
					Required: false,
				}},
		},
		{
			Name:    "migrate",
			Aliases: []string{},
			Usage:   "Run the pending SQL migrations",
			Action:  cmdMigrate,
		},
		{
			Name:    "run",
			Aliases: []string{},
			Usage:   "Run the slot auction node",
			Action:  cmdRun,
		},
		{
			Name:    "status",
			Aliases: []string{},
			Usage:   "Show the current round of a running node",
			Action:  cmdStatus,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  flagURL,
					Usage: "`URL` of the node API",
					Value: "http://localhost:8086",
				}},
		},
		{
			Name:    "sign",
			Aliases: []string{},
			Usage:   "Print the signature headers of a write request",
			Action:  cmdSign,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagSK,
					Usage:    "ethereum `PRIVATE_KEY` in hex",
					Required: true,
				},
				&cli.StringFlag{
					Name:  flagMethod,
					Usage: "HTTP `METHOD` of the request",
					Value: http.MethodPost,
				},
				&cli.StringFlag{
					Name:     flagPath,
					Usage:    "`PATH` of the request, such as /v1/rounds/current/bids",
					Required: true,
				},
				&cli.StringFlag{
					Name:  flagBody,
					Usage: "JSON `BODY` of the request, sent byte by byte as given",
					Value: "{}",
				}},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Printf("\nError: %v\n", tracerr.Sprint(err))
		os.Exit(1)
	}
}

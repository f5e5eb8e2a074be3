package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/joho/godotenv"
	"gopkg.in/go-playground/validator.v9"
)

// Duration is a wrapper type that parses time duration from text.
type Duration struct {
	time.Duration
}

// UnmarshalText unmarshalls time duration from text.
func (d *Duration) UnmarshalText(data []byte) error {
	duration, err := time.ParseDuration(string(data))
	if err != nil {
		return tracerr.Wrap(err)
	}
	d.Duration = duration
	return nil
}

// InSeconds returns the duration as whole seconds
func (d Duration) InSeconds() int64 {
	return int64(d.Duration / time.Second)
}

// Auction contains the initial auction variables.  They are only used when
// the node starts without a stored checkpoint: after that the variables are
// changed through the administration endpoints and restored from the
// checkpoint.
type Auction struct {
	// Owner is the address allowed to administer the auction
	Owner ethCommon.Address `validate:"required"`
	// Arbiter is the address allowed to resolve rounds
	Arbiter ethCommon.Address `validate:"required"`
	// MinBid is the minimum amount of a single bid
	MinBid *big.Int `validate:"required"`
	// MaxSlotsPerPlayer is the maximum number of slots a player can own at
	// the same time
	MaxSlotsPerPlayer uint8 `validate:"required,gte=1,lte=12"`
	// SplitRatio is the part of every bid, in basis points, that goes to
	// the current round.  The rest goes to the next one.
	SplitRatio uint16 `validate:"lte=10000"`
	// FeeRatio is the platform fee, in basis points, taken from the prize
	// pool at resolution
	FeeRatio uint16 `validate:"lte=10000"`
	// RoundDuration is the time a round stays active after its first bid
	RoundDuration Duration
	// AntiSnipeWindow is the time before the end of a round in which a bid
	// extends the round
	AntiSnipeWindow Duration
	// AntiSnipeExtension is the time a bid inside the anti-snipe window
	// adds to the end of the round
	AntiSnipeExtension Duration
	// EmergencyGrace is the time after the end of a round after which the
	// owner can run an emergency resolution
	EmergencyGrace Duration
	// AutoAdvanceThreshold is the minimum carried prize pool needed to
	// start the next round automatically after a resolution
	AutoAdvanceThreshold *big.Int `validate:"required"`
}

// Variables returns the auction variables described by the configuration
func (a *Auction) Variables() *common.AuctionVariables {
	return &common.AuctionVariables{
		Owner:                a.Owner,
		Arbiter:              a.Arbiter,
		MinBid:               common.CopyBigInt(a.MinBid),
		MaxSlotsPerPlayer:    a.MaxSlotsPerPlayer,
		SplitRatio:           a.SplitRatio,
		FeeRatio:             a.FeeRatio,
		RoundDuration:        a.RoundDuration.InSeconds(),
		AntiSnipeWindow:      a.AntiSnipeWindow.InSeconds(),
		AntiSnipeExtension:   a.AntiSnipeExtension.InSeconds(),
		EmergencyGrace:       a.EmergencyGrace.InSeconds(),
		AutoAdvanceThreshold: common.CopyBigInt(a.AutoAdvanceThreshold),
	}
}

// PostgreSQL is the postgreSQL configuration parameters.  It's possible to use
// differentiated SQL connections for read/write.  If the read configuration is
// not provided, the write one it's going to be used for both reads and writes
type PostgreSQL struct {
	// Port of the PostgreSQL write server
	PortWrite int `validate:"required"`
	// Host of the PostgreSQL write server
	HostWrite string `validate:"required"`
	// User of the PostgreSQL write server
	UserWrite string `validate:"required"`
	// Password of the PostgreSQL write server
	PasswordWrite string `validate:"required"`
	// Name of the PostgreSQL write server database
	NameWrite string `validate:"required"`
	// Port of the PostgreSQL read server
	PortRead int
	// Host of the PostgreSQL read server
	HostRead string
	// User of the PostgreSQL read server
	UserRead string
	// Password of the PostgreSQL read server
	PasswordRead string
	// Name of the PostgreSQL read server database
	NameRead string
}

// SQLite is the SQLite configuration parameters, used by single node
// deployments
type SQLite struct {
	// Path of the database file
	Path string `validate:"required"`
}

// Database selects the SQL backend
type Database struct {
	// Driver is either "postgres" or "sqlite3"
	Driver     string     `validate:"required,oneof=postgres sqlite3"`
	PostgreSQL PostgreSQL `validate:"-"`
	SQLite     SQLite     `validate:"-"`
}

// APIConfigParameters specifies the configuration parameters of the API
type APIConfigParameters struct {
	// Address where the API will listen if set
	Address string
	// Writes enables the signed write endpoints
	Writes bool
	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	ReadTimeout Duration
	// WriteTimeout is the maximum duration before timing out
	// writes of the response.
	WriteTimeout Duration
	// Maximum concurrent connections allowed between API and SQL
	MaxSQLConnections int `validate:"required,gte=1"`
	// SQLConnectionTimeout is the maximum amount of time that an API request
	// can wait to establish a SQL connection
	SQLConnectionTimeout Duration
	// SignatureMaxAge is the maximum age of the timestamp of a signed
	// request
	SignatureMaxAge Duration
}

// Ledger is the configuration of the value ledger client
type Ledger struct {
	// URL of the ledger service
	URL string `validate:"required,url"`
	// Account of the auction in the ledger
	Account ethCommon.Address `validate:"required"`
	// Timeout of every ledger request
	Timeout Duration
}

// Arbiter is the configuration of the arbiter client used by the keeper
type Arbiter struct {
	// URL of the arbiter service.  If empty the keeper never asks for
	// a decision.
	URL string `validate:"omitempty,url"`
	// Timeout of every arbiter request
	Timeout Duration
	// RateLimit is the maximum number of requests per second
	RateLimit float64 `validate:"gte=0"`
	// Burst is the maximum number of requests sent at once
	Burst int `validate:"gte=0"`
}

// Keeper is the configuration of the loop that drives round resolutions
type Keeper struct {
	// Interval between checks of the current round
	Interval Duration
	// PrivateKey of the node in hex.  The keeper acts as the address of
	// this key: it resolves rounds when it's the arbiter and runs
	// emergency resolutions when it's the owner.  If empty the keeper
	// only runs solo refunds.
	PrivateKey string `validate:"omitempty,hexadecimal"`
}

// NodeDebug specifies debug configuration parameters
type NodeDebug struct {
	// MeddlerLogs enables meddler debug mode, where unused columns and struct
	// fields will be logged
	MeddlerLogs bool
	// GinDebugMode sets Gin-Gonic (the web framework) to run in
	// debug mode
	GinDebugMode bool
}

// LogConf specifies the log configuration parameters
type LogConf struct {
	Level string
	Out   []string
}

// Node is the slot auction node configuration.
type Node struct {
	Log      LogConf             `validate:"-"`
	Auction  Auction             `validate:"required"`
	Database Database            `validate:"required"`
	API      APIConfigParameters `validate:"required"`
	Ledger   Ledger              `validate:"required"`
	Arbiter  Arbiter             `validate:"required"`
	Keeper   Keeper              `validate:"required"`
	Debug    NodeDebug           `validate:"required"`
}

// Load loads a generic config.  Variables of the form ${VAR} are expanded
// with the environment before decoding, after loading the .env file placed
// next to the configuration file if it exists.
func Load(path string, cfg interface{}) error {
	bs, err := ioutil.ReadFile(path) //nolint:gosec
	if err != nil {
		return tracerr.Wrap(err)
	}
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return tracerr.Wrap(fmt.Errorf("error loading %v: %w", envPath, err))
	}
	cfgToml := os.ExpandEnv(string(bs))
	if _, err := toml.Decode(cfgToml, cfg); err != nil {
		return tracerr.Wrap(err)
	}
	return nil
}

// LoadNode loads the Node configuration from path.
func LoadNode(path string) (*Node, error) {
	var cfg Node
	if _, err := toml.Decode(DefaultValues, &cfg); err != nil {
		return nil, tracerr.Wrap(fmt.Errorf("error decoding default values: %w", err))
	}
	if err := Load(path, &cfg); err != nil {
		return nil, tracerr.Wrap(fmt.Errorf("error loading node configuration file: %w", err))
	}
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, tracerr.Wrap(fmt.Errorf("error validating configuration file: %w", err))
	}
	switch cfg.Database.Driver {
	case "postgres":
		if err := validate.Struct(cfg.Database.PostgreSQL); err != nil {
			return nil, tracerr.Wrap(fmt.Errorf("error validating configuration file: %w", err))
		}
	case "sqlite3":
		if err := validate.Struct(cfg.Database.SQLite); err != nil {
			return nil, tracerr.Wrap(fmt.Errorf("error validating configuration file: %w", err))
		}
	}
	if err := cfg.Auction.Variables().Validate(); err != nil {
		return nil, tracerr.Wrap(fmt.Errorf("error validating auction variables: %w", err))
	}
	return &cfg, nil
}

package historydb

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/hermeznetwork/slotauction/auction"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/db"
	"github.com/hermeznetwork/tracerr"
	"github.com/jmoiron/sqlx"
	"github.com/russross/meddler"
)

// ErrNoCheckpoint is returned when the DB has no stored checkpoint
var ErrNoCheckpoint = errors.New("no checkpoint stored")

// HistoryDB persist the history of the auction: every round, bid, funding
// and payout, plus the latest checkpoint of the in-memory state.  The
// auction keeps only the current round in memory, so this is the only
// source for past rounds.
type HistoryDB struct {
	dbRead     *sqlx.DB
	dbWrite    *sqlx.DB
	apiConnCon *db.APIConnectionController
}

// NewHistoryDB initialize the DB
func NewHistoryDB(dbRead, dbWrite *sqlx.DB, apiConnCon *db.APIConnectionController) *HistoryDB {
	return &HistoryDB{dbRead: dbRead, dbWrite: dbWrite, apiConnCon: apiConnCon}
}

// DB returns a pointer to the HistoryDB.dbWrite. This method should be used
// only for internal testing purposes.
func (hdb *HistoryDB) DB() *sqlx.DB {
	return hdb.dbWrite
}

// UpsertRound inserts a round or updates it if it already exists
func (hdb *HistoryDB) UpsertRound(round *common.Round) error {
	return hdb.upsertRound(hdb.dbWrite, round)
}

func (hdb *HistoryDB) upsertRound(d sqlx.Ext, round *common.Round) error {
	values, err := meddler.Default.Values(round, true)
	if err != nil {
		return tracerr.Wrap(err)
	}
	_, err = d.Exec(d.Rebind(
		`INSERT INTO round (
			round_id,
			created_at,
			started_at,
			end_time,
			prize_pool,
			secondary_pool,
			num_bids,
			resolved,
			resolution,
			resolved_at,
			fee
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (round_id) DO UPDATE SET
			started_at = excluded.started_at,
			end_time = excluded.end_time,
			prize_pool = excluded.prize_pool,
			secondary_pool = excluded.secondary_pool,
			num_bids = excluded.num_bids,
			resolved = excluded.resolved,
			resolution = excluded.resolution,
			resolved_at = excluded.resolved_at,
			fee = excluded.fee;`,
	), values...)
	return tracerr.Wrap(err)
}

// GetRound retrieve a round from the DB, given its id
func (hdb *HistoryDB) GetRound(id common.RoundID) (*common.Round, error) {
	round := &common.Round{}
	err := meddler.QueryRow(
		hdb.dbRead, round,
		hdb.dbRead.Rebind("SELECT * FROM round WHERE round_id = ?;"), id,
	)
	return round, tracerr.Wrap(err)
}

// GetAllRounds retrieve all rounds from the DB
func (hdb *HistoryDB) GetAllRounds() ([]common.Round, error) {
	var rounds []*common.Round
	err := meddler.QueryAll(
		hdb.dbRead, &rounds,
		"SELECT * FROM round ORDER BY round_id;",
	)
	return db.SlicePtrsToSlice(rounds).([]common.Round), tracerr.Wrap(err)
}

// GetLastRound retrieve the round with the highest id from the DB
func (hdb *HistoryDB) GetLastRound() (*common.Round, error) {
	round := &common.Round{}
	err := meddler.QueryRow(
		hdb.dbRead, round, "SELECT * FROM round ORDER BY round_id DESC LIMIT 1;",
	)
	return round, tracerr.Wrap(err)
}

// AddBid insert a bid into the DB
func (hdb *HistoryDB) AddBid(bid *common.Bid) error { return hdb.addBid(hdb.dbWrite, bid) }
func (hdb *HistoryDB) addBid(d meddler.DB, bid *common.Bid) error {
	return tracerr.Wrap(meddler.Insert(d, "bid", bid))
}

// GetBids retrieve the bids of a round in placement order
func (hdb *HistoryDB) GetBids(roundID common.RoundID) ([]common.Bid, error) {
	var bids []*common.Bid
	err := meddler.QueryAll(
		hdb.dbRead, &bids,
		hdb.dbRead.Rebind("SELECT * FROM bid WHERE round_id = ? ORDER BY seq;"), roundID,
	)
	return db.SlicePtrsToSlice(bids).([]common.Bid), tracerr.Wrap(err)
}

// AddFunding insert a funding into the DB
func (hdb *HistoryDB) AddFunding(funding *common.Funding) error {
	return hdb.addFunding(hdb.dbWrite, funding)
}

func (hdb *HistoryDB) addFunding(d meddler.DB, funding *common.Funding) error {
	return tracerr.Wrap(meddler.Insert(d, "funding", funding))
}

// GetFundings retrieve the fundings of a round
func (hdb *HistoryDB) GetFundings(roundID common.RoundID) ([]common.Funding, error) {
	var fundings []*common.Funding
	err := meddler.QueryAll(
		hdb.dbRead, &fundings,
		hdb.dbRead.Rebind("SELECT * FROM funding WHERE round_id = ? ORDER BY timestamp, funding_id;"),
		roundID,
	)
	return db.SlicePtrsToSlice(fundings).([]common.Funding), tracerr.Wrap(err)
}

// AddPayouts inserts payouts into the DB
func (hdb *HistoryDB) AddPayouts(payouts []common.Payout) error {
	return hdb.addPayouts(hdb.dbWrite, payouts)
}

func (hdb *HistoryDB) addPayouts(d sqlx.Ext, payouts []common.Payout) error {
	return db.BulkInsert(
		d,
		`INSERT INTO payout (
			transfer_id,
			round_id,
			to_addr,
			currency,
			amount,
			kind,
			delivered,
			timestamp
		) VALUES %s;`,
		payouts[:],
	)
}

// GetPayouts retrieve the payouts of a round
func (hdb *HistoryDB) GetPayouts(roundID common.RoundID) ([]common.Payout, error) {
	var payouts []*common.Payout
	err := meddler.QueryAll(
		hdb.dbRead, &payouts,
		hdb.dbRead.Rebind("SELECT * FROM payout WHERE round_id = ? ORDER BY timestamp, transfer_id;"),
		roundID,
	)
	return db.SlicePtrsToSlice(payouts).([]common.Payout), tracerr.Wrap(err)
}

// AddBidWithRound stores a bid together with the updated state of its round
func (hdb *HistoryDB) AddBidWithRound(round *common.Round, bid *common.Bid) (err error) {
	txn, err := hdb.dbWrite.Beginx()
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer func() {
		if err != nil {
			db.Rollback(txn)
		}
	}()
	if err = hdb.upsertRound(txn, round); err != nil {
		return tracerr.Wrap(err)
	}
	if err = hdb.addBid(txn, bid); err != nil {
		return tracerr.Wrap(err)
	}
	return tracerr.Wrap(txn.Commit())
}

// AddFundingWithRound stores a funding together with the updated state of
// its round
func (hdb *HistoryDB) AddFundingWithRound(round *common.Round, funding *common.Funding) (err error) {
	txn, err := hdb.dbWrite.Beginx()
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer func() {
		if err != nil {
			db.Rollback(txn)
		}
	}()
	if err = hdb.upsertRound(txn, round); err != nil {
		return tracerr.Wrap(err)
	}
	if err = hdb.addFunding(txn, funding); err != nil {
		return tracerr.Wrap(err)
	}
	return tracerr.Wrap(txn.Commit())
}

// AddResolution stores a resolved round and its payouts
func (hdb *HistoryDB) AddResolution(round *common.Round, payouts []common.Payout) (err error) {
	txn, err := hdb.dbWrite.Beginx()
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer func() {
		if err != nil {
			db.Rollback(txn)
		}
	}()
	if err = hdb.upsertRound(txn, round); err != nil {
		return tracerr.Wrap(err)
	}
	if err = hdb.addPayouts(txn, payouts); err != nil {
		return tracerr.Wrap(err)
	}
	return tracerr.Wrap(txn.Commit())
}

// SetCheckpoint stores the checkpoint, replacing the previous one
func (hdb *HistoryDB) SetCheckpoint(cp *auction.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return tracerr.Wrap(err)
	}
	_, err = hdb.dbWrite.Exec(hdb.dbWrite.Rebind(
		`INSERT INTO checkpoint (item_id, data, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (item_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at;`,
	), string(data), cp.Timestamp)
	return tracerr.Wrap(err)
}

// GetCheckpoint returns the stored checkpoint, or ErrNoCheckpoint if there
// is none
func (hdb *HistoryDB) GetCheckpoint() (*auction.Checkpoint, error) {
	var data string
	err := hdb.dbRead.Get(&data, "SELECT data FROM checkpoint WHERE item_id = 1;")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracerr.Wrap(ErrNoCheckpoint)
	} else if err != nil {
		return nil, tracerr.Wrap(err)
	}
	var cp auction.Checkpoint
	if err := json.Unmarshal([]byte(data), &cp); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &cp, nil
}

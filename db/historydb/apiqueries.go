package historydb

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/db"
	"github.com/hermeznetwork/tracerr"
	"github.com/russross/meddler"
)

// GetRoundAPI returns a round from the DB given its id
func (hdb *HistoryDB) GetRoundAPI(id common.RoundID) (*RoundAPI, error) {
	cancel, err := hdb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	defer hdb.apiConnCon.Release()
	round := &RoundAPI{}
	err = meddler.QueryRow(
		hdb.dbRead, round,
		hdb.dbRead.Rebind(`SELECT round.*, 1 AS total_items FROM round WHERE round_id = ?;`), id,
	)
	return round, tracerr.Wrap(err)
}

// GetRoundsAPIRequest is an API request struct for getting rounds
type GetRoundsAPIRequest struct {
	Resolved *bool

	FromItem *uint
	Limit    *uint
	Order    string
}

// GetRoundsAPI return the rounds applying the given filters.  The second
// value returned is the number of items left after this page.
func (hdb *HistoryDB) GetRoundsAPI(request GetRoundsAPIRequest) ([]RoundAPI, uint64, error) {
	cancel, err := hdb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	defer hdb.apiConnCon.Release()
	var args []interface{}
	queryStr := `SELECT round.*, COUNT(*) OVER() AS total_items FROM round `
	// Apply filters
	nextIsAnd := false
	if request.Resolved != nil {
		queryStr += "WHERE round.resolved = ? "
		args = append(args, *request.Resolved)
		nextIsAnd = true
	}
	if request.FromItem != nil {
		if nextIsAnd {
			queryStr += "AND "
		} else {
			queryStr += "WHERE "
		}
		if request.Order == db.OrderAsc {
			queryStr += "round.round_id >= ? "
		} else {
			queryStr += "round.round_id <= ? "
		}
		args = append(args, *request.FromItem)
	}
	// pagination
	queryStr += "ORDER BY round.round_id "
	if request.Order == db.OrderAsc {
		queryStr += "ASC "
	} else {
		queryStr += "DESC "
	}
	queryStr += fmt.Sprintf("LIMIT %d;", *request.Limit)
	rounds := []*RoundAPI{}
	if err := meddler.QueryAll(hdb.dbRead, &rounds, hdb.dbRead.Rebind(queryStr), args...); err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	if len(rounds) == 0 {
		return []RoundAPI{}, 0, nil
	}
	return db.SlicePtrsToSlice(rounds).([]RoundAPI), rounds[0].TotalItems - uint64(len(rounds)), nil
}

// GetBidsAPIRequest is an API request struct for getting the bids of a round
type GetBidsAPIRequest struct {
	RoundID common.RoundID
	SlotIdx *common.SlotIdx
	Bidder  *ethCommon.Address

	FromItem *uint
	Limit    *uint
	Order    string
}

// GetBidsAPI return the bids of a round applying the given filters.  Items
// are identified by their sequence number inside the round.
func (hdb *HistoryDB) GetBidsAPI(request GetBidsAPIRequest) ([]BidAPI, uint64, error) {
	cancel, err := hdb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	defer hdb.apiConnCon.Release()
	queryStr := `SELECT bid.*, COUNT(*) OVER() AS total_items FROM bid WHERE bid.round_id = ? `
	args := []interface{}{request.RoundID}
	// Apply filters
	if request.SlotIdx != nil {
		queryStr += "AND bid.slot_idx = ? "
		args = append(args, *request.SlotIdx)
	}
	if request.Bidder != nil {
		queryStr += "AND bid.bidder = ? "
		args = append(args, *request.Bidder)
	}
	if request.FromItem != nil {
		if request.Order == db.OrderAsc {
			queryStr += "AND bid.seq >= ? "
		} else {
			queryStr += "AND bid.seq <= ? "
		}
		args = append(args, *request.FromItem)
	}
	// pagination
	queryStr += "ORDER BY bid.seq "
	if request.Order == db.OrderAsc {
		queryStr += "ASC "
	} else {
		queryStr += "DESC "
	}
	queryStr += fmt.Sprintf("LIMIT %d;", *request.Limit)
	bids := []*BidAPI{}
	if err := meddler.QueryAll(hdb.dbRead, &bids, hdb.dbRead.Rebind(queryStr), args...); err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	if len(bids) == 0 {
		return []BidAPI{}, 0, nil
	}
	return db.SlicePtrsToSlice(bids).([]BidAPI), bids[0].TotalItems - uint64(len(bids)), nil
}

// GetPayoutsAPIRequest is an API request struct for getting payouts
type GetPayoutsAPIRequest struct {
	RoundID *common.RoundID
	To      *ethCommon.Address
	Kind    *common.PayoutKind

	Limit *uint
	Order string
}

// GetPayoutsAPI return the payouts applying the given filters, ordered by
// timestamp
func (hdb *HistoryDB) GetPayoutsAPI(request GetPayoutsAPIRequest) ([]PayoutAPI, uint64, error) {
	cancel, err := hdb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	defer hdb.apiConnCon.Release()
	var args []interface{}
	queryStr := `SELECT payout.*, COUNT(*) OVER() AS total_items FROM payout `
	// Apply filters
	nextIsAnd := false
	addFilter := func(filter string, arg interface{}) {
		if nextIsAnd {
			queryStr += "AND "
		} else {
			queryStr += "WHERE "
		}
		queryStr += filter
		args = append(args, arg)
		nextIsAnd = true
	}
	if request.RoundID != nil {
		addFilter("payout.round_id = ? ", *request.RoundID)
	}
	if request.To != nil {
		addFilter("payout.to_addr = ? ", *request.To)
	}
	if request.Kind != nil {
		addFilter("payout.kind = ? ", string(*request.Kind))
	}
	// pagination
	if request.Order == db.OrderAsc {
		queryStr += "ORDER BY payout.timestamp ASC, payout.transfer_id ASC "
	} else {
		queryStr += "ORDER BY payout.timestamp DESC, payout.transfer_id DESC "
	}
	queryStr += fmt.Sprintf("LIMIT %d;", *request.Limit)
	payouts := []*PayoutAPI{}
	if err := meddler.QueryAll(hdb.dbRead, &payouts, hdb.dbRead.Rebind(queryStr), args...); err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	if len(payouts) == 0 {
		return []PayoutAPI{}, 0, nil
	}
	return db.SlicePtrsToSlice(payouts).([]PayoutAPI), payouts[0].TotalItems - uint64(len(payouts)), nil
}

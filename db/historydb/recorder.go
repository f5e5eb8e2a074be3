package historydb

import (
	"github.com/hermeznetwork/slotauction/auction"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricRecordErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "historydb_record_errors",
			Help: "Number of auction events that could not be stored",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(metricRecordErrors)
}

// Recorder stores every auction event in the HistoryDB.  It implements
// auction.Listener.  Errors can't be propagated to the auction, which has
// already committed the change, so they are logged and counted.
type Recorder struct {
	hdb *HistoryDB
}

// NewRecorder creates a Recorder that writes into hdb
func NewRecorder(hdb *HistoryDB) *Recorder {
	return &Recorder{hdb: hdb}
}

func (r *Recorder) fail(event string, err error, keysAndValues ...interface{}) {
	metricRecordErrors.WithLabelValues(event).Inc()
	log.Errorw("HistoryDB: "+event, append([]interface{}{"err", err}, keysAndValues...)...)
}

// RoundCreated implements auction.Listener
func (r *Recorder) RoundCreated(round common.Round) {
	if err := r.hdb.UpsertRound(&round); err != nil {
		r.fail("UpsertRound", err, "round", round.ID)
	}
}

// RoundFunded implements auction.Listener
func (r *Recorder) RoundFunded(round common.Round, funding common.Funding) {
	if err := r.hdb.AddFundingWithRound(&round, &funding); err != nil {
		r.fail("AddFundingWithRound", err, "round", round.ID)
	}
}

// BidPlaced implements auction.Listener
func (r *Recorder) BidPlaced(round common.Round, bid common.Bid) {
	if err := r.hdb.AddBidWithRound(&round, &bid); err != nil {
		r.fail("AddBidWithRound", err, "round", round.ID, "seq", bid.Seq)
	}
}

// RoundResolved implements auction.Listener
func (r *Recorder) RoundResolved(round common.Round, payouts []common.Payout) {
	if err := r.hdb.AddResolution(&round, payouts); err != nil {
		r.fail("AddResolution", err, "round", round.ID)
	}
}

// PayoutProcessed implements auction.Listener
func (r *Recorder) PayoutProcessed(payout common.Payout) {
	if err := r.hdb.AddPayouts([]common.Payout{payout}); err != nil {
		r.fail("AddPayouts", err, "transferID", payout.TransferID)
	}
}

// Checkpoint implements auction.Listener
func (r *Recorder) Checkpoint(cp *auction.Checkpoint) {
	if err := r.hdb.SetCheckpoint(cp); err != nil {
		r.fail("SetCheckpoint", err, "lastRoundID", cp.LastRoundID)
	}
}

/*
Package keeper drives the resolution of ended rounds.  The auction has no
internal timers: a round ends lazily when its end time passes, and stays
ended until someone resolves it.  The keeper checks the current round
periodically and, depending on the number of players and the identity of the
node, runs the resolution path that applies:

  - fewer than two players: solo refund, which anyone can run
  - the node is the arbiter: the round report is sent to the arbiter service
    and its decision is submitted
  - the node is the owner and the emergency grace period has elapsed:
    emergency proportional resolution
*/
package keeper

import (
	"context"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/arbiter"
	"github.com/hermeznetwork/slotauction/auction"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/slotauction/metric"
	"github.com/hermeznetwork/tracerr"
)

// Config is the keeper configuration
type Config struct {
	// Interval between checks of the current round
	Interval time.Duration
	// Addr is the identity of the node.  The zero address means the node
	// is neither the arbiter nor the owner.
	Addr ethCommon.Address
}

// Keeper resolves ended rounds
type Keeper struct {
	cfg     Config
	auction *auction.Auction
	arbiter arbiter.Client
}

// NewKeeper creates a Keeper.  arbiterClient can be nil, in which case the
// arbiter is never consulted.
func NewKeeper(cfg Config, a *auction.Auction, arbiterClient arbiter.Client) *Keeper {
	return &Keeper{
		cfg:     cfg,
		auction: a,
		arbiter: arbiterClient,
	}
}

// Step checks the current round once and resolves it if possible.  It
// returns nil, nil when there was nothing to do.
func (k *Keeper) Step(ctx context.Context) (*auction.Resolution, error) {
	start := time.Now()
	status := k.auction.Status()
	if status.Phase != common.RoundPhaseEnded {
		metric.KeeperSteps.WithLabelValues("idle").Inc()
		return nil, nil
	}
	round := status.Round
	if status.Players < 2 { //nolint:gomnd
		res, err := k.auction.SoloRefund(ctx)
		return k.done(start, "soloRefund", res, err)
	}
	vars := k.auction.Variables()
	if k.cfg.Addr != common.EmptyAddr && k.cfg.Addr == vars.Arbiter && k.arbiter != nil {
		report, err := k.auction.Report(round.ID)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		allocation, err := k.arbiter.Decide(ctx, report)
		if err == nil {
			res, err := k.auction.ResolveByArbiter(ctx, k.cfg.Addr, allocation)
			return k.done(start, "arbiter", res, err)
		} else if tracerr.Unwrap(err) != arbiter.ErrNoDecision {
			metric.KeeperSteps.WithLabelValues("error").Inc()
			log.Errorw("Keeper: arbiter.Decide", "round", round.ID, "err", err)
		}
	}
	if k.cfg.Addr != common.EmptyAddr && k.cfg.Addr == vars.Owner &&
		status.Now >= round.EndTime+vars.EmergencyGrace {
		res, err := k.auction.EmergencyResolve(ctx, k.cfg.Addr)
		return k.done(start, "emergency", res, err)
	}
	metric.KeeperSteps.WithLabelValues("waiting").Inc()
	return nil, nil
}

func (k *Keeper) done(start time.Time, outcome string, res *auction.Resolution,
	err error) (*auction.Resolution, error) {
	if err != nil {
		metric.KeeperSteps.WithLabelValues("error").Inc()
		return nil, tracerr.Wrap(err)
	}
	metric.KeeperSteps.WithLabelValues(outcome).Inc()
	metric.MeasureDuration(metric.KeeperStepDuration, start, outcome)
	metric.LastResolvedRound.Set(float64(res.Round.ID))
	log.Infow("Keeper: round resolved", "round", res.Round.ID, "resolution", outcome,
		"payouts", len(res.Payouts))
	return res, nil
}

// Run calls Step every interval until ctx is done
func (k *Keeper) Run(ctx context.Context) {
	waitDuration := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			log.Info("Keeper done")
			return
		case <-time.After(waitDuration):
			res, err := k.Step(ctx)
			if err != nil {
				log.Errorw("Keeper.Step", "err", err)
			}
			if res != nil && res.Next == nil {
				log.Infow("Keeper: no round in progress, waiting for a new round",
					"lastRound", res.Round.ID)
			}
			waitDuration = k.cfg.Interval
		}
	}
}

package auction

import "github.com/prometheus/client_golang/prometheus"

var (
	metricBids = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_bids",
			Help: "",
		},
	)
	metricBidsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_bids_rejected",
			Help: "",
		}, []string{"reason"},
	)
	metricRounds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_rounds_created",
			Help: "",
		},
	)
	metricResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_rounds_resolved",
			Help: "",
		}, []string{"resolution"},
	)
	metricPayouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_payouts_delivered",
			Help: "",
		}, []string{"kind"},
	)
	metricPayoutsParked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_payouts_parked",
			Help: "",
		},
	)
	metricPrizePool = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "auction_current_prize_pool",
			Help: "",
		},
	)
	metricPendingNext = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "auction_pending_next",
			Help: "",
		},
	)
	metricAccumulatedFee = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "auction_accumulated_fee",
			Help: "",
		},
	)
)

func init() {
	prometheus.MustRegister(metricBids)
	prometheus.MustRegister(metricBidsRejected)
	prometheus.MustRegister(metricRounds)
	prometheus.MustRegister(metricResolutions)
	prometheus.MustRegister(metricPayouts)
	prometheus.MustRegister(metricPayoutsParked)
	prometheus.MustRegister(metricPrizePool)
	prometheus.MustRegister(metricPendingNext)
	prometheus.MustRegister(metricAccumulatedFee)
}

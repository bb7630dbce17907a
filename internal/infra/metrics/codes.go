package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		codesIssuedTotal,
		codeRedemptionsTotal,
	)
}

var (
	codesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_codes_issued_total",
			Help: "Total number of unit access codes issued.",
		},
	)

	codeRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_code_redemptions_total",
			Help: "Redemption attempts by outcome.",
		},
		[]string{"outcome"}, // 'granted', 'not_found', 'already_used', 'code_expired', 'window_expired', 'mismatch', 'unit_missing', 'store_error'
	)
)

func AddCodesIssued(count int) {
	codesIssuedTotal.Add(float64(count))
}

func IncRedemption(outcome string) {
	codeRedemptionsTotal.WithLabelValues(outcome).Inc()
}

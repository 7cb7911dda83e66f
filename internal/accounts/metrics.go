package accounts

import (
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var accountOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "account_operations_total",
		Help: "Account operations by outcome",
	},
	[]string{"op", "outcome"},
)

func observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	accountOperations.WithLabelValues(op, outcome).Inc()
}

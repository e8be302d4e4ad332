package ledgerservice

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

const (
	opOpen     = "open"
	opDeposit  = "deposit"
	opWithdraw = "withdraw"
	opTransfer = "transfer"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by result",
		},
		[]string{"operation", "result"},
	)
	conflictRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "conflict_retries_total",
			Help:      "Total number of ledger operations retried after a concurrency conflict",
		},
	)
)

func observe(op string, err error) {
	result := "success"
	if err != nil {
		result = strings.ToLower(string(errorspkg.KindOf(err)))
	}

	operationsTotal.WithLabelValues(op, result).Inc()
}

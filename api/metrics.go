package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// METRICS - Operation counters exposed under /metrics
// =============================================================================

var walletOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wallet_operations_total",
	Help: "Wallet operations by type and outcome.",
}, []string{"operation", "outcome"})

const (
	outcomeOK                = "ok"
	outcomeDuplicate         = "duplicate"
	outcomeInsufficientFunds = "insufficient_funds"
	outcomeInvalid           = "invalid"
	outcomeError             = "error"
)

func countOp(operation, outcome string) {
	walletOps.WithLabelValues(operation, outcome).Inc()
}

package ingredients

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Apply attempt outcomes
const (
	outcomeApplied  = "applied"
	outcomeNoop     = "noop"
	outcomeConflict = "conflict"
	outcomeFailed   = "failed"
)

var (
	plansComputed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "recipebook",
		Subsystem: "ingredients",
		Name:      "plans_computed_total",
		Help:      "Reconciliation plans computed, including retries and previews.",
	})

	planOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recipebook",
		Subsystem: "ingredients",
		Name:      "plan_operations_total",
		Help:      "Operations in applied plans, by kind.",
	}, []string{"kind"})

	applyAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recipebook",
		Subsystem: "ingredients",
		Name:      "apply_attempts_total",
		Help:      "Plan apply attempts, by outcome.",
	}, []string{"outcome"})

	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recipebook",
		Subsystem: "ingredients",
		Name:      "validation_failures_total",
		Help:      "Rejected submissions, by failure kind.",
	}, []string{"kind"})
)

// validationKind names a ValidationError kind for the kind label.
func validationKind(kind error) string {
	switch kind {
	case ErrInvalidRowID:
		return "invalid_row_id"
	case ErrInvalidReference:
		return "invalid_reference"
	case ErrInvalidQuantity:
		return "invalid_quantity"
	case ErrInvalidUnit:
		return "invalid_unit"
	}
	return "unknown"
}

func recordApplied(plan Plan) {
	applyAttempts.WithLabelValues(outcomeApplied).Inc()
	planOperations.WithLabelValues("delete").Add(float64(len(plan.Deletions)))
	planOperations.WithLabelValues("update").Add(float64(len(plan.Updates)))
	planOperations.WithLabelValues("create").Add(float64(len(plan.Creations)))
}

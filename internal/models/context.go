package models

import (
	"context"
)

type reconcileRunKey struct{}

// ReconcileRun carries the identity of a reconciliation pass through context
// so correction journals can tag every fix with the run that produced it.
type ReconcileRun struct {
	RunId       string
	TriggeredBy string // "cli", "http", ...
}

// WithReconcileRun attaches run data to a context.
func WithReconcileRun(ctx context.Context, run *ReconcileRun) context.Context {
	return context.WithValue(ctx, reconcileRunKey{}, run)
}

// GetReconcileRun returns the run attached to ctx, or nil.
func GetReconcileRun(ctx context.Context) *ReconcileRun {
	run, _ := ctx.Value(reconcileRunKey{}).(*ReconcileRun)
	return run
}

package checkout

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Runtime is the host surface the reconciler talks to.
type Runtime interface {
	Permissions() PermissionState
	ApplyDiscountCodeChange(ctx context.Context, change DiscountCodeChange) error
}

// BatchResult summarizes one reconciliation pass.
type BatchResult struct {
	Attempted int
	Removed   int
	Failed    int
	// Skipped is set when the host did not allow discount updates.
	Skipped bool
}

// Reconciler removes applied discount codes while Sale Mode is on.
type Reconciler struct {
	runtime Runtime
	metrics *Metrics
	log     zerolog.Logger
}

func NewReconciler(rt Runtime, m *Metrics, log zerolog.Logger) *Reconciler {
	return &Reconciler{runtime: rt, metrics: m, log: log}
}

// Reconcile requests removal of every entry, in order, one attempt each. A
// failed removal is logged and does not stop the rest of the batch. Nothing
// happens when Sale Mode is off or the list is empty.
func (r *Reconciler) Reconcile(ctx context.Context, cfg SaleModeConfig, entries []DiscountEntry) BatchResult {
	var res BatchResult
	if !cfg.Enabled || len(entries) == 0 {
		return res
	}

	if !r.runtime.Permissions().CanUpdateDiscountCodes {
		r.log.Info().Int("codes", len(entries)).Msg("Cannot update discount codes - instructions do not allow it")
		r.metrics.skippedBatch()
		res.Skipped = true
		return res
	}

	for _, e := range entries {
		res.Attempted++
		if err := r.apply(ctx, e.Code); err != nil {
			res.Failed++
			r.metrics.failed()
			r.log.Warn().Err(err).Str("code", e.Code).Msg("Failed to remove discount code")
			continue
		}
		res.Removed++
		r.metrics.removed()
		r.log.Info().Str("code", e.Code).Msg("Removed discount code")
	}
	return res
}

func (r *Reconciler) apply(ctx context.Context, code string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic removing %q: %v", code, p)
		}
	}()
	return r.runtime.ApplyDiscountCodeChange(ctx, RemoveCode(code))
}

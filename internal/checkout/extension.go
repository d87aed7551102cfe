package checkout

import (
	"context"

	"github.com/rs/zerolog"
)

// Options wires an Extension.
type Options struct {
	Runtime   Runtime
	Presenter Presenter
	Metrics   *Metrics
	Logger    zerolog.Logger

	// Settings and Discounts carry host change events. Either may be nil.
	Settings  <-chan SaleModeConfig
	Discounts <-chan []DiscountEntry
}

// Extension is the single-goroutine event loop tying settings and the
// applied-code list to the reconciler and the banner. Events are handled
// one at a time and each removal batch runs to completion before the next
// event is read.
type Extension struct {
	presenter  Presenter
	reconciler *Reconciler
	log        zerolog.Logger

	settings  <-chan SaleModeConfig
	discounts <-chan []DiscountEntry

	cfg     SaleModeConfig
	entries []DiscountEntry
	view    BannerView
}

func NewExtension(opts Options) *Extension {
	return &Extension{
		presenter:  opts.Presenter,
		reconciler: NewReconciler(opts.Runtime, opts.Metrics, opts.Logger),
		log:        opts.Logger,
		settings:   opts.Settings,
		discounts:  opts.Discounts,
	}
}

// Config returns the settings currently applied.
func (e *Extension) Config() SaleModeConfig { return e.cfg }

// View returns the banner currently presented.
func (e *Extension) View() BannerView { return e.view }

// Load applies the initial settings and code list.
func (e *Extension) Load(ctx context.Context, cfg SaleModeConfig, entries []DiscountEntry) BatchResult {
	e.cfg = cfg
	e.entries = entries
	e.present()
	e.log.Info().Bool("saleEnabled", cfg.Enabled).Msg("Extension rendered")
	return e.reconciler.Reconcile(ctx, e.cfg, e.entries)
}

// HandleSettings applies a settings change: the banner is re-evaluated and,
// while Sale Mode is on, the current code list is reconciled again.
func (e *Extension) HandleSettings(ctx context.Context, cfg SaleModeConfig) BatchResult {
	was := e.cfg.Enabled
	e.cfg = cfg
	e.present()
	e.log.Info().Bool("saleEnabled", cfg.Enabled).Bool("wasEnabled", was).Msg("Settings updated")
	return e.reconciler.Reconcile(ctx, e.cfg, e.entries)
}

// HandleDiscounts applies a new code list.
func (e *Extension) HandleDiscounts(ctx context.Context, entries []DiscountEntry) BatchResult {
	e.entries = entries
	return e.reconciler.Reconcile(ctx, e.cfg, e.entries)
}

func (e *Extension) present() {
	e.view = ViewFor(e.cfg)
	if e.presenter == nil {
		return
	}
	if err := e.presenter.Present(e.view); err != nil {
		e.log.Warn().Err(err).Str("state", e.view.State.String()).Msg("Banner render failed")
	}
}

// Run consumes events until ctx is done or both channels are closed.
func (e *Extension) Run(ctx context.Context) error {
	settings, discounts := e.settings, e.discounts
	for settings != nil || discounts != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cfg, ok := <-settings:
			if !ok {
				settings = nil
				continue
			}
			e.HandleSettings(ctx, cfg)
		case entries, ok := <-discounts:
			if !ok {
				discounts = nil
				continue
			}
			e.HandleDiscounts(ctx, entries)
		}
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"salelock/internal/checkout"
	"salelock/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// consoleRuntime prints every change request instead of sending it to a
// checkout.
type consoleRuntime struct {
	out          io.Writer
	instructions checkout.Instructions
	reject       map[string]bool
	applied      []string
}

func (r *consoleRuntime) Permissions() checkout.PermissionState {
	return r.instructions.Permissions()
}

func (r *consoleRuntime) ApplyDiscountCodeChange(ctx context.Context, change checkout.DiscountCodeChange) error {
	b, _ := json.Marshal(change)
	if r.reject[change.Code] {
		fmt.Fprintf(r.out, "applyDiscountCodeChange %s -> rejected\n", b)
		return fmt.Errorf("code %s could not be removed", change.Code)
	}
	fmt.Fprintf(r.out, "applyDiscountCodeChange %s -> success\n", b)
	r.applied = append(r.applied, change.Code)
	return nil
}

type simulateOptions struct {
	codes        []string
	reject       []string
	enabled      bool
	message      string
	instructions string
	presenter    string
	disableAfter bool
}

func simulateCmd() *cobra.Command {
	var o simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the checkout extension against a console runtime",
		Long: `Feed settings and applied discount codes to the checkout extension and
print the removal requests and banner it produces.

Examples:
  salelock-dev simulate --codes SUMMER10,VIP5
  salelock-dev simulate --codes SUMMER10 --reject SUMMER10 --presenter component
  salelock-dev simulate --codes SUMMER10 --instructions '{"discounts":{"canUpdateDiscountCodes":false}}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return simulate(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&o.codes, "codes", nil, "applied discount codes")
	f.StringSliceVar(&o.reject, "reject", nil, "codes the runtime refuses to remove")
	f.BoolVar(&o.enabled, "enabled", true, "sale_mode_enabled setting")
	f.StringVar(&o.message, "message", "", "sale_message setting (empty uses the default)")
	f.StringVar(&o.instructions, "instructions", `{"discounts":{"canUpdateDiscountCodes":true}}`, "host instructions JSON")
	f.StringVar(&o.presenter, "presenter", "dom", "banner presenter: dom or component")
	f.BoolVar(&o.disableAfter, "disable-after", false, "turn Sale Mode off after the codes are processed")
	return cmd
}

func simulate(ctx context.Context, out io.Writer, o simulateOptions) error {
	rt := &consoleRuntime{out: out, reject: map[string]bool{}}
	if err := json.Unmarshal([]byte(o.instructions), &rt.instructions); err != nil {
		return fmt.Errorf("parse --instructions: %w", err)
	}
	for _, c := range o.reject {
		rt.reject[strings.TrimSpace(c)] = true
	}

	var presenter checkout.Presenter
	var describe func() string
	switch o.presenter {
	case "dom":
		p := checkout.NewDOMPresenter(nil)
		presenter = p
		describe = func() string { return p.Root.TextContent() }
	case "component":
		p := &checkout.ComponentPresenter{}
		presenter = p
		describe = func() string {
			b, _ := json.Marshal(p.Last())
			return string(b)
		}
	default:
		return fmt.Errorf("unknown presenter %q (want dom or component)", o.presenter)
	}

	reg := prometheus.NewRegistry()
	settings := make(chan checkout.SaleModeConfig)
	discounts := make(chan []checkout.DiscountEntry)

	ext := checkout.NewExtension(checkout.Options{
		Runtime:   rt,
		Presenter: presenter,
		Metrics:   checkout.NewMetrics(reg),
		Logger:    logging.Logger(),
		Settings:  settings,
		Discounts: discounts,
	})

	entries := make([]checkout.DiscountEntry, 0, len(o.codes))
	for _, c := range o.codes {
		if c = strings.TrimSpace(c); c != "" {
			entries = append(entries, checkout.DiscountEntry{Code: c})
		}
	}

	// Unbuffered sends keep the events in order: settings first, as on the
	// first render, then the code list.
	go func() {
		defer close(settings)
		defer close(discounts)
		send(ctx, settings, checkout.DecodeSettings(map[string]any{
			checkout.SettingSaleModeEnabled: o.enabled,
			checkout.SettingSaleMessage:     o.message,
		}))
		send(ctx, discounts, entries)
		if o.disableAfter {
			send(ctx, settings, checkout.SaleModeConfig{Enabled: false, Message: o.message})
		}
	}()

	if err := ext.Run(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "banner: %s\n", ext.View().State)
	if text := describe(); text != "" && text != "null" {
		fmt.Fprintf(out, "rendered: %s\n", text)
	}
	fmt.Fprintf(out, "removed: %s\n", strings.Join(rt.applied, ","))
	return printCounters(out, reg)
}

func send[T any](ctx context.Context, ch chan<- T, v T) {
	select {
	case ch <- v:
	case <-ctx.Done():
	}
}

func printCounters(out io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
	return nil
}

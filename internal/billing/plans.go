package billing

import "sort"

// Interval values accepted by appSubscriptionCreate.
const (
	IntervalEvery30Days = "EVERY_30_DAYS"
	IntervalAnnual      = "ANNUAL"
)

// Plan is one entry of the fixed plan table.
type Plan struct {
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currencyCode"`
	Interval     string  `json:"interval"`
	TrialDays    int     `json:"trialDays"`
}

// Predefined billing plans.
var (
	PlanBasic = Plan{
		Name:         "Basic Plan",
		Amount:       2.99,
		CurrencyCode: "USD",
		Interval:     IntervalEvery30Days,
		TrialDays:    14,
	}

	PlanPro = Plan{
		Name:         "Pro Plan",
		Amount:       4.99,
		CurrencyCode: "USD",
		Interval:     IntervalEvery30Days,
		TrialDays:    14,
	}
)

// Plans maps plan names to plans.
type Plans map[string]Plan

// DefaultPlans is the plan table the app ships with.
func DefaultPlans() Plans {
	return Plans{
		PlanBasic.Name: PlanBasic,
		PlanPro.Name:   PlanPro,
	}
}

// Lookup finds a plan by exact name.
func (p Plans) Lookup(name string) (Plan, bool) {
	plan, ok := p[name]
	return plan, ok
}

// Names returns plan names in a stable order.
func (p Plans) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

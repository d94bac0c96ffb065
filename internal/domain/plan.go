package domain

import "github.com/shopspring/decimal"

// Plan is a purchase tier: a name, its price, and the access duration a
// license for it grants.
type Plan struct {
	Name         string
	Price        decimal.Decimal
	DurationDays int
}

// PlanTable is the static price table configured at startup, together with
// the tolerance used for every amount comparison in the system. Amounts are
// never compared exactly: payments routinely arrive a cent or two off due to
// exchange-side rounding.
type PlanTable struct {
	Plans   []Plan
	Epsilon decimal.Decimal
}

// Resolve returns the plan whose price is within Epsilon of amount, or
// false if no tier matches. Plans are checked in configured order, so
// overlapping tiers (a misconfiguration) resolve to the first.
func (t PlanTable) Resolve(amount decimal.Decimal) (Plan, bool) {
	for _, p := range t.Plans {
		if WithinEpsilon(amount, p.Price, t.Epsilon) {
			return p, true
		}
	}
	return Plan{}, false
}

// WithinEpsilon reports whether |a-b| <= eps.
func WithinEpsilon(a, b, eps decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(eps) <= 0
}

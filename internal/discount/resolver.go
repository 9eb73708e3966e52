package discount

import (
	"tariff-engine/internal/catalog"
	"tariff-engine/internal/promotion"
)

// candidate is the discount list one resolver produced.
type candidate struct {
	source    Source
	scopeID   string
	discounts []Discount
}

type resolver struct {
	source Source
	lookup func(Table, catalog.Entry, catalog.Configuration) (string, []Discount)
}

// precedence is evaluated top to bottom; the first non-empty list wins and
// lists are never combined.
var precedence = []resolver{
	{
		source: SourceItem,
		lookup: func(t Table, e catalog.Entry, _ catalog.Configuration) (string, []Discount) {
			return e.ItemID, t.ItemScope(e.Category)[e.ItemID]
		},
	},
	{
		source: SourceLine,
		lookup: func(t Table, _ catalog.Entry, cfg catalog.Configuration) (string, []Discount) {
			return cfg.LineID, t.Line[cfg.LineID]
		},
	},
	{
		source: SourceProduct,
		lookup: func(t Table, _ catalog.Entry, cfg catalog.Configuration) (string, []Discount) {
			return cfg.ProductID, t.Product
		},
	},
}

func selectCandidate(t Table, e catalog.Entry, cfg catalog.Configuration) (candidate, bool) {
	for _, r := range precedence {
		scopeID, list := r.lookup(t, e, cfg)
		if len(list) > 0 {
			return candidate{source: r.source, scopeID: scopeID, discounts: list}, true
		}
	}
	return candidate{}, false
}

// Resolve builds the discount chain of an entry and applies it to base.
// A matching promotional override is appended to the chain; in replace mode
// item and product discounts are dropped first, line discounts are kept.
func Resolve(e catalog.Entry, cfg catalog.Configuration, base float64, t Table, promo *promotion.Promotion) Chain {
	var steps []Step

	if c, ok := selectCandidate(t, e, cfg); ok {
		for _, d := range c.discounts {
			steps = append(steps, Step{Source: c.source, ScopeID: c.scopeID, Kind: d.Kind, Value: d.Value})
		}
	}

	if o, ok := promo.Match(e.Category, e.ItemID, cfg.Print); ok {
		if promo.Mode == promotion.ModeReplace {
			steps = keepLine(steps)
		}
		steps = append(steps, Step{
			Source:  SourcePromotion,
			ScopeID: o.ScopeID,
			Kind:    kindOf(o.Billing),
			Value:   o.Price,
		})
	}

	return Apply(base, steps)
}

// Apply runs the steps over base in order, recording what each removed.
func Apply(base float64, steps []Step) Chain {
	chain := Chain{Base: base, Steps: make([]Step, 0, len(steps))}
	price := base
	for _, s := range steps {
		switch s.Kind {
		case KindCash:
			s.Discounted = s.Value
		default:
			s.Discounted = (price / 100) * s.Value
		}
		price -= s.Discounted
		chain.Steps = append(chain.Steps, s)
	}
	chain.Final = price
	chain.BelowZero = price < 0
	return chain
}

func keepLine(steps []Step) []Step {
	out := steps[:0]
	for _, s := range steps {
		if s.Source == SourceLine {
			out = append(out, s)
		}
	}
	return out
}

func kindOf(b promotion.Billing) Kind {
	if b == promotion.BillingCash {
		return KindCash
	}
	return KindPercentage
}

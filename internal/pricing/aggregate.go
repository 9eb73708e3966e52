package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"tariff-engine/internal/catalog"
)

// Totals is the order-level summary of a quote.
type Totals struct {
	PreTotal float64 `json:"preTotal"`
	Tax      float64 `json:"tax"`
	Freight  float64 `json:"freight"`
	Total    float64 `json:"total"`

	MarkupTotal   float64 `json:"markupTotal"`
	MarkupTax     float64 `json:"markupTax"`
	MarkupFreight float64 `json:"markupFreight"`
	MarkupFinal   float64 `json:"markupFinal"`
}

// Aggregate sums the category outputs and takes the product's tax and
// freight percentages off both the plain and the markup-inclusive totals.
// NaN prices contribute nothing.
func Aggregate(product catalog.Product, categories []CategoryResult) Totals {
	var t Totals
	for _, c := range categories {
		for _, it := range c.Items {
			if !math.IsNaN(it.Price) {
				t.PreTotal += it.Price
			}
			if sell := it.sellPrice(); !math.IsNaN(sell) {
				t.MarkupTotal += sell
			}
		}
	}

	t.Tax, t.Freight, t.Total = deductions(t.PreTotal, product)
	t.MarkupTax, t.MarkupFreight, t.MarkupFinal = deductions(t.MarkupTotal, product)
	return t
}

func deductions(amount float64, product catalog.Product) (tax, freight, total float64) {
	tax = round2(amount / 100 * product.TaxPercent)
	freight = (amount - tax) / 100 * product.FreightPercent
	return tax, freight, amount - tax - freight
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

package pricing

import (
	"math"
	"slices"

	"tariff-engine/internal/catalog"
	"tariff-engine/internal/discount"
)

// Item is one billable unit of one tariff entry. Items are values: every
// step of the pipeline returns a new one instead of mutating its input.
type Item struct {
	Category catalog.Category `json:"category"`
	Name     string           `json:"name"`
	TariffID string           `json:"tariffId"`
	ItemID   string           `json:"itemId"`
	// OptionID is the confirmed option that selected the entry.
	OptionID  string                `json:"optionId,omitempty"`
	ParentID  string                `json:"parentId,omitempty"`
	BillingID catalog.BillingMethod `json:"billingId"`

	PrePrice  float64         `json:"prePrice"`
	Discounts []discount.Step `json:"discounts"`
	BelowZero bool            `json:"belowZero,omitempty"`
	// UnitPrice is the discounted, formula-adjusted price before billing.
	UnitPrice  float64 `json:"unitPrice"`
	FormulaID  string  `json:"formulaId,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`

	MinMeasurement           float64 `json:"minMeasurement,omitempty"`
	MinMeasurementSubstitute float64 `json:"minMeasurementSubstitute,omitempty"`

	Price          float64 `json:"price"`
	Method         string  `json:"method"`
	MethodUsed     float64 `json:"methodUsed"`
	Quantity       int     `json:"quantity"`
	UsedMinMeasure bool    `json:"usedMinMeasure"`

	GroupID      string `json:"groupId,omitempty"`
	PieceRelated bool   `json:"pieceRelated"`
	PieceID      string `json:"pieceId,omitempty"`

	MarkupPercent  float64 `json:"markupPercent"`
	MarkupAddition float64 `json:"markupAddition"`
	MarkupPrice    float64 `json:"markupPrice"`
}

// clone returns a copy that shares no slices with it.
func (it Item) clone() Item {
	it.Discounts = slices.Clone(it.Discounts)
	return it
}

// sellPrice is the markup-inclusive price, or the plain price for items
// carrying no markup.
func (it Item) sellPrice() float64 {
	if it.MarkupPercent == 0 && it.MarkupPrice == 0 {
		return it.Price
	}
	return it.MarkupPrice
}

// CategoryResult is the priced output of one category.
type CategoryResult struct {
	Name     string           `json:"name"`
	Type     catalog.Category `json:"type"`
	Value    float64          `json:"value"`
	Items    []Item           `json:"items"`
	Quantity int              `json:"quantity"`
}

func newCategoryResult(name string, c catalog.Category, items []Item) CategoryResult {
	if items == nil {
		items = []Item{}
	}
	var value float64
	for _, it := range items {
		if math.IsNaN(it.Price) {
			continue
		}
		value += it.Price
	}
	return CategoryResult{Name: name, Type: c, Value: value, Items: items, Quantity: 1}
}

package discount

import "tariff-engine/internal/catalog"

// Kind is the way a discount reduces a price.
type Kind int

const (
	KindPercentage Kind = iota
	KindCash
)

func (k Kind) String() string {
	if k == KindCash {
		return "cash"
	}
	return "percentage"
}

// Discount is one configured reduction.
type Discount struct {
	Kind  Kind    `json:"kind"`
	Value float64 `json:"value"`
}

// Table is the active discount table of a reseller for one product.
// Scoped maps are keyed by the scope's own id.
type Table struct {
	Product   []Discount            `json:"product,omitempty"`
	Line      map[string][]Discount `json:"line,omitempty"`
	Model     map[string][]Discount `json:"model,omitempty"`
	Commodity map[string][]Discount `json:"commodity,omitempty"`
	Component map[string][]Discount `json:"component,omitempty"`
	Optional  map[string][]Discount `json:"optional,omitempty"`
}

// ItemScope returns the item-level map for a category. Collections have no
// item-level discounts.
func (t Table) ItemScope(c catalog.Category) map[string][]Discount {
	switch c {
	case catalog.CategoryModel:
		return t.Model
	case catalog.CategoryCommodity:
		return t.Commodity
	case catalog.CategoryComponent:
		return t.Component
	case catalog.CategoryOptional:
		return t.Optional
	}
	return nil
}

// Source names where a chain step came from.
type Source string

const (
	SourceItem      Source = "item"
	SourceLine      Source = "line"
	SourceProduct   Source = "product"
	SourcePromotion Source = "promotion"
)

// Step is one applied reduction with the amount it removed.
type Step struct {
	Source     Source  `json:"source"`
	ScopeID    string  `json:"scopeId,omitempty"`
	Kind       Kind    `json:"kind"`
	Value      float64 `json:"value"`
	Discounted float64 `json:"discounted"`
}

// Chain is the resolved, applied discount sequence of one item.
type Chain struct {
	Base  float64 `json:"base"`
	Final float64 `json:"final"`
	Steps []Step  `json:"steps"`
	// BelowZero flags a chain that pushed the price under zero. The price
	// is left as computed.
	BelowZero bool `json:"belowZero,omitempty"`
}

package markup

import "tariff-engine/internal/catalog"

// Table holds a reseller's markup percentages for one product.
type Table struct {
	Product    float64            `json:"product"`
	Model      map[string]float64 `json:"model,omitempty"`
	Line       map[string]float64 `json:"line,omitempty"`
	Collection map[string]float64 `json:"collection,omitempty"`
	Commodity  map[string]float64 `json:"commodity,omitempty"`
	Component  map[string]float64 `json:"component,omitempty"`
	Optional   map[string]float64 `json:"optional,omitempty"`
}

func (t Table) itemScope(c catalog.Category) map[string]float64 {
	switch c {
	case catalog.CategoryCollection:
		return t.Collection
	case catalog.CategoryCommodity:
		return t.Commodity
	case catalog.CategoryComponent:
		return t.Component
	case catalog.CategoryOptional:
		return t.Optional
	}
	return nil
}

// Resolve returns the markup percent of an item. An item-specific markup
// wins outright; otherwise product, model and line markups add up. Model
// entries have no item scope of their own: the model map is the model-level
// markup, so they always get the sum.
func Resolve(c catalog.Category, scopeID string, cfg catalog.Configuration, t Table) float64 {
	if v, ok := t.itemScope(c)[scopeID]; ok {
		return v
	}
	return t.Product + t.Model[cfg.ModelID] + t.Line[cfg.LineID]
}

// Applied is the markup carried by a priced item.
type Applied struct {
	Percent  float64
	Addition float64
	Price    float64
}

// Apply adds percent on top of price.
func Apply(price, percent float64) Applied {
	addition := price * percent / 100
	return Applied{Percent: percent, Addition: addition, Price: price + addition}
}

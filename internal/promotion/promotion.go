package promotion

import "tariff-engine/internal/catalog"

// Mode says how a promotional override combines with regular discounts.
type Mode int

const (
	ModeAdd Mode = iota
	ModeReplace
)

// Billing is the reduction kind of an override.
type Billing int

const (
	BillingPercentage Billing = 1
	BillingCash       Billing = 2
)

// Override is one promotional reduction targeting a catalog item.
type Override struct {
	ScopeID string  `json:"scopeId"`
	Print   string  `json:"print,omitempty"`
	Billing Billing `json:"billing"`
	Price   float64 `json:"price"`
}

// Promotion is a selected descriptor together with its file content.
type Promotion struct {
	Descriptor Descriptor                      `json:"descriptor"`
	Mode       Mode                            `json:"mode"`
	Overrides  map[catalog.Category][]Override `json:"overrides"`
}

// Match returns the override for an item. Collection overrides that name a
// print only match the configuration's print.
func (p *Promotion) Match(category catalog.Category, scopeID, print string) (Override, bool) {
	if p == nil {
		return Override{}, false
	}
	for _, o := range p.Overrides[category] {
		if o.ScopeID != scopeID {
			continue
		}
		if category == catalog.CategoryCollection && o.Print != "" && o.Print != print {
			continue
		}
		return o, true
	}
	return Override{}, false
}

// Lookup is the cached outcome of a promotion search for one product.
// A zero Lookup means no promotion applies.
type Lookup struct {
	Found     bool      `json:"found"`
	Promotion Promotion `json:"promotion"`
}

// Active returns the promotion, or nil when none applies.
func (l Lookup) Active() *Promotion {
	if !l.Found {
		return nil
	}
	p := l.Promotion
	return &p
}

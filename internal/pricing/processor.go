package pricing

import (
	"tariff-engine/internal/catalog"
	"tariff-engine/internal/discount"
	"tariff-engine/internal/formula"
	"tariff-engine/internal/markup"
	"tariff-engine/internal/promotion"
)

// Inputs is everything a processor reads. It is assembled once per run and
// shared read-only by the five processors.
type Inputs struct {
	Tariff    catalog.Tariff
	Formulas  formula.Catalog
	Discounts discount.Table
	Markups   markup.Table
	Promotion *promotion.Promotion
	Evaluator formula.Evaluator
	Variables map[string]float64
}

// selection pairs a tariff entry with the choice that selected it.
type selection struct {
	entry   catalog.Entry
	option  catalog.ConfirmedOption
	groupID string
}

// Processor prices the confirmed selections of one category.
type Processor struct {
	Category catalog.Category
	Name     string

	// selections lists the applicable entries matching the configuration.
	selections func(entries []catalog.Entry, cfg catalog.Configuration) []selection
	// perPieceBase multiplies the base price by the piece count.
	perPieceBase bool
	// pieceReplication allows general-group items to be billed per piece.
	pieceReplication bool
}

// Processors returns the category processors in presentation order.
func Processors() []Processor {
	return []Processor{
		{
			Category:         catalog.CategoryCollection,
			Name:             "Collections",
			selections:       selectCollection,
			pieceReplication: true,
		},
		{
			Category:     catalog.CategoryModel,
			Name:         "Models",
			selections:   selectModel,
			perPieceBase: true,
		},
		{
			Category:         catalog.CategoryCommodity,
			Name:             "Commodities",
			selections:       selectOptions(catalog.CategoryCommodity),
			pieceReplication: true,
		},
		{
			Category:         catalog.CategoryComponent,
			Name:             "Components",
			selections:       selectOptions(catalog.CategoryComponent),
			pieceReplication: true,
		},
		{
			Category:         catalog.CategoryOptional,
			Name:             "Optionals",
			selections:       selectOptions(catalog.CategoryOptional),
			pieceReplication: true,
		},
	}
}

// Process runs the category pipeline: applicability, discount and
// promotion, markup, formula override, replication, billing.
func (p Processor) Process(in Inputs, cfg catalog.Configuration) CategoryResult {
	var items []Item
	for _, sel := range p.selections(in.Tariff.Entries(p.Category), cfg) {
		items = append(items, p.price(sel, in, cfg)...)
	}
	return newCategoryResult(p.Name, p.Category, items)
}

func (p Processor) price(sel selection, in Inputs, cfg catalog.Configuration) []Item {
	e := sel.entry

	base := e.Price
	if p.perPieceBase && !e.Unitary {
		base *= float64(len(cfg.Measures))
	}

	chain := discount.Resolve(e, cfg, base, in.Discounts, in.Promotion)
	tmpl := Item{
		Category:                 p.Category,
		Name:                     itemName(e),
		TariffID:                 e.ID,
		ItemID:                   e.ItemID,
		OptionID:                 sel.option.ID,
		ParentID:                 sel.option.ParentID,
		BillingID:                e.Billing,
		PrePrice:                 base,
		Discounts:                chain.Steps,
		BelowZero:                chain.BelowZero,
		UnitPrice:                chain.Final,
		MinMeasurement:           e.MinMeasurement,
		MinMeasurementSubstitute: e.MinMeasurementSubstitute,
		GroupID:                  sel.groupID,
	}

	if len(e.LinkedFormulas) > 0 {
		outcome, ok := formula.Apply(chain.Final, e.LinkedFormulas, in.Formulas, in.Evaluator, in.Variables)
		if !ok {
			return nil
		}
		tmpl.UnitPrice = outcome.Price
		tmpl.FormulaID = outcome.FormulaID
		tmpl.Multiplier = outcome.Multiplier
	}

	groupIndex := cfg.GroupIndex(sel.groupID)
	general := p.pieceReplication && cfg.IsGeneralGroup(sel.groupID)
	percent := markup.Resolve(p.Category, e.ItemID, cfg, in.Markups)

	replicas := Replicate(tmpl, e.ChargeType, cfg, groupIndex, general)
	for i, it := range replicas {
		applied := markup.Apply(it.Price, percent)
		it.MarkupPercent = applied.Percent
		it.MarkupAddition = applied.Addition
		it.MarkupPrice = applied.Price
		replicas[i] = it
	}
	return replicas
}

func itemName(e catalog.Entry) string {
	if e.Name != "" {
		return e.Name
	}
	return string(e.Category) + " " + e.ItemID
}

// firstValid returns the first applicable entry accepted by match.
func firstValid(entries []catalog.Entry, cfg catalog.Configuration, match func(catalog.Entry) bool) (catalog.Entry, bool) {
	for _, e := range entries {
		if match(e) && catalog.IsItemValid(e, cfg) {
			return e, true
		}
	}
	return catalog.Entry{}, false
}

// Collections always belong to the general group.
func selectCollection(entries []catalog.Entry, cfg catalog.Configuration) []selection {
	if cfg.CollectionID == "" {
		return nil
	}
	e, ok := firstValid(entries, cfg, func(e catalog.Entry) bool {
		return e.ItemID == cfg.CollectionID && (e.Print == "" || e.Print == cfg.Print)
	})
	if !ok {
		return nil
	}
	return []selection{{entry: e, groupID: cfg.FirstGroup()}}
}

func selectModel(entries []catalog.Entry, cfg catalog.Configuration) []selection {
	if cfg.ModelID == "" {
		return nil
	}
	e, ok := firstValid(entries, cfg, func(e catalog.Entry) bool {
		return e.ItemID == cfg.ModelID
	})
	if !ok {
		return nil
	}
	return []selection{{entry: e, groupID: cfg.FirstGroup()}}
}

func selectOptions(c catalog.Category) func([]catalog.Entry, catalog.Configuration) []selection {
	return func(entries []catalog.Entry, cfg catalog.Configuration) []selection {
		var out []selection
		for _, o := range cfg.OptionsOf(c) {
			e, ok := firstValid(entries, cfg, func(e catalog.Entry) bool {
				if e.ItemID != o.ItemID {
					return false
				}
				return e.GroupID == "" || o.GroupID == "" || e.GroupID == o.GroupID
			})
			if !ok {
				continue
			}
			group := o.GroupID
			if group == "" {
				group = e.GroupID
			}
			out = append(out, selection{entry: e, option: o, groupID: group})
		}
		return out
	}
}

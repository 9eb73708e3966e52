package source

import (
	"fmt"
	"strings"

	"tariff-engine/internal/catalog"
	"tariff-engine/internal/discount"
	"tariff-engine/internal/formula"
	"tariff-engine/internal/markup"
	"tariff-engine/internal/promotion"
)

type rawProduct struct {
	ID      flexString `json:"id"`
	Name    string     `json:"name"`
	Tax     flexNumber `json:"tax"`
	Freight flexNumber `json:"freight"`
}

type rawEntry struct {
	ID         flexString `json:"id"`
	Collection flexString `json:"collection"`
	Model      flexString `json:"model"`
	Commodity  flexString `json:"commodity"`
	Component  flexString `json:"component"`
	Optional   flexString `json:"optional"`
	Name       string     `json:"name"`
	Print      flexString `json:"print"`
	Group      flexString `json:"group"`

	Price   flexNumber `json:"price"`
	Billing int        `json:"billing"`
	Models  flexList   `json:"md"`
	Lines   flexList   `json:"ln"`
	Classes flexList   `json:"cl"`
	WMin    flexNumber `json:"wMin"`
	WMax    flexNumber `json:"wMax"`
	HMin    flexNumber `json:"hMin"`
	HMax    flexNumber `json:"hMax"`
	AMin    flexNumber `json:"aMin"`
	AMax    flexNumber `json:"aMax"`

	Charge          int        `json:"charge"`
	Unitary         bool       `json:"unitary"`
	MinMeasure      flexNumber `json:"minMeasure"`
	MinMeasureValue flexNumber `json:"minMeasureValue"`
	Formulas        flexList   `json:"formulas"`
}

type rawTariff struct {
	Product    rawProduct `json:"product"`
	Collection []rawEntry `json:"collection"`
	Model      []rawEntry `json:"model"`
	Commodity  []rawEntry `json:"commodity"`
	Component  []rawEntry `json:"component"`
	Optional   []rawEntry `json:"optional"`
}

func (r rawTariff) toTariff(productID string) catalog.Tariff {
	product := catalog.Product{
		ID:             string(r.Product.ID),
		Name:           r.Product.Name,
		TaxPercent:     float64(r.Product.Tax),
		FreightPercent: float64(r.Product.Freight),
	}
	if product.ID == "" {
		product.ID = productID
	}
	return catalog.Tariff{
		Product:    product,
		Collection: toEntries(catalog.CategoryCollection, r.Collection),
		Model:      toEntries(catalog.CategoryModel, r.Model),
		Commodity:  toEntries(catalog.CategoryCommodity, r.Commodity),
		Component:  toEntries(catalog.CategoryComponent, r.Component),
		Optional:   toEntries(catalog.CategoryOptional, r.Optional),
	}
}

func toEntries(c catalog.Category, raw []rawEntry) []catalog.Entry {
	out := make([]catalog.Entry, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toEntry(c))
	}
	return out
}

func (r rawEntry) itemID(c catalog.Category) flexString {
	switch c {
	case catalog.CategoryCollection:
		return r.Collection
	case catalog.CategoryModel:
		return r.Model
	case catalog.CategoryCommodity:
		return r.Commodity
	case catalog.CategoryComponent:
		return r.Component
	case catalog.CategoryOptional:
		return r.Optional
	}
	return ""
}

func (r rawEntry) toEntry(c catalog.Category) catalog.Entry {
	billing := catalog.BillingMethod(r.Billing)
	if billing < catalog.BillingHeight || billing > catalog.BillingUnit {
		billing = catalog.BillingUnit
	}
	charge := catalog.ChargePerPiece
	if r.Charge == int(catalog.ChargeGeneral) {
		charge = catalog.ChargeGeneral
	}
	return catalog.Entry{
		ID:       string(r.ID),
		Category: c,
		ItemID:   string(r.itemID(c)),
		Name:     r.Name,
		Print:    string(r.Print),
		GroupID:  string(r.Group),
		Price:    float64(r.Price),
		Billing:  billing,
		Applicability: catalog.Applicability{
			Models:          r.Models,
			Lines:           r.Lines,
			Classifications: r.Classes,
			MinWidth:        float64(r.WMin),
			MaxWidth:        float64(r.WMax),
			MinHeight:       float64(r.HMin),
			MaxHeight:       float64(r.HMax),
			MinArea:         float64(r.AMin),
			MaxArea:         float64(r.AMax),
		},
		ChargeType:               charge,
		Unitary:                  r.Unitary,
		MinMeasurement:           float64(r.MinMeasure),
		MinMeasurementSubstitute: float64(r.MinMeasureValue),
		LinkedFormulas:           r.Formulas,
	}
}

type rawFormula struct {
	ID      flexString `json:"id"`
	Formula string     `json:"formula"`
}

func toCatalog(raw []rawFormula) formula.Catalog {
	out := make(formula.Catalog, 0, len(raw))
	for _, f := range raw {
		out = append(out, formula.Formula{ID: string(f.ID), Formula: f.Formula})
	}
	return out
}

type rawDiscountRow struct {
	Product   flexString `json:"product"`
	Line      flexString `json:"line"`
	Model     flexString `json:"model"`
	Commodity flexString `json:"commodity"`
	Component flexString `json:"component"`
	Optional  flexString `json:"optional"`
	Value     flexNumber `json:"value"`
	Type      string     `json:"type"`
}

func (r rawDiscountRow) discount() discount.Discount {
	kind := discount.KindPercentage
	if strings.EqualFold(strings.TrimSpace(r.Type), "cash") {
		kind = discount.KindCash
	}
	return discount.Discount{Kind: kind, Value: float64(r.Value)}
}

type rawDiscounts struct {
	Group     flexString       `json:"group"`
	Product   []rawDiscountRow `json:"product"`
	Line      []rawDiscountRow `json:"line"`
	Model     []rawDiscountRow `json:"model"`
	Commodity []rawDiscountRow `json:"commodity"`
	Component []rawDiscountRow `json:"component"`
	Optional  []rawDiscountRow `json:"optional"`
}

func (r rawDiscounts) toTable(productID string) discount.Table {
	t := discount.Table{
		Line:      groupDiscounts(r.Line, func(row rawDiscountRow) flexString { return row.Line }),
		Model:     groupDiscounts(r.Model, func(row rawDiscountRow) flexString { return row.Model }),
		Commodity: groupDiscounts(r.Commodity, func(row rawDiscountRow) flexString { return row.Commodity }),
		Component: groupDiscounts(r.Component, func(row rawDiscountRow) flexString { return row.Component }),
		Optional:  groupDiscounts(r.Optional, func(row rawDiscountRow) flexString { return row.Optional }),
	}
	for _, row := range r.Product {
		if string(row.Product) == productID {
			t.Product = append(t.Product, row.discount())
		}
	}
	return t
}

func groupDiscounts(rows []rawDiscountRow, key func(rawDiscountRow) flexString) map[string][]discount.Discount {
	out := make(map[string][]discount.Discount)
	for _, row := range rows {
		id := string(key(row))
		if id == "" {
			continue
		}
		out[id] = append(out[id], row.discount())
	}
	return out
}

type rawMarkupRow struct {
	Markup flexString `json:"markup"`
	Value  flexNumber `json:"value"`
}

type rawMarkups struct {
	Product    flexNumber     `json:"markupProduct"`
	Model      []rawMarkupRow `json:"markupModel"`
	Line       []rawMarkupRow `json:"markupLine"`
	Collection []rawMarkupRow `json:"markupCollection"`
	Commodity  []rawMarkupRow `json:"markupCommodity"`
	Component  []rawMarkupRow `json:"markupComponent"`
	Optional   []rawMarkupRow `json:"markupOptional"`
}

func (r rawMarkups) toTable() markup.Table {
	return markup.Table{
		Product:    float64(r.Product),
		Model:      markupMap(r.Model),
		Line:       markupMap(r.Line),
		Collection: markupMap(r.Collection),
		Commodity:  markupMap(r.Commodity),
		Component:  markupMap(r.Component),
		Optional:   markupMap(r.Optional),
	}
}

func markupMap(rows []rawMarkupRow) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		if row.Markup == "" {
			continue
		}
		out[string(row.Markup)] = float64(row.Value)
	}
	return out
}

type rawOverride struct {
	ID      flexString `json:"id"`
	Print   flexString `json:"print"`
	Billing int        `json:"billing"`
	Price   flexNumber `json:"price"`
}

type rawPromotion struct {
	ReplaceMode string        `json:"replaceMode"`
	Collection  []rawOverride `json:"collection"`
	Model       []rawOverride `json:"model"`
	Commodity   []rawOverride `json:"commodity"`
	Component   []rawOverride `json:"component"`
	Optional    []rawOverride `json:"optional"`
}

func (r rawPromotion) toPromotion(d promotion.Descriptor) (promotion.Promotion, error) {
	p := promotion.Promotion{Descriptor: d, Mode: promotion.ModeAdd}
	switch strings.ToUpper(strings.TrimSpace(r.ReplaceMode)) {
	case "", "ADD":
	case "REPLACE":
		p.Mode = promotion.ModeReplace
	default:
		return promotion.Promotion{}, fmt.Errorf("unknown replace mode %q", r.ReplaceMode)
	}
	p.Overrides = map[catalog.Category][]promotion.Override{
		catalog.CategoryCollection: toOverrides(r.Collection),
		catalog.CategoryModel:      toOverrides(r.Model),
		catalog.CategoryCommodity:  toOverrides(r.Commodity),
		catalog.CategoryComponent:  toOverrides(r.Component),
		catalog.CategoryOptional:   toOverrides(r.Optional),
	}
	return p, nil
}

func toOverrides(raw []rawOverride) []promotion.Override {
	out := make([]promotion.Override, 0, len(raw))
	for _, o := range raw {
		billing := promotion.BillingPercentage
		if o.Billing == int(promotion.BillingCash) {
			billing = promotion.BillingCash
		}
		out = append(out, promotion.Override{
			ScopeID: string(o.ID),
			Print:   string(o.Print),
			Billing: billing,
			Price:   float64(o.Price),
		})
	}
	return out
}

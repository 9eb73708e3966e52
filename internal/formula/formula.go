package formula

import (
	"fmt"
	"math"
	"strings"

	"tariff-engine/internal/catalog"
)

// Code reports how an evaluation ended.
type Code int

const (
	CodeOK Code = iota
	CodeCompileError
	CodeRuntimeError
	CodeNotANumber
	CodeUnknownFormula
)

// Result is the outcome of evaluating one formula.
type Result struct {
	Value   float64
	Code    Code
	Message string
}

// Usable reports whether the result can act as a price multiplier.
func (r Result) Usable() bool {
	return r.Code == CodeOK && !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0)
}

// Evaluator computes arithmetic formula text against a variable bag.
type Evaluator interface {
	Evaluate(text string, vars map[string]float64) Result
}

// Formula is one pricing formula of a product.
type Formula struct {
	ID      string `json:"id"`
	Formula string `json:"formula"`
}

// Catalog is the formula list of a product.
type Catalog []Formula

// Lookup finds a formula by id.
func (c Catalog) Lookup(id string) (Formula, bool) {
	for _, f := range c {
		if f.ID == id {
			return f, true
		}
	}
	return Formula{}, false
}

// Outcome records which formula adjusted a price and by how much.
type Outcome struct {
	FormulaID  string  `json:"formulaId"`
	Multiplier float64 `json:"multiplier"`
	Price      float64 `json:"price"`
}

// Apply evaluates the linked formulas in order and multiplies price by the
// first usable result. ok is false when none of them succeeds, in which
// case the item must not be priced.
func Apply(price float64, linked []string, cat Catalog, ev Evaluator, vars map[string]float64) (Outcome, bool) {
	for _, id := range linked {
		f, found := cat.Lookup(id)
		if !found {
			continue
		}
		res := ev.Evaluate(f.Formula, vars)
		if !res.Usable() {
			continue
		}
		return Outcome{FormulaID: id, Multiplier: res.Value, Price: price * res.Value}, true
	}
	return Outcome{}, false
}

// declaredPieces is how many piece suffixes (a..z) are always declared, so
// a formula naming a piece the configuration lacks reads it as 0.
const declaredPieces = 26

// Variables builds the variable bag of a configuration: piece A as width,
// height and area, totals, per-piece values suffixed with the piece
// letter, an opt_<itemId> flag for every option the tariff offers (1 when
// confirmed, else 0) and the caller's own variables.
func Variables(cfg catalog.Configuration, tariff catalog.Tariff) map[string]float64 {
	options := len(tariff.Commodity) + len(tariff.Component) + len(tariff.Optional)
	vars := make(map[string]float64, 8+3*declaredPieces+options+len(cfg.Variables))

	if first, _ := cfg.MeasureAt(0); len(cfg.Measures) > 0 {
		vars["width"] = first.Width
		vars["height"] = first.Height
		vars["area"] = first.Area
	}
	total := cfg.TotalMeasure()
	vars["total_width"] = total.Width
	vars["total_height"] = total.Height
	vars["total_area"] = total.Area
	vars["pieces"] = float64(len(cfg.Measures))

	for i := 0; i < max(declaredPieces, len(cfg.Measures)); i++ {
		var m catalog.Measure
		if i < len(cfg.Measures) {
			m = cfg.Measures[i]
		}
		suffix := strings.ToLower(catalog.PieceLetter(i))
		vars["width_"+suffix] = m.Width
		vars["height_"+suffix] = m.Height
		vars["area_"+suffix] = m.Area
	}
	for _, c := range []catalog.Category{catalog.CategoryCommodity, catalog.CategoryComponent, catalog.CategoryOptional} {
		for _, e := range tariff.Entries(c) {
			vars[fmt.Sprintf("opt_%s", e.ItemID)] = 0
		}
	}
	for _, o := range cfg.Options {
		vars[fmt.Sprintf("opt_%s", o.ItemID)] = 1
	}
	for k, v := range cfg.Variables {
		vars[k] = v
	}
	return vars
}

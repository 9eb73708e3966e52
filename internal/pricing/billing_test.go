package pricing

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"tariff-engine/internal/catalog"
)

var pieceA = catalog.Measure{ID: "m1", Identifier: "A", Width: 1.5, Height: 2.5, Area: 3.75}

func TestApplyBillingMinimumMeasurement(t *testing.T) {
	it := Item{BillingID: catalog.BillingHeight, UnitPrice: 10, MinMeasurement: 3, MinMeasurementSubstitute: 3}

	got := ApplyBilling(it, pieceA)
	assert.InDelta(t, 30, got.Price, 1e-9)
	assert.True(t, got.UsedMinMeasure)
	assert.Equal(t, 3.0, got.MethodUsed)
	assert.Equal(t, 1, got.Quantity)
	assert.True(t, got.PieceRelated)
	assert.Equal(t, "m1", got.PieceID)
	assert.Contains(t, got.Method, "minimum")
}

func TestApplyBillingMethods(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		price   float64
		used    float64
		minimum bool
		billing catalog.BillingMethod
	}{
		{name: "height", item: Item{BillingID: catalog.BillingHeight, UnitPrice: 10}, price: 25, used: 2.5, billing: catalog.BillingHeight},
		{name: "width", item: Item{BillingID: catalog.BillingWidth, UnitPrice: 10}, price: 15, used: 1.5, billing: catalog.BillingWidth},
		{name: "area", item: Item{BillingID: catalog.BillingArea, UnitPrice: 10}, price: 37.5, used: 3.75, billing: catalog.BillingArea},
		{name: "unit", item: Item{BillingID: catalog.BillingUnit, UnitPrice: 10, MinMeasurement: 50}, price: 10, used: 1, billing: catalog.BillingUnit},
		{name: "unknown billing is unit", item: Item{BillingID: 9, UnitPrice: 7}, price: 7, used: 1, billing: catalog.BillingUnit},
		{
			name:    "substitute defaults to the minimum",
			item:    Item{BillingID: catalog.BillingWidth, UnitPrice: 10, MinMeasurement: 2},
			price:   20,
			used:    2,
			minimum: true,
			billing: catalog.BillingWidth,
		},
		{
			name:    "measurement above minimum",
			item:    Item{BillingID: catalog.BillingArea, UnitPrice: 2, MinMeasurement: 1, MinMeasurementSubstitute: 1.5},
			price:   7.5,
			used:    3.75,
			billing: catalog.BillingArea,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyBilling(tt.item, pieceA)
			assert.InDelta(t, tt.price, got.Price, 1e-9)
			assert.Equal(t, tt.used, got.MethodUsed)
			assert.Equal(t, tt.minimum, got.UsedMinMeasure)
			assert.Equal(t, tt.billing, got.BillingID)
			assert.Equal(t, 1, got.Quantity)
		})
	}
}

func TestApplyBillingAggregateMeasureIsNotPieceRelated(t *testing.T) {
	cfg := catalog.Configuration{Measures: []catalog.Measure{pieceA, pieceA}}
	got := ApplyBilling(Item{BillingID: catalog.BillingWidth, UnitPrice: 1}, cfg.TotalMeasure())
	assert.False(t, got.PieceRelated)
	assert.InDelta(t, 3, got.Price, 1e-9)
}

func TestApplyBillingCorrectnessProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("measured price is unit price times the measurement used", prop.ForAll(
		func(billing int, unit, measured, minimum, substitute float64) bool {
			it := Item{
				BillingID:                catalog.BillingMethod(billing),
				UnitPrice:                unit,
				MinMeasurement:           minimum,
				MinMeasurementSubstitute: substitute,
			}
			m := catalog.Measure{ID: "m", Width: measured, Height: measured, Area: measured}
			got := ApplyBilling(it, m)

			want := measured
			if minimum > 0 && measured < minimum {
				want = substitute
				if want == 0 {
					want = minimum
				}
			}
			return got.MethodUsed == want &&
				math.Abs(got.Price-unit*want) < 1e-9 &&
				got.UsedMinMeasure == (minimum > 0 && measured < minimum)
		},
		gen.IntRange(int(catalog.BillingHeight), int(catalog.BillingArea)),
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 10),
		gen.Float64Range(0, 5),
		gen.Float64Range(0, 5),
	))

	properties.TestingRun(t)
}

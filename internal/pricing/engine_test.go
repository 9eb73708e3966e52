package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tariff-engine/internal/catalog"
	"tariff-engine/internal/discount"
	"tariff-engine/internal/formula"
	"tariff-engine/internal/markup"
	"tariff-engine/internal/promotion"
	"tariff-engine/internal/source"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeLoader struct {
	tariff     catalog.Tariff
	tariffErr  error
	formulas   formula.Catalog
	discounts  discount.Table
	markups    markup.Table
	promotion  promotion.Lookup
	tariffHits atomic.Int32
}

func (f *fakeLoader) Tariff(_ context.Context, _ string) (catalog.Tariff, error) {
	f.tariffHits.Add(1)
	return f.tariff, f.tariffErr
}

func (f *fakeLoader) Formulas(_ context.Context, _ string) (formula.Catalog, error) {
	return f.formulas, nil
}

func (f *fakeLoader) Discounts(_ context.Context, _ string, _ source.Reseller) (discount.Table, error) {
	return f.discounts, nil
}

func (f *fakeLoader) Markups(_ context.Context, _ string, _ source.Reseller) (markup.Table, error) {
	return f.markups, nil
}

func (f *fakeLoader) Promotion(_ context.Context, _ string, _ source.Reseller, _ time.Time) (promotion.Lookup, error) {
	return f.promotion, nil
}

func blindsConfiguration() catalog.Configuration {
	cfg := twoPieceConfiguration()
	cfg.ModelID = "3"
	cfg.LineID = "7"
	cfg.ClassificationID = "2"
	cfg.CollectionID = "4"
	cfg.Options = []catalog.ConfirmedOption{
		{ID: "sel-1", Category: catalog.CategoryCommodity, ItemID: "12", GroupID: "g1"},
		{ID: "sel-2", Category: catalog.CategoryOptional, ItemID: "o1", GroupID: "g0"},
	}
	return cfg
}

func blindsTariff() catalog.Tariff {
	return catalog.Tariff{
		Product: catalog.Product{ID: "10", Name: "Roller", TaxPercent: 10, FreightPercent: 5},
		Collection: []catalog.Entry{
			{ID: "t0", Category: catalog.CategoryCollection, ItemID: "4", Name: "Linen", Price: 99, Billing: catalog.BillingArea,
				Applicability: catalog.Applicability{Models: []string{"99"}}},
			{ID: "t1", Category: catalog.CategoryCollection, ItemID: "4", Name: "Linen", Price: 20, Billing: catalog.BillingArea},
		},
		Model: []catalog.Entry{
			{ID: "t2", Category: catalog.CategoryModel, ItemID: "3", Name: "Classic", Price: 10, Billing: catalog.BillingHeight,
				MinMeasurement: 3, MinMeasurementSubstitute: 3},
		},
		Commodity: []catalog.Entry{
			{ID: "t3", Category: catalog.CategoryCommodity, ItemID: "12", Name: "Chain", Price: 100, Billing: catalog.BillingUnit},
		},
		Optional: []catalog.Entry{
			{ID: "t4", Category: catalog.CategoryOptional, ItemID: "o1", Name: "Pelmet", Price: 8, Billing: catalog.BillingWidth},
			{ID: "t5", Category: catalog.CategoryOptional, ItemID: "o9", Name: "Unselected", Price: 1, Billing: catalog.BillingUnit},
		},
	}
}

func newTestEngine(loader Loader) *Engine {
	return NewEngine(EngineDeps{
		Loader: loader,
		Logger: zap.NewNop(),
		Now:    func() time.Time { return fixedNow },
	})
}

func category(t *testing.T, q Quote, c catalog.Category) CategoryResult {
	t.Helper()
	for _, r := range q.Categories {
		if r.Type == c {
			return r
		}
	}
	t.Fatalf("category %s missing", c)
	return CategoryResult{}
}

func TestEnginePrice(t *testing.T) {
	engine := newTestEngine(&fakeLoader{tariff: blindsTariff()})

	q, err := engine.Price(context.Background(), Request{Configuration: blindsConfiguration(), Reseller: source.Reseller{SellerID: "17"}})
	require.NoError(t, err)
	require.True(t, q.Available)
	require.Len(t, q.Categories, 5)
	assert.Equal(t, fixedNow, q.PricedAt)

	collections := category(t, q, catalog.CategoryCollection)
	require.Len(t, collections.Items, 2)
	assert.Equal(t, "t1", collections.Items[0].TariffID)
	assert.InDelta(t, 75, collections.Items[0].Price, 1e-9)
	assert.InDelta(t, 120, collections.Items[1].Price, 1e-9)
	assert.InDelta(t, 195, collections.Value, 1e-9)
	assert.Equal(t, 1, collections.Quantity)

	// two pieces double the model base price, billed on piece A
	models := category(t, q, catalog.CategoryModel)
	require.Len(t, models.Items, 1)
	assert.Equal(t, 20.0, models.Items[0].PrePrice)
	assert.True(t, models.Items[0].UsedMinMeasure)
	assert.InDelta(t, 60, models.Items[0].Price, 1e-9)
	assert.Equal(t, "Classic (A)", models.Items[0].Name)

	commodities := category(t, q, catalog.CategoryCommodity)
	require.Len(t, commodities.Items, 1)
	commodity := commodities.Items[0]
	assert.Equal(t, 100.0, commodity.Price)
	assert.Equal(t, 1, commodity.Quantity)
	assert.Equal(t, "sel-1", commodity.OptionID)
	assert.Equal(t, "m2", commodity.PieceID)

	optionals := category(t, q, catalog.CategoryOptional)
	require.Len(t, optionals.Items, 2)
	assert.Equal(t, "Pelmet (A)", optionals.Items[0].Name)
	assert.InDelta(t, 12, optionals.Items[0].Price, 1e-9)
	assert.InDelta(t, 16, optionals.Items[1].Price, 1e-9)

	assert.Empty(t, category(t, q, catalog.CategoryComponent).Items)

	assert.InDelta(t, 383, q.PreTotal, 1e-9)
	assert.InDelta(t, 38.3, q.Tax, 1e-9)
	assert.InDelta(t, (383-38.3)*0.05, q.Freight, 1e-9)
	assert.InDelta(t, 383-38.3-(383-38.3)*0.05, q.Total, 1e-9)
	assert.InDelta(t, q.PreTotal, q.MarkupTotal, 1e-9)
}

func TestEngineUnitCommodityOnSecondaryGroup(t *testing.T) {
	tariff := catalog.Tariff{
		Product: catalog.Product{ID: "10"},
		Commodity: []catalog.Entry{
			{ID: "t3", Category: catalog.CategoryCommodity, ItemID: "12", Name: "Chain", Price: 100, Billing: catalog.BillingUnit},
		},
	}
	cfg := twoPieceConfiguration()
	cfg.Options = []catalog.ConfirmedOption{{ID: "sel", Category: catalog.CategoryCommodity, ItemID: "12", GroupID: "g1"}}

	q, err := newTestEngine(&fakeLoader{tariff: tariff}).Price(context.Background(), Request{Configuration: cfg})
	require.NoError(t, err)

	items := q.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 100.0, items[0].Price)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestEngineWithoutGroupsReplicatesEveryOption(t *testing.T) {
	tariff := catalog.Tariff{
		Product: catalog.Product{ID: "10"},
		Commodity: []catalog.Entry{
			{ID: "t3", Category: catalog.CategoryCommodity, ItemID: "12", Name: "Chain", Price: 100, Billing: catalog.BillingUnit},
		},
	}
	cfg := twoPieceConfiguration()
	cfg.Groups = nil
	cfg.Options = []catalog.ConfirmedOption{{ID: "sel", Category: catalog.CategoryCommodity, ItemID: "12"}}

	q, err := newTestEngine(&fakeLoader{tariff: tariff}).Price(context.Background(), Request{Configuration: cfg})
	require.NoError(t, err)

	// without declared groups the whole product is the general group
	items := q.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Chain (A)", items[0].Name)
	assert.Equal(t, "Chain (B)", items[1].Name)
	assert.InDelta(t, 200, q.PreTotal, 1e-9)
}

func TestEngineLineDiscountBeatsProductDiscount(t *testing.T) {
	loader := &fakeLoader{
		tariff: blindsTariff(),
		discounts: discount.Table{
			Product: []discount.Discount{{Kind: discount.KindPercentage, Value: 10}},
			Line:    map[string][]discount.Discount{"7": {{Kind: discount.KindPercentage, Value: 20}}},
		},
	}
	q, err := newTestEngine(loader).Price(context.Background(), Request{Configuration: blindsConfiguration()})
	require.NoError(t, err)

	it := category(t, q, catalog.CategoryCommodity).Items[0]
	require.Len(t, it.Discounts, 1)
	assert.Equal(t, discount.SourceLine, it.Discounts[0].Source)
	assert.InDelta(t, it.PrePrice*0.8, it.UnitPrice, 1e-9)
	assert.InDelta(t, 80, it.Price, 1e-9)
}

func TestEngineReplacePromotion(t *testing.T) {
	tariff := blindsTariff()
	tariff.Optional[0].Billing = catalog.BillingUnit
	tariff.Optional[0].Price = 100

	loader := &fakeLoader{
		tariff:    tariff,
		discounts: discount.Table{Product: []discount.Discount{{Kind: discount.KindPercentage, Value: 10}}},
		promotion: promotion.Lookup{Found: true, Promotion: promotion.Promotion{
			Descriptor: promotion.Descriptor{Name: "summer.json"},
			Mode:       promotion.ModeReplace,
			Overrides: map[catalog.Category][]promotion.Override{
				catalog.CategoryOptional: {{ScopeID: "o1", Billing: promotion.BillingCash, Price: 15}},
			},
		}},
	}
	q, err := newTestEngine(loader).Price(context.Background(), Request{Configuration: blindsConfiguration()})
	require.NoError(t, err)
	assert.Equal(t, "summer.json", q.Promotion)

	optionals := category(t, q, catalog.CategoryOptional)
	require.NotEmpty(t, optionals.Items)
	for _, it := range optionals.Items {
		require.Len(t, it.Discounts, 1)
		assert.Equal(t, discount.SourcePromotion, it.Discounts[0].Source)
		assert.Equal(t, discount.KindCash, it.Discounts[0].Kind)
		assert.Equal(t, 15.0, it.Discounts[0].Discounted)
		assert.InDelta(t, 85, it.Price, 1e-9)
	}

	// the product discount still applies where no override matches
	commodity := category(t, q, catalog.CategoryCommodity).Items[0]
	assert.InDelta(t, 90, commodity.Price, 1e-9)
}

func TestEngineModelMarkupAddsUp(t *testing.T) {
	loader := &fakeLoader{
		tariff:  blindsTariff(),
		markups: markup.Table{Product: 10, Model: map[string]float64{"3": 5}, Line: map[string]float64{"7": 2}},
	}
	q, err := newTestEngine(loader).Price(context.Background(), Request{Configuration: blindsConfiguration()})
	require.NoError(t, err)

	model := category(t, q, catalog.CategoryModel).Items[0]
	commodity := category(t, q, catalog.CategoryCommodity).Items[0]
	assert.Equal(t, 17.0, model.MarkupPercent)
	assert.Equal(t, commodity.MarkupPercent, model.MarkupPercent)
	assert.InDelta(t, 60*1.17, model.MarkupPrice, 1e-9)
}

func TestEngineMarkup(t *testing.T) {
	loader := &fakeLoader{
		tariff:  blindsTariff(),
		markups: markup.Table{Product: 10, Commodity: map[string]float64{"12": 50}},
	}
	q, err := newTestEngine(loader).Price(context.Background(), Request{Configuration: blindsConfiguration()})
	require.NoError(t, err)

	commodity := category(t, q, catalog.CategoryCommodity).Items[0]
	assert.Equal(t, 50.0, commodity.MarkupPercent)
	assert.InDelta(t, 50, commodity.MarkupAddition, 1e-9)
	assert.InDelta(t, 150, commodity.MarkupPrice, 1e-9)

	model := category(t, q, catalog.CategoryModel).Items[0]
	assert.Equal(t, 10.0, model.MarkupPercent)
	assert.InDelta(t, 66, model.MarkupPrice, 1e-9)

	// 50% on the commodity, 10% on the other 283
	assert.InDelta(t, 383+50+28.3, q.MarkupTotal, 1e-9)
}

func TestEngineFormulaOverride(t *testing.T) {
	tariff := blindsTariff()
	tariff.Commodity[0].LinkedFormulas = []string{"missing", "bad", "double"}
	tariff.Optional[0].LinkedFormulas = []string{"bad"}

	loader := &fakeLoader{
		tariff: tariff,
		formulas: formula.Catalog{
			{ID: "bad", Formula: "depth * 2"},
			{ID: "double", Formula: "width * 2"},
		},
	}
	q, err := newTestEngine(loader).Price(context.Background(), Request{Configuration: blindsConfiguration()})
	require.NoError(t, err)

	commodity := category(t, q, catalog.CategoryCommodity).Items[0]
	assert.Equal(t, "double", commodity.FormulaID)
	assert.InDelta(t, 3, commodity.Multiplier, 1e-9)
	assert.InDelta(t, 300, commodity.Price, 1e-9)

	// no linked formula succeeds: the optional is left out, not priced at zero
	assert.Empty(t, category(t, q, catalog.CategoryOptional).Items)
}

func TestEngineStubQuoteOnLoadFailure(t *testing.T) {
	loader := &fakeLoader{tariffErr: fmt.Errorf("portal/tariff/10.json: %w", fs.ErrNotExist)}
	q, err := newTestEngine(loader).Price(context.Background(), Request{Configuration: blindsConfiguration()})
	require.NoError(t, err)
	assert.False(t, q.Available)
	assert.Zero(t, q.PreTotal)
	assert.Zero(t, q.Total)
	assert.Empty(t, q.Items())
}

func TestEngineRejectsInvalidRequests(t *testing.T) {
	engine := newTestEngine(&fakeLoader{tariff: blindsTariff()})

	_, err := engine.Price(context.Background(), Request{Configuration: catalog.Configuration{Measures: []catalog.Measure{{}}}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = engine.Price(context.Background(), Request{Configuration: catalog.Configuration{ProductID: "10"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEngineCancelledContext(t *testing.T) {
	loader := &fakeLoader{tariffErr: context.Canceled}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(loader).Price(ctx, Request{Configuration: blindsConfiguration()})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEngineCachesUntilCleared(t *testing.T) {
	loader := &fakeLoader{tariff: blindsTariff()}
	engine := newTestEngine(loader)
	ctx := context.Background()
	req := Request{Configuration: blindsConfiguration()}

	_, err := engine.Price(ctx, req)
	require.NoError(t, err)
	_, err = engine.Price(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), loader.tariffHits.Load())

	engine.ClearCache(ctx)
	_, err = engine.Price(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.tariffHits.Load())
}

func TestEngineFailedLoadsAreNotCached(t *testing.T) {
	loader := &fakeLoader{tariffErr: errors.New("timeout")}
	engine := newTestEngine(loader)
	ctx := context.Background()
	req := Request{Configuration: blindsConfiguration()}

	q, err := engine.Price(ctx, req)
	require.NoError(t, err)
	assert.False(t, q.Available)

	loader.tariff, loader.tariffErr = blindsTariff(), nil
	q, err = engine.Price(ctx, req)
	require.NoError(t, err)
	assert.True(t, q.Available)
}

func TestEngineIdempotenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated runs yield identical items", prop.ForAll(
		func(width, height, discountValue, markupValue float64) bool {
			cfg := blindsConfiguration()
			cfg.Measures[0].Width, cfg.Measures[0].Height = width, height
			cfg.Measures[0].Area = width * height
			loader := &fakeLoader{
				tariff:    blindsTariff(),
				discounts: discount.Table{Product: []discount.Discount{{Kind: discount.KindPercentage, Value: discountValue}}},
				markups:   markup.Table{Product: markupValue},
			}
			engine := newTestEngine(loader)

			first, err := engine.Price(context.Background(), Request{Configuration: cfg})
			if err != nil {
				return false
			}
			second, err := engine.Price(context.Background(), Request{Configuration: cfg})
			if err != nil {
				return false
			}
			a, _ := json.Marshal(first.Items())
			b, _ := json.Marshal(second.Items())
			return string(a) == string(b)
		},
		gen.Float64Range(0.1, 5),
		gen.Float64Range(0.1, 5),
		gen.Float64Range(0, 50),
		gen.Float64Range(0, 50),
	))

	properties.TestingRun(t)
}

func TestAggregate(t *testing.T) {
	product := catalog.Product{TaxPercent: 10, FreightPercent: 5}
	categories := []CategoryResult{
		{Items: []Item{
			{Price: 100, MarkupPercent: 10, MarkupAddition: 10, MarkupPrice: 110},
			{Price: 50},
		}},
		{Items: []Item{{Price: math.NaN(), MarkupPrice: math.NaN()}}},
	}

	got := Aggregate(product, categories)
	assert.InDelta(t, 150, got.PreTotal, 1e-9)
	assert.InDelta(t, 15, got.Tax, 1e-9)
	assert.InDelta(t, 6.75, got.Freight, 1e-9)
	assert.InDelta(t, 128.25, got.Total, 1e-9)

	assert.InDelta(t, 160, got.MarkupTotal, 1e-9)
	assert.InDelta(t, 16, got.MarkupTax, 1e-9)
	assert.InDelta(t, 7.2, got.MarkupFreight, 1e-9)
	assert.InDelta(t, 136.8, got.MarkupFinal, 1e-9)
}

func TestAggregateRoundsTax(t *testing.T) {
	got := Aggregate(catalog.Product{TaxPercent: 7}, []CategoryResult{{Items: []Item{{Price: 33.33}}}})
	assert.Equal(t, 2.33, got.Tax)
}

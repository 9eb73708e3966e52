package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tariff-engine/internal/catalog"
	"tariff-engine/internal/discount"
	"tariff-engine/internal/formula"
	"tariff-engine/internal/markup"
	"tariff-engine/internal/promotion"
	"tariff-engine/internal/source"
)

// ErrInvalidRequest is returned for configurations that cannot be priced at
// all.
var ErrInvalidRequest = errors.New("pricing: invalid request")

// Loader fetches the remote documents of a product.
type Loader interface {
	Tariff(ctx context.Context, productID string) (catalog.Tariff, error)
	Formulas(ctx context.Context, productID string) (formula.Catalog, error)
	Discounts(ctx context.Context, productID string, r source.Reseller) (discount.Table, error)
	Markups(ctx context.Context, productID string, r source.Reseller) (markup.Table, error)
	Promotion(ctx context.Context, productID string, r source.Reseller, now time.Time) (promotion.Lookup, error)
}

// Request is one pricing run.
type Request struct {
	Configuration catalog.Configuration `json:"configuration"`
	Reseller      source.Reseller       `json:"reseller"`
}

// Quote is the priced configuration. A quote with Available false is the
// zero-valued stub returned when the product's data could not be loaded.
type Quote struct {
	ProductID  string           `json:"productId"`
	SellerID   string           `json:"sellerId"`
	Available  bool             `json:"available"`
	Promotion  string           `json:"promotion,omitempty"`
	Categories []CategoryResult `json:"categories"`
	Totals
	PricedAt time.Time `json:"pricedAt"`
}

// Items flattens the priced items of every category.
func (q Quote) Items() []Item {
	var out []Item
	for _, c := range q.Categories {
		out = append(out, c.Items...)
	}
	return out
}

type EngineDeps struct {
	Loader    Loader
	Cache     *Cache
	Evaluator formula.Evaluator
	Logger    *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine prices configurations. It is safe for concurrent use.
type Engine struct {
	loader     Loader
	cache      *Cache
	evaluator  formula.Evaluator
	logger     *zap.Logger
	now        func() time.Time
	processors []Processor
}

func NewEngine(deps EngineDeps) *Engine {
	e := &Engine{
		loader:     deps.Loader,
		cache:      deps.Cache,
		evaluator:  deps.Evaluator,
		logger:     deps.Logger,
		now:        deps.Now,
		processors: Processors(),
	}
	if e.cache == nil {
		e.cache = NewMemoryCache()
	}
	if e.evaluator == nil {
		e.evaluator = formula.NewCELEvaluator()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Price computes the quote of a configuration. Load failures produce a stub
// quote instead of an error; errors are only returned for an unusable
// request or a cancelled context.
func (e *Engine) Price(ctx context.Context, req Request) (Quote, error) {
	const operation = "pricing.Price"

	cfg := req.Configuration
	if cfg.ProductID == "" {
		return Quote{}, fmt.Errorf("%s: %w: missing product id", operation, ErrInvalidRequest)
	}
	if len(cfg.Measures) == 0 {
		return Quote{}, fmt.Errorf("%s: %w: no measures", operation, ErrInvalidRequest)
	}

	now := e.now()
	quote := Quote{
		ProductID:  cfg.ProductID,
		SellerID:   req.Reseller.SellerID,
		Categories: []CategoryResult{},
		PricedAt:   now,
	}

	in, err := e.load(ctx, cfg.ProductID, req.Reseller, now)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Quote{}, fmt.Errorf("%s: %w", operation, ctxErr)
		}
		e.logger.Error("Pricing data unavailable, returning empty quote",
			zap.String("product_id", cfg.ProductID),
			zap.String("seller_id", req.Reseller.SellerID),
			zap.Error(err))
		return quote, nil
	}
	in.Evaluator = e.evaluator
	in.Variables = formula.Variables(cfg, in.Tariff)

	for _, p := range e.processors {
		result := p.Process(in, cfg)
		for _, it := range result.Items {
			if it.BelowZero {
				e.logger.Warn("Discount chain produced a negative price",
					zap.String("product_id", cfg.ProductID),
					zap.String("category", string(it.Category)),
					zap.String("item_id", it.ItemID),
					zap.Float64("unit_price", it.UnitPrice))
			}
		}
		quote.Categories = append(quote.Categories, result)
	}

	quote.Available = true
	quote.Totals = Aggregate(in.Tariff.Product, quote.Categories)
	if in.Promotion != nil {
		quote.Promotion = in.Promotion.Descriptor.Name
	}
	return quote, nil
}

// ClearCache drops every cached document.
func (e *Engine) ClearCache(ctx context.Context) {
	e.cache.Clear(ctx)
	e.logger.Info("Pricing cache cleared")
}

// load fetches the five documents concurrently through the cache.
func (e *Engine) load(ctx context.Context, productID string, r source.Reseller, now time.Time) (Inputs, error) {
	var (
		in     Inputs
		lookup promotion.Lookup
	)
	resellerKey := r.SellerID + "/" + productID

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Tariff, err = cached(gctx, e.cache.Tariffs, productID, func(ctx context.Context) (catalog.Tariff, error) {
			return e.loader.Tariff(ctx, productID)
		})
		return err
	})
	g.Go(func() error {
		var err error
		in.Formulas, err = cached(gctx, e.cache.Formulas, productID, func(ctx context.Context) (formula.Catalog, error) {
			return e.loader.Formulas(ctx, productID)
		})
		return err
	})
	g.Go(func() error {
		var err error
		in.Discounts, err = cached(gctx, e.cache.Discounts, resellerKey, func(ctx context.Context) (discount.Table, error) {
			return e.loader.Discounts(ctx, productID, r)
		})
		return err
	})
	g.Go(func() error {
		var err error
		in.Markups, err = cached(gctx, e.cache.Markups, resellerKey, func(ctx context.Context) (markup.Table, error) {
			return e.loader.Markups(ctx, productID, r)
		})
		return err
	})
	g.Go(func() error {
		var err error
		lookup, err = cached(gctx, e.cache.Promotions, resellerKey, func(ctx context.Context) (promotion.Lookup, error) {
			return e.loader.Promotion(ctx, productID, r, now)
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return Inputs{}, err
	}
	in.Promotion = lookup.Active()
	return in, nil
}

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"tariff-engine/internal/catalog"
	"tariff-engine/internal/discount"
	"tariff-engine/internal/formula"
	"tariff-engine/internal/markup"
	"tariff-engine/internal/promotion"
)

const (
	tariffPath           = "portal/tariff/%s.json"
	formulaPath          = "portal/product/formula-%s.json"
	groupDiscountPath    = "portal/product/discount.json"
	resellerDiscountPath = "portal/reseller/%s/discount.json"
	markupPath           = "portal/markup/%s/%s.json"
	promotionDir         = "portal/promotion/%s/"
)

// ObjectStore reads catalog documents. Missing objects and folders are
// reported with an error wrapping fs.ErrNotExist.
type ObjectStore interface {
	Read(ctx context.Context, name string) ([]byte, error)
	// List returns the base names of the objects directly under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Reseller is the pricing audience and the owner of discount and markup
// tables.
type Reseller struct {
	SellerID string `json:"sellerId"`
	MemberID string `json:"memberId"`
	GroupID  string `json:"groupId"`
	// GroupDiscounts selects the shared group discount file instead of
	// the reseller's own.
	GroupDiscounts bool `json:"groupDiscounts"`
}

// Audience returns the promotion audience of the reseller. The member id
// falls back to the seller id.
func (r Reseller) Audience() promotion.Audience {
	member := r.MemberID
	if member == "" {
		member = r.SellerID
	}
	return promotion.Audience{MemberID: member, GroupID: r.GroupID}
}

// Loader fetches and decodes the documents a pricing run needs. Every read
// is retried with exponential backoff; absent objects are not retried.
type Loader struct {
	store      ObjectStore
	logger     *zap.Logger
	maxElapsed time.Duration
	location   *time.Location
}

type LoaderOption func(*Loader)

// WithMaxElapsed bounds the total retry time of one read.
func WithMaxElapsed(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.maxElapsed = d
		}
	}
}

// WithLocation sets the timezone promotion dates are written in.
func WithLocation(loc *time.Location) LoaderOption {
	return func(l *Loader) {
		if loc != nil {
			l.location = loc
		}
	}
}

func NewLoader(store ObjectStore, logger *zap.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:      store,
		logger:     logger,
		maxElapsed: 30 * time.Second,
		location:   time.UTC,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tariff loads the catalog of a product.
func (l *Loader) Tariff(ctx context.Context, productID string) (catalog.Tariff, error) {
	const operation = "source.Tariff"

	var raw rawTariff
	if err := l.readJSON(ctx, fmt.Sprintf(tariffPath, productID), &raw); err != nil {
		return catalog.Tariff{}, fmt.Errorf("%s: %w", operation, err)
	}
	return raw.toTariff(productID), nil
}

// Formulas loads the formula catalog of a product.
func (l *Loader) Formulas(ctx context.Context, productID string) (formula.Catalog, error) {
	const operation = "source.Formulas"

	var raw []rawFormula
	if err := l.readJSON(ctx, fmt.Sprintf(formulaPath, productID), &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return toCatalog(raw), nil
}

// Discounts loads the active discount table of the reseller. A reseller
// without a discount file gets an empty table.
func (l *Loader) Discounts(ctx context.Context, productID string, r Reseller) (discount.Table, error) {
	const operation = "source.Discounts"

	if r.GroupDiscounts {
		var groups []rawDiscounts
		err := l.readJSON(ctx, groupDiscountPath, &groups)
		if errors.Is(err, fs.ErrNotExist) {
			return discount.Table{}, nil
		}
		if err != nil {
			return discount.Table{}, fmt.Errorf("%s: %w", operation, err)
		}
		for _, g := range groups {
			if string(g.Group) == r.GroupID {
				return g.toTable(productID), nil
			}
		}
		return discount.Table{}, nil
	}

	var raw rawDiscounts
	err := l.readJSON(ctx, fmt.Sprintf(resellerDiscountPath, r.SellerID), &raw)
	if errors.Is(err, fs.ErrNotExist) {
		return discount.Table{}, nil
	}
	if err != nil {
		return discount.Table{}, fmt.Errorf("%s: %w", operation, err)
	}
	return raw.toTable(productID), nil
}

// Markups loads the reseller's markup table for a product. A missing file
// means no markup.
func (l *Loader) Markups(ctx context.Context, productID string, r Reseller) (markup.Table, error) {
	const operation = "source.Markups"

	var raw rawMarkups
	err := l.readJSON(ctx, fmt.Sprintf(markupPath, r.SellerID, productID), &raw)
	if errors.Is(err, fs.ErrNotExist) {
		return markup.Table{}, nil
	}
	if err != nil {
		return markup.Table{}, fmt.Errorf("%s: %w", operation, err)
	}
	return raw.toTable(), nil
}

// Promotion lists the promotion files of a product, picks the one that
// applies to the reseller at now and loads only that file.
func (l *Loader) Promotion(ctx context.Context, productID string, r Reseller, now time.Time) (promotion.Lookup, error) {
	const operation = "source.Promotion"

	dir := fmt.Sprintf(promotionDir, productID)
	names, err := l.list(ctx, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return promotion.Lookup{}, nil
	}
	if err != nil {
		return promotion.Lookup{}, fmt.Errorf("%s: %w", operation, err)
	}

	descriptors := promotion.ParseFilenames(names, l.location)
	if skipped := len(names) - len(descriptors); skipped > 0 {
		l.logger.Debug("Ignored malformed promotion files",
			zap.String("product_id", productID),
			zap.Int("skipped", skipped))
	}

	selected, ok := promotion.Find(descriptors, r.Audience(), now)
	if !ok {
		return promotion.Lookup{}, nil
	}

	var raw rawPromotion
	if err := l.readJSON(ctx, dir+selected.Name, &raw); err != nil {
		return promotion.Lookup{}, fmt.Errorf("%s: %w", operation, err)
	}
	p, err := raw.toPromotion(selected)
	if err != nil {
		return promotion.Lookup{}, fmt.Errorf("%s: %s: %w", operation, selected.Name, err)
	}
	return promotion.Lookup{Found: true, Promotion: p}, nil
}

func (l *Loader) readJSON(ctx context.Context, name string, v any) error {
	data, err := l.read(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (l *Loader) read(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := l.retry(ctx, name, func() error {
		var err error
		data, err = l.store.Read(ctx, name)
		return err
	})
	return data, err
}

func (l *Loader) list(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := l.retry(ctx, prefix, func() error {
		var err error
		names, err = l.store.List(ctx, prefix)
		return err
	})
	return names, err
}

func (l *Loader) retry(ctx context.Context, object string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = l.maxElapsed

	return backoff.RetryNotify(
		func() error {
			err := op()
			if errors.Is(err, fs.ErrNotExist) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			l.logger.Warn("Catalog fetch failed, retrying...",
				zap.String("object", object),
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"tariff-engine/internal/config"
	"tariff-engine/internal/pricing"
)

// ErrQuoteNotFound is returned by GetQuoteByID for unknown ids.
var ErrQuoteNotFound = errors.New("quote not found")

// QuoteStorage persists priced quotes in PostgreSQL.
type QuoteStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type quoteRow struct {
	ID            int64     `db:"id"`
	ProductID     string    `db:"product_id"`
	SellerID      string    `db:"seller_id"`
	Available     bool      `db:"available"`
	Promotion     string    `db:"promotion"`
	PreTotal      float64   `db:"pre_total"`
	Tax           float64   `db:"tax"`
	Freight       float64   `db:"freight"`
	Total         float64   `db:"total"`
	MarkupTotal   float64   `db:"markup_total"`
	MarkupTax     float64   `db:"markup_tax"`
	MarkupFreight float64   `db:"markup_freight"`
	MarkupFinal   float64   `db:"markup_final"`
	Categories    []byte    `db:"categories"`
	PricedAt      time.Time `db:"priced_at"`
}

func NewPostgresStorage(ctx context.Context, cfg config.Database, logger *zap.Logger) (*QuoteStorage, error) {
	const operation = "storage.NewPostgresStorage"

	var db *sqlx.DB

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err := backoff.RetryNotify(
		func() error {
			var err error
			db, err = sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			if err = db.PingContext(ctx); err != nil {
				_ = db.Close()
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return NewQuoteStorage(db, logger), nil
}

// NewQuoteStorage wraps an open connection.
func NewQuoteStorage(db *sqlx.DB, logger *zap.Logger) *QuoteStorage {
	return &QuoteStorage{db: db, logger: logger}
}

// DB exposes the underlying pool for migrations.
func (s *QuoteStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *QuoteStorage) SaveQuote(ctx context.Context, q pricing.Quote) (int64, error) {
	const operation = "storage.SaveQuote"

	const query = `
        INSERT INTO quotes (
            product_id, seller_id, available, promotion,
            pre_total, tax, freight, total,
            markup_total, markup_tax, markup_freight, markup_final,
            categories, priced_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id
    `

	categories, err := json.Marshal(q.Categories)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to encode categories: %w", operation, err)
	}

	var quoteID int64
	err = s.db.QueryRowContext(ctx, query,
		q.ProductID,
		q.SellerID,
		q.Available,
		q.Promotion,
		q.PreTotal,
		q.Tax,
		q.Freight,
		q.Total,
		q.MarkupTotal,
		q.MarkupTax,
		q.MarkupFreight,
		q.MarkupFinal,
		categories,
		q.PricedAt,
	).Scan(&quoteID)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to save quote: %w", operation, err)
	}

	s.logger.Info("Quote saved",
		zap.Int64("quote_id", quoteID),
		zap.String("product_id", q.ProductID),
		zap.Float64("total", q.Total))
	return quoteID, nil
}

// GetQuoteByID loads a saved quote.
func (s *QuoteStorage) GetQuoteByID(ctx context.Context, quoteID int64) (pricing.Quote, error) {
	const operation = "storage.GetQuoteByID"

	const query = `
        SELECT id, product_id, seller_id, available, promotion,
               pre_total, tax, freight, total,
               markup_total, markup_tax, markup_freight, markup_final,
               categories, priced_at
        FROM quotes
        WHERE id = $1
    `

	var row quoteRow
	if err := s.db.GetContext(ctx, &row, query, quoteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pricing.Quote{}, fmt.Errorf("%s: %d: %w", operation, quoteID, ErrQuoteNotFound)
		}
		return pricing.Quote{}, fmt.Errorf("%s: failed to get quote: %w", operation, err)
	}

	q := pricing.Quote{
		ProductID: row.ProductID,
		SellerID:  row.SellerID,
		Available: row.Available,
		Promotion: row.Promotion,
		PricedAt:  row.PricedAt,
		Totals: pricing.Totals{
			PreTotal:      row.PreTotal,
			Tax:           row.Tax,
			Freight:       row.Freight,
			Total:         row.Total,
			MarkupTotal:   row.MarkupTotal,
			MarkupTax:     row.MarkupTax,
			MarkupFreight: row.MarkupFreight,
			MarkupFinal:   row.MarkupFinal,
		},
	}
	if err := json.Unmarshal(row.Categories, &q.Categories); err != nil {
		return pricing.Quote{}, fmt.Errorf("%s: failed to decode categories: %w", operation, err)
	}
	return q, nil
}

func (s *QuoteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

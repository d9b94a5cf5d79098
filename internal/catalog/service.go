package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"shoply/shop-service/internal/cache"
)

// seedProducts is the fixed demo catalog. Seeding is a replace, so drifted
// prices or stray rows are corrected on the next run.
var seedProducts = []Product{
	{SKU: "mouse", Name: "Wireless Mouse", Description: "Low-latency 2.4GHz wireless mouse.", PriceCents: 2999},
	{SKU: "keyboard", Name: "Mechanical Keyboard", Description: "Tenkeyless board with hot-swap switches.", PriceCents: 5999},
	{SKU: "monitor", Name: "27\" 4K Monitor", Description: "27 inch IPS panel, factory calibrated.", PriceCents: 19999},
}

type Service struct {
	repo   Repository
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewService(repo Repository, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, logger: logger}
}

func (s *Service) Seed(ctx context.Context) error {
	if err := s.repo.Replace(ctx, seedProducts); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	s.logger.Info("catalog seeded", "products", len(seedProducts))
	return nil
}

// List returns the catalog, read-through cached. Cache failures are logged
// and degrade to a direct read; they never fail the request.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	key := s.cache.Key("catalog", "products")

	if raw, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("catalog cache read failed", "err", err)
	} else if raw != "" {
		var products []Product
		if err := json.Unmarshal([]byte(raw), &products); err == nil {
			return products, nil
		}
		s.logger.Warn("catalog cache entry corrupt, ignoring", "key", key)
	}

	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if blob, err := json.Marshal(products); err == nil {
		if err := s.cache.Set(ctx, key, blob, s.ttl); err != nil {
			s.logger.Warn("catalog cache write failed", "err", err)
		}
	}

	return products, nil
}

// Resolve maps cart SKUs to products. Every requested SKU must exist.
func (s *Service) Resolve(ctx context.Context, skus []string) (map[string]Product, error) {
	found, err := s.repo.BySKUs(ctx, skus)
	if err != nil {
		return nil, err
	}
	for _, sku := range skus {
		if _, ok := found[sku]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, sku)
		}
	}
	return found, nil
}

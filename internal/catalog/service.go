// Package catalog loads products and categories from the catalog service and
// runs the filter pipeline over them.
//
// Listing failures never reach the caller: a failed fetch is logged and
// degrades to an empty collection so views render "no products" instead of
// an error.
package catalog

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/filter"
	"github.com/kokossimo/kokocli/internal/logger"
	"github.com/kokossimo/kokocli/internal/search"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher is the subset of api.Client the service needs.
type Fetcher interface {
	FetchProducts(ctx context.Context, q api.ProductQuery) ([]api.Product, error)
	FetchProduct(ctx context.Context, id string) (*api.Product, error)
	FetchCategories(ctx context.Context) ([]api.Category, error)
	FetchRatings(ctx context.Context, productID string) ([]api.Rating, error)
}

const (
	defaultCacheSize = 64
	defaultCacheTTL  = time.Minute
	categoriesKey    = "categories"
)

// Snapshot is one consistent load of the catalog.
type Snapshot struct {
	Products   []api.Product
	Categories []api.Category
}

// Service wraps a Fetcher with caching, logging and the degrade-to-empty
// policy.
type Service struct {
	fetcher    Fetcher
	logger     *zap.Logger
	threshold  float64
	cacheSize  int
	cacheTTL   time.Duration
	products   *expirable.LRU[string, []api.Product]
	categories *expirable.LRU[string, []api.Category]
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for degraded fetches. A logger carried by
// the call's context takes precedence.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithThreshold sets the search threshold used by Run.
func WithThreshold(t float64) Option {
	return func(s *Service) {
		if t > 0 {
			s.threshold = t
		}
	}
}

// WithCache sets the cache capacity and entry lifetime. A non-positive size
// disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheSize = size
		s.cacheTTL = ttl
	}
}

// NewService creates a Service over f.
func NewService(f Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:   f,
		logger:    zap.NewNop(),
		threshold: search.DefaultThreshold,
		cacheSize: defaultCacheSize,
		cacheTTL:  defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize > 0 {
		s.products = expirable.NewLRU[string, []api.Product](s.cacheSize, nil, s.cacheTTL)
		s.categories = expirable.NewLRU[string, []api.Category](1, nil, s.cacheTTL)
	}
	return s
}

// log returns the request-scoped logger when ctx carries one.
func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// Threshold returns the search threshold used by Run.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Products returns the products matching q. Fetch failures yield an empty,
// non-nil slice.
func (s *Service) Products(ctx context.Context, q api.ProductQuery) []api.Product {
	key := q.Params().Encode()
	if s.products != nil {
		if cached, ok := s.products.Get(key); ok {
			s.log(ctx).Debug("products cache hit", zap.String("query", key))
			return cached
		}
	}

	started := time.Now()
	products, err := s.fetcher.FetchProducts(ctx, q)
	if err != nil {
		s.log(ctx).Warn("products unavailable, showing empty catalog",
			zap.String("query", key),
			zap.Error(err),
		)
		return []api.Product{}
	}
	if products == nil {
		products = []api.Product{}
	}

	s.log(ctx).Debug("products fetched",
		zap.String("query", key),
		zap.Int("count", len(products)),
		zap.Duration("elapsed", time.Since(started)),
	)
	if s.products != nil {
		s.products.Add(key, products)
	}
	return products
}

// Categories returns all categories. Fetch failures yield an empty, non-nil
// slice.
func (s *Service) Categories(ctx context.Context) []api.Category {
	if s.categories != nil {
		if cached, ok := s.categories.Get(categoriesKey); ok {
			return cached
		}
	}

	categories, err := s.fetcher.FetchCategories(ctx)
	if err != nil {
		s.log(ctx).Warn("categories unavailable", zap.Error(err))
		return []api.Category{}
	}
	if categories == nil {
		categories = []api.Category{}
	}
	if s.categories != nil {
		s.categories.Add(categoriesKey, categories)
	}
	return categories
}

// Load fetches products and categories in parallel.
func (s *Service) Load(ctx context.Context, q api.ProductQuery) Snapshot {
	var snap Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Products = s.Products(gctx, q)
		return nil
	})
	g.Go(func() error {
		snap.Categories = s.Categories(gctx)
		return nil
	})
	_ = g.Wait()

	return snap
}

// Product fetches one product. Unlike listings, a failure here is returned:
// there is nothing sensible to render in its place.
func (s *Service) Product(ctx context.Context, id string) (*api.Product, error) {
	return s.fetcher.FetchProduct(ctx, id)
}

// Ratings returns the reviews for a product, or an empty slice on failure.
func (s *Service) Ratings(ctx context.Context, productID string) []api.Rating {
	ratings, err := s.fetcher.FetchRatings(ctx, productID)
	if err != nil {
		s.log(ctx).Warn("ratings unavailable", zap.String("product_id", productID), zap.Error(err))
		return []api.Rating{}
	}
	if ratings == nil {
		ratings = []api.Rating{}
	}
	return ratings
}

// QueryFor derives server-side narrowing hints from st. The server result is
// always a superset of what the client pipeline keeps, so Apply stays the
// source of truth.
func (s *Service) QueryFor(st filter.State) api.ProductQuery {
	q := api.ProductQuery{Categories: st.EffectiveCategories()}
	if len(q.Categories) == 0 {
		switch st.LegacyFilter {
		case filter.LegacyBestsellers:
			q.Bestsellers = true
		case filter.LegacyNew:
			q.NewArrivals = true
		}
	}
	q.PriceMin = boundParam(st.PriceMin)
	q.PriceMax = boundParam(st.PriceMax)
	return q
}

// Run fetches, filters, sorts and truncates the catalog for st. limit <= 0
// means no limit.
func (s *Service) Run(ctx context.Context, st filter.State, limit int) []api.Product {
	products := s.Products(ctx, s.QueryFor(st))
	filtered := filter.ApplyWithThreshold(products, st, s.threshold)
	return filter.Limit(filter.Sort(filtered, st.Sort), limit)
}

// Invalidate drops every cached response.
func (s *Service) Invalidate() {
	if s.products != nil {
		s.products.Purge()
	}
	if s.categories != nil {
		s.categories.Purge()
	}
}

func boundParam(b decimal.NullDecimal) string {
	if !b.Valid {
		return ""
	}
	return b.Decimal.String()
}

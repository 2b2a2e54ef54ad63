package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pricing-table-api/internal/cache"
	"pricing-table-api/internal/database"
	"pricing-table-api/internal/events"
	"pricing-table-api/internal/features"
	"pricing-table-api/internal/models"
	"pricing-table-api/internal/pricing"
	"pricing-table-api/internal/render"
	"pricing-table-api/internal/validation"
)

// Service provides business logic for the pricing table API.
type Service struct {
	db       *database.DB
	selector *pricing.Selector
	builder  *pricing.TableBuilder
	renderer *render.HTMLRenderer
	cache    cache.Cache
	events   *events.Manager
	features *features.Manager
	maxQty   pricing.MaxQuantityResolver
	location *time.Location
	attrKey  string
	header   models.TableHeader
	cacheTTL time.Duration
	logger   *log.Logger
}

// Options configures a Service. Zero-value fields get working defaults;
// Cache and MaxQuantityResolver are optional capabilities and stay nil when
// not provided.
type Options struct {
	Selector    *pricing.Selector
	Builder     *pricing.TableBuilder
	Renderer    *render.HTMLRenderer
	Cache       cache.Cache
	Events      *events.Manager
	Features    *features.Manager
	MaxQuantity pricing.MaxQuantityResolver
	Location    *time.Location
	AttributeKey string
	Header      models.TableHeader
	CacheTTL    time.Duration
	Logger      *log.Logger
}

// NewService creates a new service instance.
func NewService(db *database.DB, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Selector == nil {
		opts.Selector = pricing.NewSelector(pricing.NewRegistry(), opts.Location)
	}
	if opts.Builder == nil {
		opts.Builder = &pricing.TableBuilder{
			Format: render.NewFormatter(render.DefaultFormat()),
			Labels: pricing.DefaultLabels(),
		}
	}
	if opts.Renderer == nil {
		opts.Renderer = render.NewHTMLRenderer()
	}
	if opts.Events == nil {
		opts.Events = events.NewManager(false)
	}
	if opts.Features == nil {
		opts.Features = features.NewManager()
	}
	if opts.AttributeKey == "" {
		opts.AttributeKey = "pieces-per-carton"
	}
	if opts.Header == (models.TableHeader{}) {
		opts.Header = models.TableHeader{Cartons: "Cartons", Discount: "Discount", Price: "€/unit"}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Service{
		db:       db,
		selector: opts.Selector,
		builder:  opts.Builder,
		renderer: opts.Renderer,
		cache:    opts.Cache,
		events:   opts.Events,
		features: opts.Features,
		maxQty:   opts.MaxQuantity,
		location: opts.Location,
		attrKey:  opts.AttributeKey,
		header:   opts.Header,
		cacheTTL: opts.CacheTTL,
		logger:   opts.Logger,
	}
}

// Location returns the site location rule-set date windows are evaluated in.
func (s *Service) Location() *time.Location {
	return s.location
}

// SaveProduct validates and upserts a product.
func (s *Service) SaveProduct(ctx context.Context, product models.Product) error {
	if err := validation.ValidateProduct(product); err != nil {
		return err
	}

	if err := s.db.UpsertProduct(ctx, product); err != nil {
		return err
	}

	s.events.PublishProductSaved(ctx, product)
	return nil
}

// SetProductMeta stores a single product meta value, such as the maximum
// allowed order quantity.
func (s *Service) SetProductMeta(ctx context.Context, productID int64, key, value string) error {
	if productID <= 0 {
		return fmt.Errorf("product id must be positive")
	}
	return s.db.SetProductMeta(ctx, productID, validation.SanitizeString(key), validation.SanitizeString(value))
}

// SaveRuleSets validates and replaces a product's pricing rule sets. Rule
// sets without an id get one assigned; the stored ids are returned in order.
func (s *Service) SaveRuleSets(ctx context.Context, productID int64, ruleSets []models.RuleSet) ([]string, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("product id must be positive")
	}

	ids := make([]string, len(ruleSets))
	for i := range ruleSets {
		ruleSets[i].ID = validation.SanitizeString(ruleSets[i].ID)
		if ruleSets[i].ID == "" {
			ruleSets[i].ID = uuid.New().String()
		}
		if err := validation.ValidateRuleSet(ruleSets[i]); err != nil {
			return nil, fmt.Errorf("invalid rule set at index %d: %w", i, err)
		}
		ids[i] = ruleSets[i].ID
	}

	if err := s.db.SaveRuleSets(ctx, productID, ruleSets); err != nil {
		return nil, err
	}

	s.events.PublishRuleSetsSaved(ctx, productID, ruleSets)
	return ids, nil
}

// RenderTable computes the pricing table for a product as seen by a viewer at
// a point in time. Every short-circuit of the render contract (unknown
// product, no rule sets, nothing active, unsupported mode) yields a table
// with zero rows and no error.
func (s *Service) RenderTable(ctx context.Context, productID int64, viewer pricing.Viewer, now time.Time) (models.PricingTable, error) {
	empty := models.PricingTable{ProductID: productID, Header: s.header, Rows: []models.TierRow{}}

	if productID <= 0 {
		return empty, nil
	}

	cacheKey := s.tableCacheKey(productID, viewer, now)
	if cached, ok := s.cachedTable(ctx, cacheKey); ok {
		return cached, nil
	}

	product, err := s.db.GetProduct(ctx, productID)
	if err != nil {
		return empty, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return empty, nil
	}

	ruleSets, err := s.db.GetRuleSets(ctx, productID)
	if err != nil {
		return empty, fmt.Errorf("failed to load rule sets: %w", err)
	}
	if len(ruleSets) == 0 {
		return empty, nil
	}

	active := s.selector.SelectActive(ruleSets, viewer, now)
	if active == nil || active.Mode != models.ModeContinuous {
		return empty, nil
	}

	pieceFactor := pricing.PieceFactor(product, s.attrKey)
	maxOrder := s.resolveMaxQuantity(ctx, productID)

	table := models.PricingTable{
		ProductID: productID,
		Header:    s.header,
		Rows:      s.builder.BuildRows(product.RegularPrice, pieceFactor, maxOrder, active.Tiers),
	}

	s.storeTable(ctx, cacheKey, table)
	s.events.PublishTableRendered(ctx, productID, pricing.Fingerprint(viewer), len(table.Rows))

	return table, nil
}

// RenderTableHTML computes the table and renders the markup fragment. An
// empty table renders to an empty string.
func (s *Service) RenderTableHTML(ctx context.Context, productID int64, viewer pricing.Viewer, now time.Time) (string, error) {
	table, err := s.RenderTable(ctx, productID, viewer, now)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(table)
}

// resolveMaxQuantity folds the optional quantity-rules resolver and the
// stored meta fallbacks into a plain cap, 0 meaning unbounded. Resolver
// failures are swallowed into the fallback chain.
func (s *Service) resolveMaxQuantity(ctx context.Context, productID int64) int {
	if !s.features.IsEnabled(features.FeatureMaxQuantityCapping) {
		return 0
	}

	if s.maxQty != nil {
		if q, err := s.maxQty.MaxOrderQuantity(ctx, productID); err == nil && q > 0 {
			return q
		}
	}

	for _, key := range []string{database.MetaMaxQuantity, database.MetaVariationMaxQuantity} {
		value, err := s.db.GetProductMeta(ctx, productID, key)
		if err != nil || value == "" {
			continue
		}
		if q, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && q > 0 {
			return q
		}
	}

	return 0
}

// tableCacheKey identifies a render result. Activity only changes at local
// midnight, on a rules write, or between audiences, so the key carries the
// local calendar day and the viewer fingerprint; writes are covered by the TTL.
func (s *Service) tableCacheKey(productID int64, viewer pricing.Viewer, now time.Time) string {
	day := now.In(s.location).Format("2006-01-02")
	return fmt.Sprintf("pricing-table:%d:%s:%s", productID, pricing.Fingerprint(viewer), day)
}

func (s *Service) cachedTable(ctx context.Context, key string) (models.PricingTable, bool) {
	if s.cache == nil || !s.features.IsEnabled(features.FeatureCacheEnabled) {
		return models.PricingTable{}, false
	}

	var table models.PricingTable
	if err := cache.GetJSON(ctx, s.cache, key, &table); err != nil {
		if err != cache.ErrNotFound {
			s.logger.Printf("cache read failed for %s: %v", key, err)
		}
		return models.PricingTable{}, false
	}
	return table, true
}

func (s *Service) storeTable(ctx context.Context, key string, table models.PricingTable) {
	if s.cache == nil || !s.features.IsEnabled(features.FeatureCacheEnabled) {
		return
	}

	if err := cache.SetJSON(ctx, s.cache, key, table, s.cacheTTL); err != nil {
		s.logger.Printf("cache write failed for %s: %v", key, err)
	}
}

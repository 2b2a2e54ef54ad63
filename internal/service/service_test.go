package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pricing-table-api/internal/cache"
	"pricing-table-api/internal/database"
	"pricing-table-api/internal/features"
	"pricing-table-api/internal/models"
	"pricing-table-api/internal/pricing"
)

type stubViewer struct {
	authed bool
	roles  []string
}

func (v stubViewer) Authenticated() bool { return v.authed }
func (v stubViewer) HasRole(role string) bool {
	for _, r := range v.roles {
		if r == role {
			return true
		}
	}
	return false
}
func (v stubViewer) Roles() []string { return v.roles }

type stubResolver struct {
	quantity int
	err      error
}

func (r stubResolver) MaxOrderQuantity(ctx context.Context, productID int64) (int, error) {
	return r.quantity, r.err
}

func f64(v float64) *float64 { return &v }

func setupTestService(t *testing.T, opts Options) (*Service, func()) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if opts.Features == nil {
		opts.Features = features.NewManager()
		opts.Features.Register(features.FeatureMaxQuantityCapping, true, "")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	svc := NewService(db, opts)
	return svc, func() {
		db.Close()
	}
}

func seedProduct(t *testing.T, svc *Service, product models.Product, ruleSets []models.RuleSet) {
	t.Helper()
	ctx := context.Background()

	if err := svc.SaveProduct(ctx, product); err != nil {
		t.Fatalf("Failed to save product: %v", err)
	}
	if ruleSets != nil {
		if _, err := svc.SaveRuleSets(ctx, product.ID, ruleSets); err != nil {
			t.Fatalf("Failed to save rule sets: %v", err)
		}
	}
}

func continuousRuleSet(tiers []models.Tier) models.RuleSet {
	return models.RuleSet{
		Title:     "Bulk pricing",
		ScopeType: models.ScopeProduct,
		Mode:      models.ModeContinuous,
		Tiers:     tiers,
	}
}

func TestSaveProduct_Validation(t *testing.T) {
	svc, cleanup := setupTestService(t, Options{})
	defer cleanup()

	err := svc.SaveProduct(context.Background(), models.Product{ID: 1, Name: "", RegularPrice: 10})
	if err == nil {
		t.Error("Expected validation error for product without a name")
	}

	err = svc.SaveProduct(context.Background(), models.Product{ID: 0, Name: "Widget", RegularPrice: 10})
	if err == nil {
		t.Error("Expected validation error for non-positive product id")
	}
}

func TestSaveRuleSets_AssignsIDs(t *testing.T) {
	svc, cleanup := setupTestService(t, Options{})
	defer cleanup()
	ctx := context.Background()

	seedProduct(t, svc, models.Product{ID: 1, Name: "Widget", RegularPrice: 100}, nil)

	ids, err := svc.SaveRuleSets(ctx, 1, []models.RuleSet{
		continuousRuleSet([]models.Tier{{From: 1, Type: models.TierPercentageDiscount, Amount: f64(10)}}),
		{
			ID:        "b3c54f1e-5a90-4a3e-9a11-6f0f8f8c2d41",
			Title:     "Named",
			ScopeType: models.ScopeProduct,
			Mode:      models.ModeContinuous,
		},
	})
	if err != nil {
		t.Fatalf("SaveRuleSets failed: %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("Expected 2 ids, got %d", len(ids))
	}
	if ids[0] == "" {
		t.Error("Expected a generated id for the first rule set")
	}
	if ids[1] != "b3c54f1e-5a90-4a3e-9a11-6f0f8f8c2d41" {
		t.Errorf("Expected the provided id to be preserved, got %s", ids[1])
	}
}

func TestSaveRuleSets_RejectsInvalid(t *testing.T) {
	svc, cleanup := setupTestService(t, Options{})
	defer cleanup()

	_, err := svc.SaveRuleSets(context.Background(), 1, []models.RuleSet{
		{Title: "No mode", ScopeType: models.ScopeProduct},
	})
	if err == nil {
		t.Error("Expected error for rule set without a mode")
	}
}

func TestRenderTable_FullPipeline(t *testing.T) {
	svc, cleanup := setupTestService(t, Options{})
	defer cleanup()

	seedProduct(t, svc,
		models.Product{
			ID:           1,
			Name:         "Widget",
			RegularPrice: 100,
			Attributes:   map[string]string{"pieces-per-carton": "10"},
		},
		[]models.RuleSet{continuousRuleSet([]models.Tier{
			{From: 1, To: f64(5), Type: models.TierPercentageDiscount, Amount: f64(20)},
			{From: 6, To: f64(10), Type: models.TierFixedPrice, Amount: f64(70)},
		})},
	)

	table, err := svc.RenderTable(context.Background(), 1, pricing.Anonymous, time.Now().UTC())
	if err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}

	if table.ProductID != 1 {
		t.Errorf("Expected product id 1, got %d", table.ProductID)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[0].Discount != "20%" || table.Rows[0].UnitPrice != "€8,00" {
		t.Errorf("Unexpected first row: %s / %s", table.Rows[0].Discount, table.Rows[0].UnitPrice)
	}
	if table.Rows[1].Discount != "30%" || table.Rows[1].UnitPrice != "€7,00" {
		t.Errorf("Unexpected second row: %s / %s", table.Rows[1].Discount, table.Rows[1].UnitPrice)
	}
}

func TestRenderTable_EmptyContracts(t *testing.T) {
	svc, cleanup := setupTestService(t, Options{})
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	assertEmpty := func(name string, productID int64) {
		t.Helper()
		table, err := svc.RenderTable(ctx, productID, pricing.Anonymous, now)
		if err != nil {
			t.Fatalf("%s: RenderTable failed: %v", name, err)
		}
		if table.Rows == nil || len(table.Rows) != 0 {
			t.Errorf("%s: expected an empty row slice, got %v", name, table.Rows)
		}
	}

	// Unknown product
	assertEmpty("unknown product", 99)

	// Product without rule sets
	seedProduct(t, svc, models.Product{ID: 1, Name: "Widget", RegularPrice: 100}, nil)
	assertEmpty("no rule sets", 1)

	// Rule set out of its date window
	seedProduct(t, svc, models.Product{ID: 2, Name: "Gadget", RegularPrice: 100}, []models.RuleSet{{
		Title:     "Expired",
		ScopeType: models.ScopeProduct,
		Mode:      models.ModeContinuous,
		DateTo:    "2020-01-01",
		Tiers:     []models.Tier{{From: 1, Type: models.TierPercentageDiscount, Amount: f64(10)}},
	}})
	assertEmpty("expired window", 2)

	// Non-continuous mode is selected but not rendered
	seedProduct(t, svc, models.Product{ID: 3, Name: "Gizmo", RegularPrice: 100}, []models.RuleSet{{
		Title:     "Stepped",
		ScopeType: models.ScopeProduct,
		Mode:      "bulk",
		Tiers:     []models.Tier{{From: 1, Type: models.TierPercentageDiscount, Amount: f64(10)}},
	}})
	assertEmpty("unsupported mode", 3)
}

func TestRenderTable_MaxQuantityFromResolver(t *testing.T) {
	svc, cleanup := setupTestService(t, Options{
		MaxQuantity: stubResolver{quantity: 50},
	})
	defer cleanup()

	seedProduct(t, svc,
		models.Product{ID: 1, Name: "Widget", RegularPrice: 100},
		[]models.RuleSet{continuousRuleSet([]models.Tier{
			{From: 40, To: f64(50), Type: models.TierPercentageDiscount, Amount: f64(10)},
		})},
	)

	table, err := svc.RenderTable(context.Background(), 1, pricing.Anonymous, time.Now().UTC())
	if err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}
	if table.Rows[0].CartonLabel != "From 40+" {
		t.Errorf("Expected capped tier to render open-ended, got %q", table.Rows[0].CartonLabel)
	}
}

func TestRenderTable_MaxQuantityFromMeta(t *testing.T) {
	svc, cleanup := setupTestService(t, Options{})
	defer cleanup()
	ctx := context.Background()

	seedProduct(t, svc,
		models.Product{ID: 1, Name: "Widget", RegularPrice: 100},
		[]models.RuleSet{continuousRuleSet([]models.Tier{
			{From: 40, To: f64(50), Type: models.TierPercentageDiscount, Amount: f64(10)},
		})},
	)
	if err := svc.SetProductMeta(ctx, 1, database.MetaMaxQuantity, "50"); err != nil {
		t.Fatalf("SetProductMeta failed: %v", err)
	}

	table, err := svc.RenderTable(ctx, 1, pricing.Anonymous, time.Now().UTC())
	if err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}
	if table.Rows[0].CartonLabel != "From 40+" {
		t.Errorf("Expected meta cap to render open-ended, got %q", table.Rows[0].CartonLabel)
	}
}

func TestRenderTable_MaxQuantityCappingDisabled(t *testing.T) {
	flags := features.NewManager()
	flags.Register(features.FeatureMaxQuantityCapping, false, "")

	svc, cleanup := setupTestService(t, Options{
		Features:    flags,
		MaxQuantity: stubResolver{quantity: 50},
	})
	defer cleanup()

	seedProduct(t, svc,
		models.Product{ID: 1, Name: "Widget", RegularPrice: 100},
		[]models.RuleSet{continuousRuleSet([]models.Tier{
			{From: 40, To: f64(50), Type: models.TierPercentageDiscount, Amount: f64(10)},
		})},
	)

	table, err := svc.RenderTable(context.Background(), 1, pricing.Anonymous, time.Now().UTC())
	if err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}
	if table.Rows[0].CartonLabel != "From 40 to 50" {
		t.Errorf("Expected bounded range when capping is off, got %q", table.Rows[0].CartonLabel)
	}
}

func TestRenderTable_RoleConditionedAudience(t *testing.T) {
	svc, cleanup := setupTestService(t, Options{})
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	wholesale := continuousRuleSet([]models.Tier{
		{From: 1, Type: models.TierPercentageDiscount, Amount: f64(30)},
	})
	wholesale.Conditions = []models.Condition{{
		Type: "apply_to",
		Args: models.ConditionArgs{AppliesTo: "roles", Roles: []string{"wholesale"}},
	}}

	seedProduct(t, svc, models.Product{ID: 1, Name: "Widget", RegularPrice: 100}, []models.RuleSet{wholesale})

	table, err := svc.RenderTable(ctx, 1, stubViewer{authed: true, roles: []string{"wholesale"}}, now)
	if err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("Expected wholesale viewer to see the table, got %d rows", len(table.Rows))
	}

	table, err = svc.RenderTable(ctx, 1, pricing.Anonymous, now)
	if err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Errorf("Expected anonymous viewer to see no rows, got %d", len(table.Rows))
	}
}

func TestRenderTable_CachesPerViewer(t *testing.T) {
	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, true, "")
	flags.Register(features.FeatureMaxQuantityCapping, false, "")
	memCache := cache.NewInMemoryCache()

	svc, cleanup := setupTestService(t, Options{
		Features: flags,
		Cache:    memCache,
		CacheTTL: time.Minute,
	})
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	seedProduct(t, svc,
		models.Product{ID: 1, Name: "Widget", RegularPrice: 100},
		[]models.RuleSet{continuousRuleSet([]models.Tier{
			{From: 1, Type: models.TierPercentageDiscount, Amount: f64(20)},
		})},
	)

	first, err := svc.RenderTable(ctx, 1, pricing.Anonymous, now)
	if err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}

	// A later save is not visible through the cached render
	if _, err := svc.SaveRuleSets(ctx, 1, []models.RuleSet{continuousRuleSet([]models.Tier{
		{From: 1, Type: models.TierPercentageDiscount, Amount: f64(50)},
	})}); err != nil {
		t.Fatalf("SaveRuleSets failed: %v", err)
	}

	second, err := svc.RenderTable(ctx, 1, pricing.Anonymous, now)
	if err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}
	if second.Rows[0].Discount != first.Rows[0].Discount {
		t.Errorf("Expected the cached render, got %s then %s", first.Rows[0].Discount, second.Rows[0].Discount)
	}

	// A different audience misses the cache and sees the new rules
	authed, err := svc.RenderTable(ctx, 1, stubViewer{authed: true}, now)
	if err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}
	if authed.Rows[0].Discount != "50%" {
		t.Errorf("Expected a fresh render for a new audience, got %s", authed.Rows[0].Discount)
	}
}

func TestRenderTableHTML(t *testing.T) {
	svc, cleanup := setupTestService(t, Options{})
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	seedProduct(t, svc,
		models.Product{ID: 1, Name: "Widget", RegularPrice: 100},
		[]models.RuleSet{continuousRuleSet([]models.Tier{
			{From: 1, To: f64(5), Type: models.TierPercentageDiscount, Amount: f64(20)},
		})},
	)

	html, err := svc.RenderTableHTML(ctx, 1, pricing.Anonymous, now)
	if err != nil {
		t.Fatalf("RenderTableHTML failed: %v", err)
	}
	if html == "" {
		t.Fatal("Expected a markup fragment")
	}

	empty, err := svc.RenderTableHTML(ctx, 99, pricing.Anonymous, now)
	if err != nil {
		t.Fatalf("RenderTableHTML failed: %v", err)
	}
	if empty != "" {
		t.Errorf("Expected an empty fragment for an unknown product, got %q", empty)
	}
}

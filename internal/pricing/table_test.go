package pricing

import (
	"fmt"
	"strings"
	"testing"

	"pricing-table-api/internal/models"
	"pricing-table-api/internal/render"
)

func newTestBuilder() *TableBuilder {
	return &TableBuilder{
		Format: render.NewFormatter(render.DefaultFormat()),
		Labels: DefaultLabels(),
	}
}

func TestBuildRows_PercentageDiscount(t *testing.T) {
	b := newTestBuilder()

	rows := b.BuildRows(100, 10, 0, []models.Tier{
		{From: 1, To: f64(5), Type: models.TierPercentageDiscount, Amount: f64(20)},
	})

	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].Discount != "20%" {
		t.Errorf("Expected discount 20%%, got %s", rows[0].Discount)
	}
	// (100 - 20) / 10 pieces per carton
	if rows[0].UnitPrice != "€8,00" {
		t.Errorf("Expected unit price €8,00, got %s", rows[0].UnitPrice)
	}
}

func TestBuildRows_FixedPrice(t *testing.T) {
	b := newTestBuilder()

	rows := b.BuildRows(100, 5, 0, []models.Tier{
		{From: 1, To: f64(5), Type: models.TierFixedPrice, Amount: f64(80)},
	})

	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].Discount != "20%" {
		t.Errorf("Expected discount 20%%, got %s", rows[0].Discount)
	}
	if rows[0].UnitPrice != "€16,00" {
		t.Errorf("Expected unit price €16,00, got %s", rows[0].UnitPrice)
	}
}

func TestBuildRows_PriceDiscount(t *testing.T) {
	b := newTestBuilder()

	rows := b.BuildRows(100, 4, 0, []models.Tier{
		{From: 1, To: f64(5), Type: models.TierPriceDiscount, Amount: f64(30)},
	})

	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].Discount != "30%" {
		t.Errorf("Expected discount 30%%, got %s", rows[0].Discount)
	}
	if rows[0].UnitPrice != "€17,50" {
		t.Errorf("Expected unit price €17,50, got %s", rows[0].UnitPrice)
	}
}

func TestBuildRows_ZeroBasePrice(t *testing.T) {
	b := newTestBuilder()

	rows := b.BuildRows(0, 1, 0, []models.Tier{
		{From: 1, Type: models.TierFixedPrice, Amount: f64(80)},
		{From: 1, Type: models.TierPriceDiscount, Amount: f64(30)},
	})

	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Discount != "0%" {
			t.Errorf("Expected 0%% discount for zero base price, got %s", row.Discount)
		}
	}
}

func TestBuildRows_DiscountRoundsHalfAwayFromZero(t *testing.T) {
	b := newTestBuilder()

	// (3 - 1) / 3 = 66.67% which rounds to 67%
	rows := b.BuildRows(3, 1, 0, []models.Tier{
		{From: 1, Type: models.TierFixedPrice, Amount: f64(1)},
	})
	if rows[0].Discount != "67%" {
		t.Errorf("Expected discount 67%%, got %s", rows[0].Discount)
	}

	// 0.375 / 2.5 = 15% exactly; 0.3 / 2.4 = 12.5% which rounds up to 13%
	rows = b.BuildRows(2.4, 1, 0, []models.Tier{
		{From: 1, Type: models.TierPriceDiscount, Amount: f64(0.3)},
	})
	if rows[0].Discount != "13%" {
		t.Errorf("Expected discount 13%%, got %s", rows[0].Discount)
	}
}

func TestBuildRows_SingleValueLabels(t *testing.T) {
	b := newTestBuilder()

	rows := b.BuildRows(100, 1, 0, []models.Tier{
		{From: 1, Type: models.TierPercentageDiscount, Amount: f64(5)},
		{From: 2, To: f64(2), Type: models.TierPercentageDiscount, Amount: f64(10)},
	})

	if rows[0].CartonLabel != "1 carton" || rows[0].UnitLabel != "1 unit" {
		t.Errorf("Expected singular labels, got %q / %q", rows[0].CartonLabel, rows[0].UnitLabel)
	}
	if rows[1].CartonLabel != "2 cartons" || rows[1].UnitLabel != "2 units" {
		t.Errorf("Expected plural labels, got %q / %q", rows[1].CartonLabel, rows[1].UnitLabel)
	}
}

func TestBuildRows_SingularFollowsUnitCount(t *testing.T) {
	b := newTestBuilder()

	// One carton of 12 pieces: singular carton, plural units
	rows := b.BuildRows(100, 12, 0, []models.Tier{
		{From: 1, Type: models.TierPercentageDiscount, Amount: f64(5)},
	})

	if rows[0].CartonLabel != "1 carton" {
		t.Errorf("Expected '1 carton', got %q", rows[0].CartonLabel)
	}
	if rows[0].UnitLabel != "12 units" {
		t.Errorf("Expected '12 units', got %q", rows[0].UnitLabel)
	}
}

func TestBuildRows_BoundedRangeLabels(t *testing.T) {
	b := newTestBuilder()

	rows := b.BuildRows(100, 1000, 0, []models.Tier{
		{From: 1, To: f64(5), Type: models.TierPercentageDiscount, Amount: f64(5)},
	})

	if rows[0].CartonLabel != "From 1 to 5" {
		t.Errorf("Expected 'From 1 to 5', got %q", rows[0].CartonLabel)
	}
	if rows[0].UnitLabel != "from 1.000 to 5.000 units" {
		t.Errorf("Expected grouped unit counts, got %q", rows[0].UnitLabel)
	}
}

func TestBuildRows_MaxOrderCapMakesOpenEnded(t *testing.T) {
	b := newTestBuilder()

	rows := b.BuildRows(100, 10, 50, []models.Tier{
		{From: 40, To: f64(50), Type: models.TierPercentageDiscount, Amount: f64(5)},
	})

	if rows[0].CartonLabel != "From 40+" {
		t.Errorf("Expected 'From 40+', got %q", rows[0].CartonLabel)
	}
	if rows[0].UnitLabel != "from 400+ units" {
		t.Errorf("Expected 'from 400+ units', got %q", rows[0].UnitLabel)
	}
}

func TestBuildRows_AbsurdBoundMakesOpenEnded(t *testing.T) {
	b := newTestBuilder()

	// No cap configured; the absolute threshold alone triggers the open form
	rows := b.BuildRows(100, 1, 0, []models.Tier{
		{From: 100, To: f64(2_000_000), Type: models.TierPercentageDiscount, Amount: f64(5)},
	})

	if rows[0].CartonLabel != "From 100+" {
		t.Errorf("Expected 'From 100+', got %q", rows[0].CartonLabel)
	}
	if rows[0].UnitLabel != "from 100+ units" {
		t.Errorf("Expected 'from 100+ units', got %q", rows[0].UnitLabel)
	}
}

func TestBuildRows_OpenEndedTierWithoutTo(t *testing.T) {
	b := newTestBuilder()

	rows := b.BuildRows(100, 2, 0, []models.Tier{
		{From: 5, Type: models.TierPercentageDiscount, Amount: f64(5)},
	})

	// A missing to renders as a single quantity, not a range
	if rows[0].CartonLabel != "5 cartons" {
		t.Errorf("Expected '5 cartons', got %q", rows[0].CartonLabel)
	}
	if rows[0].UnitLabel != "10 units" {
		t.Errorf("Expected '10 units', got %q", rows[0].UnitLabel)
	}
}

func TestBuildRows_SkipsMalformedTiers(t *testing.T) {
	var diagnostics []string
	b := newTestBuilder()
	b.Logf = func(format string, args ...any) {
		diagnostics = append(diagnostics, fmt.Sprintf(format, args...))
	}

	rows := b.BuildRows(100, 1, 0, []models.Tier{
		{From: 1, To: f64(5), Type: models.TierPercentageDiscount}, // missing amount
		{From: 6, To: f64(10), Type: "mystery_discount", Amount: f64(5)},
		{From: 11, To: f64(15), Type: models.TierPercentageDiscount, Amount: f64(10)},
	})

	if len(rows) != 1 {
		t.Fatalf("Expected only the well-formed tier to survive, got %d rows", len(rows))
	}
	if rows[0].From != 11 {
		t.Errorf("Expected the surviving row to be the third tier, got from=%v", rows[0].From)
	}
	if len(diagnostics) != 2 {
		t.Fatalf("Expected 2 diagnostics, got %d: %v", len(diagnostics), diagnostics)
	}
	if !strings.Contains(diagnostics[0], "missing amount") {
		t.Errorf("Expected missing amount diagnostic, got %q", diagnostics[0])
	}
	if !strings.Contains(diagnostics[1], "mystery_discount") {
		t.Errorf("Expected unknown kind diagnostic, got %q", diagnostics[1])
	}
}

func TestBuildRows_KeepsRawTierFields(t *testing.T) {
	b := newTestBuilder()

	rows := b.BuildRows(100, 1, 0, []models.Tier{
		{From: 1, To: f64(5), Type: models.TierPercentageDiscount, Amount: f64(20)},
	})

	row := rows[0]
	if row.From != 1 || row.To == nil || *row.To != 5 {
		t.Errorf("Expected raw bounds to survive, got from=%v to=%v", row.From, row.To)
	}
	if row.Type != models.TierPercentageDiscount || row.Amount != 20 {
		t.Errorf("Expected raw type/amount to survive, got %s/%v", row.Type, row.Amount)
	}
}

func TestPieceFactor(t *testing.T) {
	product := func(value string) *models.Product {
		return &models.Product{ID: 1, Attributes: map[string]string{"pieces-per-carton": value}}
	}

	cases := []struct {
		name    string
		product *models.Product
		want    int
	}{
		{"nil product", nil, 1},
		{"missing attribute", &models.Product{ID: 1}, 1},
		{"numeric", product("10"), 10},
		{"fractional truncates", product("2.9"), 2},
		{"non-numeric", product("a dozen"), 1},
		{"zero", product("0"), 1},
		{"negative", product("-4"), 1},
	}

	for _, tc := range cases {
		if got := PieceFactor(tc.product, "pieces-per-carton"); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

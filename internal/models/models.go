package models

// Rule set scope types. Category-scoped rule sets belong to the category
// pricing module and are never rendered on a product page.
const (
	ScopeProduct  = "product"
	ScopeCategory = "cat_product"
)

// ModeContinuous is the only rule-set mode the table renderer supports.
const ModeContinuous = "continuous"

// Tier discount kinds.
const (
	TierPercentageDiscount = "percentage_discount"
	TierFixedPrice         = "fixed_price"
	TierPriceDiscount      = "price_discount"
)

// Condition composition modes.
const (
	ConditionsAll = "all"
	ConditionsAny = "any"
)

// Product is a catalog product as the pricing table needs it: a base unit
// price plus free-form attributes (one of which holds the pieces-per-carton
// conversion factor).
type Product struct {
	ID           int64             `json:"id" yaml:"id"`
	Name         string            `json:"name" yaml:"name"`
	RegularPrice float64           `json:"regular_price" yaml:"regular_price"`
	Attributes   map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// RuleSet is one configured pricing campaign on a product.
type RuleSet struct {
	ID             string      `json:"id" yaml:"id"`
	Title          string      `json:"title,omitempty" yaml:"title,omitempty"`
	ScopeType      string      `json:"scope_type" yaml:"scope_type"`
	Mode           string      `json:"mode" yaml:"mode"`
	DateFrom       string      `json:"date_from,omitempty" yaml:"date_from,omitempty"` // 2006-01-02
	DateTo         string      `json:"date_to,omitempty" yaml:"date_to,omitempty"`     // 2006-01-02
	ConditionsType string      `json:"conditions_type,omitempty" yaml:"conditions_type,omitempty"`
	Conditions     []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Tiers          []Tier      `json:"tiers" yaml:"tiers"`
}

// Condition restricts a rule set to an audience. Only "apply_to" is built in;
// other types are resolved through the evaluator registry.
type Condition struct {
	Type string        `json:"type" yaml:"type"`
	Args ConditionArgs `json:"args" yaml:"args"`
}

// ConditionArgs carries the per-type condition payload.
type ConditionArgs struct {
	AppliesTo string         `json:"applies_to,omitempty" yaml:"applies_to,omitempty"`
	Roles     []string       `json:"roles,omitempty" yaml:"roles,omitempty"`
	Expr      map[string]any `json:"expr,omitempty" yaml:"expr,omitempty"`
}

// Tier is one quantity sub-range within a rule set. Bounds are expressed in
// cartons; a nil To means the tier is open-ended.
type Tier struct {
	From   float64  `json:"from" yaml:"from"`
	To     *float64 `json:"to,omitempty" yaml:"to,omitempty"`
	Type   string   `json:"type" yaml:"type"`
	Amount *float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
}

// TierRow is one computed pricing table row. The raw tier fields are kept
// alongside the formatted cells so clients can attach behavior to rows.
type TierRow struct {
	From        float64  `json:"from"`
	To          *float64 `json:"to,omitempty"`
	Type        string   `json:"type"`
	Amount      float64  `json:"amount"`
	CartonLabel string   `json:"carton_label"`
	UnitLabel   string   `json:"unit_label"`
	Discount    string   `json:"discount"`
	UnitPrice   string   `json:"unit_price"`
}

// TableHeader holds the column labels for a rendered table.
type TableHeader struct {
	Cartons  string `json:"cartons"`
	Discount string `json:"discount"`
	Price    string `json:"price"`
}

// PricingTable is the full computed table for one product. Rows is empty when
// no rule set is active for the requesting viewer.
type PricingTable struct {
	ProductID int64       `json:"product_id"`
	Header    TableHeader `json:"header"`
	Rows      []TierRow   `json:"rows"`
}

// SaveRuleSetsRequest is the request body for replacing a product's rule sets.
type SaveRuleSetsRequest struct {
	RuleSets []RuleSet `json:"rule_sets"`
}

// SaveRuleSetsResponse reports the stored rule-set ids in storage order.
type SaveRuleSetsResponse struct {
	ProductID  int64    `json:"product_id"`
	RuleSetIDs []string `json:"rule_set_ids"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

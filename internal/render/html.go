package render

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"pricing-table-api/internal/models"
)

// tableTemplate is the pricing table fragment. Each row carries the raw tier
// bounds and discount kind as data attributes so storefront scripts can style
// or highlight tiers without re-fetching the rules.
const tableTemplate = `<div class="dynamic-pricing-table" data-product-id="{{.ProductID}}">
	<table>
		<thead>
			<tr>
				<th class="quantity-col">{{.Header.Cartons}}</th>
				<th class="discount-col">{{.Header.Discount}}</th>
				<th class="price-col">{{.Header.Price}}</th>
			</tr>
		</thead>
		<tbody>
{{- range .Rows}}
			<tr data-from="{{num .From}}" data-to="{{optnum .To}}" data-type="{{.Type}}" data-amount="{{num .Amount}}">
				<td class="quantity-col"><strong>{{.CartonLabel}}</strong><br><small>{{.UnitLabel}}</small></td>
				<td class="discount-col">{{.Discount}}</td>
				<td class="price-col">{{.UnitPrice}}</td>
			</tr>
{{- end}}
		</tbody>
	</table>
</div>
`

// HTMLRenderer turns a computed pricing table into a markup fragment. The
// computation core never touches markup; swapping the presentation means
// swapping this type.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer parses the built-in table template.
func NewHTMLRenderer() *HTMLRenderer {
	tmpl := template.Must(template.New("pricing-table").Funcs(template.FuncMap{
		"num": func(v float64) string {
			return strconv.FormatFloat(v, 'f', -1, 64)
		},
		"optnum": func(v *float64) string {
			if v == nil {
				return ""
			}
			return strconv.FormatFloat(*v, 'f', -1, 64)
		},
	}).Parse(tableTemplate))

	return &HTMLRenderer{tmpl: tmpl}
}

// Render emits the table fragment. A table with no rows renders to an empty
// string rather than an empty <table>.
func (r *HTMLRenderer) Render(table models.PricingTable) (string, error) {
	if len(table.Rows) == 0 {
		return "", nil
	}

	var b strings.Builder
	if err := r.tmpl.Execute(&b, table); err != nil {
		return "", fmt.Errorf("failed to render pricing table: %w", err)
	}
	return b.String(), nil
}

package render

import (
	"strconv"
	"strings"
)

// Format configures currency and number display, mirroring the shop's
// localization settings (symbol, separators, decimal places).
type Format struct {
	CurrencySymbol    string
	SymbolPosition    string // "left" or "right"
	DecimalSeparator  string
	ThousandSeparator string
	Decimals          int
}

// DefaultFormat returns European-style price formatting with a euro symbol.
func DefaultFormat() Format {
	return Format{
		CurrencySymbol:    "€",
		SymbolPosition:    "left",
		DecimalSeparator:  ",",
		ThousandSeparator: ".",
		Decimals:          2,
	}
}

// Formatter renders money amounts and thousands-grouped integers.
type Formatter struct {
	format Format
}

// NewFormatter creates a formatter, filling in defaults for zero-value fields.
func NewFormatter(format Format) *Formatter {
	defaults := DefaultFormat()
	if format.CurrencySymbol == "" {
		format.CurrencySymbol = defaults.CurrencySymbol
	}
	if format.SymbolPosition == "" {
		format.SymbolPosition = defaults.SymbolPosition
	}
	if format.DecimalSeparator == "" {
		format.DecimalSeparator = defaults.DecimalSeparator
	}
	if format.ThousandSeparator == "" {
		format.ThousandSeparator = defaults.ThousandSeparator
	}
	if format.Decimals <= 0 {
		format.Decimals = defaults.Decimals
	}
	return &Formatter{format: format}
}

// Price formats a money amount with the configured separators and symbol.
func (f *Formatter) Price(amount float64) string {
	fixed := strconv.FormatFloat(amount, 'f', f.format.Decimals, 64)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart := fixed
	fracPart := ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i+1:]
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	if f.format.SymbolPosition != "right" {
		b.WriteString(f.format.CurrencySymbol)
	}
	b.WriteString(f.group(intPart))
	if fracPart != "" {
		b.WriteString(f.format.DecimalSeparator)
		b.WriteString(fracPart)
	}
	if f.format.SymbolPosition == "right" {
		b.WriteString(f.format.CurrencySymbol)
	}
	return b.String()
}

// GroupInt formats an integer with the configured thousands separator.
func (f *Formatter) GroupInt(n int64) string {
	digits := strconv.FormatInt(n, 10)
	if n < 0 {
		return "-" + f.group(digits[1:])
	}
	return f.group(digits)
}

func (f *Formatter) group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(f.format.ThousandSeparator)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

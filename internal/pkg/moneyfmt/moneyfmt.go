// Package moneyfmt renders monetary amounts and percentages as display
// strings. All report output goes through one Formatter so that the choice
// between a currency's own symbol and the literal "$" prefix is an explicit
// configuration of the call site.
package moneyfmt

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Formatter struct {
	Symbol   string
	Decimals int32
	GroupSep string
}

// Plain is the fixed "$" formatter used by the pending-installments and
// customer-summary reports regardless of the underlying loan currency.
var Plain = Formatter{Symbol: "$", Decimals: 2, GroupSep: ","}

// ForSymbol returns a formatter carrying the currency's own symbol.
func ForSymbol(symbol string) Formatter {
	return Formatter{Symbol: symbol, Decimals: 2, GroupSep: ","}
}

// Amount renders "<symbol> <grouped value>", e.g. "$ 50,000.00".
func (f Formatter) Amount(value float64) string {
	return f.Symbol + " " + f.Number(value)
}

// Number renders the grouped fixed-point value without a symbol.
func (f Formatter) Number(value float64) string {
	fixed := decimal.NewFromFloat(value).StringFixed(f.Decimals)

	negative := strings.HasPrefix(fixed, "-")
	if negative {
		fixed = fixed[1:]
	}

	intPart := fixed
	fracPart := ""
	if dot := strings.IndexByte(fixed, '.'); dot >= 0 {
		intPart, fracPart = fixed[:dot], fixed[dot:]
	}

	grouped := groupThousands(intPart, f.GroupSep)
	if negative {
		return "-" + grouped + fracPart
	}
	return grouped + fracPart
}

// Percent renders a rate as "<n>.<dd>%", e.g. "15.50%".
func Percent(rate float64) string {
	return decimal.NewFromFloat(rate).StringFixed(2) + "%"
}

func groupThousands(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

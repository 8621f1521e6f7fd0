package render

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatAmount renders a monetary amount with its currency symbol, e.g.
// "PEN 1,234.00". Unknown currency codes fall back to a plain prefix so a
// misconfigured issuer still gets a readable document.
func FormatAmount(code string, amount decimal.Decimal) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " " + amount.StringFixed(2)
	}
	f, _ := amount.Float64()
	p := message.NewPrinter(language.English)
	return p.Sprintf("%v", currency.Symbol(unit.Amount(f)))
}

// FormatQuantity renders an item quantity without trailing zeros.
func FormatQuantity(q decimal.Decimal) string {
	return q.String()
}

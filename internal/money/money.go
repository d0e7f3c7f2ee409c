// Package money formats amounts for display in the storefront.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders an amount as Symbol, a space, and the amount with two
// fixed decimals using the digit grouping of Tag.
type Formatter struct {
	Tag    language.Tag
	Symbol string
}

var BRL = Formatter{Tag: language.BrazilianPortuguese, Symbol: "R$"}

func (f Formatter) Format(amount float64) string {
	p := message.NewPrinter(f.Tag)
	return f.Symbol + " " + p.Sprint(number.Decimal(amount, number.Scale(2)))
}

// Format renders amount in Brazilian reais, e.g. 1234.5 -> "R$ 1.234,50".
func Format(amount float64) string { return BRL.Format(amount) }

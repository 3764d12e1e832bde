package reports

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatIDR renders an amount as Indonesian Rupiah display text, e.g.
// "Rp 1.250.000,50".
func FormatIDR(amount float64) string {
	return idPrinter.Sprintf("Rp %v", number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

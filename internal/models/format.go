package models

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatPrice renders an amount in cents as a dollar string, e.g. 123456 -> "$1,234.56".
// This is the only place minor units are converted for display.
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return message.NewPrinter(language.AmericanEnglish).Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

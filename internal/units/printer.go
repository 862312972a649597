package units

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Printer formats native numbers the way a browser's toLocaleString does for
// the configured locale.
type Printer struct {
	p *message.Printer
}

// NewPrinter builds a Printer for a BCP 47 tag. Unparseable tags fall back to English.
func NewPrinter(locale string) *Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Printer{p: message.NewPrinter(tag)}
}

// Int groups an integer with the locale's thousands separator.
func (p *Printer) Int(n uint64) string {
	return p.p.Sprint(number.Decimal(n))
}

// Percent renders v (already in percent) with at most two fraction digits and a "%" suffix.
func (p *Printer) Percent(v float64) string {
	return p.p.Sprint(number.Decimal(v, number.MaxFractionDigits(2))) + "%"
}

// SignedPercent is Percent with an explicit "+" for positive values.
func (p *Printer) SignedPercent(v float64) string {
	s := p.Percent(v)
	if v > 0 {
		return "+" + s
	}
	return s
}

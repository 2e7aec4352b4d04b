package chatbot

import (
	"strings"

	"github.com/shopspring/decimal"
)

// extractAmount applies the first amount pattern that matches. A match that
// cannot be parsed leaves the amount absent rather than trying later patterns.
func (p *Parser) extractAmount(text string) (decimal.Decimal, bool) {
	for _, ca := range p.amounts {
		if ca.largest {
			matches := ca.re.FindAllStringSubmatch(text, -1)
			if matches == nil {
				continue
			}
			return largestNumber(matches, ca.multiplier)
		}

		m := ca.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, ok := parseNumber(m[1])
		if !ok {
			return decimal.Zero, false
		}
		return value.Mul(decimal.NewFromInt(ca.multiplier)), true
	}
	return decimal.Zero, false
}

// largestNumber returns the biggest parseable capture among matches.
func largestNumber(matches [][]string, multiplier int64) (decimal.Decimal, bool) {
	var (
		best  decimal.Decimal
		found bool
	)
	for _, m := range matches {
		value, ok := parseNumber(m[1])
		if !ok {
			continue
		}
		if !found || value.GreaterThan(best) {
			best, found = value, true
		}
	}
	if !found {
		return decimal.Zero, false
	}
	return best.Mul(decimal.NewFromInt(multiplier)), true
}

// parseNumber reads "50000", "50.000", "50,000", "1.5" or "1,234.56". A "." or
// "," followed by exactly three digits is a grouping separator; a final one
// followed by one or two digits is the decimal point. Anything else fails.
func parseNumber(raw string) (decimal.Decimal, bool) {
	groups := strings.FieldsFunc(raw, func(r rune) bool { return r == '.' || r == ',' })
	if len(groups) == 0 {
		return decimal.Zero, false
	}

	whole := groups[0]
	fraction := ""
	for i, g := range groups[1:] {
		last := i == len(groups)-2
		switch {
		case len(g) == 3:
			whole += g
		case last && len(g) <= 2:
			fraction = g
		default:
			return decimal.Zero, false
		}
	}

	s := whole
	if fraction != "" {
		s += "." + fraction
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount with "," thousands separators and no
// fractional part, the way replies show VND.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(0)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return sign + b.String()
}

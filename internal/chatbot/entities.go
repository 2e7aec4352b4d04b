package chatbot

import (
	"strings"
	"time"
	"unicode"

	"github.com/Veraticus/spicebot/internal/model"
)

// Extract pulls whatever entities it can find out of a message. Each entity is
// extracted independently and absent entities are left at their zero value.
// The transaction type is only set for add_transaction messages.
func (p *Parser) Extract(message string, intent model.Intent, now time.Time) model.Entities {
	text := normalize(message)
	var e model.Entities

	// An explicit date is cut out before looking for amounts so "15/03" is
	// never read as 15.
	amountText := text
	for _, cd := range p.dates {
		loc := cd.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		switch {
		case cd.relative:
			e.Date = now.AddDate(0, 0, cd.offset).Format(time.DateOnly)
		case len(loc) >= 4 && loc[2] >= 0:
			e.DateText = text[loc[2]:loc[3]]
			amountText = text[:loc[0]] + " " + text[loc[1]:]
		default:
			e.DateText = strings.TrimFunc(text[loc[0]:loc[1]], notWordRune)
			amountText = text[:loc[0]] + " " + text[loc[1]:]
		}
		break
	}

	if amount, ok := p.extractAmount(amountText); ok {
		e.Amount = &amount
	}

	if intent == model.IntentAddTransaction {
		e.TransactionType = p.transactionType(text)
	}

	e.Category = p.category(text)
	return e
}

// transactionType reads income only when income words appear without any
// expense words, so "ghi nhận chi tiêu" stays an expense.
func (p *Parser) transactionType(text string) model.TransactionType {
	if anyMatch(p.income, text) && !anyMatch(p.expense, text) {
		return model.TransactionIncome
	}
	return model.TransactionExpense
}

func (p *Parser) category(text string) string {
	for _, cc := range p.categories {
		if anyMatch(cc.patterns, text) {
			return cc.name
		}
	}
	return ""
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// ParseResult is the outcome of running a message through the parser.
type ParseResult struct {
	Entities   model.Entities `json:"entities"`
	Intent     model.Intent   `json:"intent"`
	Confidence float64        `json:"confidence"`
}

// Parse classifies a message and extracts its entities.
func (p *Parser) Parse(message string, now time.Time) ParseResult {
	intent, confidence := p.Classify(message)
	return ParseResult{
		Intent:     intent,
		Confidence: confidence,
		Entities:   p.Extract(message, intent, now),
	}
}

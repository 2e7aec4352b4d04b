// Package chatbot turns free-text finance messages into intents, entities and
// replies. Patterns are plain data in a Registry; Compile turns a Registry into
// a Parser that classifies messages and extracts entities from them.
package chatbot

import (
	"strings"

	"github.com/Veraticus/spicebot/internal/model"
)

// Boundaries that work for Vietnamese letters, unlike \b which is ASCII only.
const (
	wordStart = `(?:^|[^\p{L}\p{N}])`
	wordEnd   = `(?:[^\p{L}\p{N}]|$)`
)

// words builds a pattern matching any of the given alternatives as whole words.
func words(alternatives ...string) string {
	return wordStart + "(?:" + strings.Join(alternatives, "|") + ")" + wordEnd
}

// IntentPatterns recognizes one intent. Patterns are tried in order.
type IntentPatterns struct {
	Intent   model.Intent
	Patterns []string
}

// AmountPattern captures a number in its first group and scales it by Multiplier.
// With Largest set every match is read and the biggest value wins, so a bare
// count like "2 ly" does not shadow the price that follows it.
type AmountPattern struct {
	Pattern    string
	Multiplier int64
	Largest    bool
}

// CategoryCluster maps any of its keyword patterns to one canonical category name.
type CategoryCluster struct {
	Name     string
	Patterns []string
}

// DatePattern recognizes a date expression. Relative patterns resolve to the
// current date plus Offset days; the rest are kept as raw text, taken from the
// first capture group when the pattern has one.
type DatePattern struct {
	Pattern  string
	Offset   int
	Relative bool
}

// Registry is the full set of classification and extraction tables. Order is
// significant everywhere: the first intent, amount pattern, category cluster
// and date pattern that matches wins.
type Registry struct {
	Intents    []IntentPatterns
	Amounts    []AmountPattern
	Income     []string
	Expense    []string
	Categories []CategoryCluster
	Dates      []DatePattern
}

// number matches digits with optional "." or "," groups; parseNumber decides
// which separators are grouping and which is the decimal point.
const number = `(\d+(?:[.,]\d+)*)`

// DefaultRegistry returns the Vietnamese and English tables used by the chatbot.
func DefaultRegistry() Registry {
	return Registry{
		Intents: []IntentPatterns{
			{
				Intent: model.IntentGreeting,
				Patterns: []string{
					`^(?:hi|hello|hey|good morning|good afternoon|good evening|xin chào|chào)` + wordEnd,
					`^(?:start|begin|bắt đầu)` + wordEnd,
				},
			},
			{
				Intent: model.IntentGoodbye,
				Patterns: []string{
					`^(?:bye|goodbye|see you|thanks|thank you|cảm ơn|tạm biệt|kết thúc)` + wordEnd,
					`^(?:that's all|done|finish|thế thôi)` + wordEnd,
					`^(?:xong|hết)(?:\s+(?:rồi|nhé|nha))?[\s.!]*$`,
				},
			},
			{
				Intent: model.IntentAddTransaction,
				Patterns: []string{
					`(?:add|create|record|log|enter)\s+(?:an?\s+)?(?:transaction|expense|income|spending|purchase)`,
					words(`spent|bought|purchased|paid|received|earned`) + `.*\d`,
					`(?:tôi|mình)\s+(?:(?:đã|vừa)\s+)?(?:chi|tiêu|mua|nhận|kiếm)\s+.*\d`,
					`(?:record|ghi lại|ghi nhận)\s+.*\d`,
					`(?:tôi|mình)\s+(?:(?:đã|vừa)\s+)?(?:chi|tiêu|mua|nhận|kiếm)\s+(?:tiền|khoản)` + wordEnd,
				},
			},
			{
				Intent: model.IntentGetBalance,
				Patterns: []string{
					`(?:what|how much|show|tell)\s+(?:is\s+|me\s+)?(?:my\s+)?(?:balance|money|cash|total)`,
					`(?:số dư|tổng tiền|tình hình tài chính|balance)`,
					`(?:tôi|mình)\s+có\s+(?:bao nhiêu|tổng cộng)`,
				},
			},
			{
				Intent: model.IntentGetSpending,
				Patterns: []string{
					`(?:how much|what)\s+(?:did\s+|have\s+)?(?:i\s+|we\s+)?(?:spend|spent|spending)`,
					`(?:show|tell)\s+.*spending`,
					`(?:chi tiêu|tiêu|expenses|spending)`,
					`(?:tôi|mình)\s+(?:(?:đã|vừa)\s+)?(?:chi|tiêu)\s+bao nhiêu`,
				},
			},
			{
				Intent: model.IntentBudgetAdvice,
				Patterns: []string{
					`(?:advice|suggest|recommend|help).*budget`,
					`(?:how to|should i).*save`,
					`(?:financial|money)\s+(?:advice|tip|help)`,
					`(?:lời khuyên|tư vấn|hướng dẫn).*(?:tài chính|tiết kiệm|ngân sách)`,
				},
			},
		},
		Amounts: []AmountPattern{
			{Pattern: number + `\s*(?:triệu|tr|million|m)` + wordEnd, Multiplier: 1_000_000},
			{Pattern: number + `\s*(?:nghìn|ngàn|thousand|k)` + wordEnd, Multiplier: 1_000},
			{Pattern: number, Multiplier: 1, Largest: true},
		},
		Income: []string{
			words(`income|earn|earned|received|salary|bonus|thu nhập|lương|thưởng|nhận`),
		},
		Expense: []string{
			words(`expense|spent|buy|bought|purchase|paid|chi|tiêu|mua|trả`),
		},
		Categories: []CategoryCluster{
			{Name: "Ăn uống", Patterns: []string{words(`food|restaurant|groceries|ăn uống|thức ăn|đồ ăn|nhà hàng`)}},
			{Name: "Di chuyển", Patterns: []string{words(`transport|travel|taxi|bus|grab|di chuyển|đi lại|xăng`)}},
			{Name: "Giải trí", Patterns: []string{words(`entertainment|movie|movies|game|games|giải trí|phim`)}},
			{Name: "Mua sắm", Patterns: []string{words(`shopping|clothes|mua sắm|quần áo`)}},
			{Name: "Y tế", Patterns: []string{words(`health|medical|medicine|y tế|sức khỏe|thuốc`)}},
			{Name: "Giáo dục", Patterns: []string{words(`education|học tập|học phí|giáo dục`)}},
		},
		Dates: []DatePattern{
			{Pattern: words(`today|hôm nay`), Relative: true},
			{Pattern: words(`yesterday|hôm qua`), Offset: -1, Relative: true},
			{Pattern: words(`last week|tuần trước`)},
			{Pattern: `(?:^|[^\d/-])(\d{1,2}[/-]\d{1,2}[/-]\d{4})(?:[^\d/-]|$)`},
			{Pattern: `(?:^|[^\d/])(\d{1,2}/\d{1,2})(?:[^\d/]|$)`},
		},
	}
}

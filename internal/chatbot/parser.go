package chatbot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
	"golang.org/x/text/unicode/norm"
)

type compiledIntent struct {
	intent   model.Intent
	patterns []*regexp.Regexp
}

type compiledAmount struct {
	re         *regexp.Regexp
	multiplier int64
	largest    bool
}

type compiledCategory struct {
	name     string
	patterns []*regexp.Regexp
}

type compiledDate struct {
	re       *regexp.Regexp
	offset   int
	relative bool
}

// Parser classifies messages and extracts entities using a compiled Registry.
// It holds no mutable state and is safe for concurrent use.
type Parser struct {
	intents    []compiledIntent
	amounts    []compiledAmount
	income     []*regexp.Regexp
	expense    []*regexp.Regexp
	categories []compiledCategory
	dates      []compiledDate
}

// Compile compiles every pattern in the registry case-insensitively.
func (r Registry) Compile() (*Parser, error) {
	p := &Parser{}

	for _, ip := range r.Intents {
		res, err := compileAll(ip.Patterns)
		if err != nil {
			return nil, fmt.Errorf("failed to compile patterns for intent %s: %w", ip.Intent, err)
		}
		p.intents = append(p.intents, compiledIntent{intent: ip.Intent, patterns: res})
	}

	for _, ap := range r.Amounts {
		re, err := common.CompileFold(ap.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile amount pattern: %w", err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("amount pattern %q has no capture group", ap.Pattern)
		}
		p.amounts = append(p.amounts, compiledAmount{re: re, multiplier: ap.Multiplier, largest: ap.Largest})
	}

	var err error
	if p.income, err = compileAll(r.Income); err != nil {
		return nil, fmt.Errorf("failed to compile income keywords: %w", err)
	}
	if p.expense, err = compileAll(r.Expense); err != nil {
		return nil, fmt.Errorf("failed to compile expense keywords: %w", err)
	}

	for _, cc := range r.Categories {
		res, err := compileAll(cc.Patterns)
		if err != nil {
			return nil, fmt.Errorf("failed to compile category %s: %w", cc.Name, err)
		}
		p.categories = append(p.categories, compiledCategory{name: cc.Name, patterns: res})
	}

	for _, dp := range r.Dates {
		re, err := common.CompileFold(dp.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile date pattern: %w", err)
		}
		p.dates = append(p.dates, compiledDate{re: re, offset: dp.Offset, relative: dp.Relative})
	}

	return p, nil
}

// MustCompile is like Compile but panics on an invalid registry.
func (r Registry) MustCompile() *Parser {
	p, err := r.Compile()
	if err != nil {
		panic(err)
	}
	return p
}

// NewDefaultParser compiles DefaultRegistry.
func NewDefaultParser() *Parser {
	return DefaultRegistry().MustCompile()
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := common.CompileFold(pattern)
		if err != nil {
			return nil, err
		}
		res = append(res, re)
	}
	return res, nil
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// normalize puts a message into the form every pattern is written against.
func normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(message)))
}

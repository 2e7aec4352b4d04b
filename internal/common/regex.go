package common

import (
	"fmt"
	"regexp"
	"strings"
)

// CompileFold compiles pattern as a case-insensitive regular expression.
// A pattern that already carries the (?i) flag is compiled unchanged.
func CompileFold(pattern string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

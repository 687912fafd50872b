package nuke

import (
	"fmt"
	"regexp"
	"strings"
)

// InvalidPatternError rejects a sweep pattern before any matching happens.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid nuke pattern %q: %s", e.Pattern, e.Reason)
}

const maxPatternLength = 100

// Guards against pathological regex input. Go's regexp engine is linear
// time, but a sweep pattern this shape is almost certainly a typo rather
// than intent, and rejecting it keeps match cost bounded.
var nestedQuantifiers = []*regexp.Regexp{
	regexp.MustCompile(`\([^)]*[+*]\)[+*]`),
	regexp.MustCompile(`\[[^\]]*\][+*]{2,}`),
	regexp.MustCompile(`[+*]{2,}`),
}

const maxQuantifiers = 10

// ValidatePattern checks a pattern without running a sweep, so callers can
// reject bad input before scheduling an execution.
func ValidatePattern(pattern string, isRegex bool) error {
	_, err := compilePattern(pattern, isRegex)
	return err
}

// compilePattern validates the pattern and, in regex mode, compiles it.
// Substring mode returns a nil regex; matching then uses plain containment.
func compilePattern(pattern string, isRegex bool) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, &InvalidPatternError{Pattern: pattern, Reason: "empty pattern"}
	}
	if len(pattern) > maxPatternLength {
		return nil, &InvalidPatternError{Pattern: pattern, Reason: fmt.Sprintf("longer than %d characters", maxPatternLength)}
	}
	if !isRegex {
		return nil, nil
	}
	for _, g := range nestedQuantifiers {
		if g.MatchString(pattern) {
			return nil, &InvalidPatternError{Pattern: pattern, Reason: "nested or stacked quantifiers"}
		}
	}
	if strings.Count(pattern, "+")+strings.Count(pattern, "*")+strings.Count(pattern, "{") > maxQuantifiers {
		return nil, &InvalidPatternError{Pattern: pattern, Reason: "too many quantifiers"}
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, &InvalidPatternError{Pattern: pattern, Reason: err.Error()}
	}
	return re, nil
}

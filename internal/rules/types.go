package rules

import "fmt"

// RewriteRule maps a full-URI pattern to an opaque replacement string.
type RewriteRule struct {
	Pattern     string
	Replacement string
}

// Resolution is the outcome of resolving one request URI. Matched is false
// when no rule applies.
type Resolution struct {
	Rule    RewriteRule
	Key     string
	Score   int
	Matched bool
}

// PatternError reports a rule pattern that is not a valid regular expression.
type PatternError struct {
	Key     string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	if e.Key != "" && e.Key != e.Pattern {
		return fmt.Sprintf("rule %q: invalid pattern %q: %v", e.Key, e.Pattern, e.Err)
	}
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

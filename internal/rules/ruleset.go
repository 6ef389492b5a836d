package rules

import (
	"errors"
	"regexp"
	"sort"
)

type compiledRule struct {
	key   string
	rule  RewriteRule
	score int
	re    *regexp.Regexp
	err   error
}

// RuleSet is an immutable, specificity-ordered collection of rewrite rules.
// It is safe for concurrent use.
type RuleSet struct {
	rules []compiledRule
}

// NewRuleSet compiles every rule. A rule whose pattern does not compile is
// kept but never matches; its error is reported by Errors.
func NewRuleSet(rules map[string]RewriteRule) *RuleSet {
	compiled := make([]compiledRule, 0, len(rules))
	for key, rule := range rules {
		if rule.Pattern == "" {
			rule.Pattern = key
		}
		cr := compiledRule{key: key, rule: rule, score: Score(rule.Pattern)}
		re, err := CompilePattern(rule.Pattern)
		if err != nil {
			var perr *PatternError
			if errors.As(err, &perr) {
				perr.Key = key
			}
			cr.err = err
		} else {
			cr.re = re
		}
		compiled = append(compiled, cr)
	}

	// Highest score first; equal scores fall back to the pattern, then the key,
	// so resolution does not depend on map iteration order.
	sort.SliceStable(compiled, func(i, j int) bool {
		a, b := compiled[i], compiled[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.rule.Pattern != b.rule.Pattern {
			return a.rule.Pattern < b.rule.Pattern
		}
		return a.key < b.key
	})

	return &RuleSet{rules: compiled}
}

// Resolve returns the most specific rule whose pattern matches the whole of
// path.
func (s *RuleSet) Resolve(path string) Resolution {
	if s == nil {
		return Resolution{}
	}
	for _, cr := range s.rules {
		if cr.re == nil {
			continue
		}
		if cr.re.MatchString(path) {
			return Resolution{Rule: cr.rule, Key: cr.key, Score: cr.score, Matched: true}
		}
	}
	return Resolution{}
}

// Resolve is a convenience wrapper around (*RuleSet).Resolve.
func Resolve(path string, rules *RuleSet) Resolution {
	return rules.Resolve(path)
}

func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Rules returns the rules in resolution order.
func (s *RuleSet) Rules() []RewriteRule {
	if s == nil {
		return nil
	}
	out := make([]RewriteRule, len(s.rules))
	for i, cr := range s.rules {
		out[i] = cr.rule
	}
	return out
}

// Errors returns the compile errors of invalid rules, in resolution order.
func (s *RuleSet) Errors() []error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, cr := range s.rules {
		if cr.err != nil {
			errs = append(errs, cr.err)
		}
	}
	return errs
}

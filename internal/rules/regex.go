package rules

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const wildcardToken = ".*"

// CompilePattern compiles pattern so that it only matches an entire input.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	// Compile the bare pattern first: anchoring can hide unbalanced groups
	// such as "a)|(b".
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	return re, nil
}

// Match reports whether the whole of path matches pattern.
func Match(path, pattern string) (bool, error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(path), nil
}

// Score is the specificity of a pattern: the number of characters left once
// every ".*" is removed.
func Score(pattern string) int {
	return utf8.RuneCountInString(strings.ReplaceAll(pattern, wildcardToken, ""))
}

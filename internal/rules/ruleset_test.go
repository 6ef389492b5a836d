package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchFullString(t *testing.T) {
	ok, err := Match("http://example.com/test-ui/old", ".*test-ui.*")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Match("http://example.com/test-ui/old", "test-ui")
	require.NoError(t, err)
	assert.False(t, ok, "substring must not match")

	ok, err = Match("/abc", "/abc|/xyz")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Match("/abcdef", "/abc|/xyz")
	require.NoError(t, err)
	assert.False(t, ok, "alternation must stay anchored")
}

func TestMatchInvalidPattern(t *testing.T) {
	for _, pattern := range []string{"(", "a)|(b", "[z-a]"} {
		_, err := Match("/a", pattern)
		var perr *PatternError
		require.True(t, errors.As(err, &perr), "pattern %q", pattern)
		assert.Equal(t, pattern, perr.Pattern)
	}
}

func TestScore(t *testing.T) {
	assert.Equal(t, 7, Score(".*test-ui.*"))
	assert.Equal(t, 15, Score(".*test-ui/subTest.*"))
	assert.Equal(t, 0, Score(".*"))
	assert.Equal(t, 4, Score("/a.b"))
	assert.Equal(t, 2, Score(".*éé.*"))
}

func TestResolveScoresCharactersNotBytes(t *testing.T) {
	set := NewRuleSet(map[string]RewriteRule{
		".*éé.*":  {Replacement: "/accent"},
		".*abc.*": {Replacement: "/abc"},
	})

	res := set.Resolve("http://h/ééabc")
	require.True(t, res.Matched)
	assert.Equal(t, ".*abc.*", res.Rule.Pattern)
	assert.Equal(t, 3, res.Score)
}

func TestResolveEmpty(t *testing.T) {
	res := NewRuleSet(nil).Resolve("http://example.com/some/unknown/path")
	assert.False(t, res.Matched)

	var nilSet *RuleSet
	assert.False(t, Resolve("/x", nilSet).Matched)
}

func TestResolvePrefersMostSpecific(t *testing.T) {
	set := NewRuleSet(map[string]RewriteRule{
		".*test-ui.*":         {Pattern: ".*test-ui.*", Replacement: "/new/path"},
		".*test-ui/subTest.*": {Pattern: ".*test-ui/subTest.*", Replacement: "/new/path/subTest"},
	})

	res := set.Resolve("http://example.com/test-ui/subTest")
	require.True(t, res.Matched)
	assert.Equal(t, ".*test-ui/subTest.*", res.Rule.Pattern)
	assert.Equal(t, "/new/path/subTest", res.Rule.Replacement)
	assert.Equal(t, 15, res.Score)

	res = set.Resolve("http://example.com/test-ui/other")
	require.True(t, res.Matched)
	assert.Equal(t, ".*test-ui.*", res.Rule.Pattern)
}

func TestResolveTieBreakIsDeterministic(t *testing.T) {
	rules := map[string]RewriteRule{
		".*/b.*": {Pattern: ".*/b.*", Replacement: "b"},
		".*/a.*": {Pattern: ".*/a.*", Replacement: "a"},
	}
	for i := 0; i < 20; i++ {
		res := NewRuleSet(rules).Resolve("/a/b")
		require.True(t, res.Matched)
		assert.Equal(t, ".*/a.*", res.Rule.Pattern)
	}
}

func TestResolveSelectsMaximalScore(t *testing.T) {
	rules := map[string]RewriteRule{
		".*":             {Replacement: "any"},
		".*/docs/.*":     {Replacement: "docs"},
		".*/docs/api.*":  {Replacement: "api"},
		".*/blog.*":      {Replacement: "blog"},
		"http://h/docs.": {Replacement: "exact-ish"},
	}
	set := NewRuleSet(rules)

	for _, path := range []string{"http://h/docs/api/v1", "http://h/docs/x", "http://h/blog/1", "/other", "http://h/docs/"} {
		res := set.Resolve(path)
		require.True(t, res.Matched, path)

		ok, err := Match(path, res.Rule.Pattern)
		require.NoError(t, err)
		assert.True(t, ok, path)

		for key, rule := range rules {
			pattern := rule.Pattern
			if pattern == "" {
				pattern = key
			}
			if matched, _ := Match(path, pattern); matched {
				assert.GreaterOrEqual(t, res.Score, Score(pattern), "%s vs %s", path, pattern)
			}
		}
	}
}

func TestResolveSkipsInvalidPattern(t *testing.T) {
	set := NewRuleSet(map[string]RewriteRule{
		"broken": {Pattern: ".*(test-ui.*", Replacement: "/broken"},
		"ok":     {Pattern: ".*test-ui.*", Replacement: "/ok"},
	})

	res := set.Resolve("/test-ui/x")
	require.True(t, res.Matched)
	assert.Equal(t, "/ok", res.Rule.Replacement)

	errs := set.Errors()
	require.Len(t, errs, 1)
	var perr *PatternError
	require.True(t, errors.As(errs[0], &perr))
	assert.Equal(t, "broken", perr.Key)
}

func TestNewRuleSetDefaultsPatternToKey(t *testing.T) {
	set := NewRuleSet(map[string]RewriteRule{".*legacy.*": {Replacement: "/legacy"}})
	require.Equal(t, 1, set.Len())
	assert.Equal(t, ".*legacy.*", set.Rules()[0].Pattern)

	res := set.Resolve("/legacy/page")
	require.True(t, res.Matched)
	assert.Equal(t, ".*legacy.*", res.Key)
}

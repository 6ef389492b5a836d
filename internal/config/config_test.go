package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
configVersion: 1
server:
  listen: "127.0.0.1:8080"
redirect:
  urlRewriteRules:
    ".*test-ui.*":
      pattern: ".*test-ui.*"
      replacePattern: "/new/path"
    ".*legacy.*":
      replacePattern: "/legacy"
  customRedirectTemplatePath: templates/redirect.html
  customFallbackTemplatePath: /etc/redirector/fallback.html
logging:
  level: debug
  format: console
metrics:
  enabled: true
  listen: "127.0.0.1:9090"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, filepath.Dir(path), cfg.baseDir)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
	assert.Len(t, cfg.Redirect.URLRewriteRules, 2)
	assert.Equal(t, "/new/path", cfg.Redirect.URLRewriteRules[".*test-ui.*"].ReplacePattern)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "templates", "redirect.html"), cfg.RedirectTemplatePath())
	assert.Equal(t, "/etc/redirector/fallback.html", cfg.FallbackTemplatePath())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Parse([]byte("configVersion: 1\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.NotNil(t, cfg.Redirect.URLRewriteRules)
	assert.Empty(t, cfg.RedirectTemplatePath())
	assert.Empty(t, cfg.FallbackTemplatePath())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, "redirect: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestRulesDefaultPatternToKey(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	rules := cfg.Rules()
	assert.Equal(t, ".*legacy.*", rules[".*legacy.*"].Pattern)
	assert.Equal(t, "", cfg.Redirect.URLRewriteRules[".*legacy.*"].Pattern, "source config is not mutated")
}

func TestLegacyCustomTemplatePath(t *testing.T) {
	cfg, err := Parse([]byte("configVersion: 1\nredirect:\n  customTemplatePath: /tpl/custom.html\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tpl/custom.html", cfg.RedirectTemplatePath())
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg, err := Parse([]byte(`
configVersion: 2
server:
  listen: "nope"
redirect:
  urlRewriteRules:
    broken:
      pattern: ".*(test"
      replacePattern: /x
  customTemplatePath: a.html
  customRedirectTemplatePath: b.html
logging:
  level: loud
  format: xml
`))
	require.NoError(t, err)

	err = cfg.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	joined := strings.Join(verr.Problems, "\n")
	assert.Contains(t, joined, "configVersion must be 1")
	assert.Contains(t, joined, "server.listen invalid")
	assert.Contains(t, joined, `redirect.urlRewriteRules["broken"].pattern invalid`)
	assert.Contains(t, joined, "mutually exclusive")
	assert.Contains(t, joined, "logging.level invalid")
	assert.Contains(t, joined, "logging.format must be json|console")
	assert.IsIncreasing(t, verr.Problems)
}

func TestValidateTLSFiles(t *testing.T) {
	cfg, err := Parse([]byte("configVersion: 1\nserver:\n  tls:\n    enabled: true\n"))
	require.NoError(t, err)

	var verr *ValidationError
	require.ErrorAs(t, cfg.Validate(), &verr)
	assert.Len(t, verr.Problems, 2)
}

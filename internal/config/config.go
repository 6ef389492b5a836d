package config

type Config struct {
	ConfigVersion int            `yaml:"configVersion"`
	Server        ServerConfig   `yaml:"server"`
	Redirect      RedirectConfig `yaml:"redirect"`
	Logging       LoggingConfig  `yaml:"logging"`
	Metrics       MetricsConfig  `yaml:"metrics"`

	baseDir string `yaml:"-"`
}

type ServerConfig struct {
	Listen string    `yaml:"listen"`
	TLS    TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

// RedirectConfig holds the rewrite rules and the optional per-slot template overrides.
type RedirectConfig struct {
	URLRewriteRules            map[string]RewriteRule `yaml:"urlRewriteRules"`
	CustomRedirectTemplatePath string                 `yaml:"customRedirectTemplatePath"`
	CustomFallbackTemplatePath string                 `yaml:"customFallbackTemplatePath"`

	// Deprecated: use CustomRedirectTemplatePath.
	CustomTemplatePath string `yaml:"customTemplatePath"`
}

type RewriteRule struct {
	Pattern        string `yaml:"pattern"`
	ReplacePattern string `yaml:"replacePattern"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	DecisionLog string `yaml:"decisionLog"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

func (c *Config) ResolvePath(path string) string {
	return c.resolvePath(path)
}

// Rules returns the rewrite rules keyed by their map key, with an empty
// pattern defaulted to the key.
func (c *Config) Rules() map[string]RewriteRule {
	out := make(map[string]RewriteRule, len(c.Redirect.URLRewriteRules))
	for key, rule := range c.Redirect.URLRewriteRules {
		if rule.Pattern == "" {
			rule.Pattern = key
		}
		out[key] = rule
	}
	return out
}

func (c *Config) RedirectTemplatePath() string {
	p := c.Redirect.CustomRedirectTemplatePath
	if p == "" {
		p = c.Redirect.CustomTemplatePath
	}
	return c.resolvePath(p)
}

func (c *Config) FallbackTemplatePath() string {
	return c.resolvePath(c.Redirect.CustomFallbackTemplatePath)
}

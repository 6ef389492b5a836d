package gateway

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/klyr/redirector/internal/config"
	"github.com/klyr/redirector/internal/logging"
	"github.com/klyr/redirector/internal/observability"
	"github.com/klyr/redirector/internal/render"
	"github.com/klyr/redirector/internal/rules"
	"go.uber.org/zap"
)

const contentTypeHTML = "text/html; charset=utf-8"

// state is replaced as a whole on reload and never mutated.
type state struct {
	rules     *rules.RuleSet
	overrides map[render.Slot]string
}

type Gateway struct {
	state    atomic.Pointer[state]
	provider *render.Provider

	logger      *zap.Logger
	decisionLog *logging.DecisionLogger
	metrics     *observability.Metrics
}

func New(cfg *config.Config, logger *zap.Logger) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{logger: logger}
	g.provider = render.NewProvider(
		render.WithLogger(logger),
		render.WithFailureObserver(failureObserver{g}),
	)
	if err := g.Reload(cfg); err != nil {
		return nil, err
	}
	return g, nil
}

// Reload swaps in the rules and template overrides of cfg. In-flight requests
// keep using the state they started with.
func (g *Gateway) Reload(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	ruleMap := make(map[string]rules.RewriteRule, len(cfg.Redirect.URLRewriteRules))
	for key, rule := range cfg.Rules() {
		ruleMap[key] = rules.RewriteRule{Pattern: rule.Pattern, Replacement: rule.ReplacePattern}
	}
	set := rules.NewRuleSet(ruleMap)
	if errs := set.Errors(); len(errs) > 0 {
		return fmt.Errorf("compile rules: %w", errors.Join(errs...))
	}

	g.state.Store(&state{
		rules: set,
		overrides: map[render.Slot]string{
			render.SlotRedirect: cfg.RedirectTemplatePath(),
			render.SlotFallback: cfg.FallbackTemplatePath(),
		},
	})
	g.metrics.RulesLoaded(set.Len())
	g.logger.Info("rules loaded", zap.Int("rules", set.Len()))
	return nil
}

func (g *Gateway) SetDecisionLogger(logger *logging.DecisionLogger) {
	g.decisionLog = logger
}

func (g *Gateway) SetMetrics(metrics *observability.Metrics) {
	g.metrics = metrics
	if st := g.state.Load(); st != nil {
		metrics.RulesLoaded(st.rules.Len())
	}
}

// Rules returns the rule set currently in use.
func (g *Gateway) Rules() *rules.RuleSet {
	return g.state.Load().rules
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	uri := RequestURI(r)
	body, decision := g.Render(uri)

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(body))
	}

	decision.Timestamp = start.UTC()
	decision.RequestID = uuid.NewString()
	decision.ClientIP = clientIP(r)
	decision.Host = r.Host
	decision.Method = r.Method
	decision.StatusCode = http.StatusOK
	g.writeDecision(decision, start)
}

// Render resolves uri against the active rules and renders the selected
// template. It never fails: template problems degrade to the builtin.
func (g *Gateway) Render(uri string) (string, logging.Decision) {
	st := g.state.Load()
	res := st.rules.Resolve(uri)

	slot := render.SlotFallback
	ctx := render.FallbackContext(uri)
	if res.Matched {
		slot = render.SlotRedirect
		ctx = render.RedirectContext(res.Rule.Pattern, res.Rule.Replacement)
	}

	tpl, source := g.provider.Provide(slot, st.overrides[slot])
	body := g.provider.Engine().Render(tpl, ctx)

	return body, logging.Decision{
		URI:         uri,
		Slot:        string(slot),
		Source:      string(source),
		Matched:     res.Matched,
		Pattern:     res.Rule.Pattern,
		Replacement: res.Rule.Replacement,
		Score:       res.Score,
	}
}

func (g *Gateway) writeDecision(decision logging.Decision, start time.Time) {
	elapsed := time.Since(start)
	decision.DurationMS = elapsed.Milliseconds()
	if g.decisionLog != nil {
		if err := g.decisionLog.Write(decision); err != nil {
			g.logger.Warn("failed to write decision log", zap.Error(err))
		}
	}
	g.metrics.Observe(decision, elapsed)
}

// RequestURI reconstructs the absolute URI of r: scheme, host, path and query.
func RequestURI(r *http.Request) string {
	if r.URL != nil && r.URL.IsAbs() {
		return r.URL.String()
	}

	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}

	host := r.Host
	if host == "" && r.URL != nil {
		host = r.URL.Host
	}

	requestURI := "/"
	if r.URL != nil {
		requestURI = r.URL.RequestURI()
	}
	return scheme + "://" + host + requestURI
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// failureObserver defers to the gateway's metrics, which may be set after
// the provider is built.
type failureObserver struct {
	g *Gateway
}

func (o failureObserver) TemplateLoadFailed(slot string) {
	o.g.metrics.TemplateLoadFailed(slot)
}

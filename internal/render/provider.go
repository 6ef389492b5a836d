package render

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TemplateLoadError reports an override template that could not be used.
type TemplateLoadError struct {
	Slot Slot
	Path string
	Err  error
}

func (e *TemplateLoadError) Error() string {
	return fmt.Sprintf("load %s template %s: %v", e.Slot, e.Path, e.Err)
}

func (e *TemplateLoadError) Unwrap() error {
	return e.Err
}

// FailureObserver is notified when an override template fails to load.
type FailureObserver interface {
	TemplateLoadFailed(slot string)
}

type Provider struct {
	engine   Engine
	builtins Builtins
	logger   *zap.Logger
	observer FailureObserver
}

type ProviderOption func(*Provider)

func WithEngine(engine Engine) ProviderOption {
	return func(p *Provider) {
		p.engine = engine
	}
}

// WithBuiltins replaces the builtin templates. Slots missing from builtins
// keep the embedded default.
func WithBuiltins(builtins Builtins) ProviderOption {
	return func(p *Provider) {
		for slot, tpl := range builtins {
			if tpl != nil {
				p.builtins[slot] = tpl
			}
		}
	}
}

func WithLogger(logger *zap.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

func WithFailureObserver(observer FailureObserver) ProviderOption {
	return func(p *Provider) {
		p.observer = observer
	}
}

func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		engine:   DefaultEngine{},
		builtins: DefaultBuiltins(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Engine() Engine {
	return p.engine
}

// Provide returns the template to render for slot. An empty overridePath
// selects the builtin. An override is read and parsed on every call; if that
// fails the failure is logged and the builtin is returned.
func (p *Provider) Provide(slot Slot, overridePath string) (*Template, Source) {
	builtin := p.builtins[slot]
	if overridePath == "" {
		return builtin, SourceBuiltin
	}

	tpl, err := p.load(slot, overridePath)
	if err != nil {
		p.logger.Error("failed to load custom template, using builtin",
			zap.String("slot", string(slot)),
			zap.String("path", overridePath),
			zap.Error(err),
		)
		if p.observer != nil {
			p.observer.TemplateLoadFailed(string(slot))
		}
		return builtin, SourceFallback
	}
	return tpl, SourceOverride
}

// Load reads and parses the override template at path.
func (p *Provider) Load(slot Slot, path string) (*Template, error) {
	return p.load(slot, path)
}

func (p *Provider) load(slot Slot, path string) (*Template, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &TemplateLoadError{Slot: slot, Path: path, Err: err}
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &TemplateLoadError{Slot: slot, Path: path, Err: err}
	}
	if !utf8.Valid(data) {
		return nil, &TemplateLoadError{Slot: slot, Path: path, Err: errInvalidUTF8}
	}

	tpl, err := p.engine.Parse(string(data))
	if err != nil {
		return nil, &TemplateLoadError{Slot: slot, Path: path, Err: err}
	}
	return tpl, nil
}

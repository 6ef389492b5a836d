package render

import (
	"embed"
	"fmt"
)

//go:embed templates/*.html
var builtinFS embed.FS

// Builtins holds the template shipped for each slot.
type Builtins map[Slot]*Template

var defaultBuiltins = Builtins{
	SlotRedirect: mustLoadBuiltin("templates/redirect.html"),
	SlotFallback: mustLoadBuiltin("templates/fallback.html"),
}

// DefaultBuiltins returns the embedded redirect and fallback templates.
func DefaultBuiltins() Builtins {
	out := make(Builtins, len(defaultBuiltins))
	for slot, tpl := range defaultBuiltins {
		out[slot] = tpl
	}
	return out
}

func mustLoadBuiltin(name string) *Template {
	data, err := builtinFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("read builtin template %s: %v", name, err))
	}
	return MustParse(string(data))
}

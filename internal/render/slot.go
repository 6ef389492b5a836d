package render

type Slot string

const (
	SlotRedirect Slot = "redirect"
	SlotFallback Slot = "fallback"
)

// Placeholder names bound for each slot.
const (
	KeyPattern     = "p1"
	KeyReplacement = "p2"
	KeyRequestPath = "reqPath"
)

// Source tells where the template used for a response came from.
type Source string

const (
	SourceBuiltin  Source = "builtin"
	SourceOverride Source = "override"
	// SourceFallback is the builtin used after an override failed to load.
	SourceFallback Source = "fallback"
)

func RedirectContext(pattern, replacement string) Context {
	return Context{KeyPattern: pattern, KeyReplacement: replacement}
}

func FallbackContext(requestPath string) Context {
	return Context{KeyRequestPath: requestPath}
}

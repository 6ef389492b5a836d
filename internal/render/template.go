// Package render parses and renders the HTML pages served by the redirector.
//
// Templates use named placeholders of the form {name}. Values are inserted
// verbatim without HTML escaping. The request URI ends up in the fallback
// page unescaped, so a crafted URL can inject markup into that page.
//
// The builtin redirect page only places the replacement inside HTML
// attributes and text. An override template that embeds {p1} or {p2} in a
// script string gets the raw pattern: backslashes are read as JS escapes and
// a double quote ends the literal.
package render

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	placeholderRegexp  = regexp.MustCompile(`\{([A-Za-z_]\w*)\}`)
	unterminatedRegexp = regexp.MustCompile(`\{[A-Za-z_]\w*\z`)
)

var errInvalidUTF8 = errors.New("template is not valid UTF-8")

// Context maps placeholder names to the values substituted for them.
type Context map[string]string

type segment struct {
	text        string
	placeholder bool
}

// Template is a parsed placeholder template. It is immutable once parsed.
type Template struct {
	source   string
	segments []segment
}

// placeholders returns the placeholder names in order of appearance.
func (t *Template) placeholders() []string {
	var names []string
	for _, s := range t.segments {
		if s.placeholder {
			names = append(names, s.text)
		}
	}
	return names
}

func (t *Template) String() string {
	return t.source
}

// Engine turns template text into a Template and renders it.
type Engine interface {
	Parse(text string) (*Template, error)
	Render(tpl *Template, ctx Context) string
}

// DefaultEngine implements the {name} placeholder syntax.
type DefaultEngine struct{}

func (DefaultEngine) Parse(text string) (*Template, error) {
	return Parse(text)
}

func (DefaultEngine) Render(tpl *Template, ctx Context) string {
	return tpl.Render(ctx)
}

// Parse splits text into literal and placeholder segments. A brace that does
// not enclose an identifier is kept as literal text.
func Parse(text string) (*Template, error) {
	if !utf8.ValidString(text) {
		return nil, errInvalidUTF8
	}
	if loc := unterminatedRegexp.FindStringIndex(text); loc != nil {
		return nil, fmt.Errorf("unterminated placeholder %q at offset %d", text[loc[0]:loc[1]], loc[0])
	}

	tpl := &Template{source: text}
	last := 0
	for _, m := range placeholderRegexp.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			tpl.segments = append(tpl.segments, segment{text: text[last:m[0]]})
		}
		tpl.segments = append(tpl.segments, segment{text: text[m[2]:m[3]], placeholder: true})
		last = m[1]
	}
	if last < len(text) {
		tpl.segments = append(tpl.segments, segment{text: text[last:]})
	}
	return tpl, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Template {
	tpl, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return tpl
}

// Render substitutes ctx into the template. Unknown placeholders render empty.
func (t *Template) Render(ctx Context) string {
	var b strings.Builder
	b.Grow(len(t.source))
	for _, s := range t.segments {
		if s.placeholder {
			b.WriteString(ctx[s.text])
			continue
		}
		b.WriteString(s.text)
	}
	return b.String()
}

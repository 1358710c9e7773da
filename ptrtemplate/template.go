package ptrtemplate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/resourceid"
)

// Template token characters are everything except "/", "{", "}" and "~";
// those four are escaped as ~1, ~2, ~3 and ~0 respectively.
const (
	unescapedClass = `[\x00-\x2e0-z\x7c\x7f-` + "\U0010FFFF" + `]`
	variableToken  = `\{` + unescapedClass + `*\}`
	literalToken   = `(?:` + unescapedClass + `|~[0123])*`
)

var templateRegexp = regexp.MustCompile(
	`^(?:/(?:` + variableToken + `|` + literalToken + `))*` +
		`(?:` + variableToken + `#)?$`,
)

// component is one parsed step: a run of literal tokens, a variable, or the
// trailing name capture.
type component struct {
	ptr         resourceid.Pointer
	variable    string
	isVariable  bool
	captureName bool
}

// Template is an immutable parsed JSON Pointer template.
type Template struct {
	raw        string
	components []component
}

// Parse compiles a template string. Name captures ("{var}#") are only valid
// in the final position; the grammar rejects them elsewhere.
func Parse(template string) (*Template, error) {
	if !templateRegexp.MatchString(template) {
		return nil, &oaserrors.InvalidTemplateError{Template: template}
	}

	t := &Template{raw: template}
	segments := strings.Split(template, "/")[1:]

	curr := resourceid.Pointer{}
	flush := func() {
		if curr.Len() > 0 {
			t.components = append(t.components, component{ptr: curr})
			curr = resourceid.Pointer{}
		}
	}
	for _, s := range segments {
		if strings.HasPrefix(s, "{") {
			flush()
			if strings.HasSuffix(s, "#") {
				t.components = append(t.components,
					component{variable: s[1 : len(s)-2], isVariable: true},
					component{captureName: true},
				)
			} else {
				t.components = append(t.components,
					component{variable: s[1 : len(s)-1], isVariable: true},
				)
			}
		} else {
			curr = curr.Append(unescape(s))
		}
	}
	if curr.Len() > 0 || len(t.components) == 0 {
		t.components = append(t.components, component{ptr: curr})
	}
	return t, nil
}

// MustParse is like Parse but panics on error. It is intended for
// compile-time-constant templates.
func MustParse(template string) *Template {
	t, err := Parse(template)
	if err != nil {
		panic(err)
	}
	return t
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, "~3", "}")
	s = strings.ReplaceAll(s, "~2", "{")
	s = strings.ReplaceAll(s, "~1", "/")
	return strings.ReplaceAll(s, "~0", "~")
}

// Escape escapes one reference token for literal use inside a template.
func Escape(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	token = strings.ReplaceAll(token, "{", "~2")
	return strings.ReplaceAll(token, "}", "~3")
}

// String returns the template source string.
func (t *Template) String() string { return t.raw }

// Result is one match produced by template evaluation.
type Result struct {
	// Pointer is the concrete resolved pointer, relative to the instance
	// evaluation started from.
	Pointer resourceid.Pointer
	// Instance is the matched value.
	Instance Instance
	// Variables maps each template variable to the token it matched.
	Variables map[string]string
	// Name is the captured key or index when the template ends in "#".
	Name    string
	HasName bool
}

// Evaluate matches the template against instance, returning every match in
// document order. When requireMatch is true, a literal step that does not
// exist in the instance is an error rather than an empty result. It drains
// an [Iterator]; use Iterate directly for lazy consumption.
func (t *Template) Evaluate(instance Instance, requireMatch bool) ([]Result, error) {
	var results []Result
	it := t.Iterate(instance, requireMatch)
	for {
		r, err := it.Next()
		if err != nil {
			return nil, err
		}
		if r == nil {
			return results, nil
		}
		results = append(results, *r)
	}
}

// Iterator produces template matches lazily, in document order. Each call to
// [Template.Iterate] returns an independent, restartable iterator.
type Iterator struct {
	t            *Template
	requireMatch bool
	stack        []iterFrame
}

type iterFrame struct {
	instance Instance
	index    int
	resolved resourceid.Pointer
	vars     map[string]string
}

// Iterate begins a fresh evaluation of the template against instance.
func (t *Template) Iterate(instance Instance, requireMatch bool) *Iterator {
	return &Iterator{
		t:            t,
		requireMatch: requireMatch,
		stack:        []iterFrame{{instance: instance}},
	}
}

// Next returns the next match, or (nil, nil) when the iteration is done.
func (it *Iterator) Next() (*Result, error) {
	for len(it.stack) > 0 {
		frame := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		if frame.index == len(it.t.components) {
			return &Result{
				Pointer:   frame.resolved,
				Instance:  frame.instance,
				Variables: copyVars(frame.vars),
			}, nil
		}

		c := it.t.components[frame.index]
		switch {
		case c.captureName:
			// The grammar guarantees a variable directly precedes the
			// capture.
			name := frame.vars[it.t.components[frame.index-1].variable]
			return &Result{
				Pointer:   frame.resolved,
				Instance:  frame.instance,
				Variables: copyVars(frame.vars),
				Name:      name,
				HasName:   true,
			}, nil

		case c.isVariable:
			var tokens []string
			if keys, ok := frame.instance.Keys(); ok {
				tokens = keys
			} else if length, ok := frame.instance.Len(); ok {
				tokens = make([]string, length)
				for i := range tokens {
					tokens[i] = strconv.Itoa(i)
				}
			} else {
				return nil, &oaserrors.TemplateEvaluationError{
					Template: it.t.raw,
					Pointer:  frame.resolved.String(),
					Phase:    "path",
					Message: "cannot match variable {" + c.variable +
						"} against a non-container value",
				}
			}
			// Pushed in reverse so document order pops first.
			for i := len(tokens) - 1; i >= 0; i-- {
				child, _ := frame.instance.Child(tokens[i])
				vars := copyVars(frame.vars)
				vars[c.variable] = tokens[i]
				it.stack = append(it.stack, iterFrame{
					instance: child,
					index:    frame.index + 1,
					resolved: frame.resolved.Append(tokens[i]),
					vars:     vars,
				})
			}

		default:
			next := frame.instance
			stepped := frame.resolved
			matched := true
			for i := 0; i < c.ptr.Len(); i++ {
				token := c.ptr.Token(i)
				stepped = stepped.Append(token)
				child, ok := next.Child(token)
				if !ok {
					if it.requireMatch {
						return nil, &oaserrors.TemplateEvaluationError{
							Template: it.t.raw,
							Pointer:  stepped.String(),
							Phase:    "path",
							Message:  "path not found in document",
						}
					}
					matched = false
					break
				}
				next = child
			}
			if matched {
				it.stack = append(it.stack, iterFrame{
					instance: next,
					index:    frame.index + 1,
					resolved: stepped,
					vars:     frame.vars,
				})
			}
		}
	}
	return nil, nil
}

func copyVars(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		out[k] = v
	}
	return out
}

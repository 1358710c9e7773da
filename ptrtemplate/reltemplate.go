package ptrtemplate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/resourceid"
)

// RelTemplate is a template prefixed by a relative JSON Pointer origin
// adjustment, e.g. "2/requestBody/content/{type}/schema".
type RelTemplate struct {
	raw      string
	rel      resourceid.RelativePointer
	template *Template
}

// ParseRel compiles a relative template string. The "#" origin form is only
// valid without a trailing template path.
func ParseRel(template string) (*RelTemplate, error) {
	rt := &RelTemplate{raw: template}

	slash := strings.Index(template, "/")
	if slash < 0 {
		rel, err := resourceid.ParseRelativePointer(template)
		if err != nil {
			return nil, &oaserrors.InvalidTemplateError{
				Template: template, Message: err.Error(),
			}
		}
		rt.rel = rel
		return rt, nil
	}

	if slash > 0 && template[slash-1] == '#' {
		return nil, &oaserrors.InvalidTemplateError{
			Template: template,
			Message:  "cannot use '#' in origin adjustment with a template path",
		}
	}
	rel, err := resourceid.ParseRelativePointer(template[:slash])
	if err != nil {
		return nil, &oaserrors.InvalidTemplateError{
			Template: template, Message: err.Error(),
		}
	}
	tmpl, err := Parse(template[slash:])
	if err != nil {
		return nil, &oaserrors.InvalidTemplateError{
			Template: template, Message: err.(*oaserrors.InvalidTemplateError).Message,
		}
	}
	rt.rel = rel
	rt.template = tmpl
	return rt, nil
}

// MustParseRel is like ParseRel but panics on error.
func MustParseRel(template string) *RelTemplate {
	rt, err := ParseRel(template)
	if err != nil {
		panic(err)
	}
	return rt
}

// String returns the template source string.
func (rt *RelTemplate) String() string { return rt.raw }

// RelResult is one match produced by relative template evaluation.
type RelResult struct {
	// Rel locates the match relative to the instance evaluation started
	// from: the origin adjustment composed with the matched path.
	Rel resourceid.RelativePointer
	// Instance is the matched value.
	Instance Instance
	// Variables maps each template variable to the token it matched.
	Variables map[string]string
	// Name is the captured key or index for "#" templates.
	Name    string
	HasName bool
}

// Evaluate applies the origin adjustment to instance and then matches the
// template path. Origin adjustment failures are always errors; path match
// behavior follows requireMatch as for [Template.Evaluate].
func (rt *RelTemplate) Evaluate(instance Instance, requireMatch bool) ([]RelResult, error) {
	base, name, err := evalRelative(rt.rel, instance)
	if err != nil {
		return nil, &oaserrors.TemplateEvaluationError{
			Template: rt.raw,
			Phase:    "origin",
			Message:  err.Error(),
			Cause:    err,
		}
	}

	if rt.template == nil {
		res := RelResult{Rel: rt.rel, Instance: base, Variables: map[string]string{}}
		if rt.rel.IsIndexName {
			res.Name = name
			res.HasName = true
		}
		return []RelResult{res}, nil
	}

	matches, err := rt.template.Evaluate(base, requireMatch)
	if err != nil {
		return nil, &oaserrors.TemplateEvaluationError{
			Template: rt.raw,
			Phase:    "path",
			Message:  "after applying origin adjustment '" + relOrigin(rt.rel) + "'",
			Cause:    err,
		}
	}

	out := make([]RelResult, 0, len(matches))
	for _, m := range matches {
		out = append(out, RelResult{
			Rel: resourceid.RelativePointer{
				Up:      rt.rel.Up,
				Over:    rt.rel.Over,
				HasOver: rt.rel.HasOver,
				Path:    m.Pointer,
			},
			Instance:  m.Instance,
			Variables: m.Variables,
			Name:      m.Name,
			HasName:   m.HasName,
		})
	}
	return out, nil
}

func relOrigin(rel resourceid.RelativePointer) string {
	s := strconv.Itoa(rel.Up)
	if rel.HasOver {
		if rel.Over >= 0 {
			s += "+"
		}
		s += strconv.Itoa(rel.Over)
	}
	return s
}

// evalRelative walks a relative pointer over an instance tree, returning the
// target and, for the "#" form, the target's key or index.
func evalRelative(rel resourceid.RelativePointer, instance Instance) (Instance, string, error) {
	cur := instance
	for i := 0; i < rel.Up; i++ {
		parent, ok := cur.Parent()
		if !ok {
			return nil, "", fmt.Errorf(
				"%q cannot ascend above the document root", rel.String(),
			)
		}
		cur = parent
	}

	if rel.HasOver {
		token, ok := cur.Token()
		if !ok {
			return nil, "", fmt.Errorf(
				"%q cannot adjust an index at the document root", rel.String(),
			)
		}
		idx, err := strconv.Atoi(token)
		if err != nil {
			return nil, "", fmt.Errorf(
				"%q cannot adjust non-index position %q", rel.String(), token,
			)
		}
		parent, _ := cur.Parent()
		adjusted, ok := parent.Child(strconv.Itoa(idx + rel.Over))
		if !ok {
			return nil, "", fmt.Errorf(
				"%q adjusted index %d out of range", rel.String(), idx+rel.Over,
			)
		}
		cur = adjusted
	}

	if rel.IsIndexName {
		token, ok := cur.Token()
		if !ok {
			return nil, "", fmt.Errorf(
				"%q requested the name of the document root", rel.String(),
			)
		}
		return cur, token, nil
	}

	for i := 0; i < rel.Path.Len(); i++ {
		token := rel.Path.Token(i)
		child, ok := cur.Child(token)
		if !ok {
			return nil, "", fmt.Errorf(
				"%q path token %q not found", rel.String(), token,
			)
		}
		cur = child
	}
	return cur, "", nil
}

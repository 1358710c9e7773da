package oasschema

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/erraggy/oasgraph/catalog"
	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/ptrtemplate"
	"github.com/erraggy/oasgraph/resourceid"
)

//go:embed oas30.json
var schemaAsset []byte

// SchemaResource is the retrieval identifier the annotated schema asset is
// registered under.
const SchemaResource = "https://oasgraph.example/schemas/oas/v3.0/schema.json"

// Evaluator validates catalog nodes against the annotated OAS 3.0 schema and
// extracts oas* annotations from the definitions each node matches.
// An Evaluator is safe for concurrent use.
type Evaluator struct {
	compiler *jsonschema.Compiler
	defs     map[string]map[string]any

	mu        sync.Mutex
	schemas   map[string]*jsonschema.Schema
	patterns  map[string]*regexp.Regexp
	locations map[string]*Location
}

// NewEvaluator loads and verifies the embedded schema asset. Every template
// in every annotation value is parsed here, so later template use cannot
// fail on grammar.
func NewEvaluator() (*Evaluator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaAsset))
	if err != nil {
		return nil, fmt.Errorf("decoding schema asset: %w", err)
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema asset is not an object")
	}
	rawDefs, ok := root["$defs"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema asset has no $defs")
	}

	e := &Evaluator{
		compiler:  jsonschema.NewCompiler(),
		defs:      make(map[string]map[string]any, len(rawDefs)),
		schemas:   map[string]*jsonschema.Schema{},
		patterns:  map[string]*regexp.Regexp{},
		locations: map[string]*Location{},
	}
	for name, raw := range rawDefs {
		def, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("definition %q is not an object", name)
		}
		if err := verifyAnnotations(name, def); err != nil {
			return nil, err
		}
		e.defs[name] = def
	}

	RegisterOASFormats(e.compiler)
	if err := e.compiler.AddResource(SchemaResource, doc); err != nil {
		return nil, fmt.Errorf("registering schema asset: %w", err)
	}
	return e, nil
}

// verifyAnnotations checks the shape and template grammar of every oas*
// keyword on one definition.
func verifyAnnotations(name string, def map[string]any) error {
	fail := func(kw string, format string, args ...any) error {
		return fmt.Errorf("definition %q keyword %q: %s", name, kw, fmt.Sprintf(format, args...))
	}
	checkRel := func(kw, tmpl string) error {
		if _, err := ptrtemplate.ParseRel(tmpl); err != nil {
			return fail(kw, "%v", err)
		}
		return nil
	}

	for _, kw := range []string{"oasType", "oasTypeGroup"} {
		if v, ok := def[kw]; ok {
			if _, ok := v.(string); !ok {
				return fail(kw, "value must be a string")
			}
		}
	}
	if v, ok := def["oasExtensible"]; ok {
		if _, ok := v.(bool); !ok {
			return fail("oasExtensible", "value must be a boolean")
		}
	}
	for _, kw := range []string{"oasChildren", "oasLiterals", "oasApiLinks", "oasDescriptionLinks"} {
		v, ok := def[kw]
		if !ok {
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			return fail(kw, "value must be an object")
		}
		for rel, tmpl := range m {
			s, ok := tmpl.(string)
			if !ok {
				return fail(kw, "entry %q must be a template string", rel)
			}
			if err := checkRel(kw, s); err != nil {
				return err
			}
		}
	}
	if v, ok := def["oasReferences"]; ok {
		m, ok := v.(map[string]any)
		if !ok {
			return fail("oasReferences", "value must be an object")
		}
		for tmpl, target := range m {
			if err := checkRel("oasReferences", tmpl); err != nil {
				return err
			}
			if _, ok := target.(string); !ok {
				return fail("oasReferences", "target type for %q must be a string", tmpl)
			}
		}
	}
	if v, ok := def["oasExamples"]; ok {
		m, ok := v.(map[string]any)
		if !ok {
			return fail("oasExamples", "value must be an object")
		}
		for group, list := range m {
			if group != "schemas" && group != "instances" {
				return fail("oasExamples", "unknown group %q", group)
			}
			items, ok := list.([]any)
			if !ok {
				return fail("oasExamples", "group %q must be an array", group)
			}
			for _, item := range items {
				s, ok := item.(string)
				if !ok {
					return fail("oasExamples", "group %q entries must be template strings", group)
				}
				if err := checkRel("oasExamples", s); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Types returns the names of every defined OAS type.
func (e *Evaluator) Types() []string {
	names := make([]string, 0, len(e.defs))
	for name := range e.defs {
		names = append(names, name)
	}
	return names
}

// HasType reports whether oasType names a schema definition.
func (e *Evaluator) HasType(oasType string) bool {
	_, ok := e.defs[oasType]
	return ok
}

// schemaFor compiles and memoizes the validator for one definition.
func (e *Evaluator) schemaFor(oasType string) (*jsonschema.Schema, error) {
	if _, ok := e.defs[oasType]; !ok {
		return nil, fmt.Errorf("%w: no schema definition for OAS type %q",
			oaserrors.ErrConfig, oasType)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if sch, ok := e.schemas[oasType]; ok {
		return sch, nil
	}
	sch, err := e.compiler.Compile(SchemaResource + "#/$defs/" + oasType)
	if err != nil {
		return nil, fmt.Errorf("compiling schema for %q: %w", oasType, err)
	}
	e.schemas[oasType] = sch
	return sch, nil
}

func (e *Evaluator) pattern(expr string) (*regexp.Regexp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if re, ok := e.patterns[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	e.patterns[expr] = re
	return re, nil
}

// location returns the shared Location for one (instance, definition) pair.
func (e *Evaluator) location(n *catalog.Node, defName string) *Location {
	key := n.Document().URI().String() + "#" + n.Pointer().String() + "|" + defName
	e.mu.Lock()
	defer e.mu.Unlock()
	if loc, ok := e.locations[key]; ok {
		return loc
	}
	loc := &Location{
		Instance:    n,
		InstancePtr: n.Pointer(),
		EvalPath:    resourceid.NewPointer("$defs", defName),
		SchemaURI:   SchemaResource,
	}
	e.locations[key] = loc
	return loc
}

// Evaluate validates the node as oasType and returns every oas* annotation
// the matched definitions emit for the node's subtree, in document order.
// Structural non-conformance fails with a SchemaValidationError carrying the
// engine's full detailed output.
func (e *Evaluator) Evaluate(n *catalog.Node, oasType string) ([]Annotation, error) {
	sch, err := e.schemaFor(oasType)
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(n.Value()); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, &oaserrors.SchemaValidationError{
				URI:     n.URI().String(),
				OASType: oasType,
				Detail:  verr.DetailedOutput(),
			}
		}
		return nil, err
	}

	w := &walker{e: e}
	if err := w.walkDef(oasType, n); err != nil {
		return nil, err
	}
	return w.out, nil
}

// walker descends the annotated schema alongside the instance tree, emitting
// annotations at every definition the instance matches. The instance is
// finite and each position is visited once, so recursive definitions
// terminate.
type walker struct {
	e   *Evaluator
	out []Annotation
}

func (w *walker) walkDef(name string, n *catalog.Node) error {
	def, ok := w.e.defs[name]
	if !ok {
		return fmt.Errorf("%w: schema references unknown definition %q",
			oaserrors.ErrConfig, name)
	}
	loc := w.e.location(n, name)
	for _, kw := range AnnotationOrder {
		if v, ok := def[kw]; ok {
			w.out = append(w.out, Annotation{Keyword: kw, Value: v, Location: loc})
		}
	}
	return w.descend(def, n)
}

func (w *walker) walkSchema(schema any, n *catalog.Node) error {
	m, ok := schema.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	if ref, ok := m["$ref"].(string); ok {
		return w.walkDef(strings.TrimPrefix(ref, "#/$defs/"), n)
	}
	return w.descend(m, n)
}

func (w *walker) descend(m map[string]any, n *catalog.Node) error {
	if branches, ok := m["allOf"].([]any); ok {
		for _, b := range branches {
			if err := w.walkSchema(b, n); err != nil {
				return err
			}
		}
	}
	for _, kw := range []string{"oneOf", "anyOf"} {
		branches, ok := m[kw].([]any)
		if !ok {
			continue
		}
		b, err := w.matchBranch(branches, n)
		if err != nil {
			return err
		}
		if b != nil {
			if err := w.walkSchema(b, n); err != nil {
				return err
			}
		}
	}

	switch n.Kind() {
	case catalog.KindObject:
		props, _ := m["properties"].(map[string]any)
		patterns, _ := m["patternProperties"].(map[string]any)
		additional, _ := m["additionalProperties"].(map[string]any)
		for _, key := range n.ObjectKeys() {
			child, _ := n.ChildNode(key)
			matched := false
			if ps, ok := props[key]; ok {
				matched = true
				if err := w.walkSchema(ps, child); err != nil {
					return err
				}
			}
			for expr, ps := range patterns {
				re, err := w.e.pattern(expr)
				if err != nil {
					return err
				}
				if re.MatchString(key) {
					matched = true
					if err := w.walkSchema(ps, child); err != nil {
						return err
					}
				}
			}
			if !matched && additional != nil {
				if err := w.walkSchema(additional, child); err != nil {
					return err
				}
			}
		}
	case catalog.KindArray:
		items, ok := m["items"]
		if !ok {
			return nil
		}
		for i := 0; i < n.ElementCount(); i++ {
			if err := w.walkSchema(items, n.Element(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// matchBranch picks the oneOf/anyOf branch the instance satisfies. Branches
// that reference a definition are discriminated by validating the instance
// against that definition; inline branches are discriminated by JSON type.
func (w *walker) matchBranch(branches []any, n *catalog.Node) (any, error) {
	for _, b := range branches {
		bm, ok := b.(map[string]any)
		if !ok {
			continue
		}
		if ref, ok := bm["$ref"].(string); ok {
			sch, err := w.e.schemaFor(strings.TrimPrefix(ref, "#/$defs/"))
			if err != nil {
				return nil, err
			}
			if sch.Validate(n.Value()) == nil {
				return b, nil
			}
			continue
		}
		if typeName, ok := bm["type"].(string); ok && kindMatches(typeName, n.Kind()) {
			return b, nil
		}
	}
	// The node already passed full structural validation; an unmatched
	// branch set means the schema carries a shape the walker does not
	// discriminate, which is an asset defect.
	return nil, nil
}

func kindMatches(typeName string, k catalog.Kind) bool {
	switch typeName {
	case "null":
		return k == catalog.KindNull
	case "boolean":
		return k == catalog.KindBool
	case "number", "integer":
		return k == catalog.KindNumber
	case "string":
		return k == catalog.KindString
	case "object":
		return k == catalog.KindObject
	case "array":
		return k == catalog.KindArray
	}
	return false
}

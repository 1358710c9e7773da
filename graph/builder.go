package graph

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cayleygraph/quad"

	oasgraph "github.com/erraggy/oasgraph"
	"github.com/erraggy/oasgraph/catalog"
	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/oasschema"
	"github.com/erraggy/oasgraph/ptrtemplate"
	"github.com/erraggy/oasgraph/resourceid"
	"github.com/erraggy/oasgraph/source"
)

// Target is a referenced resource discovered while building the graph; it
// must be validated as OASType before the graph is complete.
type Target struct {
	URI     resourceid.Identifier
	OASType string
}

type handler func(b *Builder, a oasschema.Annotation, sm source.SourceMap) ([]Target, []error)

// Builder turns schema annotations into graph triples through a closed
// keyword dispatch table.
type Builder struct {
	g                *Graph
	logger           oasgraph.Logger
	validateExamples bool
	handlers         map[string]handler
	templates        map[string]*ptrtemplate.RelTemplate
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderLogger sets the builder logger.
func WithBuilderLogger(logger oasgraph.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithValidateExamples toggles validation of examples and defaults against
// their governing schemas. On by default.
func WithValidateExamples(enabled bool) BuilderOption {
	return func(b *Builder) { b.validateExamples = enabled }
}

// NewBuilder creates a builder over g. The dispatch table is checked against
// the annotation keyword list, so a keyword without a handler (or a handler
// without a keyword) fails construction instead of surfacing mid-run.
func NewBuilder(g *Graph, opts ...BuilderOption) (*Builder, error) {
	b := &Builder{
		g:                g,
		logger:           oasgraph.NopLogger{},
		validateExamples: true,
		templates:        map[string]*ptrtemplate.RelTemplate{},
		handlers: map[string]handler{
			"oasType":             (*Builder).addType,
			"oasTypeGroup":        (*Builder).addTypeGroup,
			"oasReferences":       (*Builder).addReferences,
			"oasChildren":         (*Builder).addChildren,
			"oasLiterals":         (*Builder).addLiterals,
			"oasExtensible":       (*Builder).addExtensible,
			"oasApiLinks":         (*Builder).addAPILinks,
			"oasDescriptionLinks": (*Builder).addDescriptionLinks,
			"oasExamples":         (*Builder).addExamples,
		},
	}
	for _, opt := range opts {
		opt(b)
	}

	if len(b.handlers) != len(oasschema.AnnotationOrder) {
		return nil, fmt.Errorf("%w: dispatch table has %d handlers for %d keywords",
			oaserrors.ErrConfig, len(b.handlers), len(oasschema.AnnotationOrder))
	}
	for _, kw := range oasschema.AnnotationOrder {
		if _, ok := b.handlers[kw]; !ok {
			return nil, fmt.Errorf("%w: no handler for annotation keyword %q",
				oaserrors.ErrConfig, kw)
		}
	}
	return b, nil
}

// Graph returns the graph under construction.
func (b *Builder) Graph() *Graph { return b.g }

// Apply dispatches annotations in keyword priority order, returning the
// discovered reference targets and any accumulated non-fatal errors. The
// source map may be nil when position tracking is off.
func (b *Builder) Apply(anns []oasschema.Annotation, sm source.SourceMap) ([]Target, []error) {
	sorted := make([]oasschema.Annotation, len(anns))
	copy(sorted, anns)
	oasschema.SortAnnotations(sorted)

	var targets []Target
	var errs []error
	for _, a := range sorted {
		h, ok := b.handlers[a.Keyword]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: unexpected annotation %q",
				oaserrors.ErrConfig, a.Keyword))
			continue
		}
		t, e := h(b, a, sm)
		targets = append(targets, t...)
		errs = append(errs, e...)
	}
	return targets, errs
}

func nodeTerm(n *catalog.Node) quad.IRI {
	return quad.IRI(n.URI().String())
}

func (b *Builder) addPosition(subject quad.IRI, ptr resourceid.Pointer, sm source.SourceMap) {
	if sm == nil {
		return
	}
	pos, ok := sm[ptr.String()]
	if !ok {
		return
	}
	b.g.Add(subject, b.g.OAS("line"), quad.Int(pos.Line))
	b.g.Add(subject, b.g.OAS("column"), quad.Int(pos.Column))
}

func (b *Builder) relTemplate(s string) (*ptrtemplate.RelTemplate, error) {
	if rt, ok := b.templates[s]; ok {
		return rt, nil
	}
	rt, err := ptrtemplate.ParseRel(s)
	if err != nil {
		return nil, err
	}
	b.templates[s] = rt
	return rt, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func childString(n *catalog.Node, key string) (string, bool) {
	c, ok := n.ChildNode(key)
	if !ok {
		return "", false
	}
	return c.StringValue()
}

func (b *Builder) addType(a oasschema.Annotation, sm source.SourceMap) ([]Target, []error) {
	typeName, ok := a.StringValue()
	if !ok {
		return nil, []error{fmt.Errorf("%w: oasType value is not a string",
			oaserrors.ErrConfig)}
	}
	n := a.Location.Instance
	subject := nodeTerm(n)
	b.g.Add(subject, RDFType, b.g.OAS(typeName))
	b.g.Add(subject, RDFType, b.g.OAS("ParsedStructure"))
	if label, ok := typeLabel(typeName, n); ok {
		b.g.Add(subject, RDFSLabel, quad.String(label))
	}
	b.addPosition(subject, n.Pointer(), sm)
	return nil, nil
}

// typeLabel derives a human-readable label for typed nodes that have a
// natural name.
func typeLabel(typeName string, n *catalog.Node) (string, bool) {
	switch typeName {
	case "Operation":
		if id, ok := childString(n, "operationId"); ok {
			return id, true
		}
		// Fall back to "method:path" from the node's position.
		ptr := n.Pointer()
		if ptr.Len() >= 3 {
			return ptr.Token(ptr.Len()-1) + ":" + ptr.Token(ptr.Len()-2), true
		}
	case "Parameter":
		in, okIn := childString(n, "in")
		name, okName := childString(n, "name")
		if okIn && okName {
			return in + ":" + name, true
		}
	case "Tag":
		if name, ok := childString(n, "name"); ok {
			return name, true
		}
		if token, ok := n.Token(); ok {
			return token, true
		}
	case "Server", "SecurityRequirement", "SecurityScheme":
		if token, ok := n.Token(); ok {
			return token, true
		}
	}
	return "", false
}

func (b *Builder) addTypeGroup(a oasschema.Annotation, sm source.SourceMap) ([]Target, []error) {
	group, ok := a.StringValue()
	if !ok {
		return nil, []error{fmt.Errorf("%w: oasTypeGroup value is not a string",
			oaserrors.ErrConfig)}
	}
	b.g.Add(nodeTerm(a.Location.Instance), RDFType, b.g.OAS(group))
	return nil, nil
}

func (b *Builder) addChildren(a oasschema.Annotation, sm source.SourceMap) ([]Target, []error) {
	children, ok := a.StringMap()
	if !ok {
		return nil, []error{fmt.Errorf("%w: oasChildren value is not a template map",
			oaserrors.ErrConfig)}
	}
	n := a.Location.Instance
	parent := nodeTerm(n)

	var errs []error
	for _, name := range sortedKeys(children) {
		rt, err := b.relTemplate(children[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		matches, err := rt.Evaluate(n, false)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, m := range matches {
			child := m.Instance.(*catalog.Node)
			childTerm := nodeTerm(child)
			b.g.Add(parent, b.g.OAS(name), childTerm)
			b.g.Add(childTerm, b.g.OAS("parent"), parent)
			b.addPosition(childTerm, child.Pointer(), sm)
		}
	}
	return nil, errs
}

func (b *Builder) addLiterals(a oasschema.Annotation, sm source.SourceMap) ([]Target, []error) {
	literals, ok := a.StringMap()
	if !ok {
		return nil, []error{fmt.Errorf("%w: oasLiterals value is not a template map",
			oaserrors.ErrConfig)}
	}
	n := a.Location.Instance
	subject := nodeTerm(n)

	var errs []error
	for _, name := range sortedKeys(literals) {
		rt, err := b.relTemplate(literals[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		matches, err := rt.Evaluate(n, false)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, m := range matches {
			value, ok := literalTerm(m.Instance.(*catalog.Node))
			if !ok {
				continue
			}
			b.g.Add(subject, b.g.OAS(name), value)
		}
	}
	return nil, errs
}

// literalTerm converts a scalar node to an RDF literal. Null values carry no
// information and are dropped; containers are encoded as JSON text.
func literalTerm(n *catalog.Node) (quad.Value, bool) {
	switch n.Kind() {
	case catalog.KindString:
		s, _ := n.StringValue()
		return quad.String(s), true
	case catalog.KindBool:
		v, _ := n.BoolValue()
		return quad.Bool(v), true
	case catalog.KindNumber:
		num := n.Scalar().(json.Number)
		if i, err := num.Int64(); err == nil {
			return quad.Int(i), true
		}
		if f, err := num.Float64(); err == nil {
			return quad.Float(f), true
		}
		return quad.String(num.String()), true
	case catalog.KindNull:
		return nil, false
	}
	encoded, err := json.Marshal(n.Value())
	if err != nil {
		return nil, false
	}
	return quad.String(encoded), true
}

func (b *Builder) addExtensible(a oasschema.Annotation, sm source.SourceMap) ([]Target, []error) {
	extensible, ok := a.BoolValue()
	if !ok {
		return nil, []error{fmt.Errorf("%w: oasExtensible value is not a boolean",
			oaserrors.ErrConfig)}
	}
	if extensible {
		b.g.Add(nodeTerm(a.Location.Instance), b.g.OAS("extensible"), quad.Bool(true))
	}
	return nil, nil
}

func (b *Builder) addReferences(a oasschema.Annotation, sm source.SourceMap) ([]Target, []error) {
	refs, ok := a.StringMap()
	if !ok {
		return nil, []error{fmt.Errorf("%w: oasReferences value is not a template map",
			oaserrors.ErrConfig)}
	}
	n := a.Location.Instance
	docURI := n.Document().URI()

	var targets []Target
	var errs []error
	for _, tmpl := range sortedKeys(refs) {
		expected := refs[tmpl]
		if expected == "" {
			// Unstated target types default to Schema, the overwhelmingly
			// common case.
			expected = "Schema"
		}
		rt, err := b.relTemplate(tmpl)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		matches, err := rt.Evaluate(n, false)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, m := range matches {
			refNode := m.Instance.(*catalog.Node)
			raw, ok := refNode.StringValue()
			if !ok {
				errs = append(errs, fmt.Errorf(
					"reference at <%s> is not a string", refNode.URI()))
				continue
			}
			ref, err := resourceid.Parse(raw, resourceid.RuleURIReference)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			target, err := ref.Resolve(docURI)
			if err != nil {
				errs = append(errs, err)
				continue
			}

			subject := nodeTerm(refNode)
			targetTerm := quad.IRI(target.String())
			b.g.Add(subject, RDFType, b.g.OAS("JSONReference"))
			b.g.Add(subject, b.g.OAS("references"), targetTerm)
			b.g.Add(subject, b.g.OAS("referenceValue"), quad.String(raw))
			b.g.Add(subject, b.g.OAS("targetType"), b.g.OAS(expected))
			b.addPosition(subject, refNode.Pointer(), sm)

			// Same-document references are fully recorded above but need
			// no further validation pass.
			if base, err := target.ToAbsolute(); err == nil && !base.Equal(docURI) {
				targets = append(targets, Target{URI: target, OASType: expected})
			}
		}
	}
	return targets, errs
}

func (b *Builder) addAPILinks(a oasschema.Annotation, sm source.SourceMap) ([]Target, []error) {
	return b.addLinks(a, "ApiLink")
}

func (b *Builder) addDescriptionLinks(a oasschema.Annotation, sm source.SourceMap) ([]Target, []error) {
	return b.addLinks(a, "DescriptionLink")
}

// addLinks records URL-valued properties. Values that parse as IRI
// references become IRI terms typed with the link marker; values that do
// not (server URL templates with {variables}) stay literal.
func (b *Builder) addLinks(a oasschema.Annotation, marker string) ([]Target, []error) {
	links, ok := a.StringMap()
	if !ok {
		return nil, []error{fmt.Errorf("%w: %s value is not a template map",
			oaserrors.ErrConfig, a.Keyword)}
	}
	n := a.Location.Instance
	subject := nodeTerm(n)
	docURI := n.Document().URI()

	var errs []error
	for _, name := range sortedKeys(links) {
		rt, err := b.relTemplate(links[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		matches, err := rt.Evaluate(n, false)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, m := range matches {
			raw, ok := m.Instance.(*catalog.Node).StringValue()
			if !ok {
				continue
			}
			var object quad.Value = quad.String(raw)
			if ref, err := resourceid.Parse(raw, resourceid.RuleIRIReference); err == nil {
				if resolved, err := ref.Resolve(docURI); err == nil {
					linkTerm := quad.IRI(resolved.String())
					b.g.Add(linkTerm, RDFType, b.g.OAS(marker))
					object = linkTerm
				}
			}
			b.g.Add(subject, b.g.OAS(name), object)
		}
	}
	return nil, errs
}

package graph

import (
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/erraggy/oasgraph/catalog"
	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/oasschema"
	"github.com/erraggy/oasgraph/source"
)

// addExamples gathers the governing schemas and the example/default
// instances named by the annotation's templates, then validates every
// instance against every schema. Failures accumulate; nothing aborts.
func (b *Builder) addExamples(a oasschema.Annotation, sm source.SourceMap) ([]Target, []error) {
	if !b.validateExamples {
		return nil, nil
	}
	groups, ok := a.GroupedStrings()
	if !ok {
		return nil, []error{fmt.Errorf("%w: oasExamples value is not grouped templates",
			oaserrors.ErrConfig)}
	}
	n := a.Location.Instance

	var errs []error
	schemas := b.gatherNodes(n, groups["schemas"], &errs)
	instances := b.gatherNodes(n, groups["instances"], &errs)
	if len(schemas) == 0 || len(instances) == 0 {
		return nil, errs
	}

	for _, schemaNode := range schemas {
		// Schemas reached through a reference are validated where they
		// live; the reference machinery already connects them.
		if containsRef(schemaNode.Value()) {
			continue
		}
		sch, err := compileExampleSchema(schemaNode)
		if err != nil {
			errs = append(errs, fmt.Errorf(
				"cannot compile schema <%s>: %w", schemaNode.URI(), err))
			continue
		}
		for _, instance := range instances {
			err := sch.Validate(instance.Value())
			if err == nil {
				continue
			}
			var verr *jsonschema.ValidationError
			if errors.As(err, &verr) {
				errs = append(errs, &oaserrors.ExampleValidationError{
					Instance: instance.URI().String(),
					Schema:   schemaNode.URI().String(),
					Detail:   verr.DetailedOutput(),
				})
				continue
			}
			errs = append(errs, err)
		}
	}
	return nil, errs
}

func (b *Builder) gatherNodes(n *catalog.Node, templates []string, errs *[]error) []*catalog.Node {
	var nodes []*catalog.Node
	for _, tmpl := range templates {
		rt, err := b.relTemplate(tmpl)
		if err != nil {
			*errs = append(*errs, err)
			continue
		}
		matches, err := rt.Evaluate(n, false)
		if err != nil {
			*errs = append(*errs, err)
			continue
		}
		for _, m := range matches {
			nodes = append(nodes, m.Instance.(*catalog.Node))
		}
	}
	return nodes
}

// containsRef reports whether a decoded schema value uses "$ref" anywhere.
func containsRef(v any) bool {
	switch val := v.(type) {
	case map[string]any:
		if _, ok := val["$ref"]; ok {
			return true
		}
		for _, child := range val {
			if containsRef(child) {
				return true
			}
		}
	case []any:
		for _, child := range val {
			if containsRef(child) {
				return true
			}
		}
	}
	return false
}

func compileExampleSchema(n *catalog.Node) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	oasschema.RegisterOASFormats(c)
	if err := c.AddResource("example-schema.json", dialectSchema(n.Value())); err != nil {
		return nil, err
	}
	return c.Compile("example-schema.json")
}

// dialectSchema rewrites an OAS 3.0 schema value into its draft 2020-12
// equivalent: boolean exclusiveMinimum/exclusiveMaximum fold into the
// adjacent bound, and nullable widens type to admit null. The input value is
// left unmodified.
func dialectSchema(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}
	foldExclusiveBound(out, "exclusiveMinimum", "minimum")
	foldExclusiveBound(out, "exclusiveMaximum", "maximum")
	if nullable, isBool := out["nullable"].(bool); isBool {
		delete(out, "nullable")
		if nullable {
			if typ, isStr := out["type"].(string); isStr {
				out["type"] = []any{typ, "null"}
			}
		}
	}
	for _, key := range []string{"items", "not", "additionalProperties"} {
		if sub, has := out[key]; has {
			out[key] = dialectSchema(sub)
		}
	}
	for _, key := range []string{"allOf", "anyOf", "oneOf"} {
		list, isList := out[key].([]any)
		if !isList {
			continue
		}
		subs := make([]any, len(list))
		for i, el := range list {
			subs[i] = dialectSchema(el)
		}
		out[key] = subs
	}
	if props, isMap := out["properties"].(map[string]any); isMap {
		subs := make(map[string]any, len(props))
		for name, el := range props {
			subs[name] = dialectSchema(el)
		}
		out["properties"] = subs
	}
	return out
}

// foldExclusiveBound converts the OAS 3.0 boolean exclusive keyword plus its
// bound into the single numeric keyword of 2020-12. A false flag simply
// drops, leaving the inclusive bound in place.
func foldExclusiveBound(m map[string]any, exclusive, bound string) {
	flag, isBool := m[exclusive].(bool)
	if !isBool {
		return
	}
	delete(m, exclusive)
	if !flag {
		return
	}
	if b, has := m[bound]; has {
		delete(m, bound)
		m[exclusive] = b
	}
}

package graph

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/resourceid"
)

// referenceTypeTable is the closed normalization table for reference target
// types: canonical names, the pluralized components-group names, the
// Operation/Parameter subtype variants, and the relation predicate names a
// reference can sit behind. Names outside the table are an explicit error,
// never a guess.
var referenceTypeTable = map[string]string{
	// canonical
	"Schema":         "Schema",
	"Response":       "Response",
	"Parameter":      "Parameter",
	"Example":        "Example",
	"RequestBody":    "RequestBody",
	"Header":         "Header",
	"SecurityScheme": "SecurityScheme",
	"Link":           "Link",
	"Callback":       "Callback",
	"PathItem":       "PathItem",
	"Operation":      "Operation",

	// components group plurals
	"Schemas":         "Schema",
	"Responses":       "Response",
	"Parameters":      "Parameter",
	"Examples":        "Example",
	"RequestBodies":   "RequestBody",
	"Headers":         "Header",
	"SecuritySchemes": "SecurityScheme",
	"Links":           "Link",
	"Callbacks":       "Callback",

	// subtype variants
	"QueryParameter":   "Parameter",
	"PathParameter":    "Parameter",
	"HeaderParameter":  "Parameter",
	"CookieParameter":  "Parameter",
	"GetOperation":     "Operation",
	"PutOperation":     "Operation",
	"PostOperation":    "Operation",
	"DeleteOperation":  "Operation",
	"OptionsOperation": "Operation",
	"HeadOperation":    "Operation",
	"PatchOperation":   "Operation",
	"TraceOperation":   "Operation",

	// relation predicate names
	"schema":               "Schema",
	"items":                "Schema",
	"property":             "Schema",
	"additionalProperties": "Schema",
	"allOf":                "Schema",
	"oneOf":                "Schema",
	"anyOf":                "Schema",
	"not":                  "Schema",
	"response":             "Response",
	"parameter":            "Parameter",
	"example":              "Example",
	"requestBody":          "RequestBody",
	"header":               "Header",
	"securityScheme":       "SecurityScheme",
	"link":                 "Link",
	"callback":             "Callback",
	"pathItem":             "PathItem",
}

// componentsKindTable derives a type from the components group an
// unresolved Reference target points into.
var componentsKindTable = map[string]string{
	"schemas":         "Schema",
	"responses":       "Response",
	"parameters":      "Parameter",
	"examples":        "Example",
	"requestBodies":   "RequestBody",
	"headers":         "Header",
	"securitySchemes": "SecurityScheme",
	"links":           "Link",
	"callbacks":       "Callback",
}

var versionPrefix = regexp.MustCompile(`^v?\d+\.\d+-`)

// normalizeType resolves a type name through the closed table, stripping
// any version prefix first.
func normalizeType(name string) (string, bool) {
	name = versionPrefix.ReplaceAllString(name, "")
	normalized, ok := referenceTypeTable[name]
	return normalized, ok
}

// structuralTypes are graph types that say nothing about what a reference
// target semantically is.
var structuralTypes = map[string]bool{
	"ParsedStructure": true,
	"JSONReference":   true,
	"ApiLink":         true,
	"DescriptionLink": true,
}

// ValidateReferences runs the deferred reference type check over the
// finished graph: for every recorded reference, the target's actual type
// must normalize to the reference's expected type. Whole-document targets
// follow the document's root edge; targets that are themselves unresolved
// Reference objects derive their type from the components path they point
// into. Every mismatch is reported; nothing aborts.
func (g *Graph) ValidateReferences() []error {
	types := map[string][]string{}
	references := map[string]string{}
	expected := map[string]string{}
	roots := map[string]string{}

	for _, t := range g.triples {
		subject, ok := t.Subject.(quad.IRI)
		if !ok {
			continue
		}
		s := string(subject)
		switch t.Predicate {
		case RDFType:
			if name, ok := g.LocalName(t.Object); ok {
				types[s] = append(types[s], name)
			}
		case g.OAS("references"):
			if target, ok := t.Object.(quad.IRI); ok {
				references[s] = string(target)
			}
		case g.OAS("targetType"):
			if name, ok := g.LocalName(t.Object); ok {
				expected[s] = name
			}
		case g.OAS("root"):
			if root, ok := t.Object.(quad.IRI); ok {
				roots[s] = string(root)
			}
		}
	}

	subjects := make([]string, 0, len(references))
	for s := range references {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	var errs []error
	for _, ref := range subjects {
		target := references[ref]

		want, ok := normalizeType(expected[ref])
		if !ok {
			errs = append(errs, &oaserrors.UnsupportedTypeError{
				Type: expected[ref], Node: ref,
			})
			continue
		}

		actual := g.targetTypes(target, types, roots)
		if matches(actual, want) {
			continue
		}

		// An unresolved Reference target is typed by the components group
		// it points into.
		if len(actual) == 1 && actual[0] == "Reference" {
			if derived, ok := deriveFromComponentsPath(target); ok {
				if derived == want {
					continue
				}
				actual = []string{derived}
			}
		}

		var normalized []string
		for _, name := range actual {
			if norm, ok := normalizeType(name); ok {
				normalized = append(normalized, norm)
			}
		}
		errs = append(errs, &oaserrors.ReferenceTypeError{
			Reference: ref,
			Target:    target,
			Expected:  want,
			Actual:    strings.Join(normalized, ","),
		})
	}
	return errs
}

// targetTypes returns the semantic types recorded for a target, following
// the root edge for whole-document targets.
func (g *Graph) targetTypes(target string, types map[string][]string, roots map[string]string) []string {
	found := semanticTypes(types[target])
	if len(found) == 0 {
		if root, ok := roots[target]; ok {
			found = semanticTypes(types[root])
		}
	}
	return found
}

func semanticTypes(names []string) []string {
	var out []string
	for _, name := range names {
		if !structuralTypes[name] {
			out = append(out, name)
		}
	}
	return out
}

func matches(actual []string, want string) bool {
	for _, name := range actual {
		if norm, ok := normalizeType(name); ok && norm == want {
			return true
		}
	}
	return false
}

// deriveFromComponentsPath inspects a target URI's pointer fragment for the
// "components/<kind>" shape.
func deriveFromComponentsPath(target string) (string, bool) {
	id, err := resourceid.Parse(target, resourceid.RuleIRIReference)
	if err != nil {
		return "", false
	}
	ptr, has, err := id.PointerFragment()
	if err != nil || !has {
		return "", false
	}
	for i := 0; i+1 < ptr.Len(); i++ {
		if ptr.Token(i) == "components" {
			derived, ok := componentsKindTable[ptr.Token(i+1)]
			return derived, ok
		}
	}
	return "", false
}

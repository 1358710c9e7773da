package oasschema

import (
	"sort"

	"github.com/erraggy/oasgraph/catalog"
	"github.com/erraggy/oasgraph/resourceid"
)

// AnnotationOrder fixes the priority in which graph construction consumes
// annotation keywords. Types come first so every node exists before edges
// point at it; examples come last so referenced schemas are already known.
var AnnotationOrder = []string{
	"oasType",
	"oasTypeGroup",
	"oasReferences",
	"oasChildren",
	"oasLiterals",
	"oasExtensible",
	"oasApiLinks",
	"oasDescriptionLinks",
	"oasExamples",
}

var annotationPriority = func() map[string]int {
	m := make(map[string]int, len(AnnotationOrder))
	for i, kw := range AnnotationOrder {
		m[kw] = i
	}
	return m
}()

// Priority returns the processing rank of an annotation keyword, and whether
// the keyword is one of the recognized oas* annotations.
func Priority(keyword string) (int, bool) {
	p, ok := annotationPriority[keyword]
	return p, ok
}

// Location identifies where an annotation applies: the instance node it was
// attached to and the schema definition that attached it. Locations are
// shared; every annotation emitted for the same (instance, definition) pair
// carries the same *Location.
type Location struct {
	// Instance is the annotated node.
	Instance *catalog.Node
	// InstancePtr is the node's pointer within its document.
	InstancePtr resourceid.Pointer
	// EvalPath is the pointer to the schema definition that emitted the
	// annotation, e.g. "/$defs/Operation".
	EvalPath resourceid.Pointer
	// SchemaURI is the identifier of the schema resource.
	SchemaURI string
}

// InstanceURI returns the annotated node's full URI.
func (l *Location) InstanceURI() resourceid.Identifier {
	return l.Instance.URI()
}

// Annotation is one oas* keyword emitted for one instance location. Value is
// the keyword's decoded JSON value from the schema asset.
type Annotation struct {
	Keyword  string
	Value    any
	Location *Location
}

// StringValue returns the annotation value as a string.
func (a Annotation) StringValue() (string, bool) {
	s, ok := a.Value.(string)
	return s, ok
}

// BoolValue returns the annotation value as a bool.
func (a Annotation) BoolValue() (bool, bool) {
	b, ok := a.Value.(bool)
	return b, ok
}

// StringMap returns the annotation value as a map of strings, the shape of
// oasChildren, oasLiterals, oasReferences, oasApiLinks and
// oasDescriptionLinks.
func (a Annotation) StringMap() (map[string]string, bool) {
	raw, ok := a.Value.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[k] = s
	}
	return out, true
}

// GroupedStrings returns the annotation value as named string lists, the
// shape of oasExamples ("schemas" and "instances" template lists).
func (a Annotation) GroupedStrings() (map[string][]string, bool) {
	raw, ok := a.Value.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string][]string, len(raw))
	for k, v := range raw {
		list, ok := v.([]any)
		if !ok {
			return nil, false
		}
		strs := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			strs[i] = s
		}
		out[k] = strs
	}
	return out, true
}

// SortAnnotations stable-sorts annotations into keyword priority order,
// preserving document order within each keyword.
func SortAnnotations(anns []Annotation) {
	sort.SliceStable(anns, func(i, j int) bool {
		return annotationPriority[anns[i].Keyword] < annotationPriority[anns[j].Keyword]
	})
}

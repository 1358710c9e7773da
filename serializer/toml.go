package serializer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/cayleygraph/quad"

	"github.com/erraggy/oasgraph/graph"
	"github.com/erraggy/oasgraph/resourceid"
)

// writeTOML projects the graph onto TOML for diff-friendly review: a
// namespaces table, then one table per subject keyed by prefixed name where
// one applies. IRI objects become prefixed-name strings; literals become
// [value] or [value, datatype] arrays; a predicate with several objects
// holds an array of entries.
func writeTOML(w io.Writer, g *graph.Graph) error {
	r := newRenderer(g, resourceid.Identifier{})
	bw := bufio.NewWriter(w)

	bw.WriteString("[namespaces]\n")
	if err := toml.NewEncoder(bw).Encode(r.ns); err != nil {
		return err
	}
	bw.WriteString("\n")

	for _, grp := range groupBySubject(g) {
		fmt.Fprintf(bw, "[%s]\n", tomlKey(r.name(grp.subject)))
		for _, pkey := range grp.order {
			entries := make([]any, 0, len(grp.objects[pkey]))
			for _, obj := range grp.objects[pkey] {
				entries = append(entries, r.tomlObject(obj))
			}
			var value any = entries[0]
			if len(entries) > 1 {
				value = entries
			}
			entry := map[string]any{r.name(grp.preds[pkey]): value}
			if err := toml.NewEncoder(bw).Encode(entry); err != nil {
				return err
			}
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// name renders a term as its prefixed name, falling back to the full IRI.
func (r *renderer) name(v quad.Value) string {
	if iri, ok := v.(quad.IRI); ok {
		if q, ok := r.qname(string(iri)); ok {
			return q
		}
		return string(iri)
	}
	return v.String()
}

func (r *renderer) tomlObject(v quad.Value) any {
	switch val := v.(type) {
	case quad.IRI:
		return r.name(val)
	case quad.String:
		return []any{string(val)}
	case quad.Int:
		return []any{int64(val), "xsd:integer"}
	case quad.Bool:
		return []any{bool(val), "xsd:boolean"}
	case quad.Float:
		return []any{float64(val), "xsd:double"}
	default:
		return []any{v.String()}
	}
}

// tomlKey quotes a table or key name unless it is a bare key.
func tomlKey(s string) string {
	if s == "" {
		return `""`
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '-':
		default:
			return strconv.Quote(s)
		}
	}
	return s
}

package serializer

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/erraggy/oasgraph/graph"
	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/resourceid"
)

// Format names an output serialization.
type Format string

const (
	// FormatNTriples is line-per-triple N-Triples in graph insertion order.
	FormatNTriples Format = "nt"
	// FormatNT11 is N-Triples sorted line-wise for reproducible comparison.
	FormatNT11 Format = "nt11"
	// FormatTurtle is Turtle with prefixed names from the graph's namespace
	// table.
	FormatTurtle Format = "ttl"
	// FormatTOML is a TOML projection: a namespaces table plus one table per
	// subject.
	FormatTOML Format = "toml"
)

// ParseFormat resolves a format name, accepting the "turtle" alias.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "nt":
		return FormatNTriples, nil
	case "nt11":
		return FormatNT11, nil
	case "ttl", "turtle":
		return FormatTurtle, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: unsupported output format %q", oaserrors.ErrConfig, name)
}

type config struct {
	base resourceid.Identifier
}

// Option configures serialization.
type Option func(*config)

// WithBase sets the base IRI for Turtle output; subjects and objects under
// the base are written relative to it.
func WithBase(base resourceid.Identifier) Option {
	return func(c *config) { c.base = base }
}

// Serialize writes the graph to w in the requested format. A graph built in
// test mode only serializes to sorted N-Triples.
func Serialize(w io.Writer, g *graph.Graph, format Format, opts ...Option) error {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	if g.TestMode() && format != FormatNT11 {
		return fmt.Errorf("%w: test mode output is limited to %q, got %q",
			oaserrors.ErrConfig, FormatNT11, format)
	}
	switch format {
	case FormatNTriples:
		return writeNTriples(w, g, false)
	case FormatNT11:
		return writeNTriples(w, g, true)
	case FormatTurtle:
		return writeTurtle(w, g, cfg.base)
	case FormatTOML:
		return writeTOML(w, g)
	}
	return fmt.Errorf("%w: unsupported output format %q", oaserrors.ErrConfig, format)
}

func writeNTriples(w io.Writer, g *graph.Graph, sorted bool) error {
	triples := g.Triples()
	lines := make([]string, 0, len(triples))
	for _, t := range triples {
		lines = append(lines, t.Subject.String()+" "+t.Predicate.String()+" "+
			t.Object.String()+" .")
	}
	if sorted {
		sort.Strings(lines)
	}
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// renderer maps terms to prefixed names against one namespace table.
type renderer struct {
	ns   map[string]string
	base string
}

func newRenderer(g *graph.Graph, base resourceid.Identifier) *renderer {
	r := &renderer{ns: g.Namespaces()}
	if !base.IsZero() {
		r.base = base.String()
	}
	return r
}

// qname returns prefix:local for an IRI inside a known namespace.
func (r *renderer) qname(iri string) (string, bool) {
	for prefix, ns := range r.ns {
		if !strings.HasPrefix(iri, ns) {
			continue
		}
		local := iri[len(ns):]
		if localNameOK(local) {
			return prefix + ":" + local, true
		}
	}
	return "", false
}

func localNameOK(local string) bool {
	if local == "" || local[0] == '-' || local[0] == '.' {
		return false
	}
	for _, c := range local {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '-', c == '.':
		default:
			return false
		}
	}
	return true
}

// term renders a value as a Turtle term.
func (r *renderer) term(v quad.Value) string {
	switch val := v.(type) {
	case quad.IRI:
		s := string(val)
		if name, ok := r.qname(s); ok {
			return name
		}
		if r.base != "" && strings.HasPrefix(s, r.base) {
			return "<" + s[len(r.base):] + ">"
		}
		return "<" + s + ">"
	case quad.Int:
		return strconv.FormatInt(int64(val), 10)
	case quad.Bool:
		return strconv.FormatBool(bool(val))
	case quad.Float:
		return strconv.FormatFloat(float64(val), 'E', -1, 64)
	default:
		return v.String()
	}
}

// subjectGroup holds one subject's triples in predicate order: rdf:type
// first, rdfs:label second, the rest sorted.
type subjectGroup struct {
	subject quad.Value
	order   []string
	objects map[string][]quad.Value
	preds   map[string]quad.Value
}

func groupBySubject(g *graph.Graph) []*subjectGroup {
	byKey := map[string]*subjectGroup{}
	for _, t := range g.Triples() {
		key := t.Subject.String()
		grp, ok := byKey[key]
		if !ok {
			grp = &subjectGroup{
				subject: t.Subject,
				objects: map[string][]quad.Value{},
				preds:   map[string]quad.Value{},
			}
			byKey[key] = grp
		}
		pkey := t.Predicate.String()
		if _, seen := grp.objects[pkey]; !seen {
			grp.order = append(grp.order, pkey)
			grp.preds[pkey] = t.Predicate
		}
		grp.objects[pkey] = append(grp.objects[pkey], t.Object)
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	groups := make([]*subjectGroup, 0, len(keys))
	for _, key := range keys {
		grp := byKey[key]
		sort.SliceStable(grp.order, func(i, j int) bool {
			return predicateRank(grp.order[i]) < predicateRank(grp.order[j]) ||
				(predicateRank(grp.order[i]) == predicateRank(grp.order[j]) &&
					grp.order[i] < grp.order[j])
		})
		groups = append(groups, grp)
	}
	return groups
}

func predicateRank(pkey string) int {
	switch pkey {
	case graph.RDFType.String():
		return 0
	case graph.RDFSLabel.String():
		return 1
	}
	return 2
}

func writeTurtle(w io.Writer, g *graph.Graph, base resourceid.Identifier) error {
	r := newRenderer(g, base)
	bw := bufio.NewWriter(w)

	prefixes := make([]string, 0, len(r.ns))
	for prefix := range r.ns {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		fmt.Fprintf(bw, "@prefix %s: <%s> .\n", prefix, r.ns[prefix])
	}
	if r.base != "" {
		fmt.Fprintf(bw, "@base <%s> .\n", r.base)
	}
	bw.WriteString("\n")

	for _, grp := range groupBySubject(g) {
		fmt.Fprintf(bw, "%s\n", r.term(grp.subject))
		for i, pkey := range grp.order {
			pred := "a"
			if grp.preds[pkey] != graph.RDFType {
				pred = r.term(grp.preds[pkey])
			}
			rendered := make([]string, 0, len(grp.objects[pkey]))
			for _, obj := range grp.objects[pkey] {
				rendered = append(rendered, r.term(obj))
			}
			end := " ;"
			if i == len(grp.order)-1 {
				end = " ."
			}
			fmt.Fprintf(bw, "    %s %s%s\n", pred, strings.Join(rendered, ", "), end)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

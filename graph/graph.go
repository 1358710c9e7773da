package graph

import (
	"strings"

	"github.com/cayleygraph/quad"

	oasgraph "github.com/erraggy/oasgraph"
	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/resourceid"
)

const (
	rdfNS  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	rdfsNS = "http://www.w3.org/2000/01/rdf-schema#"
	xsdNS  = "http://www.w3.org/2001/XMLSchema#"
)

// Well-known predicate terms.
var (
	RDFType   = quad.IRI(rdfNS + "type")
	RDFSLabel = quad.IRI(rdfsNS + "label")
)

// Graph is an append-only RDF triple set describing one API description.
// Triples are deduplicated on insertion; the insertion order of distinct
// triples is preserved.
type Graph struct {
	version  string
	ns       string
	testMode bool
	logger   oasgraph.Logger

	triples []quad.Quad
	seen    map[string]struct{}
}

// Option configures a Graph.
type Option func(*Graph)

// WithTestMode suppresses environment-dependent triples (file locations)
// so output is reproducible across machines.
func WithTestMode(enabled bool) Option {
	return func(g *Graph) { g.testMode = enabled }
}

// WithLogger sets the graph logger.
func WithLogger(logger oasgraph.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a graph for one OAS X.Y version. Only 3.0 is implemented;
// 3.1 is recognized and rejected.
func New(version string, opts ...Option) (*Graph, error) {
	switch version {
	case "3.0":
	case "3.1":
		return nil, &oaserrors.UnsupportedVersionError{
			Version: version, NotImplemented: true,
		}
	default:
		return nil, &oaserrors.UnsupportedVersionError{Version: version}
	}
	g := &Graph{
		version: version,
		ns:      "https://spec.openapis.org/oas/v" + version + "/ontology#",
		logger:  oasgraph.NopLogger{},
		seen:    map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Version returns the OAS X.Y version the ontology namespace is bound to.
func (g *Graph) Version() string { return g.version }

// OntologyNamespace returns the OAS ontology namespace IRI.
func (g *Graph) OntologyNamespace() string { return g.ns }

// TestMode reports whether environment-dependent triples are suppressed.
func (g *Graph) TestMode() bool { return g.testMode }

// Namespaces returns the prefix table for structured serializations.
func (g *Graph) Namespaces() map[string]string {
	return map[string]string{
		"rdf":             rdfNS,
		"rdfs":            rdfsNS,
		"xsd":             xsdNS,
		"oas" + g.version: g.ns,
	}
}

// OAS returns the ontology term for a local name.
func (g *Graph) OAS(name string) quad.IRI {
	return quad.IRI(g.ns + name)
}

// LocalName strips the ontology namespace from a term; ok is false when the
// term is outside the namespace.
func (g *Graph) LocalName(v quad.Value) (string, bool) {
	iri, ok := v.(quad.IRI)
	if !ok {
		return "", false
	}
	s := string(iri)
	if !strings.HasPrefix(s, g.ns) {
		return "", false
	}
	return s[len(g.ns):], true
}

// Add inserts one triple, reporting whether it was new.
func (g *Graph) Add(s, p, o quad.Value) bool {
	key := s.String() + " " + p.String() + " " + o.String()
	if _, dup := g.seen[key]; dup {
		return false
	}
	g.seen[key] = struct{}{}
	g.triples = append(g.triples, quad.Quad{Subject: s, Predicate: p, Object: o})
	return true
}

// Len returns the number of distinct triples.
func (g *Graph) Len() int { return len(g.triples) }

// Triples returns a copy of the triple set in insertion order.
func (g *Graph) Triples() []quad.Quad {
	out := make([]quad.Quad, len(g.triples))
	copy(out, g.triples)
	return out
}

// AddResource records one document of the description: a root edge from the
// document to its root node, and (outside test mode) where the document was
// retrieved from.
func (g *Graph) AddResource(uri, url resourceid.Identifier) error {
	rootURI, err := uri.WithPointerFragment(resourceid.Pointer{})
	if err != nil {
		return err
	}
	docTerm := quad.IRI(uri.String())
	g.Add(docTerm, g.OAS("root"), quad.IRI(rootURI.String()))

	if g.testMode || url.IsZero() {
		return nil
	}
	g.Add(docTerm, g.OAS("locatedAt"), quad.IRI(url.String()))
	if name := lastPathSegment(url.Path()); name != "" {
		g.Add(docTerm, g.OAS("filename"), quad.String(name))
	}
	g.logger.Debug("recorded resource location",
		"uri", uri.String(), "url", url.String())
	return nil
}

func lastPathSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

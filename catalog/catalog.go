package catalog

import (
	"context"
	"errors"

	oasgraph "github.com/erraggy/oasgraph"
	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/ptrtemplate"
	"github.com/erraggy/oasgraph/resourceid"
	"github.com/erraggy/oasgraph/source"
)

// Catalog resolves URIs to documents and nodes, caching documents in
// version-scoped partitions keyed by base URI.
type Catalog struct {
	registry   *source.Registry
	logger     oasgraph.Logger
	sourceMaps bool
	partitions map[string]map[string]*Document
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithRegistry sets the source registry documents are loaded through.
func WithRegistry(r *source.Registry) Option {
	return func(c *Catalog) { c.registry = r }
}

// WithLogger sets the catalog logger.
func WithLogger(logger oasgraph.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSourceMaps enables recording line/column maps for loaded documents.
func WithSourceMaps(enabled bool) Option {
	return func(c *Catalog) { c.sourceMaps = enabled }
}

// New creates a catalog. Without WithRegistry an empty registry is used, so
// only directly added documents resolve.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		logger:     oasgraph.NopLogger{},
		partitions: map[string]map[string]*Document{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = source.NewRegistry()
	}
	return c
}

// Registry returns the catalog's source registry.
func (c *Catalog) Registry() *source.Registry { return c.registry }

// SourceMapsEnabled reports whether position tracking is on.
func (c *Catalog) SourceMapsEnabled() bool { return c.sourceMaps }

// AddDocument places an already built document into the cache.
func (c *Catalog) AddDocument(d *Document) {
	partition, ok := c.partitions[d.Version()]
	if !ok {
		partition = map[string]*Document{}
		c.partitions[d.Version()] = partition
	}
	partition[d.URI().String()] = d
	if c.sourceMaps {
		c.registry.RecordSourceMap(d.URI(), d.SourceMap())
	}
}

// lookup checks every version partition for a cached base URI.
func (c *Catalog) lookup(base string) (*Document, bool) {
	for _, partition := range c.partitions {
		if d, ok := partition[base]; ok {
			return d, true
		}
	}
	return nil, false
}

// GetDocument returns the document identified by the base form of uri,
// loading it through the registry on first access.
func (c *Catalog) GetDocument(ctx context.Context, uri resourceid.Identifier) (*Document, error) {
	base, err := uri.ToAbsolute()
	if err != nil {
		return nil, err
	}

	if d, ok := c.lookup(base.String()); ok {
		return d, nil
	}

	content, err := c.registry.Load(ctx, base)
	if err != nil {
		return nil, err
	}
	d, err := NewDocument(content, base)
	if err != nil {
		return nil, err
	}
	c.AddDocument(d)
	c.logger.Info("cached document",
		"uri", d.URI().String(),
		"version", d.FullVersion(),
		"format", d.Format().String(),
	)
	return d, nil
}

// GetResource returns the node identified by uri, evaluating any JSON
// Pointer fragment against the document tree.
func (c *Catalog) GetResource(ctx context.Context, uri resourceid.Identifier) (*Node, error) {
	d, err := c.GetDocument(ctx, uri)
	if err != nil {
		return nil, err
	}
	ptr, has, err := uri.PointerFragment()
	if err != nil {
		return nil, &oaserrors.CatalogError{
			URI:     uri.String(),
			Message: "fragment is not a JSON Pointer",
			Cause:   err,
		}
	}
	if !has {
		return d.Root(), nil
	}
	return d.NodeAt(ptr)
}

// schemaRootTemplates name the positions where OAS 3.0 documents hold JSON
// Schemas; everything beneath a schema root is schema space.
var schemaRootTemplates = []*ptrtemplate.Template{
	ptrtemplate.MustParse("/components/schemas/{name}"),
	ptrtemplate.MustParse("/components/parameters/{name}/schema"),
	ptrtemplate.MustParse("/components/headers/{name}/schema"),
	ptrtemplate.MustParse("/components/responses/{name}/content/{type}/schema"),
	ptrtemplate.MustParse("/components/requestBodies/{name}/content/{type}/schema"),
	ptrtemplate.MustParse("/paths/{path}/parameters/{i}/schema"),
	ptrtemplate.MustParse("/paths/{path}/{method}/parameters/{i}/schema"),
	ptrtemplate.MustParse("/paths/{path}/{method}/requestBody/content/{type}/schema"),
	ptrtemplate.MustParse("/paths/{path}/{method}/responses/{code}/content/{type}/schema"),
	ptrtemplate.MustParse("/paths/{path}/{method}/responses/{code}/headers/{header}/schema"),
}

// schemaRefs collects every "$ref" string value within the subtree.
func schemaRefs(n *Node, out *[]*Node) {
	if n.kind == KindObject {
		if ref, ok := n.ChildNode("$ref"); ok {
			if _, isStr := ref.StringValue(); isStr {
				*out = append(*out, ref)
			}
		}
		for _, key := range n.keys {
			child, _ := n.ChildNode(key)
			schemaRefs(child, out)
		}
		return
	}
	if n.kind == KindArray {
		for i := 0; i < n.ElementCount(); i++ {
			schemaRefs(n.Element(i), out)
		}
	}
}

// ResolveReferences resolves every schema-space "$ref" in the document and
// classifies each failure: a target that exists but is not a schema, a
// target that would load with a known suffix appended, or a target that is
// genuinely unresolvable. The returned errors accumulate; resolution always
// inspects every reference.
func (c *Catalog) ResolveReferences(ctx context.Context, d *Document) []error {
	var refs []*Node
	for _, tmpl := range schemaRootTemplates {
		matches, err := tmpl.Evaluate(d.Root(), false)
		if err != nil {
			// Variable-on-scalar means a structurally invalid document;
			// schema validation reports it, not reference resolution.
			continue
		}
		for _, m := range matches {
			schemaRefs(m.Instance.(*Node), &refs)
		}
	}

	var errs []error
	for _, refNode := range refs {
		raw, _ := refNode.StringValue()
		if err := c.resolveSchemaRef(ctx, d, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (c *Catalog) resolveSchemaRef(ctx context.Context, d *Document, raw string) error {
	ref, err := resourceid.Parse(raw, resourceid.RuleURIReference)
	if err != nil {
		return err
	}
	target, err := ref.Resolve(d.URI())
	if err != nil {
		return err
	}

	node, err := c.GetResource(ctx, target)
	if err == nil {
		_, err = node.Document().SchemaAt(node)
		return err
	}

	var catErr *oaserrors.CatalogError
	if errors.As(err, &catErr) {
		return &oaserrors.UnresolvableReferenceError{URI: target.String(), Cause: err}
	}
	if errors.Is(err, oaserrors.ErrLoad) {
		base, baseErr := target.ToAbsolute()
		if baseErr == nil {
			if suffix, found := c.registry.FindSuffix(ctx, base); found {
				return &oaserrors.SuffixConfigurationError{
					URI: target.String(), Suffix: suffix,
				}
			}
		}
		return &oaserrors.UnresolvableReferenceError{URI: target.String(), Cause: err}
	}
	return err
}

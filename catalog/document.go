package catalog

import (
	"strings"

	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/resourceid"
	"github.com/erraggy/oasgraph/source"
)

// supportedVersions maps OAS X.Y versions to whether evaluation is
// implemented.
var supportedVersions = map[string]bool{
	"3.0": true,
	"3.1": false, // recognized, evaluation not yet implemented
}

// Document is one parsed API description resource: its node arena plus its
// identity (URI), provenance (URL), and OAS version.
type Document struct {
	uri         resourceid.Identifier
	url         resourceid.Identifier
	oasVersion  string
	fullVersion string
	format      source.Format

	nodes       []Node
	schemaViews map[int]*SchemaView
	value       any
	sourceMap   source.SourceMap
}

// NewDocument builds a document from loaded content. The URI must be
// absolute and fragmentless; the "openapi" field must name a supported
// version.
func NewDocument(content *source.Content, uri resourceid.Identifier) (*Document, error) {
	if !uri.IsAbsolute() {
		return nil, &oaserrors.RelativeIdentifierError{
			Value: uri.String(), Operation: "identify a document with",
		}
	}
	if _, has := uri.Fragment(); has {
		return nil, &oaserrors.CatalogError{
			URI: uri.String(), Message: "document URIs must not carry a fragment",
		}
	}

	d := &Document{
		uri:         uri,
		url:         content.URL,
		format:      content.Format,
		schemaViews: map[int]*SchemaView{},
	}
	if _, err := buildNode(d, content.Root, -1, "", resourceid.Pointer{}); err != nil {
		return nil, &oaserrors.CatalogError{
			URI: uri.String(), Message: "malformed document", Cause: err,
		}
	}

	if err := d.detectVersion(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) detectVersion() error {
	root := d.Root()
	field, ok := root.ChildNode("openapi")
	if !ok {
		return &oaserrors.CatalogError{
			URI:     d.uri.String(),
			Message: "document has no 'openapi' field",
		}
	}
	full, ok := field.StringValue()
	if !ok {
		return &oaserrors.CatalogError{
			URI:     d.uri.String(),
			Message: "'openapi' field is not a string",
		}
	}

	parts := strings.SplitN(full, ".", 3)
	if len(parts) < 2 {
		return &oaserrors.UnsupportedVersionError{Version: full, URI: d.uri.String()}
	}
	xy := parts[0] + "." + parts[1]
	implemented, known := supportedVersions[xy]
	if !known {
		return &oaserrors.UnsupportedVersionError{Version: full, URI: d.uri.String()}
	}
	if !implemented {
		return &oaserrors.UnsupportedVersionError{
			Version: full, URI: d.uri.String(), NotImplemented: true,
		}
	}
	d.oasVersion = xy
	d.fullVersion = full
	return nil
}

// URI returns the document's logical base URI.
func (d *Document) URI() resourceid.Identifier { return d.uri }

// URL returns the location the document was retrieved from.
func (d *Document) URL() resourceid.Identifier { return d.url }

// Version returns the OAS X.Y version.
func (d *Document) Version() string { return d.oasVersion }

// FullVersion returns the complete "openapi" field value.
func (d *Document) FullVersion() string { return d.fullVersion }

// Format returns the source serialization.
func (d *Document) Format() source.Format { return d.format }

// Root returns the document's root node.
func (d *Document) Root() *Node { return &d.nodes[0] }

// NodeAt evaluates a pointer from the document root.
func (d *Document) NodeAt(ptr resourceid.Pointer) (*Node, error) {
	cur := d.Root()
	for i := 0; i < ptr.Len(); i++ {
		child, ok := cur.ChildNode(ptr.Token(i))
		if !ok {
			return nil, &oaserrors.CatalogError{
				URI:     d.uri.String() + "#" + ptr.URIFragment(),
				Message: "pointer does not resolve in document",
			}
		}
		cur = child
	}
	return cur, nil
}

// Value returns the whole document decoded to plain Go values, memoized.
func (d *Document) Value() any {
	if d.value == nil {
		d.value = d.Root().Value()
	}
	return d.value
}

// SourceMap returns the document's pointer to line/column map, memoized.
func (d *Document) SourceMap() source.SourceMap {
	if d.sourceMap == nil {
		sm := make(source.SourceMap, len(d.nodes))
		for i := range d.nodes {
			n := &d.nodes[i]
			sm[n.ptr.String()] = source.Position{Line: n.line, Column: n.column}
		}
		d.sourceMap = sm
	}
	return d.sourceMap
}

// SchemaView is the memoized schema interpretation of a node. The view
// shares the node's arena slot; the node itself is never converted.
type SchemaView struct {
	node  *Node
	value any
}

// SchemaAt promotes a node to schema form. Only objects and booleans are
// valid schemas; anything else fails with a TypeMismatch reference error.
// Repeated calls for the same node return the same view.
func (d *Document) SchemaAt(n *Node) (*SchemaView, error) {
	if view, ok := d.schemaViews[n.id]; ok {
		return view, nil
	}
	if n.kind != KindObject && n.kind != KindBool {
		return nil, &oaserrors.TypeMismatchError{
			URI: n.URI().String(),
			URL: d.url.String(),
		}
	}
	view := &SchemaView{node: n}
	d.schemaViews[n.id] = view
	return view, nil
}

// Node returns the underlying arena node.
func (v *SchemaView) Node() *Node { return v.node }

// Value returns the schema decoded to plain Go values, memoized.
func (v *SchemaView) Value() any {
	if v.value == nil {
		v.value = v.node.Value()
	}
	return v.value
}

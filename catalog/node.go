package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"

	yaml "go.yaml.in/yaml/v4"

	"github.com/erraggy/oasgraph/ptrtemplate"
	"github.com/erraggy/oasgraph/resourceid"
)

// Kind discriminates the JSON shape of a node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

// String returns the JSON type name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one value in a document's arena. Nodes are created during document
// construction and never mutated afterwards.
type Node struct {
	doc    *Document
	id     int
	parent int
	token  string
	ptr    resourceid.Pointer

	kind     Kind
	keys     []string
	members  map[string]int
	elements []int
	scalar   any

	line   int
	column int
}

// Document returns the owning document.
func (n *Node) Document() *Document { return n.doc }

// Kind returns the node's JSON shape.
func (n *Node) Kind() Kind { return n.kind }

// Pointer returns the node's pointer from the document root.
func (n *Node) Pointer() resourceid.Pointer { return n.ptr }

// URI returns the node's logical URI: the document URI with the node's
// pointer as fragment. The document root carries an explicit empty fragment.
func (n *Node) URI() resourceid.Identifier {
	uri, err := n.doc.uri.WithPointerFragment(n.ptr)
	if err != nil {
		// The document URI and pointer are both validated at construction.
		panic(err)
	}
	return uri
}

// Position returns the node's 1-based source line and column.
func (n *Node) Position() (line, column int) { return n.line, n.column }

// Scalar returns the node's scalar value: nil, bool, json.Number, or string.
// Containers return nil.
func (n *Node) Scalar() any { return n.scalar }

// StringValue returns the node's value when it is a string.
func (n *Node) StringValue() (string, bool) {
	s, ok := n.scalar.(string)
	return s, ok && n.kind == KindString
}

// BoolValue returns the node's value when it is a boolean.
func (n *Node) BoolValue() (bool, bool) {
	b, ok := n.scalar.(bool)
	return b, ok
}

// ParentNode returns the containing node, or nil at the root.
func (n *Node) ParentNode() *Node {
	if n.parent < 0 {
		return nil
	}
	return &n.doc.nodes[n.parent]
}

// ChildNode returns the member or element selected by one reference token.
func (n *Node) ChildNode(token string) (*Node, bool) {
	switch n.kind {
	case KindObject:
		id, ok := n.members[token]
		if !ok {
			return nil, false
		}
		return &n.doc.nodes[id], true
	case KindArray:
		i, err := strconv.Atoi(token)
		if err != nil || i < 0 || i >= len(n.elements) ||
			(token != "0" && token[0] == '0') {
			return nil, false
		}
		return &n.doc.nodes[n.elements[i]], true
	}
	return nil, false
}

// ObjectKeys returns the object's keys in document order.
func (n *Node) ObjectKeys() []string { return n.keys }

// ElementCount returns the array's length, or 0 for other kinds.
func (n *Node) ElementCount() int { return len(n.elements) }

// Element returns the i-th array element.
func (n *Node) Element(i int) *Node { return &n.doc.nodes[n.elements[i]] }

// Parent implements ptrtemplate.Instance.
func (n *Node) Parent() (ptrtemplate.Instance, bool) {
	p := n.ParentNode()
	if p == nil {
		return nil, false
	}
	return p, true
}

// Token implements ptrtemplate.Instance.
func (n *Node) Token() (string, bool) {
	if n.parent < 0 {
		return "", false
	}
	return n.token, true
}

// Child implements ptrtemplate.Instance.
func (n *Node) Child(token string) (ptrtemplate.Instance, bool) {
	c, ok := n.ChildNode(token)
	if !ok {
		return nil, false
	}
	return c, true
}

// Keys implements ptrtemplate.Instance.
func (n *Node) Keys() ([]string, bool) {
	if n.kind != KindObject {
		return nil, false
	}
	return n.keys, true
}

// Len implements ptrtemplate.Instance.
func (n *Node) Len() (int, bool) {
	if n.kind != KindArray {
		return 0, false
	}
	return len(n.elements), true
}

// ResolveToken implements resourceid.TokenResolver so pointers evaluate
// directly over nodes.
func (n *Node) ResolveToken(token string) (any, bool) {
	c, ok := n.ChildNode(token)
	if !ok {
		return nil, false
	}
	return c, true
}

var (
	_ ptrtemplate.Instance    = (*Node)(nil)
	_ resourceid.TokenResolver = (*Node)(nil)
)

// Value decodes the subtree rooted at the node into plain Go values:
// map[string]any, []any, string, bool, json.Number, or nil.
func (n *Node) Value() any {
	switch n.kind {
	case KindObject:
		out := make(map[string]any, len(n.keys))
		for _, key := range n.keys {
			out[key] = n.doc.nodes[n.members[key]].Value()
		}
		return out
	case KindArray:
		out := make([]any, len(n.elements))
		for i, id := range n.elements {
			out[i] = n.doc.nodes[id].Value()
		}
		return out
	}
	return n.scalar
}

// buildNode appends the yaml node (and its subtree) to the document arena,
// returning its arena id.
func buildNode(d *Document, yn *yaml.Node, parent int, token string, ptr resourceid.Pointer) (int, error) {
	for yn.Kind == yaml.AliasNode {
		yn = yn.Alias
	}

	id := len(d.nodes)
	d.nodes = append(d.nodes, Node{
		doc:    d,
		id:     id,
		parent: parent,
		token:  token,
		ptr:    ptr,
		line:   yn.Line,
		column: yn.Column,
	})

	switch yn.Kind {
	case yaml.MappingNode:
		d.nodes[id].kind = KindObject
		d.nodes[id].members = make(map[string]int, len(yn.Content)/2)
		for i := 0; i+1 < len(yn.Content); i += 2 {
			key := yn.Content[i].Value
			if _, dup := d.nodes[id].members[key]; dup {
				return 0, fmt.Errorf("duplicate key %q at '%s'", key, ptr)
			}
			childID, err := buildNode(d, yn.Content[i+1], id, key, ptr.Append(key))
			if err != nil {
				return 0, err
			}
			d.nodes[id].keys = append(d.nodes[id].keys, key)
			d.nodes[id].members[key] = childID
		}
	case yaml.SequenceNode:
		d.nodes[id].kind = KindArray
		for i, elem := range yn.Content {
			childID, err := buildNode(d, elem, id, strconv.Itoa(i), ptr.Append(strconv.Itoa(i)))
			if err != nil {
				return 0, err
			}
			d.nodes[id].elements = append(d.nodes[id].elements, childID)
		}
	case yaml.ScalarNode:
		kind, value, err := scalarValue(yn)
		if err != nil {
			return 0, fmt.Errorf("at '%s': %w", ptr, err)
		}
		d.nodes[id].kind = kind
		d.nodes[id].scalar = value
	default:
		return 0, fmt.Errorf("unsupported node kind at '%s'", ptr)
	}
	return id, nil
}

func scalarValue(yn *yaml.Node) (Kind, any, error) {
	switch yn.Tag {
	case "!!null", "":
		return KindNull, nil, nil
	case "!!bool":
		switch yn.Value {
		case "true", "True", "TRUE":
			return KindBool, true, nil
		case "false", "False", "FALSE":
			return KindBool, false, nil
		}
		return 0, nil, fmt.Errorf("unrecognized boolean %q", yn.Value)
	case "!!int", "!!float":
		return KindNumber, json.Number(yn.Value), nil
	case "!!str", "!!timestamp":
		return KindString, yn.Value, nil
	}
	// Unknown scalar tags carry their text form.
	return KindString, yn.Value, nil
}

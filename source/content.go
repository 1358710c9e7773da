package source

import (
	"encoding/json"
	"fmt"
	"strings"

	yaml "go.yaml.in/yaml/v4"

	"github.com/erraggy/oasgraph/resourceid"
)

// Format identifies the serialization of loaded content.
type Format int

const (
	// FormatUnknown means the format should be sniffed from the content.
	FormatUnknown Format = iota
	// FormatJSON is strict JSON.
	FormatJSON
	// FormatYAML is YAML 1.2.
	FormatYAML
)

// String returns the lowercase format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	}
	return "unknown"
}

// FormatForSuffix returns the format conventionally used by a file suffix.
func FormatForSuffix(suffix string) Format {
	switch strings.ToLower(suffix) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatUnknown
}

// Position is a 1-based line and column in a source document.
type Position struct {
	Line   int
	Column int
}

// SourceMap maps JSON Pointer strings to the position of the value they
// address.
type SourceMap map[string]Position

// Content is one parsed document plus where it came from.
type Content struct {
	// Root is the document's content node, with line and column positions
	// and key order preserved.
	Root *yaml.Node
	// Format is the detected serialization.
	Format Format
	// URL is the location the bytes were actually retrieved from. It may
	// differ from the requested URI when suffix searching applied.
	URL resourceid.Identifier
}

// ParseContent parses raw document bytes. JSON input is validated strictly
// before position-aware parsing; FormatUnknown sniffs JSON first, since JSON
// is the cheaper check.
func ParseContent(data []byte, format Format) (*Content, error) {
	if format == FormatUnknown {
		if json.Valid(data) {
			format = FormatJSON
		} else {
			format = FormatYAML
		}
	}
	if format == FormatJSON && !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON")
	}

	// YAML is a superset of JSON, so one position-preserving parse path
	// serves both formats.
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", format, err)
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, fmt.Errorf("empty document")
		}
		root = doc.Content[0]
	}
	return &Content{Root: root, Format: format}, nil
}

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "go.yaml.in/yaml/v4"

	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/resourceid"
)

const petstoreYAML = `openapi: 3.0.3
info:
  title: Pets
  version: "1.0"
paths: {}
`

const petstoreJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Pets", "version": "1.0"},
  "paths": {}
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseContent(t *testing.T) {
	t.Run("yaml keeps positions", func(t *testing.T) {
		content, err := ParseContent([]byte(petstoreYAML), FormatYAML)
		require.NoError(t, err)
		assert.Equal(t, FormatYAML, content.Format)
		require.Equal(t, yaml.MappingNode, content.Root.Kind)
		assert.Equal(t, 1, content.Root.Line)

		// info.title sits on line 3
		var infoNode *yaml.Node
		for i := 0; i < len(content.Root.Content); i += 2 {
			if content.Root.Content[i].Value == "info" {
				infoNode = content.Root.Content[i+1]
			}
		}
		require.NotNil(t, infoNode)
		assert.Equal(t, 3, infoNode.Line)
	})

	t.Run("json parses with order preserved", func(t *testing.T) {
		content, err := ParseContent([]byte(petstoreJSON), FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, FormatJSON, content.Format)
		require.Equal(t, yaml.MappingNode, content.Root.Kind)
		assert.Equal(t, "openapi", content.Root.Content[0].Value)
		assert.Equal(t, "info", content.Root.Content[2].Value)
	})

	t.Run("strict json rejected as yaml-only", func(t *testing.T) {
		_, err := ParseContent([]byte("openapi: 3.0.3\n"), FormatJSON)
		assert.Error(t, err)
	})

	t.Run("sniffing", func(t *testing.T) {
		content, err := ParseContent([]byte(petstoreJSON), FormatUnknown)
		require.NoError(t, err)
		assert.Equal(t, FormatJSON, content.Format)

		content, err = ParseContent([]byte(petstoreYAML), FormatUnknown)
		require.NoError(t, err)
		assert.Equal(t, FormatYAML, content.Format)
	})
}

func TestDirectMapSource(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "spec.yaml", petstoreYAML)

	src := NewDirectMapSource(map[string]string{"petstore": path})

	content, err := src.Load(context.Background(), "petstore")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, content.Format)
	assert.Contains(t, content.URL.String(), "file:///")

	_, err = src.Load(context.Background(), "unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, oaserrors.ErrLoad)
}

func TestFileMultiSuffixSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "petstore.yaml", petstoreYAML)
	writeFile(t, dir, "exact", petstoreJSON)
	writeFile(t, dir, "nested/common.json", petstoreJSON)

	src := NewFileMultiSuffixSource(dir, nil)
	ctx := context.Background()

	t.Run("suffix search", func(t *testing.T) {
		content, err := src.Load(ctx, "petstore")
		require.NoError(t, err)
		assert.Equal(t, FormatYAML, content.Format)
		assert.Contains(t, content.URL.String(), "petstore.yaml")
	})

	t.Run("exact match wins", func(t *testing.T) {
		content, err := src.Load(ctx, "exact")
		require.NoError(t, err)
		assert.Contains(t, content.URL.String(), "/exact")
	})

	t.Run("nested path", func(t *testing.T) {
		_, err := src.Load(ctx, "nested/common")
		require.NoError(t, err)
	})

	t.Run("missing reports attempted suffixes", func(t *testing.T) {
		_, err := src.Load(ctx, "nowhere")
		require.Error(t, err)
		var loadErr *oaserrors.ContentLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, []string{".json", ".yaml", ".yml"}, loadErr.Suffixes)
	})

	t.Run("escape rejected", func(t *testing.T) {
		_, err := src.Load(ctx, "../outside")
		require.Error(t, err)
		assert.ErrorIs(t, err, oaserrors.ErrLoad)
	})
}

func TestHTTPMultiSuffixSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/apis/petstore.yaml":
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write([]byte(petstoreYAML))
		case "/apis/direct":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(petstoreJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	base := resourceid.MustParse(server.URL+"/apis/", resourceid.RuleURI)
	src := NewHTTPMultiSuffixSource(base, nil, server.Client(), "oasgraph-test")
	ctx := context.Background()

	t.Run("suffix search over http", func(t *testing.T) {
		content, err := src.Load(ctx, "petstore")
		require.NoError(t, err)
		assert.Equal(t, FormatYAML, content.Format)
		assert.Equal(t, server.URL+"/apis/petstore.yaml", content.URL.String())
	})

	t.Run("content type sniffing", func(t *testing.T) {
		content, err := src.Load(ctx, "direct")
		require.NoError(t, err)
		assert.Equal(t, FormatJSON, content.Format)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := src.Load(ctx, "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, oaserrors.ErrLoad)
	})
}

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "petstore.yaml", petstoreYAML)
	writeFile(t, dir, "sub/special.json", petstoreJSON)

	reg := NewRegistry()
	prefix := resourceid.MustParse("https://example.com/apis/", resourceid.RuleURI)
	require.NoError(t, reg.AddSource(prefix, NewFileMultiSuffixSource(dir, nil)))

	subPrefix := resourceid.MustParse("https://example.com/apis/sub/", resourceid.RuleURI)
	require.NoError(t, reg.AddSource(subPrefix, NewFileMultiSuffixSource(filepath.Join(dir, "sub"), nil)))

	ctx := context.Background()

	t.Run("routes by prefix", func(t *testing.T) {
		uri := resourceid.MustParse("https://example.com/apis/petstore", resourceid.RuleURI)
		content, err := reg.Load(ctx, uri)
		require.NoError(t, err)
		assert.Equal(t, FormatYAML, content.Format)

		url, ok := reg.URLFor(uri)
		require.True(t, ok)
		assert.Contains(t, url.String(), "petstore.yaml")
	})

	t.Run("longest prefix wins", func(t *testing.T) {
		uri := resourceid.MustParse("https://example.com/apis/sub/special", resourceid.RuleURI)
		content, err := reg.Load(ctx, uri)
		require.NoError(t, err)
		assert.Equal(t, FormatJSON, content.Format)
	})

	t.Run("no prefix", func(t *testing.T) {
		uri := resourceid.MustParse("https://other.example/x", resourceid.RuleURI)
		_, err := reg.Load(ctx, uri)
		require.Error(t, err)
		assert.ErrorIs(t, err, oaserrors.ErrLoad)
	})

	t.Run("fragment rejected", func(t *testing.T) {
		uri := resourceid.MustParse("https://example.com/apis/petstore#/info", resourceid.RuleURI)
		_, err := reg.Load(ctx, uri)
		require.Error(t, err)
		assert.ErrorIs(t, err, oaserrors.ErrConfig)
	})

	t.Run("prefix validation", func(t *testing.T) {
		bad := resourceid.MustParse("https://example.com/apis", resourceid.RuleURI)
		err := reg.AddSource(bad, NewFileMultiSuffixSource(dir, nil))
		require.Error(t, err)
		assert.ErrorIs(t, err, oaserrors.ErrConfig)

		rel := resourceid.MustParse("apis/", resourceid.RuleURIReference)
		err = reg.AddSource(rel, NewFileMultiSuffixSource(dir, nil))
		require.Error(t, err)
	})
}

func TestRegistryFindSuffix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.yaml", petstoreYAML)

	reg := NewRegistry()
	prefix := resourceid.MustParse("https://example.com/shared/", resourceid.RuleURI)
	// Suffix search disabled: only exact names resolve.
	require.NoError(t, reg.AddSource(prefix, NewFileMultiSuffixSource(dir, []string{})))

	ctx := context.Background()
	uri := resourceid.MustParse("https://example.com/shared/common", resourceid.RuleURI)
	_, err := reg.Load(ctx, uri)
	require.Error(t, err)

	suffix, ok := reg.FindSuffix(ctx, uri)
	require.True(t, ok)
	assert.Equal(t, ".yaml", suffix)

	// Probe loads are transient and must not enter the URI to URL map.
	probe := resourceid.MustParse("https://example.com/shared/common.yaml", resourceid.RuleURI)
	_, recorded := reg.URLFor(probe)
	assert.False(t, recorded)
}

package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/resourceid"
	"github.com/erraggy/oasgraph/source"
)

const petstoreYAML = `openapi: 3.0.3
info:
  title: Pets
  version: "1.0"
paths:
  /pets:
    get:
      operationId: listPets
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/Pets"
components:
  schemas:
    Pet:
      type: object
      properties:
        id:
          type: integer
        name:
          type: string
    Pets:
      type: array
      items:
        $ref: "#/components/schemas/Pet"
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestCatalog(t *testing.T, files map[string]string, opts ...Option) *Catalog {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeFile(t, dir, name, content)
	}
	reg := source.NewRegistry()
	prefix := resourceid.MustParse("https://example.com/apis/", resourceid.RuleURI)
	require.NoError(t, reg.AddSource(prefix, source.NewFileMultiSuffixSource(dir, nil)))
	return New(append([]Option{WithRegistry(reg)}, opts...)...)
}

func apiURI(t *testing.T, s string) resourceid.Identifier {
	t.Helper()
	return resourceid.MustParse("https://example.com/apis/"+s, resourceid.RuleURI)
}

func TestGetDocumentCaches(t *testing.T) {
	cat := newTestCatalog(t, map[string]string{"petstore.yaml": petstoreYAML})
	ctx := context.Background()

	d1, err := cat.GetDocument(ctx, apiURI(t, "petstore"))
	require.NoError(t, err)
	assert.Equal(t, "3.0", d1.Version())
	assert.Equal(t, "3.0.3", d1.FullVersion())
	assert.Equal(t, "https://example.com/apis/petstore", d1.URI().String())
	assert.Contains(t, d1.URL().String(), "petstore.yaml")

	d2, err := cat.GetDocument(ctx, apiURI(t, "petstore#/components"))
	require.NoError(t, err)
	assert.Same(t, d1, d2)
}

func TestVersionDetection(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "swagger 2.0",
			content: "openapi: 2.0.0\n",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, oaserrors.ErrVersion)
			},
		},
		{
			name:    "3.1 recognized but unimplemented",
			content: "openapi: 3.1.0\n",
			check: func(t *testing.T, err error) {
				var verr *oaserrors.UnsupportedVersionError
				require.ErrorAs(t, err, &verr)
				assert.True(t, verr.NotImplemented)
				assert.Contains(t, err.Error(), "not yet implemented")
			},
		},
		{
			name:    "missing openapi field",
			content: "info:\n  title: x\n",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, oaserrors.ErrCatalog)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := newTestCatalog(t, map[string]string{"api.yaml": tt.content})
			_, err := cat.GetDocument(context.Background(), apiURI(t, "api"))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGetResourceFragments(t *testing.T) {
	cat := newTestCatalog(t, map[string]string{"petstore.yaml": petstoreYAML})
	ctx := context.Background()

	t.Run("no fragment yields root", func(t *testing.T) {
		n, err := cat.GetResource(ctx, apiURI(t, "petstore"))
		require.NoError(t, err)
		assert.True(t, n.Pointer().IsRoot())
		assert.Equal(t, "https://example.com/apis/petstore#", n.URI().String())
	})

	t.Run("pointer fragment", func(t *testing.T) {
		n, err := cat.GetResource(ctx, apiURI(t, "petstore#/paths/~1pets/get/operationId"))
		require.NoError(t, err)
		v, ok := n.StringValue()
		require.True(t, ok)
		assert.Equal(t, "listPets", v)
	})

	t.Run("unresolvable pointer", func(t *testing.T) {
		_, err := cat.GetResource(ctx, apiURI(t, "petstore#/paths/~1dogs"))
		require.Error(t, err)
		assert.ErrorIs(t, err, oaserrors.ErrCatalog)
	})
}

func TestNodeTree(t *testing.T) {
	cat := newTestCatalog(t, map[string]string{"petstore.yaml": petstoreYAML})
	d, err := cat.GetDocument(context.Background(), apiURI(t, "petstore"))
	require.NoError(t, err)

	root := d.Root()
	assert.Equal(t, KindObject, root.Kind())
	assert.Equal(t, []string{"openapi", "info", "paths", "components"}, root.ObjectKeys())

	schemas, err := d.NodeAt(resourceid.MustParsePointer("/components/schemas"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Pet", "Pets"}, schemas.ObjectKeys())

	pet, ok := schemas.ChildNode("Pet")
	require.True(t, ok)
	assert.Equal(t, "/components/schemas/Pet", pet.Pointer().String())
	assert.Same(t, schemas, pet.ParentNode())

	line, column := pet.Position()
	assert.Greater(t, line, 1)
	assert.Greater(t, column, 0)

	value := pet.Value().(map[string]any)
	assert.Equal(t, "object", value["type"])
	props := value["properties"].(map[string]any)
	idType := props["id"].(map[string]any)
	assert.Equal(t, "integer", idType["type"])
}

func TestJSONNumbersSurviveDecoding(t *testing.T) {
	content := `{"openapi": "3.0.0", "info": {"title": "n", "version": "1"}, "x-count": 12345678901234567890}`
	cat := newTestCatalog(t, map[string]string{"api.json": content})
	d, err := cat.GetDocument(context.Background(), apiURI(t, "api"))
	require.NoError(t, err)

	n, err := d.NodeAt(resourceid.MustParsePointer("/x-count"))
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567890"), n.Scalar())
}

func TestSourceMap(t *testing.T) {
	cat := newTestCatalog(t, map[string]string{"petstore.yaml": petstoreYAML}, WithSourceMaps(true))
	d, err := cat.GetDocument(context.Background(), apiURI(t, "petstore"))
	require.NoError(t, err)

	sm := d.SourceMap()
	assert.Equal(t, 1, sm[""].Line)
	info := sm["/info/title"]
	assert.Equal(t, 3, info.Line)

	recorded, ok := cat.Registry().SourceMapFor(d.URI())
	require.True(t, ok)
	assert.Equal(t, sm[""], recorded[""])
}

func TestSchemaViewMemoized(t *testing.T) {
	cat := newTestCatalog(t, map[string]string{"petstore.yaml": petstoreYAML})
	d, err := cat.GetDocument(context.Background(), apiURI(t, "petstore"))
	require.NoError(t, err)

	pet, err := d.NodeAt(resourceid.MustParsePointer("/components/schemas/Pet"))
	require.NoError(t, err)

	v1, err := d.SchemaAt(pet)
	require.NoError(t, err)
	v2, err := d.SchemaAt(pet)
	require.NoError(t, err)
	assert.Same(t, v1, v2)
	assert.Same(t, pet, v1.Node())

	title, err := d.NodeAt(resourceid.MustParsePointer("/info/title"))
	require.NoError(t, err)
	_, err = d.SchemaAt(title)
	require.Error(t, err)
	assert.ErrorIs(t, err, oaserrors.ErrReference)
}

func TestResolveReferences(t *testing.T) {
	ctx := context.Background()

	t.Run("same document", func(t *testing.T) {
		cat := newTestCatalog(t, map[string]string{"petstore.yaml": petstoreYAML})
		d, err := cat.GetDocument(ctx, apiURI(t, "petstore"))
		require.NoError(t, err)
		assert.Empty(t, cat.ResolveReferences(ctx, d))
	})

	t.Run("cross document", func(t *testing.T) {
		cat := newTestCatalog(t, map[string]string{
			"petstore.yaml": `openapi: 3.0.3
info: {title: Pets, version: "1.0"}
paths: {}
components:
  schemas:
    Pet:
      $ref: "common#/components/schemas/Animal"
`,
			"common.yaml": `openapi: 3.0.3
info: {title: Common, version: "1.0"}
paths: {}
components:
  schemas:
    Animal:
      type: object
`,
		})
		d, err := cat.GetDocument(ctx, apiURI(t, "petstore"))
		require.NoError(t, err)
		assert.Empty(t, cat.ResolveReferences(ctx, d))
	})

	t.Run("target is not a schema", func(t *testing.T) {
		cat := newTestCatalog(t, map[string]string{"api.yaml": `openapi: 3.0.3
info: {title: x, version: "1.0"}
paths: {}
components:
  schemas:
    Bad:
      $ref: "#/info/title"
`})
		d, err := cat.GetDocument(ctx, apiURI(t, "api"))
		require.NoError(t, err)
		errs := cat.ResolveReferences(ctx, d)
		require.Len(t, errs, 1)
		var mismatch *oaserrors.TypeMismatchError
		require.ErrorAs(t, errs[0], &mismatch)
		assert.Contains(t, mismatch.URI, "#/info/title")
		assert.Contains(t, mismatch.URL, "api.yaml")
	})

	t.Run("unresolvable", func(t *testing.T) {
		cat := newTestCatalog(t, map[string]string{"api.yaml": `openapi: 3.0.3
info: {title: x, version: "1.0"}
paths: {}
components:
  schemas:
    Gone:
      $ref: "missing#/components/schemas/X"
`})
		d, err := cat.GetDocument(ctx, apiURI(t, "api"))
		require.NoError(t, err)
		errs := cat.ResolveReferences(ctx, d)
		require.Len(t, errs, 1)
		var unresolvable *oaserrors.UnresolvableReferenceError
		assert.ErrorAs(t, errs[0], &unresolvable)
	})

	t.Run("suffix misconfiguration", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "api.yaml", `openapi: 3.0.3
info: {title: x, version: "1.0"}
paths: {}
components:
  schemas:
    Remote:
      $ref: "https://example.com/shared/common#/components/schemas/Animal"
`)
		writeFile(t, dir, "shared/common.yaml", `openapi: 3.0.3
info: {title: Common, version: "1.0"}
paths: {}
components:
  schemas:
    Animal: {type: object}
`)
		reg := source.NewRegistry()
		apis := resourceid.MustParse("https://example.com/apis/", resourceid.RuleURI)
		require.NoError(t, reg.AddSource(apis, source.NewFileMultiSuffixSource(dir, nil)))
		// The shared prefix deliberately does not search suffixes.
		shared := resourceid.MustParse("https://example.com/shared/", resourceid.RuleURI)
		require.NoError(t, reg.AddSource(shared,
			source.NewFileMultiSuffixSource(filepath.Join(dir, "shared"), []string{})))

		cat := New(WithRegistry(reg))
		d, err := cat.GetDocument(ctx, apiURI(t, "api"))
		require.NoError(t, err)

		errs := cat.ResolveReferences(ctx, d)
		require.Len(t, errs, 1)
		var suffixErr *oaserrors.SuffixConfigurationError
		require.ErrorAs(t, errs[0], &suffixErr)
		assert.Equal(t, ".yaml", suffixErr.Suffix)
	})
}

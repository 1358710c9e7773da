package apidesc

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/oasgraph/catalog"
	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/resourceid"
	"github.com/erraggy/oasgraph/serializer"
	"github.com/erraggy/oasgraph/source"
)

const petstoreURI = "https://example.com/apis/petstore"

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
    Pets:
      type: array
      items:
        $ref: "#/components/schemas/Pet"
`

func addDoc(t *testing.T, cat *catalog.Catalog, uri, content string) *catalog.Document {
	t.Helper()
	parsed, err := source.ParseContent([]byte(content), source.FormatYAML)
	require.NoError(t, err)
	d, err := catalog.NewDocument(parsed, resourceid.MustParse(uri, resourceid.RuleURI))
	require.NoError(t, err)
	cat.AddDocument(d)
	return d
}

func newDescription(t *testing.T, cat *catalog.Catalog, opts ...Option) *APIDescription {
	t.Helper()
	opts = append([]Option{WithTestMode(true)}, opts...)
	a, err := New(context.Background(), cat,
		resourceid.MustParse(petstoreURI, resourceid.RuleURI), opts...)
	require.NoError(t, err)
	return a
}

func TestNewRejectsFragmentURI(t *testing.T) {
	cat := catalog.New()
	addDoc(t, cat, petstoreURI, petstoreYAML)

	_, err := New(context.Background(), cat,
		resourceid.MustParse(petstoreURI+"#/info", resourceid.RuleURI))
	assert.ErrorIs(t, err, oaserrors.ErrConfig)
}

func TestNewComputesDirectoryBase(t *testing.T) {
	cat := catalog.New()
	addDoc(t, cat, petstoreURI, petstoreYAML)

	a := newDescription(t, cat)
	assert.Equal(t, "https://example.com/apis/", a.BaseIRI().String())
	assert.Equal(t, "3.0", a.Graph().Version())
}

func TestValidateSingleDocument(t *testing.T) {
	cat := catalog.New()
	addDoc(t, cat, petstoreURI, petstoreYAML)
	a := newDescription(t, cat)

	errs, err := a.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, []string{petstoreURI}, a.ValidatedResources())
	assert.Empty(t, a.ValidateGraph())

	var buf bytes.Buffer
	require.NoError(t, a.Serialize(&buf, serializer.FormatNT11))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.True(t, sort.StringsAreSorted(lines))
	assert.Contains(t, buf.String(),
		"<"+petstoreURI+"#> "+
			"<http://www.w3.org/1999/02/22-rdf-syntax-ns#type> "+
			"<https://spec.openapis.org/oas/v3.0/ontology#OpenAPI> .\n")
}

func TestValidateCrossDocument(t *testing.T) {
	cat := catalog.New()
	addDoc(t, cat, petstoreURI, `openapi: 3.0.3
info: {title: Pets, version: "1.0"}
paths: {}
components:
  schemas:
    Pet:
      $ref: "common#/components/schemas/Animal"
`)
	addDoc(t, cat, "https://example.com/apis/common", `openapi: 3.0.3
info: {title: Common, version: "1.0"}
paths: {}
components:
  schemas:
    Animal:
      type: object
`)
	a := newDescription(t, cat)

	errs, err := a.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, []string{
		petstoreURI,
		"https://example.com/apis/common#/components/schemas/Animal",
	}, a.ValidatedResources())
	assert.Empty(t, a.ValidateGraph())

	var buf bytes.Buffer
	require.NoError(t, a.Serialize(&buf, serializer.FormatNT11))
	assert.Contains(t, buf.String(), "<https://example.com/apis/common>")
}

func TestMutualReferencesValidateOnce(t *testing.T) {
	cat := catalog.New()
	addDoc(t, cat, petstoreURI, `openapi: 3.0.3
info: {title: A, version: "1.0"}
paths: {}
components:
  schemas:
    Pet:
      $ref: "common#/components/schemas/Animal"
    Tag:
      type: object
      properties:
        owner:
          $ref: "common#/components/schemas/Animal"
`)
	addDoc(t, cat, "https://example.com/apis/common", `openapi: 3.0.3
info: {title: B, version: "1.0"}
paths: {}
components:
  schemas:
    Animal:
      type: object
      properties:
        tag:
          $ref: "petstore#/components/schemas/Tag"
`)
	a := newDescription(t, cat)

	errs, err := a.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)

	order := a.ValidatedResources()
	assert.Len(t, order, 3)
	seen := map[string]int{}
	for _, uri := range order {
		seen[uri]++
	}
	for uri, count := range seen {
		assert.Equal(t, 1, count, uri)
	}
	assert.Contains(t, order, "https://example.com/apis/common#/components/schemas/Animal")
	assert.Contains(t, order, petstoreURI+"#/components/schemas/Tag")
}

func TestValidateSchemaFailureIsFatal(t *testing.T) {
	cat := catalog.New()
	addDoc(t, cat, petstoreURI, `openapi: 3.0.3
paths: {}
`)
	a := newDescription(t, cat)

	_, err := a.Validate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, oaserrors.ErrSchemaValidation)
}

func TestValidateAccumulatesExampleErrors(t *testing.T) {
	content := `openapi: 3.0.3
info: {title: x, version: "1.0"}
paths: {}
components:
  schemas:
    Name:
      type: string
      default: 5
`

	t.Run("enabled", func(t *testing.T) {
		cat := catalog.New()
		addDoc(t, cat, petstoreURI, content)
		a := newDescription(t, cat)

		errs, err := a.Validate(context.Background())
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], oaserrors.ErrGraph)
	})

	t.Run("disabled", func(t *testing.T) {
		cat := catalog.New()
		addDoc(t, cat, petstoreURI, content)
		a := newDescription(t, cat, WithValidateExamples(false))

		errs, err := a.Validate(context.Background())
		require.NoError(t, err)
		assert.Empty(t, errs)
	})
}

func TestValidateExamplesUseOASSchemaDialect(t *testing.T) {
	t.Run("dialect keywords accepted", func(t *testing.T) {
		cat := catalog.New()
		addDoc(t, cat, petstoreURI, `openapi: 3.0.3
info: {title: x, version: "1.0"}
paths: {}
components:
  schemas:
    Count:
      type: integer
      minimum: 0
      exclusiveMinimum: true
      example: 5
    Name:
      type: string
      nullable: true
      example: null
`)
		a := newDescription(t, cat)

		errs, err := a.Validate(context.Background())
		require.NoError(t, err)
		assert.Empty(t, errs)
	})

	t.Run("exclusive bound still enforced", func(t *testing.T) {
		cat := catalog.New()
		addDoc(t, cat, petstoreURI, `openapi: 3.0.3
info: {title: x, version: "1.0"}
paths: {}
components:
  schemas:
    Count:
      type: integer
      minimum: 0
      exclusiveMinimum: true
      example: 0
`)
		a := newDescription(t, cat)

		errs, err := a.Validate(context.Background())
		require.NoError(t, err)
		require.Len(t, errs, 1)
		var eerr *oaserrors.ExampleValidationError
		assert.ErrorAs(t, errs[0], &eerr)
	})
}

func TestValidateClassifiesTargetLoadFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "common.yaml"), []byte(`openapi: 3.0.3
info: {title: Common, version: "1.0"}
paths: {}
components:
  schemas:
    Animal:
      type: object
`), 0o644))

	newCatalog := func(t *testing.T) *catalog.Catalog {
		t.Helper()
		reg := source.NewRegistry()
		prefix := resourceid.MustParse("https://example.com/apis/", resourceid.RuleURI)
		// Suffix search disabled: only exact names resolve.
		require.NoError(t, reg.AddSource(prefix, source.NewFileMultiSuffixSource(dir, []string{})))
		return catalog.New(catalog.WithRegistry(reg))
	}

	t.Run("suffix hint", func(t *testing.T) {
		cat := newCatalog(t)
		addDoc(t, cat, petstoreURI, `openapi: 3.0.3
info: {title: x, version: "1.0"}
paths: {}
components:
  schemas:
    Pet:
      $ref: "common#/components/schemas/Animal"
`)
		a := newDescription(t, cat)

		_, err := a.Validate(context.Background())
		require.Error(t, err)
		var serr *oaserrors.SuffixConfigurationError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, ".yaml", serr.Suffix)
		assert.Equal(t, "https://example.com/apis/common#/components/schemas/Animal", serr.URI)
		assert.ErrorIs(t, err, oaserrors.ErrReference)
	})

	t.Run("unresolvable", func(t *testing.T) {
		cat := newCatalog(t)
		addDoc(t, cat, petstoreURI, `openapi: 3.0.3
info: {title: x, version: "1.0"}
paths: {}
components:
  schemas:
    Pet:
      $ref: "missing#/components/schemas/X"
`)
		a := newDescription(t, cat)

		_, err := a.Validate(context.Background())
		require.Error(t, err)
		var uerr *oaserrors.UnresolvableReferenceError
		require.ErrorAs(t, err, &uerr)
		assert.ErrorIs(t, err, oaserrors.ErrReference)
	})
}

func TestValidateGraphReportsTypeMismatch(t *testing.T) {
	cat := catalog.New()
	addDoc(t, cat, petstoreURI, `openapi: 3.0.3
info: {title: x, version: "1.0"}
paths:
  /pets:
    get:
      responses:
        "200":
          $ref: "#/components/schemas/Pet"
components:
  schemas:
    Pet:
      type: object
`)
	a := newDescription(t, cat)

	errs, err := a.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)

	graphErrs := a.ValidateGraph()
	require.Len(t, graphErrs, 1)

	var terr *oaserrors.ReferenceTypeError
	require.ErrorAs(t, graphErrs[0], &terr)
	assert.Equal(t, "Response", terr.Expected)
	assert.Equal(t, "Schema", terr.Actual)
}

func TestSerializeTestModeLimitsFormats(t *testing.T) {
	cat := catalog.New()
	addDoc(t, cat, petstoreURI, petstoreYAML)
	a := newDescription(t, cat)

	var buf bytes.Buffer
	err := a.Serialize(&buf, serializer.FormatTOML)
	assert.ErrorIs(t, err, oaserrors.ErrConfig)
}

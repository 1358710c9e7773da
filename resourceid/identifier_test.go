package resourceid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/oasgraph/oaserrors"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		rule  Rule
	}{
		{"https with all components", "https://example.com/a/b?x=1#/c/d", RuleURI},
		{"relative path", "petstore/openapi", RuleURIReference},
		{"empty fragment preserved", "https://example.com/a#", RuleURIReference},
		{"empty query preserved", "https://example.com/a?", RuleURIReference},
		{"bare fragment", "#/components/schemas/Pet", RuleIRIReference},
		{"urn", "urn:example:apis:petstore", RuleURI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Parse(tt.input, tt.rule)
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())

			again, err := Parse(id.String(), tt.rule)
			require.NoError(t, err)
			assert.True(t, id.Equal(again))
		})
	}
}

func TestParseComponents(t *testing.T) {
	id, err := Parse("https://user@example.com:8443/a/b?x=1&y=2#frag", RuleURI)
	require.NoError(t, err)

	assert.Equal(t, "https", id.Scheme())
	auth, ok := id.Authority()
	assert.True(t, ok)
	assert.Equal(t, "user@example.com:8443", auth)
	assert.Equal(t, "/a/b", id.Path())
	q, ok := id.Query()
	assert.True(t, ok)
	assert.Equal(t, "x=1&y=2", q)
	f, ok := id.Fragment()
	assert.True(t, ok)
	assert.Equal(t, "frag", f)
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		rule  Rule
	}{
		{"URI requires scheme", "/relative/only", RuleURI},
		{"IRI requires scheme", "relative", RuleIRI},
		{"space is illegal", "https://example.com/a b", RuleURIReference},
		{"non-ASCII under URI rule", "https://example.com/café", RuleURI},
		{"truncated percent-encoding", "https://example.com/a%2", RuleURIReference},
		{"bad percent-encoding", "https://example.com/a%zz", RuleURIReference},
		{"angle bracket", "https://example.com/<a>", RuleURIReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input, tt.rule)
			require.Error(t, err)
			var malformed *oaserrors.MalformedIdentifierError
			assert.ErrorAs(t, err, &malformed)
			assert.ErrorIs(t, err, oaserrors.ErrConfig)
		})
	}
}

func TestIRIAcceptsNonASCII(t *testing.T) {
	id, err := Parse("https://example.com/café", RuleIRI)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/café", id.String())
}

func TestNFCNormalization(t *testing.T) {
	// "e" + combining acute composes to a single code point under NFC.
	decomposed, err := Parse("https://example.com/café", RuleIRI)
	require.NoError(t, err)
	composed, err := Parse("https://example.com/café", RuleIRI)
	require.NoError(t, err)
	assert.True(t, decomposed.Equal(composed))
}

func TestFileURINormalization(t *testing.T) {
	short, err := Parse("file:/home/user/api.yaml", RuleURI)
	require.NoError(t, err)
	long, err := Parse("file:///home/user/api.yaml", RuleURI)
	require.NoError(t, err)

	assert.Equal(t, "file:///home/user/api.yaml", short.String())
	assert.True(t, short.Equal(long))
}

func TestEqualityByStringAcrossRules(t *testing.T) {
	asURI, err := Parse("https://example.com/a", RuleURI)
	require.NoError(t, err)
	asIRIRef, err := Parse("https://example.com/a", RuleIRIReference)
	require.NoError(t, err)
	assert.True(t, asURI.Equal(asIRIRef))
}

func TestResolve(t *testing.T) {
	base := MustParse("https://example.com/apis/petstore.yaml", RuleURI)
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"sibling", "other.yaml", "https://example.com/apis/other.yaml"},
		{"dot-dot", "../shared/common.yaml", "https://example.com/shared/common.yaml"},
		{"absolute path", "/root.yaml", "https://example.com/root.yaml"},
		{"fragment only", "#/components", "https://example.com/apis/petstore.yaml#/components"},
		{"empty keeps base", "", "https://example.com/apis/petstore.yaml"},
		{"already absolute", "https://other.example/x", "https://other.example/x"},
		{"network path", "//cdn.example/x", "https://cdn.example/x"},
		{"dot segments in absolute", "https://example.com/a/./b/../c", "https://example.com/a/c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := Parse(tt.ref, RuleURIReference)
			require.NoError(t, err)
			resolved, err := ref.Resolve(base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resolved.String())
		})
	}
}

func TestResolveRequiresAbsoluteBase(t *testing.T) {
	base := MustParse("apis/petstore.yaml", RuleURIReference)
	ref := MustParse("other.yaml", RuleURIReference)
	_, err := ref.Resolve(base)
	require.Error(t, err)
	var relErr *oaserrors.RelativeIdentifierError
	assert.ErrorAs(t, err, &relErr)
}

func TestToAbsolute(t *testing.T) {
	withFrag := MustParse("https://example.com/a#/b", RuleURI)
	abs, err := withFrag.ToAbsolute()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", abs.String())

	rel := MustParse("a/b", RuleURIReference)
	_, err = rel.ToAbsolute()
	require.Error(t, err)
	assert.ErrorIs(t, err, oaserrors.ErrConfig)
}

func TestCopyWith(t *testing.T) {
	id := MustParse("https://example.com/a?x=1#frag", RuleURI)

	t.Run("set fragment keeps rest", func(t *testing.T) {
		got, err := id.CopyWith(Parts{Fragment: Set("/paths")})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a?x=1#/paths", got.String())
	})

	t.Run("clear query and fragment", func(t *testing.T) {
		got, err := id.CopyWith(Parts{Query: Clear(), Fragment: Clear()})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a", got.String())
	})

	t.Run("clear scheme yields reference", func(t *testing.T) {
		got, err := id.CopyWith(Parts{Scheme: Clear(), Authority: Clear()})
		require.NoError(t, err)
		assert.Equal(t, "/a?x=1#frag", got.String())
		assert.False(t, got.IsAbsolute())
	})
}

func TestPointerFragmentBridge(t *testing.T) {
	id := MustParse("https://example.com/a#/paths/~1pets/get", RuleURI)
	ptr, ok, err := id.PointerFragment()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/paths/~1pets/get", ptr.String())
	assert.Equal(t, "/pets", ptr.Token(1))

	noFrag := MustParse("https://example.com/a", RuleURI)
	_, ok, err = noFrag.PointerFragment()
	require.NoError(t, err)
	assert.False(t, ok)

	emptyFrag := MustParse("https://example.com/a#", RuleURI)
	ptr, ok, err = emptyFrag.PointerFragment()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ptr.IsRoot())

	back, err := noFrag.WithPointerFragment(MustParsePointer("/components/schemas/Pet"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a#/components/schemas/Pet", back.String())
}

func TestFileURIHelper(t *testing.T) {
	id, err := FileURI("/home/user/my api.yaml")
	require.NoError(t, err)
	assert.Equal(t, "file:///home/user/my%20api.yaml", id.String())

	_, err = FileURI("relative/path")
	require.Error(t, err)
}

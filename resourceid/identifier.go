package resourceid

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/erraggy/oasgraph/oaserrors"
)

// Rule selects which RFC 3986/3987 grammar production an identifier is
// parsed under. The reference rules admit relative (schemeless) forms.
type Rule int

const (
	// RuleIRI is the RFC 3987 IRI production (absolute, non-ASCII allowed).
	RuleIRI Rule = iota
	// RuleIRIReference is the RFC 3987 IRI-reference production.
	RuleIRIReference
	// RuleURI is the RFC 3986 URI production (absolute, ASCII only).
	RuleURI
	// RuleURIReference is the RFC 3986 URI-reference production.
	RuleURIReference
)

// String returns the grammar production name.
func (r Rule) String() string {
	switch r {
	case RuleIRI:
		return "IRI"
	case RuleIRIReference:
		return "IRI-reference"
	case RuleURI:
		return "URI"
	case RuleURIReference:
		return "URI-reference"
	}
	return fmt.Sprintf("Rule(%d)", int(r))
}

// reference returns the reference-form closure of the rule.
func (r Rule) reference() Rule {
	switch r {
	case RuleIRI:
		return RuleIRIReference
	case RuleURI:
		return RuleURIReference
	}
	return r
}

// requiresScheme reports whether the rule only admits absolute forms.
func (r Rule) requiresScheme() bool {
	return r == RuleIRI || r == RuleURI
}

// asciiOnly reports whether the rule forbids non-ASCII characters.
func (r Rule) asciiOnly() bool {
	return r == RuleURI || r == RuleURIReference
}

// Identifier is an immutable RFC 3986/3987 resource identifier decomposed
// into its five components. The zero value is the empty relative reference.
type Identifier struct {
	scheme       string
	authority    string
	hasAuthority bool
	path         string
	query        string
	hasQuery     bool
	fragment     string
	hasFragment  bool
	rule         Rule
	str          string
}

// componentRegexp is the component split from RFC 3986 appendix B.
var componentRegexp = regexp.MustCompile(
	`^(?:([^:/?#]+):)?(//[^/?#]*)?([^?#]*)(\?[^#]*)?(#.*)?$`,
)

var schemeRegexp = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*$`)

// Parse parses s under the given grammar rule. IRIs are normalized to
// Unicode NFC. file: identifiers without an authority are normalized to an
// explicit empty authority so that "file:/x" and "file:///x" render
// identically.
func Parse(s string, rule Rule) (Identifier, error) {
	if !rule.asciiOnly() {
		s = norm.NFC.String(s)
	}

	m := componentRegexp.FindStringSubmatch(s)
	if m == nil {
		return Identifier{}, &oaserrors.MalformedIdentifierError{
			Value: s, Rule: rule.String(),
		}
	}

	id := Identifier{
		scheme: m[1],
		path:   m[3],
		rule:   rule,
	}
	if m[2] != "" {
		id.hasAuthority = true
		id.authority = strings.TrimPrefix(m[2], "//")
	}
	if m[4] != "" {
		id.hasQuery = true
		id.query = strings.TrimPrefix(m[4], "?")
	}
	if m[5] != "" {
		id.hasFragment = true
		id.fragment = strings.TrimPrefix(m[5], "#")
	}

	if err := id.validate(s, rule); err != nil {
		return Identifier{}, err
	}

	// Keep file:/ vs file:/// renderings consistent; file:/// is more
	// familiar to downstream tooling than the RFC 8089 file:/ form.
	if strings.EqualFold(id.scheme, "file") && !id.hasAuthority {
		id.hasAuthority = true
		id.authority = ""
	}

	id.str = id.compose()
	return id, nil
}

// MustParse is like Parse but panics on error. It is intended for
// compile-time-constant identifiers such as namespace IRIs.
func MustParse(s string, rule Rule) Identifier {
	id, err := Parse(s, rule)
	if err != nil {
		panic(err)
	}
	return id
}

func (id Identifier) validate(input string, rule Rule) error {
	fail := func(msg string) error {
		return &oaserrors.MalformedIdentifierError{
			Value: input, Rule: rule.String(), Message: msg,
		}
	}

	if rule.requiresScheme() && id.scheme == "" {
		return fail("missing scheme")
	}
	if id.scheme != "" && !schemeRegexp.MatchString(id.scheme) {
		return fail(fmt.Sprintf("invalid scheme %q", id.scheme))
	}
	for _, r := range input {
		switch {
		case r <= 0x20 || r == 0x7f:
			return fail(fmt.Sprintf("illegal character %q", r))
		case strings.ContainsRune(`<>"{}|\^`+"`", r):
			return fail(fmt.Sprintf("illegal character %q", r))
		case r > 0x7f && rule.asciiOnly():
			return fail(fmt.Sprintf("non-ASCII character %q in %s", r, rule))
		}
	}
	// Percent-encodings must be well formed everywhere they appear.
	for i := 0; i < len(input); i++ {
		if input[i] != '%' {
			continue
		}
		if i+2 >= len(input) || !isHex(input[i+1]) || !isHex(input[i+2]) {
			return fail(fmt.Sprintf("invalid percent-encoding at offset %d", i))
		}
	}
	return nil
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// compose reassembles the canonical string per RFC 3986 section 5.3.
func (id Identifier) compose() string {
	var b strings.Builder
	if id.scheme != "" {
		b.WriteString(id.scheme)
		b.WriteByte(':')
	}
	if id.hasAuthority {
		b.WriteString("//")
		b.WriteString(id.authority)
	}
	b.WriteString(id.path)
	if id.hasQuery {
		b.WriteByte('?')
		b.WriteString(id.query)
	}
	if id.hasFragment {
		b.WriteByte('#')
		b.WriteString(id.fragment)
	}
	return b.String()
}

// String returns the canonical string form.
func (id Identifier) String() string { return id.str }

// Equal reports whether the two identifiers have the same canonical string,
// regardless of the rules they were parsed under.
func (id Identifier) Equal(other Identifier) bool { return id.str == other.str }

// IsZero reports whether the identifier is the zero value.
func (id Identifier) IsZero() bool { return id.str == "" && id.scheme == "" && !id.hasAuthority }

// Rule returns the grammar rule the identifier was parsed under.
func (id Identifier) Rule() Rule { return id.rule }

// Scheme returns the scheme, or "" for relative references.
func (id Identifier) Scheme() string { return id.scheme }

// Authority returns the authority component and whether one is present.
// A present-but-empty authority (as in "file:///x") returns ("", true).
func (id Identifier) Authority() (string, bool) { return id.authority, id.hasAuthority }

// Path returns the path component.
func (id Identifier) Path() string { return id.path }

// Query returns the query component and whether one is present.
func (id Identifier) Query() (string, bool) { return id.query, id.hasQuery }

// Fragment returns the raw (still percent-encoded) fragment component and
// whether one is present.
func (id Identifier) Fragment() (string, bool) { return id.fragment, id.hasFragment }

// IsAbsolute reports whether the identifier carries a scheme.
func (id Identifier) IsAbsolute() bool { return id.scheme != "" }

// ToAbsolute strips any fragment, failing when the identifier has no scheme.
func (id Identifier) ToAbsolute() (Identifier, error) {
	if id.scheme == "" {
		return Identifier{}, &oaserrors.RelativeIdentifierError{
			Value: id.str, Operation: "make absolute",
		}
	}
	if !id.hasFragment {
		return id, nil
	}
	return id.CopyWith(Parts{Fragment: Clear()})
}

// Part is a single-component override for CopyWith. The zero value keeps
// the existing component; Set replaces it; Clear removes it entirely.
type Part struct {
	set   bool
	clear bool
	value string
}

// Keep returns a Part that leaves the component unchanged.
func Keep() Part { return Part{} }

// Set returns a Part that replaces the component with v.
func Set(v string) Part { return Part{set: true, value: v} }

// Clear returns a Part that removes the component.
func Clear() Part { return Part{clear: true} }

func (p Part) apply(current string, has bool) (string, bool) {
	switch {
	case p.clear:
		return "", false
	case p.set:
		return p.value, true
	}
	return current, has
}

// Parts names component overrides for CopyWith.
type Parts struct {
	Scheme    Part
	Authority Part
	Path      Part
	Query     Part
	Fragment  Part
}

// CopyWith returns a new identifier with the named components overridden.
// The result is re-parsed under the reference form of the identifier's rule,
// so clearing the scheme of an absolute identifier is permitted.
func (id Identifier) CopyWith(parts Parts) (Identifier, error) {
	derived := id
	derived.scheme, _ = parts.Scheme.apply(id.scheme, id.scheme != "")
	derived.authority, derived.hasAuthority = parts.Authority.apply(id.authority, id.hasAuthority)
	derived.path, _ = parts.Path.apply(id.path, true)
	derived.query, derived.hasQuery = parts.Query.apply(id.query, id.hasQuery)
	derived.fragment, derived.hasFragment = parts.Fragment.apply(id.fragment, id.hasFragment)

	rule := id.rule
	if derived.scheme == "" {
		rule = rule.reference()
	}
	return Parse(derived.compose(), rule)
}

// Resolve resolves the identifier (treated as a reference) against base per
// RFC 3986 section 5.2. It is a pure function: no I/O is performed.
func (id Identifier) Resolve(base Identifier) (Identifier, error) {
	if base.scheme == "" {
		return Identifier{}, &oaserrors.RelativeIdentifierError{
			Value: base.str, Operation: "resolve against",
		}
	}

	var t Identifier
	switch {
	case id.scheme != "":
		t.scheme = id.scheme
		t.authority, t.hasAuthority = id.authority, id.hasAuthority
		t.path = removeDotSegments(id.path)
		t.query, t.hasQuery = id.query, id.hasQuery
	case id.hasAuthority:
		t.scheme = base.scheme
		t.authority, t.hasAuthority = id.authority, true
		t.path = removeDotSegments(id.path)
		t.query, t.hasQuery = id.query, id.hasQuery
	case id.path == "":
		t.scheme = base.scheme
		t.authority, t.hasAuthority = base.authority, base.hasAuthority
		t.path = base.path
		if id.hasQuery {
			t.query, t.hasQuery = id.query, true
		} else {
			t.query, t.hasQuery = base.query, base.hasQuery
		}
	default:
		t.scheme = base.scheme
		t.authority, t.hasAuthority = base.authority, base.hasAuthority
		if strings.HasPrefix(id.path, "/") {
			t.path = removeDotSegments(id.path)
		} else {
			t.path = removeDotSegments(mergePaths(base, id.path))
		}
		t.query, t.hasQuery = id.query, id.hasQuery
	}
	t.fragment, t.hasFragment = id.fragment, id.hasFragment

	rule := RuleURI
	if !id.rule.asciiOnly() || !base.rule.asciiOnly() {
		rule = RuleIRI
	}
	return Parse(t.compose(), rule)
}

// mergePaths implements RFC 3986 section 5.3 "merge".
func mergePaths(base Identifier, refPath string) string {
	if base.hasAuthority && base.path == "" {
		return "/" + refPath
	}
	if i := strings.LastIndex(base.path, "/"); i >= 0 {
		return base.path[:i+1] + refPath
	}
	return refPath
}

// removeDotSegments implements RFC 3986 section 5.2.4.
func removeDotSegments(path string) string {
	var out []string
	in := path
	for in != "" {
		switch {
		case strings.HasPrefix(in, "../"):
			in = in[3:]
		case strings.HasPrefix(in, "./"):
			in = in[2:]
		case strings.HasPrefix(in, "/./"):
			in = in[2:]
		case in == "/.":
			in = "/"
		case strings.HasPrefix(in, "/../"):
			in = in[3:]
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case in == "/..":
			in = "/"
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case in == "." || in == "..":
			in = ""
		default:
			i := strings.Index(in[1:], "/")
			if i < 0 {
				out = append(out, in)
				in = ""
			} else {
				out = append(out, in[:i+1])
				in = in[i+1:]
			}
		}
	}
	return strings.Join(out, "")
}

// PointerFragment decodes the fragment as a JSON Pointer. An absent
// fragment decodes as an absent pointer; a present empty fragment is the
// root pointer.
func (id Identifier) PointerFragment() (Pointer, bool, error) {
	if !id.hasFragment {
		return Pointer{}, false, nil
	}
	decoded, err := url.PathUnescape(id.fragment)
	if err != nil {
		return Pointer{}, false, &oaserrors.MalformedIdentifierError{
			Value: id.fragment, Rule: "JSON-Pointer fragment",
			Message: err.Error(),
		}
	}
	ptr, err := ParsePointer(decoded)
	if err != nil {
		return Pointer{}, false, err
	}
	return ptr, true, nil
}

// WithPointerFragment returns a new identifier whose fragment encodes the
// given pointer.
func (id Identifier) WithPointerFragment(p Pointer) (Identifier, error) {
	return id.CopyWith(Parts{Fragment: Set(p.URIFragment())})
}

// FileURI constructs a file: identifier for an absolute filesystem path,
// always with an explicit empty authority.
func FileURI(absPath string) (Identifier, error) {
	if !strings.HasPrefix(absPath, "/") {
		return Identifier{}, &oaserrors.MalformedIdentifierError{
			Value: absPath, Rule: "file path", Message: "path must be absolute",
		}
	}
	var b strings.Builder
	b.WriteString("file://")
	for _, seg := range strings.Split(absPath, "/") {
		if seg == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	if strings.HasSuffix(absPath, "/") || b.Len() == len("file://") {
		b.WriteByte('/')
	}
	return Parse(b.String(), RuleIRI)
}

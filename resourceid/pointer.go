package resourceid

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/erraggy/oasgraph/oaserrors"
)

// ErrNotFound is returned by [Pointer.Evaluate] when a reference token does
// not exist in the instance.
var ErrNotFound = errors.New("pointer target not found")

// TokenResolver lets document node types participate in pointer evaluation
// without exposing their internal representation.
type TokenResolver interface {
	// ResolveToken returns the child selected by one reference token, or
	// false when no such child exists.
	ResolveToken(token string) (any, bool)
}

// Pointer is an immutable RFC 6901 JSON Pointer. The zero value is the root
// pointer.
type Pointer struct {
	tokens []string
}

// ParsePointer parses an RFC 6901 string form pointer ("" is the root).
func ParsePointer(s string) (Pointer, error) {
	if s == "" {
		return Pointer{}, nil
	}
	if !strings.HasPrefix(s, "/") {
		return Pointer{}, &oaserrors.MalformedIdentifierError{
			Value: s, Rule: "JSON-Pointer",
			Message: "must be empty or start with '/'",
		}
	}
	raw := strings.Split(s[1:], "/")
	tokens := make([]string, len(raw))
	for i, t := range raw {
		decoded, err := unescapeToken(t)
		if err != nil {
			return Pointer{}, &oaserrors.MalformedIdentifierError{
				Value: s, Rule: "JSON-Pointer", Message: err.Error(),
			}
		}
		tokens[i] = decoded
	}
	return Pointer{tokens: tokens}, nil
}

// MustParsePointer is like ParsePointer but panics on error.
func MustParsePointer(s string) Pointer {
	p, err := ParsePointer(s)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPointer builds a pointer from already-decoded reference tokens.
func NewPointer(tokens ...string) Pointer {
	return Pointer{tokens: append([]string(nil), tokens...)}
}

func unescapeToken(t string) (string, error) {
	if !strings.Contains(t, "~") {
		return t, nil
	}
	var b strings.Builder
	for i := 0; i < len(t); i++ {
		if t[i] != '~' {
			b.WriteByte(t[i])
			continue
		}
		if i+1 >= len(t) {
			return "", errors.New("dangling '~' escape")
		}
		switch t[i+1] {
		case '0':
			b.WriteByte('~')
		case '1':
			b.WriteByte('/')
		default:
			return "", fmt.Errorf("invalid escape %q", t[i:i+2])
		}
		i++
	}
	return b.String(), nil
}

func escapeToken(t string) string {
	t = strings.ReplaceAll(t, "~", "~0")
	return strings.ReplaceAll(t, "/", "~1")
}

// String returns the RFC 6901 string form.
func (p Pointer) String() string {
	if len(p.tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range p.tokens {
		b.WriteByte('/')
		b.WriteString(escapeToken(t))
	}
	return b.String()
}

// URIFragment returns the pointer percent-encoded for use as a URI fragment,
// without the leading "#".
func (p Pointer) URIFragment() string {
	s := p.String()
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isFragmentSafe(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// isFragmentSafe reports bytes allowed verbatim in a fragment per RFC 3986:
// pchar / "/" / "?".
func isFragmentSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-._~!$&'()*+,;=:@/?", c) >= 0
}

// ParsePointerURIFragment decodes a percent-encoded fragment (without the
// leading "#") as a pointer.
func ParsePointerURIFragment(fragment string) (Pointer, error) {
	decoded, err := url.PathUnescape(fragment)
	if err != nil {
		return Pointer{}, &oaserrors.MalformedIdentifierError{
			Value: fragment, Rule: "JSON-Pointer fragment",
			Message: err.Error(),
		}
	}
	return ParsePointer(decoded)
}

// Len returns the number of reference tokens.
func (p Pointer) Len() int { return len(p.tokens) }

// IsRoot reports whether the pointer is the root pointer.
func (p Pointer) IsRoot() bool { return len(p.tokens) == 0 }

// Token returns the i-th decoded reference token.
func (p Pointer) Token(i int) string { return p.tokens[i] }

// Tokens returns a copy of the decoded reference tokens.
func (p Pointer) Tokens() []string {
	return append([]string(nil), p.tokens...)
}

// Append returns a new pointer with the given decoded tokens appended.
func (p Pointer) Append(tokens ...string) Pointer {
	out := make([]string, 0, len(p.tokens)+len(tokens))
	out = append(out, p.tokens...)
	out = append(out, tokens...)
	return Pointer{tokens: out}
}

// Concat returns the concatenation of the two pointers.
func (p Pointer) Concat(other Pointer) Pointer {
	return p.Append(other.tokens...)
}

// Parent returns the pointer with its last token removed. The parent of the
// root is the root.
func (p Pointer) Parent() Pointer {
	if len(p.tokens) == 0 {
		return Pointer{}
	}
	return Pointer{tokens: p.tokens[:len(p.tokens)-1]}
}

// Slice returns the sub-pointer of tokens [i, j).
func (p Pointer) Slice(i, j int) Pointer {
	return Pointer{tokens: p.tokens[i:j]}
}

// HasPrefix reports whether prefix is an ancestor of (or equal to) p.
func (p Pointer) HasPrefix(prefix Pointer) bool {
	if len(prefix.tokens) > len(p.tokens) {
		return false
	}
	for i, t := range prefix.tokens {
		if p.tokens[i] != t {
			return false
		}
	}
	return true
}

// Equal reports token-wise equality.
func (p Pointer) Equal(other Pointer) bool {
	if len(p.tokens) != len(other.tokens) {
		return false
	}
	for i, t := range p.tokens {
		if other.tokens[i] != t {
			return false
		}
	}
	return true
}

// Evaluate walks the pointer through instance. Objects may be
// map[string]any or any [TokenResolver]; arrays are []any with decimal
// index tokens. A missing member returns an error wrapping [ErrNotFound].
func (p Pointer) Evaluate(instance any) (any, error) {
	cur := instance
	for i, token := range p.tokens {
		at := Pointer{tokens: p.tokens[:i+1]}
		switch v := cur.(type) {
		case TokenResolver:
			child, ok := v.ResolveToken(token)
			if !ok {
				return nil, fmt.Errorf("evaluating '%s': %w", at, ErrNotFound)
			}
			cur = child
		case map[string]any:
			child, ok := v[token]
			if !ok {
				return nil, fmt.Errorf("evaluating '%s': %w", at, ErrNotFound)
			}
			cur = child
		case []any:
			idx, err := arrayIndex(token, len(v))
			if err != nil {
				return nil, fmt.Errorf("evaluating '%s': %w", at, err)
			}
			cur = v[idx]
		default:
			return nil, fmt.Errorf(
				"evaluating '%s': cannot index %T: %w", at, cur, ErrNotFound,
			)
		}
	}
	return cur, nil
}

// arrayIndex validates an RFC 6901 array reference token against an array of
// the given length.
func arrayIndex(token string, length int) (int, error) {
	if token == "-" || token == "" {
		return 0, fmt.Errorf("index %q: %w", token, ErrNotFound)
	}
	if token != "0" && token[0] == '0' {
		return 0, fmt.Errorf("leading zero in index %q: %w", token, ErrNotFound)
	}
	idx, err := strconv.Atoi(token)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("non-numeric index %q: %w", token, ErrNotFound)
	}
	if idx >= length {
		return 0, fmt.Errorf("index %d out of range: %w", idx, ErrNotFound)
	}
	return idx, nil
}

package resourceid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/erraggy/oasgraph/oaserrors"
)

// RelativePointer is an immutable Relative JSON Pointer
// (draft-bhutton-relative-json-pointer).
type RelativePointer struct {
	// Up is the number of levels to ascend.
	Up int
	// Over is an index adjustment applied after ascending; valid only when
	// HasOver is true and the landing token is an array index.
	Over    int
	HasOver bool
	// IsIndexName marks the trailing "#" form, which evaluates to the name
	// or index of the landing position rather than its value.
	IsIndexName bool
	// Path is appended after ascending.
	Path Pointer
}

var relPointerRegexp = regexp.MustCompile(
	`^(0|[1-9][0-9]*)([+-][0-9]+)?(#|(?:/.*)?)$`,
)

// ParseRelativePointer parses the string form, e.g. "2/foo/0", "0#", "1-2".
func ParseRelativePointer(s string) (RelativePointer, error) {
	m := relPointerRegexp.FindStringSubmatch(s)
	if m == nil {
		return RelativePointer{}, &oaserrors.MalformedIdentifierError{
			Value: s, Rule: "relative JSON-Pointer",
		}
	}
	rp := RelativePointer{}
	rp.Up, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		rp.HasOver = true
		rp.Over, _ = strconv.Atoi(m[2])
	}
	switch {
	case m[3] == "#":
		rp.IsIndexName = true
	case m[3] != "":
		path, err := ParsePointer(m[3])
		if err != nil {
			return RelativePointer{}, err
		}
		rp.Path = path
	}
	return rp, nil
}

// MustParseRelativePointer is like ParseRelativePointer but panics on error.
func MustParseRelativePointer(s string) RelativePointer {
	rp, err := ParseRelativePointer(s)
	if err != nil {
		panic(err)
	}
	return rp
}

// String returns the canonical string form.
func (rp RelativePointer) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(rp.Up))
	if rp.HasOver {
		if rp.Over >= 0 {
			b.WriteByte('+')
		}
		b.WriteString(strconv.Itoa(rp.Over))
	}
	if rp.IsIndexName {
		b.WriteByte('#')
	} else {
		b.WriteString(rp.Path.String())
	}
	return b.String()
}

// Apply composes an absolute pointer with the relative pointer, producing
// the absolute pointer the relative one designates when evaluated from p.
// Index-name ("#") pointers do not designate a location and cannot be
// applied.
func (p Pointer) Apply(rp RelativePointer) (Pointer, error) {
	if rp.IsIndexName {
		return Pointer{}, fmt.Errorf(
			"cannot apply index/name pointer %q to '%s'", rp, p,
		)
	}
	if rp.Up > p.Len() {
		return Pointer{}, fmt.Errorf(
			"cannot ascend %d levels from %d-token pointer '%s'",
			rp.Up, p.Len(), p,
		)
	}
	tokens := p.tokens[:p.Len()-rp.Up]
	if rp.HasOver {
		if len(tokens) == 0 {
			return Pointer{}, fmt.Errorf(
				"cannot adjust index at document root (applying %q to '%s')",
				rp, p,
			)
		}
		last := tokens[len(tokens)-1]
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || (last != "0" && last[0] == '0') {
			return Pointer{}, fmt.Errorf(
				"cannot adjust non-index token %q (applying %q to '%s')",
				last, rp, p,
			)
		}
		adjusted := idx + rp.Over
		if adjusted < 0 {
			return Pointer{}, fmt.Errorf(
				"index adjustment of %q underflows at '%s'", rp, p,
			)
		}
		head := append([]string(nil), tokens[:len(tokens)-1]...)
		tokens = append(head, strconv.Itoa(adjusted))
	} else {
		tokens = append([]string(nil), tokens...)
	}
	return Pointer{tokens: tokens}.Concat(rp.Path), nil
}

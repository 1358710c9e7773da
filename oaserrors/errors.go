package oaserrors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for use with errors.Is().
// These allow quick checks without type assertions.
var (
	// ErrConfig indicates an invalid configuration or input option.
	ErrConfig = errors.New("configuration error")

	// ErrLoad indicates a resource loading failure.
	ErrLoad = errors.New("load error")

	// ErrVersion indicates an unsupported OAS version.
	ErrVersion = errors.New("unsupported version")

	// ErrCatalog indicates a document cache lookup failure.
	ErrCatalog = errors.New("catalog error")

	// ErrReference indicates a reference resolution failure.
	ErrReference = errors.New("reference error")

	// ErrSchemaValidation indicates a JSON Schema validation failure.
	ErrSchemaValidation = errors.New("schema validation error")

	// ErrGraph indicates a graph consistency failure. These accumulate
	// rather than aborting a run.
	ErrGraph = errors.New("graph consistency error")
)

// MalformedIdentifierError reports a string that violates the grammar rule
// (IRI, IRI-reference, URI, or URI-reference) it was parsed under.
type MalformedIdentifierError struct {
	// Value is the offending input string
	Value string
	// Rule names the grammar the value was checked against
	Rule string
	// Message describes the violation
	Message string
}

// Error returns a human-readable error message.
func (e *MalformedIdentifierError) Error() string {
	msg := fmt.Sprintf("%q is not a valid %s", e.Value, e.Rule)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *MalformedIdentifierError) Is(target error) bool {
	return target == ErrConfig
}

// RelativeIdentifierError reports an attempt to use a relative identifier
// where an absolute one is required.
type RelativeIdentifierError struct {
	// Value is the relative identifier
	Value string
	// Operation is what was attempted, e.g. "to_absolute"
	Operation string
}

// Error returns a human-readable error message.
func (e *RelativeIdentifierError) Error() string {
	return fmt.Sprintf(
		"cannot %s relative reference <%s>: no scheme present; resolve against a base first",
		e.Operation, e.Value,
	)
}

// Is reports whether target matches this error type.
func (e *RelativeIdentifierError) Is(target error) bool {
	return target == ErrConfig
}

// InvalidTemplateError reports a pointer template string that does not match
// the template grammar, including variable-name-capture markers that are not
// in the final position.
type InvalidTemplateError struct {
	// Template is the offending template string
	Template string
	// Message describes the violation
	Message string
}

// Error returns a human-readable error message.
func (e *InvalidTemplateError) Error() string {
	msg := fmt.Sprintf("%q is not a valid pointer template", e.Template)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *InvalidTemplateError) Is(target error) bool {
	return target == ErrConfig
}

// TemplateEvaluationError reports a failure while evaluating a pointer
// template against an instance. Phase distinguishes relative-pointer origin
// adjustment failures from path matching failures.
type TemplateEvaluationError struct {
	// Template is the template being evaluated
	Template string
	// Pointer is the resolved pointer at the point of failure
	Pointer string
	// Phase is "origin" for relative adjustment failures, "path" otherwise
	Phase string
	// Message describes the failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *TemplateEvaluationError) Error() string {
	var msg string
	if e.Phase == "origin" {
		msg = fmt.Sprintf("could not evaluate origin adjustment of %q", e.Template)
	} else {
		msg = fmt.Sprintf("template %q evaluation failed at '%s'", e.Template, e.Pointer)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *TemplateEvaluationError) Unwrap() error {
	return e.Cause
}

// ContentLoadError reports that a resource could not be loaded after every
// configured suffix and loader was attempted.
type ContentLoadError struct {
	// Location is the un-suffixed path or URL that was requested
	Location string
	// Suffixes lists every suffix attempted, in configured order
	Suffixes []string
	// Causes holds the per-attempt failures, aligned with Suffixes where
	// suffix search applies
	Causes []error
}

// Error returns a human-readable error message.
func (e *ContentLoadError) Error() string {
	msg := fmt.Sprintf("could not load %q", e.Location)
	if len(e.Suffixes) > 0 {
		msg += fmt.Sprintf(", checked suffixes %v", e.Suffixes)
	}
	if len(e.Causes) > 0 {
		details := make([]string, 0, len(e.Causes))
		for _, c := range e.Causes {
			details = append(details, c.Error())
		}
		msg += ":\n\t" + strings.Join(details, "\n\t")
	}
	return msg
}

// Unwrap returns the underlying causes for error chaining.
func (e *ContentLoadError) Unwrap() []error {
	return e.Causes
}

// Is reports whether target matches this error type.
func (e *ContentLoadError) Is(target error) bool {
	return target == ErrLoad
}

// UnsupportedVersionError reports an "openapi" field value outside the
// supported 3.0.x range. NotImplemented marks 3.1.x, which is recognized but
// not yet supported.
type UnsupportedVersionError struct {
	// Version is the full version string from the document
	Version string
	// URI identifies the document, when known
	URI string
	// NotImplemented is true for 3.1.x documents
	NotImplemented bool
}

// Error returns a human-readable error message.
func (e *UnsupportedVersionError) Error() string {
	where := ""
	if e.URI != "" {
		where = fmt.Sprintf(" in <%s>", e.URI)
	}
	if e.NotImplemented {
		return fmt.Sprintf("OAS v%s%s support not yet implemented", e.Version, where)
	}
	return fmt.Sprintf("OAS v%s%s is not supported", e.Version, where)
}

// Is reports whether target matches this error type.
func (e *UnsupportedVersionError) Is(target error) bool {
	return target == ErrVersion
}

// CatalogError reports that a requested URI or its JSON Pointer fragment
// cannot be satisfied from the document cache.
type CatalogError struct {
	// URI is the requested URI, including any fragment
	URI string
	// Message describes the failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *CatalogError) Error() string {
	msg := fmt.Sprintf("catalog cannot resolve <%s>", e.URI)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *CatalogError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *CatalogError) Is(target error) bool {
	return target == ErrCatalog
}

// TypeMismatchError reports a reference whose target exists but is not a
// JSON Schema.
type TypeMismatchError struct {
	// URI is the mis-typed target URI
	URI string
	// URL is the retrieval URL of the target's document
	URL string
}

// Error returns a human-readable error message.
func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("reference target <%s> is not a JSON Schema", e.URI)
	if e.URL != "" {
		msg += fmt.Sprintf(" (loaded from <%s>)", e.URL)
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrReference
}

// SuffixConfigurationError reports a reference target that could not be
// found as requested, but would be found if the named suffix were appended.
// This usually means a source was registered without suffix searching.
type SuffixConfigurationError struct {
	// URI is the requested target URI
	URI string
	// Suffix is the suffix under which the resource actually exists
	Suffix string
}

// Error returns a human-readable error message.
func (e *SuffixConfigurationError) Error() string {
	return fmt.Sprintf(
		"reference target <%s> not found, but exists with suffix %q; "+
			"configure the source to search that suffix",
		e.URI, e.Suffix,
	)
}

// Is reports whether target matches this error type.
func (e *SuffixConfigurationError) Is(target error) bool {
	return target == ErrReference
}

// UnresolvableReferenceError reports a reference target that cannot be found
// under any configured source or suffix.
type UnresolvableReferenceError struct {
	// URI is the requested target URI
	URI string
	// Cause is the underlying load failure, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *UnresolvableReferenceError) Error() string {
	msg := fmt.Sprintf("reference target <%s> cannot be resolved", e.URI)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *UnresolvableReferenceError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *UnresolvableReferenceError) Is(target error) bool {
	return target == ErrReference
}

// SchemaValidationError reports that an instance does not conform to its
// OAS-type schema. This is fatal for the resource being validated.
type SchemaValidationError struct {
	// URI identifies the failing instance
	URI string
	// OASType is the semantic type the instance was validated as
	OASType string
	// Detail is the full structured output of the schema evaluation,
	// suitable for JSON encoding; it is never truncated
	Detail any
}

// Error returns a human-readable error message.
func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf(
		"JSON Schema validation of <%s> as %s failed", e.URI, e.OASType,
	)
}

// Is reports whether target matches this error type.
func (e *SchemaValidationError) Is(target error) bool {
	return target == ErrSchemaValidation
}

// ReferenceTypeError reports a reference whose target carries a graph type
// other than the type the reference expects.
type ReferenceTypeError struct {
	// Reference is the graph node of the reference itself
	Reference string
	// Target is the referenced node
	Target string
	// Expected is the normalized type the reference requires
	Expected string
	// Actual is the normalized type (or comma-joined types) found on the
	// target; empty when the target carries no type at all
	Actual string
}

// Error returns a human-readable error message.
func (e *ReferenceTypeError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf(
			"reference <%s> expects a %s at <%s>, but the target is untyped",
			e.Reference, e.Expected, e.Target,
		)
	}
	return fmt.Sprintf(
		"reference <%s> expects a %s at <%s>, found %s",
		e.Reference, e.Expected, e.Target, e.Actual,
	)
}

// Is reports whether target matches this error type.
func (e *ReferenceTypeError) Is(target error) bool {
	return target == ErrGraph
}

// UnsupportedTypeError reports an OAS type name outside the closed
// reference-type normalization table.
type UnsupportedTypeError struct {
	// Type is the unrecognized type name
	Type string
	// Node identifies where the name was encountered
	Node string
}

// Error returns a human-readable error message.
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf(
		"unsupported OAS type %q at <%s>: not in the reference type table",
		e.Type, e.Node,
	)
}

// Is reports whether target matches this error type.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrGraph
}

// ExampleValidationError reports an example or default value that does not
// conform to its governing schema. Non-fatal; accumulated per run.
type ExampleValidationError struct {
	// Instance identifies the example or default value
	Instance string
	// Schema identifies the schema it was validated against
	Schema string
	// Detail is the full structured output of the schema evaluation
	Detail any
}

// Error returns a human-readable error message.
func (e *ExampleValidationError) Error() string {
	return fmt.Sprintf(
		"example <%s> does not conform to schema <%s>", e.Instance, e.Schema,
	)
}

// Is reports whether target matches this error type.
func (e *ExampleValidationError) Is(target error) bool {
	return target == ErrGraph
}

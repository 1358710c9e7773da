// Package oaserrors provides structured error types for oasgraph.
//
// These error types enable programmatic error handling via errors.Is() and
// errors.As(), allowing callers to distinguish between different categories
// of errors and implement appropriate recovery strategies.
//
// # Error Categories
//
//   - ConfigError family: malformed identifiers, invalid pointer templates,
//     bad prefix registrations; detected eagerly at setup time
//   - ContentLoadError: a resource could not be loaded from any source or
//     suffix variant
//   - UnsupportedVersionError: the document's "openapi" field names a
//     version outside the supported range
//   - CatalogError: a requested URI or fragment cannot be satisfied by the
//     document cache
//   - Reference resolution family: TypeMismatchError,
//     SuffixConfigurationError, UnresolvableReferenceError
//   - SchemaValidationError: an instance does not conform to its OAS-type
//     schema; carries the full detailed evaluation output
//
// # Usage with errors.Is
//
//	node, err := cat.GetResource(uri)
//	if err != nil {
//	    var suffixErr *oaserrors.SuffixConfigurationError
//	    if errors.As(err, &suffixErr) {
//	        // The document exists under suffixErr.Suffix; the source is
//	        // just not configured to search for it.
//	    }
//	}
package oaserrors

// Package resourceid provides immutable resource identifier and JSON
// Pointer value types.
//
// Identifiers follow the RFC 3986/3987 grammars. Each [Identifier] is parsed
// under one of four rules (IRI, IRI-reference, URI, URI-reference) and is
// immutable after construction; derived identifiers are new values. Equality
// and hashing are defined by the identifier's canonical string form, so
// identifiers parsed under different rules compare equal when their strings
// match: logical identity, not grammar rule, is the comparison contract.
//
// [Pointer] implements RFC 6901 JSON Pointers and [RelativePointer] the
// relative JSON Pointer draft, including composition of the two. Identifiers
// bridge to pointers through [Identifier.PointerFragment] and
// [Identifier.WithPointerFragment], enabling pointer arithmetic directly on
// an identifier's fragment.
package resourceid

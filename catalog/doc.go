// Package catalog caches parsed API description documents and resolves URIs
// (including JSON Pointer fragments) to nodes within them.
//
// A [Catalog] owns a version-partitioned document cache keyed by base URI.
// Requesting a URI loads the document through a [source.Registry] on first
// access, detects its OAS version from the "openapi" field, and evaluates
// any pointer fragment against the in-memory tree.
//
// Documents hold their nodes in an arena: every [Node] carries a stable id,
// its pointer from the document root, its parent link, ordered object keys,
// and its source position. Nodes recognized as JSON Schemas are promoted to
// a memoized [SchemaView] on first access rather than converted in place.
package catalog

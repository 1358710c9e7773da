// Package oasschema validates catalog nodes against the bundled annotated
// OAS 3.0 schema and extracts the oas* annotations that drive graph
// construction.
//
// The schema asset describes every OAS 3.0 object type under $defs and
// decorates each definition with semantic keywords (oasType, oasChildren,
// oasReferences, ...) that are invisible to structural validation but are
// walked out of the schema after a node validates.
package oasschema

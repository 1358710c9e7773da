// Package apidesc loads, validates, and projects a complete API description.
// Starting from one entry document it validates each resource against the
// annotated OAS schema, builds the RDF graph, and recursively pulls in every
// referenced document before checking examples and reference target types.
package apidesc

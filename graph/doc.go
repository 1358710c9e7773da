// Package graph projects validated API descriptions into an RDF triple set.
//
// The Graph is an append-only collection of quad terms under the OAS
// ontology namespace. The Builder turns oasschema annotations into triples
// through a closed keyword dispatch table, and ValidateReferences runs the
// deferred reference target type check over the finished graph.
package graph

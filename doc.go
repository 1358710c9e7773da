// Package oasgraph validates OpenAPI 3.0 API descriptions and projects them
// into an RDF graph for semantic analysis.
//
// An API description is often spread across several documents connected by
// $ref values. oasgraph resolves those documents through configurable
// URI-to-location mappings, validates each one against the bundled OAS 3.0
// dialect schema, and builds a graph of typed nodes, parent/child edges,
// references, and literals. After all documents validate, the graph itself is
// checked: every reference edge must point at a node of the expected OAS
// type.
//
// # Packages
//
//   - resourceid: IRI/URI identifiers and JSON Pointers
//   - ptrtemplate: JSON Pointer templates with named variables
//   - source: resource loaders and the URI-to-URL registry
//   - catalog: the version-partitioned document cache
//   - oasschema: schema evaluation and annotation extraction
//   - graph: the RDF graph builder and reference type checking
//   - serializer: N-Triples, Turtle, and TOML output
//   - apidesc: the validation orchestrator
//
// # Quick Start
//
// Validate a single-document description:
//
//	registry := source.NewRegistry()
//	_ = registry.AddSource(
//	    resourceid.MustParse("https://example.com/apis/", resourceid.RuleURI),
//	    source.NewFileMultiSuffixSource("apis", nil),
//	)
//	cat := catalog.New(catalog.WithRegistry(registry))
//	entry := resourceid.MustParse("https://example.com/apis/petstore", resourceid.RuleURI)
//	desc, err := apidesc.New(ctx, cat, entry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	errs, err := desc.Validate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	errs = append(errs, desc.ValidateGraph()...)
//	if len(errs) == 0 {
//	    fmt.Println("API description is valid")
//	}
//
// The CLI exposes the same pipeline:
//
//	oasgraph validate -f openapi.yaml -o nt11
//
// Install the CLI:
//
//	go install github.com/erraggy/oasgraph/cmd/oasgraph@latest
package oasgraph

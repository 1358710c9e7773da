// Package serializer writes a finished graph to an output format: N-Triples
// (plain or sorted), Turtle with prefixed names, or a TOML projection for
// diff-friendly review. Test mode restricts output to sorted N-Triples so
// results compare byte for byte across runs.
package serializer

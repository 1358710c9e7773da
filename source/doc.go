// Package source loads API description documents from files, HTTP, or
// explicit location maps, decoupling the identity of a resource (its URI)
// from where its bytes are fetched (its URL).
//
// A [Registry] maps URI prefixes to [Source] implementations. Requesting a
// URI finds the longest registered prefix, hands the remaining path to that
// source, and records the URL the content was actually retrieved from.
// Multi-suffix sources try a configured list of suffixes (".json", ".yaml",
// ".yml") in order, so references may omit file extensions.
//
// Content is parsed with go.yaml.in/yaml/v4 for both JSON and YAML input,
// preserving line and column positions and document key order.
package source

// Package ptrtemplate implements JSON Pointer templates: pointers whose
// reference tokens may be {variable} wildcards that match every key of an
// object or every index of an array.
//
// A template such as "/paths/{path}/{method}/responses/{code}" evaluates
// against a document instance to zero or more matches, each carrying the
// concrete resolved pointer and the variable bindings that produced it.
// Matches are produced in document order. A template ending in "{var}#"
// additionally captures the name (object key or array index) of the final
// matched position instead of descending into it.
//
// [RelTemplate] prefixes a template with a relative JSON Pointer, allowing
// evaluation to first ascend from the starting position before matching.
//
// Evaluation walks any type implementing [Instance]; document trees expose
// their structure through it without copying.
package ptrtemplate

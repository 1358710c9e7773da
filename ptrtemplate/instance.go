package ptrtemplate

// Instance is the document shape templates evaluate against. Implementations
// expose parent links and ordered object keys; evaluation never mutates the
// instance.
type Instance interface {
	// Parent returns the containing instance, or false at the document root.
	Parent() (Instance, bool)

	// Token returns the reference token locating this instance within its
	// parent (the object key, or the decimal array index), or false at the
	// document root.
	Token() (string, bool)

	// Child returns the member or element selected by one reference token,
	// or false when no such child exists.
	Child(token string) (Instance, bool)

	// Keys returns the object's keys in document order, or false when the
	// instance is not an object.
	Keys() ([]string, bool)

	// Len returns the array's length, or false when the instance is not an
	// array.
	Len() (int, bool)
}

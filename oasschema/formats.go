package oasschema

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/erraggy/oasgraph/ptrtemplate"
)

// OASFormats returns validators for the OAS 3.0 data type formats and for
// the pointer template grammars used by annotation values. The standard
// formats (uri, uri-reference, email, regex, date, date-time) ship with the
// jsonschema engine.
func OASFormats() []*jsonschema.Format {
	return []*jsonschema.Format{
		{Name: "int32", Validate: validateInt32},
		{Name: "int64", Validate: validateInt64},
		{Name: "byte", Validate: validateBase64},
		{Name: "binary", Validate: acceptAny},
		{Name: "password", Validate: acceptAny},
		{Name: "json-pointer-template", Validate: validateTemplate},
		{Name: "relative-json-pointer-template", Validate: validateRelTemplate},
	}
}

// RegisterOASFormats adds every OAS format validator to the compiler and
// turns format assertion on.
func RegisterOASFormats(c *jsonschema.Compiler) {
	for _, f := range OASFormats() {
		c.RegisterFormat(f)
	}
	c.AssertFormat()
}

func asInteger(v any) (int64, bool, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, true, fmt.Errorf("%v is not an integer", n)
		}
		return i, true, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, true, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), true, nil
	case int:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	}
	return 0, false, nil
}

func validateInt32(v any) error {
	i, isNumber, err := asInteger(v)
	if !isNumber {
		return nil
	}
	if err != nil {
		return err
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return fmt.Errorf("%d overflows int32", i)
	}
	return nil
}

func validateInt64(v any) error {
	_, _, err := asInteger(v)
	return err
}

func validateBase64(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return fmt.Errorf("invalid base64: %w", err)
	}
	return nil
}

func acceptAny(any) error { return nil }

func validateTemplate(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	_, err := ptrtemplate.Parse(s)
	return err
}

func validateRelTemplate(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	_, err := ptrtemplate.ParseRel(s)
	return err
}

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialectSchema(t *testing.T) {
	in := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"count": map[string]any{
				"type":             "integer",
				"minimum":          0,
				"exclusiveMinimum": true,
			},
			"name": map[string]any{
				"type":     "string",
				"nullable": true,
			},
		},
		"additionalProperties": map[string]any{
			"type":             "number",
			"maximum":          10,
			"exclusiveMaximum": false,
		},
	}

	out := dialectSchema(in).(map[string]any)
	props := out["properties"].(map[string]any)

	count := props["count"].(map[string]any)
	assert.Equal(t, 0, count["exclusiveMinimum"])
	assert.NotContains(t, count, "minimum")

	name := props["name"].(map[string]any)
	assert.Equal(t, []any{"string", "null"}, name["type"])
	assert.NotContains(t, name, "nullable")

	extra := out["additionalProperties"].(map[string]any)
	assert.Equal(t, 10, extra["maximum"])
	assert.NotContains(t, extra, "exclusiveMaximum")

	// The original value must stay usable for later graph passes.
	orig := in["properties"].(map[string]any)["count"].(map[string]any)
	assert.Equal(t, true, orig["exclusiveMinimum"])
	assert.Contains(t, orig, "minimum")
}

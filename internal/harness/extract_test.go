package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSpanIsGreedy(t *testing.T) {
	span, ok := extractSpan(`noise {"a":{"b":1}} more } tail`, '{', '}')
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":1}} more }`, span)

	_, ok = extractSpan("no braces here", '{', '}')
	assert.False(t, ok)

	_, ok = extractSpan("} reversed {", '{', '}')
	assert.False(t, ok)
}

func TestDecodeObjectToleratesModelNoise(t *testing.T) {
	var v struct {
		Action string `json:"action"`
	}
	text := "Sure!\n```json\n{\n  // decision\n  \"action\": \"create_tasks\",\n}\n```"
	require.True(t, decodeObject(text, &v))
	assert.Equal(t, "create_tasks", v.Action)
}

func TestDecodeObjectFailures(t *testing.T) {
	var v map[string]interface{}
	assert.False(t, decodeObject("plain prose", &v))
	assert.False(t, decodeObject("{ not json at all }", &v))
	// Greedy extraction spans both objects, which is not valid JSON.
	assert.False(t, decodeObject(`{"a":1} and {"b":2}`, &v))
}

func TestDecodeArray(t *testing.T) {
	var v []map[string]interface{}
	require.True(t, decodeArray(`Here you go: [{"id":1},{"id":2},] done`, &v))
	assert.Len(t, v, 2)
	assert.False(t, decodeArray("no list", &v))
}

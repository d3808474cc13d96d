package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", nil, "null"},
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"int64", int64(-100), "-100"},
		{"json number", json.Number("9007199254740993"), "9007199254740993"},
		{"whole float", 42.0, "42"},
		{"fraction", 0.5, "0.5"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"string slice", []string{"unique together"}, `["unique together"]`},
		{"no html escape", "<a&b>", `"<a&b>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshalSortsKeysRecursively(t *testing.T) {
	obj := map[string]any{
		"zebra": map[string]any{"b": 1, "a": 2},
		"alpha": []any{map[string]any{"y": true, "x": false}},
	}

	out, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":[{"x":false,"y":true}],"zebra":{"a":2,"b":1}}`, string(out))
}

func TestMarshalUTF16KeyOrder(t *testing.T) {
	// U+FF61 sorts before U+1F600 by UTF-8 bytes but after it by UTF-16
	// code units, where the emoji starts with surrogate 0xD83D.
	obj := map[string]any{"\uff61": 1, "\U0001F600": 2}

	out, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uff61\":1}", string(out))
}

func TestMarshalNormalizesNFC(t *testing.T) {
	decomposed := "e\u0301"
	out, err := Marshal(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(out))
}

func TestMarshalLineSeparatorsUnescaped(t *testing.T) {
	out, err := Marshal("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(out))

	out, err = Marshal(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(out))
}

func TestMarshalRejectsUnsupported(t *testing.T) {
	_, err := Marshal(struct{}{})
	assert.Error(t, err)
}

func TestStringify(t *testing.T) {
	raw := json.RawMessage(`{ "non_field_errors" : [ "The fields session, student must make a unique set." ] }`)
	assert.Equal(t,
		`{"non_field_errors":["The fields session, student must make a unique set."]}`,
		Stringify(raw))

	assert.Equal(t, `"Authentication credentials were not provided."`,
		Stringify(json.RawMessage(`"Authentication credentials were not provided."`)))
}

func TestStringifyInvalidReturnsRaw(t *testing.T) {
	assert.Equal(t, "not json", Stringify(json.RawMessage("not json")))
	assert.Equal(t, "", Stringify(nil))
}

func TestDecodeKeepsIntegers(t *testing.T) {
	v, err := Decode(json.RawMessage(`{"id": 12345678901234567}`))
	require.NoError(t, err)

	obj := v.(map[string]any)
	assert.Equal(t, json.Number("12345678901234567"), obj["id"])
}

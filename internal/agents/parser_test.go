package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrict(t *testing.T) {
	var p CodeParser

	text := `Here you go:
FILENAME|||handler.go|||
DESCRIPTION|||HTTP handler for health checks|||
CODE|||
package api

func Health() string { return "ok" }
|||END
Hope that helps.`

	payload, ok := p.ParseStrict(text)
	require.True(t, ok)
	assert.Equal(t, "handler.go", payload.Filename)
	assert.Equal(t, "HTTP handler for health checks", payload.Description)
	assert.Contains(t, payload.Code, "func Health()")
	assert.NotContains(t, payload.Code, "|||")
}

func TestParseStrictRejectsTruncatedMarkers(t *testing.T) {
	var p CodeParser

	// Missing the END terminator.
	_, ok := p.ParseStrict("FILENAME|||a.go|||\nDESCRIPTION|||x|||\nCODE|||\ncode here")
	assert.False(t, ok)

	// Missing the description section entirely.
	_, ok = p.ParseStrict("FILENAME|||a.go|||\nCODE|||\ncode\n|||END")
	assert.False(t, ok)

	// Empty filename.
	_, ok = p.ParseStrict("FILENAME||||||\nDESCRIPTION|||x|||\nCODE|||\ncode\n|||END")
	assert.False(t, ok)
}

func TestParseLooseJSON(t *testing.T) {
	var p CodeParser

	text := "Sure! Here is the implementation:\n```json\n" +
		`{"filename": "sum.go", "description": "adds numbers", "code": "func Sum(a, b int) int { return a + b }"}` +
		"\n```\nLet me know if you need changes."

	payload, ok := p.ParseLooseJSON(text)
	require.True(t, ok)
	assert.Equal(t, "sum.go", payload.Filename)
	assert.Equal(t, "adds numbers", payload.Description)
	assert.Contains(t, payload.Code, "func Sum")
}

func TestParseLooseJSONDefaultsFilename(t *testing.T) {
	var p CodeParser
	payload, ok := p.ParseLooseJSON(`{"code": "x := 1"}`)
	require.True(t, ok)
	assert.Equal(t, "generated-code.go", payload.Filename)
}

func TestParseLooseJSONRejectsWrongFields(t *testing.T) {
	var p CodeParser
	_, ok := p.ParseLooseJSON(`{"file": "a.go", "source": "x := 1"}`)
	assert.False(t, ok)
}

func TestParseFieldExtraction(t *testing.T) {
	var p CodeParser

	// Broken JSON (trailing garbage) that still carries the fields.
	text := `{"filename": "util.go", "description": "helper", "code": "func F() {\n\treturn\n}", some trailing junk`

	payload, ok := p.ParseFieldExtraction(text)
	require.True(t, ok)
	assert.Equal(t, "util.go", payload.Filename)
	assert.Equal(t, "helper", payload.Description)
	assert.Equal(t, "func F() {\n\treturn\n}", payload.Code)
}

func TestParseCascadeOrder(t *testing.T) {
	var p CodeParser

	// Strict format wins even when a JSON blob is also present.
	text := `FILENAME|||a.go|||
DESCRIPTION|||strict|||
CODE|||
strict code
|||END
{"filename": "b.go", "code": "json code"}`

	payload, ok := p.ParseCascade(text)
	require.True(t, ok)
	assert.Equal(t, "a.go", payload.Filename)

	// Without strict markers the JSON tier takes over.
	payload, ok = p.ParseCascade(`prose before {"filename": "b.go", "code": "json code"} prose after`)
	require.True(t, ok)
	assert.Equal(t, "b.go", payload.Filename)

	// Nothing parseable.
	_, ok = p.ParseCascade("I am unable to help with that.")
	assert.False(t, ok)
}

func TestExtractJSON(t *testing.T) {
	blob, ok := ExtractJSON("```json\n{\"a\": 1}\n```")
	require.True(t, ok)
	assert.JSONEq(t, `{"a": 1}`, blob)

	_, ok = ExtractJSON("no json here")
	assert.False(t, ok)
}

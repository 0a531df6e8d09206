package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "fenced json block",
			content: "Here you go:\n```json\n{\"a\": 1}\n```\nenjoy",
			want:    `{"a": 1}`,
		},
		{
			name:    "fence without language",
			content: "```\n[1, 2]\n```",
			want:    `[1, 2]`,
		},
		{
			name:    "object embedded in prose",
			content: `Sure! {"name": "Lexis", "tags": ["a"]} Let me know.`,
			want:    `{"name": "Lexis", "tags": ["a"]}`,
		},
		{
			name:    "braces inside strings are ignored",
			content: `{"svg": "<g>{}</g>", "ok": true} trailing }`,
			want:    `{"svg": "<g>{}</g>", "ok": true}`,
		},
		{
			name:    "trailing commas and comments",
			content: "{\n  \"a\": 1, // first\n  \"b\": [1, 2,],\n}",
			want:    "{\n  \"a\": 1,\n  \"b\": [1, 2]\n}",
		},
		{
			name:    "commas inside strings survive",
			content: "```json\n{\"a\": \"x, }\", \"js\": \"f(a, ]\\\", b, )\",}\n```",
			want:    "{\"a\": \"x, }\", \"js\": \"f(a, ]\\\", b, )\"}",
		},
		{
			name:    "no json",
			content: "I cannot help with that.",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestExtractJSONKeepsURLs(t *testing.T) {
	got := ExtractJSON(`{"url": "https://fonts.google.com/specimen/Inter"}`)
	var v map[string]string
	assert.NoError(t, json.Unmarshal([]byte(got), &v))
	assert.Equal(t, "https://fonts.google.com/specimen/Inter", v["url"])
}

func TestExtractJSONRepairKeepsStringValues(t *testing.T) {
	got := ExtractJSON("```json\n{\"a\": \"x, }\", }\n```")
	var v map[string]string
	assert.NoError(t, json.Unmarshal([]byte(got), &v))
	assert.Equal(t, "x, }", v["a"])
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "graph TD\n  A-->B", StripFences("```mermaid\ngraph TD\n  A-->B\n```"))
	assert.Equal(t, "graph TD", StripFences("  graph TD \n"))
}

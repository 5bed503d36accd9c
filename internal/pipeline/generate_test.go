package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compintel/internal/model"
)

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"whitespace", "  {\"a\": 1}\n", `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose wrapping", `Here is the analysis: {"a": 1} I hope it helps!`, `{"a": 1}`},
		{"fence and prose", "```json\nSure: {\"a\": 1}\n```", `{"a": 1}`},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"no object", "no json here", "no json here"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

func TestDecodePayload(t *testing.T) {
	t.Parallel()

	t.Run("valid object", func(t *testing.T) {
		t.Parallel()
		v := decodePayload(`{"entity": {}}`, false)
		obj, ok := v.(map[string]any)
		require.True(t, ok)
		assert.Contains(t, obj, "entity")
	})

	t.Run("fenced object", func(t *testing.T) {
		t.Parallel()
		v := decodePayload("```json\n{\"x\": true}\n```", false)
		require.NotNil(t, v)
	})

	t.Run("garbage yields nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, decodePayload("total nonsense", false))
	})

	t.Run("empty yields nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, decodePayload("", false))
	})
}

func TestAssembleProduct(t *testing.T) {
	t.Parallel()

	t.Run("builds skeleton with synthetic details", func(t *testing.T) {
		t.Parallel()
		product, err := assembleProduct("Acme", "Widget", []string{"Rival", "", "Challenger"})
		require.NoError(t, err)

		assert.Equal(t, "Widget", product["name_brand"])

		details := product["details"].([]any)
		require.Len(t, details, 1)
		detail := details[0].(map[string]any)
		assert.Equal(t, string(model.DetailMarketShareEstimate), detail["type_research_detail"])
		assert.Equal(t, string(model.ConfidenceHigh), detail["data_confidence"])
		assert.Contains(t, detail["text_value"], "Widget")

		// blank competitor names drop out
		competitors := product["competitors"].([]any)
		require.Len(t, competitors, 2)
		first := competitors[0].(map[string]any)
		assert.Equal(t, "Rival", first["name_brand"])
	})

	t.Run("empty product name errors", func(t *testing.T) {
		t.Parallel()
		_, err := assembleProduct("Acme", "   ", nil)
		assert.Error(t, err)
	})
}

func TestStringList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, stringList([]any{"a", "b"}))
	assert.Equal(t, []string{"a"}, stringList([]any{"a", 1, nil}))
	assert.Nil(t, stringList("not a list"))
	assert.Nil(t, stringList(nil))
}

func TestPromptsMentionSchema(t *testing.T) {
	t.Parallel()

	p := singlePrompt("Acme")
	assert.Contains(t, p, `"Acme"`)
	assert.Contains(t, p, "name_brand")
	assert.Contains(t, p, "type_research_detail")
	for _, dt := range model.DetailTypes() {
		assert.Contains(t, p, string(dt))
	}

	b := basicInfoPrompt("Acme")
	assert.Contains(t, b, `"Acme"`)
	assert.Contains(t, b, "company_name")
	assert.False(t, strings.Contains(b, "type_research_detail"))
}

package generation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterlab/rosterlab/internal/generation"
)

func TestExtractObject(t *testing.T) {
	obj, err := generation.ExtractObject("Sure! ```json\n{\"a\": {\"b\": \"}\"}} \n``` trailing {\"x\":1}")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"b":"}"}}`, string(obj))

	_, err = generation.ExtractObject("no json here")
	assert.True(t, generation.IsSchemaError(err))

	_, err = generation.ExtractObject(`{"a": [1, 2`)
	assert.True(t, generation.IsSchemaError(err))
}

func TestDecodeSuggestion(t *testing.T) {
	raw := `{
		"report": {
			"strategy": "<b>Hazard</b> stack & pivot",
			"strengths": ["fast", "<script>x</script>"],
			"weaknesses": ["Fairy types"],
			"leads": [{"candidate": "Great Tusk", "condition": "vs. hazard setters"}]
		},
		"selected_ids": [1, "2", " 3 ", "abc", 4.5, 1],
		"builds": {
			"1": {"item": "Leftovers", "ability": "Protosynthesis", "nature": "Jolly",
			      "evs": "252 Atk", "ivs": "31", "moves": ["a", "b", "c", "d", "e"]},
			"x": {"item": "ignored"}
		}
	}`
	s, err := generation.DecodeSuggestion(raw)
	require.NoError(t, err)

	assert.Equal(t, "Hazard stack & pivot", s.Report.Strategy)
	assert.Equal(t, []string{"fast"}, s.Report.Strengths)
	assert.Equal(t, []int{1, 2, 3, 1}, s.SelectedIDs)
	require.Contains(t, s.Builds, 1)
	assert.Len(t, s.Builds[1].Moves, 4)
	assert.Len(t, s.Builds, 1)
}

func TestDecodeSuggestion_SchemaErrors(t *testing.T) {
	for name, raw := range map[string]string{
		"no object":        "I cannot help with that.",
		"missing report":   `{"selected_ids": [1]}`,
		"missing ids":      `{"report": {"strategy": "x"}}`,
		"ids wrong type":   `{"report": {}, "selected_ids": "1,2"}`,
		"truncated object": `{"report": {"strategy": "x"`,
	} {
		_, err := generation.DecodeSuggestion(raw)
		assert.True(t, generation.IsSchemaError(err), "%s: err = %v", name, err)
	}
}

func TestDecodeReview(t *testing.T) {
	r, err := generation.DecodeReview(`{"score": 83.6, "summary": "Solid <i>balance</i>", "strengths": ["pivots"], "weaknesses": [], "suggestions": ["add a cleric"]}`)
	require.NoError(t, err)
	assert.Equal(t, 84, r.Score)
	assert.Equal(t, "A", r.Grade)
	assert.Equal(t, "Solid balance", r.Summary)

	r, err = generation.DecodeReview(`{"score": 140}`)
	require.NoError(t, err)
	assert.Equal(t, 100, r.Score)
	assert.Equal(t, "S", r.Grade)

	_, err = generation.DecodeReview(`{"summary": "no score"}`)
	assert.True(t, generation.IsSchemaError(err))
}

package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEstimateFencedBlock(t *testing.T) {
	resp := "```json\n{\"calories\":450,\"description\":\"Salad\",\"items\":[\"lettuce\",\"chicken\"]}\n```"

	est, err := parseEstimate(resp)
	require.NoError(t, err)
	assert.Equal(t, 450, est.Calories)
	assert.Equal(t, "Salad", est.Description)
	assert.Equal(t, []string{"lettuce", "chicken"}, est.Items)
	assert.Equal(t, 0.0, est.ProteinG)
	assert.Equal(t, 0.0, est.CarbsG)
	assert.Equal(t, 0.0, est.FatG)
}

func TestParseEstimateBareJSON(t *testing.T) {
	resp := `{"calories": 612.4, "description": "Pasta", "items": ["pasta"], "protein": 22, "carbs": 80, "fat": 18}`

	est, err := parseEstimate(resp)
	require.NoError(t, err)
	assert.Equal(t, 612, est.Calories)
	assert.Equal(t, 22.0, est.ProteinG)
	assert.Equal(t, 80.0, est.CarbsG)
	assert.Equal(t, 18.0, est.FatG)
}

func TestParseEstimateEmbeddedInProse(t *testing.T) {
	resp := `Sure! Here is the analysis you asked for: {"calories": 300, "description": "Toast {with} butter", "items": ["toast"]} Hope that helps.`

	est, err := parseEstimate(resp)
	require.NoError(t, err)
	assert.Equal(t, 300, est.Calories)
	assert.Equal(t, "Toast {with} butter", est.Description)
}

func TestParseEstimateDefaults(t *testing.T) {
	est, err := parseEstimate(`{"calories": 0}`)
	require.NoError(t, err)
	assert.Equal(t, 0, est.Calories)
	assert.Equal(t, defaultDescription, est.Description)
	assert.NotNil(t, est.Items)
	assert.Empty(t, est.Items)
}

func TestParseEstimateFailures(t *testing.T) {
	tests := []struct {
		name string
		resp string
	}{
		{"no JSON anywhere", "I couldn't identify any food in this image."},
		{"empty response", ""},
		{"missing calories", `{"description": "Soup", "items": ["soup"]}`},
		{"non-numeric calories", `{"calories": "lots"}`},
		{"negative calories", `{"calories": -200, "description": "Soup"}`},
		{"truncated JSON", `{"calories": 450, "description": "Sal`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseEstimate(tt.resp)
			assert.Error(t, err)
		})
	}
}

func TestParseEstimateClampsNegativeMacros(t *testing.T) {
	est, err := parseEstimate(`{"calories": 100, "protein": -5, "carbs": 10, "fat": -1}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, est.ProteinG)
	assert.Equal(t, 10.0, est.CarbsG)
	assert.Equal(t, 0.0, est.FatG)
}

func TestFirstJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, firstJSONObject(`text {"a":1} more`))
	assert.Equal(t, `{"a":{"b":2}}`, firstJSONObject(`{"a":{"b":2}} trailing`))
	assert.Equal(t, `{"s":"br}ace"}`, firstJSONObject(`{"s":"br}ace"}`))
	assert.Equal(t, "", firstJSONObject("no braces here"))
	assert.Equal(t, "", firstJSONObject("{unclosed"))
}

package vision

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strings"

	"mealsnap/internal/models"
)

// defaultDescription fills in when the model omits one.
const defaultDescription = "Food items detected"

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// rawEstimate mirrors the shape the prompt requests. Calories is a pointer so
// a missing field is distinguishable from an explicit zero.
type rawEstimate struct {
	Calories    *float64 `json:"calories"`
	Description string   `json:"description"`
	Items       []string `json:"items"`
	Protein     float64  `json:"protein"`
	Carbs       float64  `json:"carbs"`
	Fat         float64  `json:"fat"`
}

// parseEstimate extracts and validates JSON from a model response. The model
// is asked for bare JSON but routinely wraps it in a fenced code block or
// surrounds it with prose, so extraction tries, in order:
//  1. a fenced code block,
//  2. the first balanced {...} substring,
//  3. the whole response.
func parseEstimate(response string) (models.NutritionEstimate, error) {
	jsonText := strings.TrimSpace(response)
	if m := fencedJSON.FindStringSubmatch(response); m != nil {
		jsonText = m[1]
	} else if obj := firstJSONObject(response); obj != "" {
		jsonText = obj
	}

	var raw rawEstimate
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return models.NutritionEstimate{}, errors.New("no parseable JSON in model response")
	}
	if raw.Calories == nil {
		return models.NutritionEstimate{}, errors.New("model response has no calories field")
	}
	cal := *raw.Calories
	if math.IsNaN(cal) || math.IsInf(cal, 0) || cal < 0 {
		return models.NutritionEstimate{}, errors.New("model returned an invalid calorie value")
	}

	est := models.NutritionEstimate{
		Calories:    int(math.Round(cal)),
		Description: raw.Description,
		Items:       raw.Items,
		ProteinG:    clampNonNegative(raw.Protein),
		CarbsG:      clampNonNegative(raw.Carbs),
		FatG:        clampNonNegative(raw.Fat),
	}
	if est.Description == "" {
		est.Description = defaultDescription
	}
	if est.Items == nil {
		est.Items = []string{}
	}
	return est, nil
}

// firstJSONObject returns the first balanced top-level {...} substring,
// tracking string literals so braces inside values don't break the count.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func clampNonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

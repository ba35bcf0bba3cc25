// Package vision turns a food photograph into a structured nutrition
// estimate using an OpenAI-compatible vision model.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"mealsnap/internal/models"
)

// ErrAnalysisFailed covers every way an analysis can fail: transport errors,
// provider rejections and unparseable model output all normalize to it. The
// wrapped message is human-readable; callers decide the retry UX.
var ErrAnalysisFailed = errors.New("could not analyze the food image")

const analysisPrompt = `Analyze this food image and provide:
1. Total estimated calories for the entire plate/meal
2. A brief description of the food items visible
3. A list of individual food items
4. Estimated grams of protein, carbs and fat for the entire plate

Respond in the following JSON format only, no other text:
{
  "calories": <number>,
  "description": "<brief description>",
  "items": ["<item1>", "<item2>", ...],
  "protein": <number>,
  "carbs": <number>,
  "fat": <number>
}

Be as accurate as possible with calorie estimates based on typical portion sizes shown in the image.`

// completionClient is the slice of the OpenAI client the estimator uses.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Estimator struct {
	client completionClient
	model  string
}

// NewEstimator builds an estimator against the given provider. baseURL may be
// empty for the default OpenAI endpoint, or point at any OpenAI-compatible
// service (e.g. a Gemini compatibility endpoint).
func NewEstimator(apiKey, baseURL string) *Estimator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Estimator{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.GPT4o,
	}
}

func (e *Estimator) WithModel(model string) *Estimator {
	if model != "" {
		e.model = model
	}
	return e
}

// Estimate submits a JPEG image for analysis and returns the parsed estimate.
// One round trip, no retries; the model is non-deterministic, so repeated
// calls on the same image may differ and results must not be cached.
func (e *Estimator) Estimate(ctx context.Context, imageJPEG []byte) (models.NutritionEstimate, error) {
	if len(imageJPEG) == 0 {
		return models.NutritionEstimate{}, fmt.Errorf("%w: empty image", ErrAnalysisFailed)
	}

	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageJPEG)

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: analysisPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURI, Detail: openai.ImageURLDetailAuto},
					},
				},
			},
		},
		MaxTokens:   600,
		Temperature: 0.2,
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return models.NutritionEstimate{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	if len(resp.Choices) == 0 {
		return models.NutritionEstimate{}, fmt.Errorf("%w: empty response from model", ErrAnalysisFailed)
	}

	est, err := parseEstimate(resp.Choices[0].Message.Content)
	if err != nil {
		return models.NutritionEstimate{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	return est, nil
}

package collab

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/crimson-sun/triage/internal/model"
)

// DefaultAnthropicModel is a small, fast model suited to short extractive answers.
const DefaultAnthropicModel = "claude-haiku-4-5"

const answerPrompt = `Answer the question using only the passage below.
Reply with a short phrase copied or closely paraphrased from the passage.
If the passage does not answer the question, reply with exactly: none

Question: %s

Passage:
%s`

// AnthropicAnswerer answers questions with the Anthropic Messages API.
// Confidence is always reported as 1.0.
type AnthropicAnswerer struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicAnswerer creates an answerer. An empty modelName selects
// DefaultAnthropicModel.
func NewAnthropicAnswerer(apiKey, modelName string, opts ...option.RequestOption) *AnthropicAnswerer {
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &AnthropicAnswerer{client: &client, model: modelName}
}

func (a *AnthropicAnswerer) Answer(ctx context.Context, question, passage string) (model.Answer, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf(answerPrompt, question, passage))),
		},
	})
	if err != nil {
		return model.Answer{}, fmt.Errorf("collab: anthropic answer: %w: %w", model.ErrCollaborator, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return model.Answer{Text: strings.TrimSpace(text.String()), Confidence: 1.0}, nil
}

package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
)

// Streamer is implemented by clients that can deliver a response
// incrementally. Each chunk is passed to fn in order; a non-nil return from
// fn aborts the stream.
type Streamer interface {
	GenerateStream(ctx context.Context, systemPrompt, userPrompt string, opts Options, fn func(chunk string) error) error
}

// GenerateStream streams a response chunk by chunk.
func (c *GeminiClient) GenerateStream(ctx context.Context, systemPrompt, userPrompt string, opts Options, fn func(chunk string) error) error {
	tier := opts.Tier
	if tier == "" {
		tier = TierStandard
	}
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return fmt.Errorf("no model configured for tier %s", tier)
	}

	model := c.client.GenerativeModel(modelName)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = 0.7 // conversational default
	}
	model.SetTemperature(temperature)
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxOutputTokens)
	}

	iter := model.GenerateContentStream(ctx, genai.Text(userPrompt))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to stream content: %w", err)
		}
		text, err := extractTextFromResponse(resp)
		if err != nil {
			continue // chunks without text parts are skipped
		}
		if err := fn(text); err != nil {
			return err
		}
	}
}

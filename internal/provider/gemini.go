package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/reimagine/reimagine/internal/model"
)

// GeminiConfig holds Gemini client configuration.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini implements ImageEditor using the Google Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini-backed ImageEditor.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: missing API key")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini: missing model name")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Edit sends the image and instruction to the model and returns the edited
// image. The model is asked for image output but may answer with text only
// (e.g. a safety refusal); that surfaces as ErrTextOnlyResponse.
func (g *Gemini) Edit(ctx context.Context, image []byte, mediaType, instruction string) (*model.EditResult, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mediaType, Data: image}},
				{Text: instruction},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	result, refusal := extractImage(resp)
	if result != nil {
		return result, nil
	}

	if refusal != "" {
		g.logger.Warn("model answered with text instead of an image",
			slog.String("model", g.model),
			slog.String("text_preview", preview(refusal, 200)),
		)
		return nil, fmt.Errorf("%w: %s", ErrTextOnlyResponse, preview(refusal, 500))
	}

	return nil, ErrEmptyResponse
}

// extractImage picks the first inline image part out of the response and
// collects any text parts as a potential refusal message.
func extractImage(resp *genai.GenerateContentResponse) (*model.EditResult, string) {
	if resp == nil {
		return nil, ""
	}

	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &model.EditResult{
					Image:     part.InlineData.Data,
					MediaType: part.InlineData.MIMEType,
				}, ""
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}

	return nil, strings.TrimSpace(text.String())
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package aiprovider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"planforge/core"
)

// OpenAIName is the registry name of the OpenAI-compatible provider.
const OpenAIName = "openai"

// OpenAIProvider implements Provider against any OpenAI-compatible API
// (api.openai.com or a self-hosted compatible endpoint).
//
// This molecule handles:
//   - vision requests via multi-content chat messages (text + image part)
//   - text and material-suggestion requests via chat completions
//   - per-call timeout enforcement and error classification
//
// Thread Safety: safe for concurrent use; the underlying client pools
// connections.
type OpenAIProvider struct {
	client      *openai.Client
	visionModel string
	textModel   string
	timeout     time.Duration
}

// NewOpenAIProvider creates the OpenAI-backed provider from configuration.
//
// Returns an error if no API key is configured; callers typically skip
// registration in that case and the pipeline runs against the offline
// provider instead.
func NewOpenAIProvider(cfg *core.Config) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("aiprovider: config cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, core.ErrMissingAuth(OpenAIName)
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.VisionLLMURL != "" {
		clientConfig.BaseURL = cfg.VisionLLMURL
	} else if cfg.TextLLMURL != "" {
		clientConfig.BaseURL = cfg.TextLLMURL
	}
	clientConfig.HTTPClient = core.GetHTTPClient(cfg, cfg.AITimeout)

	timeout := cfg.AITimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientConfig),
		visionModel: cfg.OpenAIVisionModel,
		textModel:   cfg.OpenAITextModel,
		timeout:     timeout,
	}, nil
}

// Name returns the registry name.
func (p *OpenAIProvider) Name() string {
	return OpenAIName
}

// Capabilities returns the supported operations. Model generation is not
// offered by OpenAI-compatible chat endpoints.
func (p *OpenAIProvider) Capabilities() CapabilitySet {
	return NewCapabilitySet(
		CapabilityVisionAnalysis,
		CapabilityTextGeneration,
		CapabilityMaterialSuggestion,
	)
}

// IsAvailable probes the backend by listing models with a short timeout.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.client.ListModels(probeCtx)
	return err == nil
}

// AnalyzeImage sends the image and prompt as a multi-content vision message.
// The image travels inline as a data URL so no upload staging is needed.
func (p *OpenAIProvider) AnalyzeImage(ctx context.Context, req ImageAnalysisRequest) (*VisionResult, error) {
	if len(req.ImageData) == 0 {
		return nil, NewError(OpenAIName, CategoryConfig, "image data cannot be empty")
	}
	if req.Prompt == "" {
		return nil, NewError(OpenAIName, CategoryConfig, "prompt cannot be empty")
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		req.MimeType, base64.StdEncoding.EncodeToString(req.ImageData))

	chatReq := openai.ChatCompletionRequest{
		Model: p.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: req.Prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(callCtx, chatReq)
	if err != nil {
		return nil, Classify(OpenAIName, err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewError(OpenAIName, CategoryNetwork, "provider returned no choices")
	}

	return &VisionResult{
		Content: resp.Choices[0].Message.Content,
		Meta: Meta{
			Model:          resp.Model,
			Provider:       OpenAIName,
			ProcessingTime: time.Since(start),
			TokensUsed:     resp.Usage.TotalTokens,
		},
	}, nil
}

// GenerateText runs a plain chat completion.
func (p *OpenAIProvider) GenerateText(ctx context.Context, req TextRequest) (*TextResult, error) {
	if req.Prompt == "" {
		return nil, NewError(OpenAIName, CategoryConfig, "prompt cannot be empty")
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: p.textModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(callCtx, chatReq)
	if err != nil {
		return nil, Classify(OpenAIName, err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewError(OpenAIName, CategoryNetwork, "provider returned no choices")
	}

	return &TextResult{
		Content: resp.Choices[0].Message.Content,
		Meta: Meta{
			Model:          resp.Model,
			Provider:       OpenAIName,
			ProcessingTime: time.Since(start),
			TokensUsed:     resp.Usage.TotalTokens,
		},
	}, nil
}

// AnalyzeMaterials asks the text model for section/material pairings as a
// JSON array and parses the response leniently.
func (p *OpenAIProvider) AnalyzeMaterials(ctx context.Context, req MaterialAnalysisRequest) (*MaterialResult, error) {
	if len(req.SectionNames) == 0 {
		return nil, NewError(OpenAIName, CategoryConfig, "section names cannot be empty")
	}

	textResult, err := p.GenerateText(ctx, TextRequest{
		Prompt:      buildMaterialPrompt(req),
		Temperature: 0.2,
		MaxTokens:   600,
	})
	if err != nil {
		return nil, err
	}

	suggestions := parseMaterialSuggestions(textResult.Content)
	return &MaterialResult{
		Suggestions: suggestions,
		Meta:        textResult.Meta,
	}, nil
}

// Generate3DModel is not advertised by this provider.
func (p *OpenAIProvider) Generate3DModel(ctx context.Context, req ModelGenerationRequest) (*ModelGenerationResult, error) {
	return nil, NewError(OpenAIName, CategoryModelUnavailable,
		"model generation is not supported by the OpenAI provider")
}

// buildMaterialPrompt renders the material suggestion instruction.
func buildMaterialPrompt(req MaterialAnalysisRequest) string {
	var b strings.Builder
	b.WriteString("Suggest one material for each building section below.\n")
	if req.Style != "" {
		b.WriteString("Preferred style: " + req.Style + "\n")
	}
	b.WriteString("Sections: " + strings.Join(req.SectionNames, ", ") + "\n")
	b.WriteString("Available materials: " + strings.Join(req.AvailableMaterials, ", ") + "\n")
	b.WriteString(`Respond with only a JSON array of objects with keys "section", "material", "reason".`)
	return b.String()
}

// parseMaterialSuggestions extracts a JSON array of suggestions from a
// possibly chatty model response. Returns nil when nothing parseable is
// found; the caller treats that as "no signal".
func parseMaterialSuggestions(content string) []MaterialSuggestion {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end <= start {
		return nil
	}

	var suggestions []MaterialSuggestion
	if err := json.Unmarshal([]byte(content[start:end+1]), &suggestions); err != nil {
		return nil
	}

	// Drop entries missing either key; partial rows are unusable.
	valid := suggestions[:0]
	for _, s := range suggestions {
		if s.Section != "" && s.MaterialName != "" {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	return valid
}

// Ensure OpenAIProvider implements Provider at compile time.
var _ Provider = (*OpenAIProvider)(nil)

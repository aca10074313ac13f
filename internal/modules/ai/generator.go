package ai

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"strings"

	"github.com/accessmap/gateway/internal/config"
	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

const (
	providerOpenAI           = "openai"
	providerOpenAICompatible = "openai-compatible"
	providerAnthropic        = "anthropic"

	defaultMaxOutputTokens = 300
)

var (
	// ErrNotConfigured is returned by Generate when no API key was provided.
	ErrNotConfigured = errors.New("AI provider api key is empty")
	errEmptyResponse = errors.New("empty response from AI")
)

// Generator sends a single-turn prompt to the configured provider.
type Generator struct {
	provider        string
	configured      bool
	maxOutputTokens int
	openai          openaiclient.Client
	anthropic       anthropicclient.Client
}

// NewGenerator builds a provider client from cfg. A missing API key is not an
// error here; every Generate call reports ErrNotConfigured instead so the rest
// of the gateway can still start.
func NewGenerator(cfg config.AIRuntimeConfig) (*Generator, error) {
	g := &Generator{
		provider:        normalizeProviderType(cfg.Type),
		maxOutputTokens: cfg.MaxOutputTokens,
	}
	if g.maxOutputTokens <= 0 {
		g.maxOutputTokens = defaultMaxOutputTokens
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	endpoint := strings.TrimSpace(cfg.Endpoint)
	g.configured = apiKey != ""

	switch g.provider {
	case providerAnthropic:
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}
		g.anthropic = anthropicclient.NewClient(opts...)
	case "", providerOpenAI, providerOpenAICompatible, "openaicompatible":
		g.provider = providerOpenAI
		opts := []openaioption.RequestOption{
			openaioption.WithAPIKey(apiKey),
			openaioption.WithMaxRetries(0),
		}
		if normalized := normalizeOpenAIBaseURL(endpoint); normalized != "" {
			opts = append(opts, openaioption.WithBaseURL(normalized))
		}
		g.openai = openaiclient.NewClient(opts...)
	default:
		return nil, fmt.Errorf("unsupported AI provider type %q", cfg.Type)
	}
	return g, nil
}

// Generate returns the text the model produced for prompt. An all-whitespace
// answer is an error.
func (g *Generator) Generate(ctx context.Context, prompt, model string) (string, error) {
	if !g.configured {
		return "", ErrNotConfigured
	}
	lm, err := g.languageModel(model)
	if err != nil {
		return "", err
	}

	resp, err := jetai.GenerateText(
		ctx,
		buildPromptMessages(prompt),
		jetai.WithModel(lm),
		jetai.WithMaxOutputTokens(g.maxOutputTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", g.provider, err)
	}
	return extractTextFromAIResponse(resp)
}

func (g *Generator) languageModel(modelID string) (jetapi.LanguageModel, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, errors.New("AI model id is empty")
	}
	if g.provider == providerAnthropic {
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(g.anthropic)), nil
	}
	return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(g.openai)), nil
}

func buildPromptMessages(prompt string) []jetapi.Message {
	return []jetapi.Message{
		&jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)},
	}
}

func extractTextFromAIResponse(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errEmptyResponse
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

// normalizeOpenAIBaseURL makes sure an OpenAI-compatible endpoint ends in /v1.
func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		if path == "" {
			path = "/v1"
		} else {
			path += "/v1"
		}
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

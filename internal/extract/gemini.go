package extract

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// GeminiExtractor implements Extractor and Matcher using schema-constrained
// Gemini completions. Both calls are treated as non-deterministic: a failed
// call is reported, never silently retried with mutated inputs.
type GeminiExtractor struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

// NewGeminiExtractor constructs a Gemini-backed extractor. The API key
// comes from the secret bundle loaded at startup; nothing here reads
// environment state.
func NewGeminiExtractor(ctx context.Context, apiKey, model string, logger zerolog.Logger) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiExtractor: create genai client: %w", err)
	}

	return &GeminiExtractor{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "extract_gemini").Logger(),
	}, nil
}

var factSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"amount":   {Type: genai.TypeNumber, Description: "Positive purchase amount"},
		"merchant": {Type: genai.TypeString, Description: "Merchant or payee name"},
	},
	Required: []string{"amount", "merchant"},
}

var payeeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"payee": {Type: genai.TypeString, Description: "Resolved payee name"},
	},
	Required: []string{"payee"},
}

// Extract sends the alert text to the model with a fixed response schema
// and decodes the single {amount, merchant} fact it returns.
func (g *GeminiExtractor) Extract(ctx context.Context, in Input) (*Fact, error) {
	raw, err := g.generate(ctx, buildExtractionPrompt(in), in.Text, factSchema)
	if err != nil {
		return nil, err
	}

	fact, err := decodeFact(raw)
	if err != nil {
		return nil, err
	}

	g.logger.Debug().
		Str("merchant", fact.Merchant).
		Str("amount", fact.Amount.String()).
		Msg("Extracted fact from alert")

	return fact, nil
}

// MatchPayee asks the model to reconcile the merchant against the
// candidate payee list. Exactly one name comes back.
func (g *GeminiExtractor) MatchPayee(ctx context.Context, merchant string, payees []string) (string, error) {
	raw, err := g.generate(ctx, buildMatchPrompt(payees), merchant, payeeSchema)
	if err != nil {
		return "", err
	}

	payee, err := decodePayee(raw)
	if err != nil {
		return "", err
	}

	g.logger.Debug().
		Str("merchant", merchant).
		Str("payee", payee).
		Msg("Reconciled merchant to payee")

	return payee, nil
}

func (g *GeminiExtractor) generate(ctx context.Context, system, user string, schema *genai.Schema) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: user}},
		},
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("extract: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrNoParse
	}

	return text, nil
}

var (
	_ Extractor = (*GeminiExtractor)(nil)
	_ Matcher   = (*GeminiExtractor)(nil)
)

package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"pdf-reconciliation-service/pkg/logger"
)

// DefaultVisionModel is the generative model used for document reading.
const DefaultVisionModel = "gemini-2.0-flash"

// minCallInterval spaces out consecutive requests to stay under the
// provider's per-minute quota.
const minCallInterval = 4 * time.Second

const visionPrompt = `You are reading a Brazilian financial document: an invoice (boleto) or a payment receipt.
Return ONLY a JSON object, no markdown, no explanations, with exactly these keys:
{"amount": "<total monetary amount, e.g. 1.234,56, or empty string>",
 "reference_code": "<the long numeric billing code (linha digitavel), digits and separators, or empty string>",
 "entity_name": "<the payee or payer name, or empty string>"}`

// GeminiClient is the production VisionClient backed by the Gemini API.
type GeminiClient struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	log      logger.Logger
	lastCall time.Time
}

// NewGeminiClient creates a vision client. The model name falls back to
// DefaultVisionModel when empty.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vision API key is required")
	}
	if modelName == "" {
		modelName = DefaultVisionModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  client.GenerativeModel(modelName),
		log:    logger.GetGlobalLogger().WithComponent("gemini_client"),
	}, nil
}

// ExtractFields sends a rendered page to the model and parses its JSON
// answer. Calls are paced sequentially; a new request waits out the
// remainder of minCallInterval since the previous one.
func (g *GeminiClient) ExtractFields(ctx context.Context, png []byte) (*VisionFields, error) {
	if err := g.pace(ctx); err != nil {
		return nil, err
	}

	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData("png", png),
		genai.Text(visionPrompt))
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("vision service returned an empty response")
	}

	fields, err := parseVisionResponse(text)
	if err != nil {
		g.log.WithError(err).WithField("response", truncate(text, 200)).
			Warn("Unparseable vision response")
		return nil, err
	}
	return fields, nil
}

// pace blocks until minCallInterval has passed since the last request.
// The extraction run is single-threaded, so a plain timestamp suffices.
func (g *GeminiClient) pace(ctx context.Context) error {
	if !g.lastCall.IsZero() {
		if wait := minCallInterval - time.Since(g.lastCall); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	g.lastCall = time.Now()
	return nil
}

// Close releases the underlying API client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// parseVisionResponse decodes the model's JSON answer, tolerating the
// markdown code fences the model sometimes wraps it in.
func parseVisionResponse(text string) (*VisionFields, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var fields VisionFields
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	return &fields, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

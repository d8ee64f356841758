package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/pantrywatch/pantry-api/internal/models"
)

const scanTimeout = 20 * time.Second

// OpenAIScanner reads label text with a chat completion in JSON mode.
type OpenAIScanner struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIScanner creates an OpenAI-backed label scanner
func NewOpenAIScanner(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIScanner {
	if model == "" {
		model = "gpt-4o-mini"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: scanTimeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIScanner{
		client:    openai.NewClient(opts...),
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

var _ Scanner = (*OpenAIScanner)(nil)

// ScanLabel extracts a structured guess from label text
func (s *OpenAIScanner) ScanLabel(ctx context.Context, labelText string) (*LabelGuess, error) {
	systemMsg := `You read grocery product labels. Extract the product name, its food category, and the expiry date from the label text.

Valid categories: Fruits, Vegetables, Dairy, Meat, Grains, Beverages, Snacks, Frozen, Pantry, Other

Respond with ONLY valid JSON in this exact format:
{
  "productName": "string",
  "category": "one of the valid categories",
  "expiryDate": "YYYY-MM-DD or empty string if not present"
}`

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMsg),
			openai.UserMessage("Label text:\n" + labelText),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	start := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scan label: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if s.logger != nil && s.debugMode {
		s.logger.Debug("llm_api_response",
			zap.String("operation", "scan_label"),
			zap.Int("response_length", len(content)),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()))
	}

	guess := &LabelGuess{}
	raw := content
	if err := json.Unmarshal([]byte(raw), guess); err != nil {
		begin := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if begin != -1 && end > begin {
			raw = raw[begin : end+1]
		}
		if err := json.Unmarshal([]byte(raw), guess); err != nil {
			return nil, fmt.Errorf("failed to parse scan response: %w", err)
		}
	}

	if !guess.Category.IsValid() {
		guess.Category = models.CategoryOther
	}
	return guess, nil
}

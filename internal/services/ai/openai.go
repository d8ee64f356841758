package ai

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

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIGenerator implements ContentGenerator using OpenAI's API
type OpenAIGenerator struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIGenerator creates a new OpenAI generator
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	return NewOpenAIGeneratorWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIGeneratorWithLogger creates a new OpenAI generator with logger support
func NewOpenAIGeneratorWithLogger(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIGenerator {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIGenerator{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// complete sends a JSON-mode chat completion and returns the raw content.
func (g *OpenAIGenerator) complete(ctx context.Context, operation, systemMsg, userMsg string, maxTokens int64) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemMsg),
		openai.UserMessage(userMsg),
	}

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if maxTokens > 0 {
		req.MaxTokens = openai.Int(maxTokens)
	}

	if g.logger != nil && g.debugMode {
		g.logger.Debug("llm_api_request",
			zap.String("operation", operation),
			zap.String("model", g.model),
			zap.Int("prompt_length", len(systemMsg)+len(userMsg)),
			zap.String("prompt_preview", SanitizePrompt(userMsg, true)),
		)
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if g.logger != nil && g.debugMode {
			g.logger.Debug("llm_api_error",
				zap.String("operation", operation),
				zap.String("model", g.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("%s: %w", operation, apiErr)
		}
		return "", fmt.Errorf("%s: %w", operation, err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if g.logger != nil && g.debugMode {
		g.logger.Debug("llm_api_response",
			zap.String("operation", operation),
			zap.String("model", g.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// parseJSON unmarshals model output into out, trimming any prose around the
// outermost JSON object when the first attempt fails.
func parseJSON(content string, out any) error {
	raw := content
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start != -1 && end != -1 && end > start {
			raw = raw[start : end+1]
		}
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func describeInventory(items []*models.GroceryItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s (%d %s)", item.ProductName, item.Quantity, item.Category))
	}
	return strings.Join(parts, ", ")
}

// GenerateRecipe creates a recipe for the query, preferring available items
func (g *OpenAIGenerator) GenerateRecipe(ctx context.Context, query string, available []*models.GroceryItem) (*Recipe, error) {
	systemMsg := fmt.Sprintf(`You are a professional chef and nutritionist. Create a detailed recipe based on the user's query and available ingredients.

Available Ingredients: %s

Create a recipe that:
1. Uses the available ingredients as much as possible
2. Is practical and easy to follow
3. Includes detailed cooking instructions
4. Suggests substitutions if needed

Respond with ONLY valid JSON in this exact format:
{
  "title": "Recipe Name",
  "type": "Main Course/Appetizer/Dessert/etc",
  "ingredients": [
    {"name": "Ingredient Name", "amount": "Quantity", "expiring": true/false}
  ],
  "steps": ["Step 1", "Step 2", "Step 3"],
  "tips": "Helpful cooking tips"
}

IMPORTANT:
- Mark ingredients as "expiring": true if they are in the available items list
- Use realistic quantities and measurements
- Provide 4-6 detailed cooking steps
- Respond with ONLY the JSON, no additional text`, describeInventory(available))

	content, err := g.complete(ctx, "generate_recipe", systemMsg, "Create a recipe for: "+query, 1500)
	if err != nil {
		return nil, err
	}

	recipe := &Recipe{}
	if err := parseJSON(content, recipe); err != nil {
		return nil, err
	}
	return recipe, nil
}

// NutritionFacts estimates nutrition per 100g of the prepared recipe
func (g *OpenAIGenerator) NutritionFacts(ctx context.Context, recipe *Recipe) (*NutritionFacts, error) {
	ingredients := make([]string, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		ingredients = append(ingredients, fmt.Sprintf("%s (%s)", ing.Name, ing.Amount))
	}

	systemMsg := fmt.Sprintf(`You are a nutrition expert. Analyze the given recipe and provide accurate nutrition facts per 100 grams of the final dish.

Recipe Details:
Title: %s
Type: %s
Ingredients: %s
Instructions: %s

Calculate and provide nutrition facts for 100 grams of the final prepared dish. Consider cooking methods, water loss, and ingredient interactions.

Respond with ONLY valid JSON in this exact format:
{
  "calories": "number (kcal per 100g)",
  "protein": "number (grams per 100g)",
  "carbs": "number (grams per 100g)",
  "fats": "number (grams per 100g)",
  "fiber": "number (grams per 100g)",
  "vitamins": "string (key vitamins present)"
}

IMPORTANT:
- Provide realistic, scientifically accurate values
- Round numbers to 1 decimal place
- For vitamins, list 2-3 key vitamins (e.g., "Vitamin C, B6, Folate")
- Respond with ONLY the JSON, no additional text`,
		recipe.Title, recipe.Type, strings.Join(ingredients, ", "), strings.Join(recipe.Steps, " "))

	content, err := g.complete(ctx, "nutrition_facts", systemMsg,
		"Analyze this recipe and provide nutrition facts per 100g: "+recipe.Title, 500)
	if err != nil {
		return nil, err
	}

	facts := &NutritionFacts{}
	if err := parseJSON(content, facts); err != nil {
		return nil, err
	}
	return facts, nil
}

func formatMetric(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%g", *v)
}

// HealthAnalysis assesses health risk from metrics and the current inventory
func (g *OpenAIGenerator) HealthAnalysis(ctx context.Context, metrics *models.HealthMetrics, items []*models.GroceryItem) (*HealthAnalysis, error) {
	var active []*models.GroceryItem
	for _, item := range items {
		if item.Status == models.StatusActive {
			active = append(active, item)
		}
	}

	systemMsg := fmt.Sprintf(`You are a medical AI assistant specializing in nutrition and health risk assessment. Analyze the provided health metrics and grocery inventory to provide personalized health recommendations.

Health Metrics:
- Blood Sugar: %s mg/dL
- Cholesterol: %s mg/dL
- Blood Pressure: %s/%s mmHg
- Weight: %s lbs
- Height: %s inches

Available Grocery Items: %s

Provide a comprehensive health risk analysis with:
1. Risk level assessment (Low/Medium/High)
2. Specific health risks identified
3. General health recommendations
4. Items to avoid from the grocery list (2-3 items with reasons)
5. Better alternatives (2-3 items, can be outside the inventory, with reasons)

Respond with ONLY valid JSON in this exact format:
{
  "riskLevel": "Low/Medium/High",
  "risks": ["Risk 1", "Risk 2", "Risk 3"],
  "recommendations": ["Recommendation 1", "Recommendation 2", "Recommendation 3"],
  "avoidItems": ["Item 1: Reason", "Item 2: Reason", "Item 3: Reason"],
  "preferredItems": ["Item 1: Reason", "Item 2: Reason", "Item 3: Reason"]
}

IMPORTANT:
- Base recommendations on medical guidelines
- Provide specific, actionable advice
- Respond with ONLY the JSON, no additional text`,
		formatMetric(metrics.SugarLevel),
		formatMetric(metrics.Cholesterol),
		formatMetric(metrics.BloodPressureSystolic),
		formatMetric(metrics.BloodPressureDiastolic),
		formatMetric(metrics.Weight),
		formatMetric(metrics.Height),
		describeInventory(active))

	content, err := g.complete(ctx, "health_analysis", systemMsg,
		"Analyze my health data and provide recommendations based on my grocery inventory.", 1000)
	if err != nil {
		return nil, err
	}

	analysis := &HealthAnalysis{}
	if err := parseJSON(content, analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

// ExtractHealthMetrics pulls health metrics out of report text
func (g *OpenAIGenerator) ExtractHealthMetrics(ctx context.Context, reportText string) (*models.HealthMetrics, error) {
	systemMsg := fmt.Sprintf(`You are a medical data extraction specialist. Extract health metrics from the provided text content.

Text Content: %s

Look for and extract the following health metrics:
- Blood sugar/glucose levels (mg/dL)
- Cholesterol levels (mg/dL)
- Blood pressure (systolic/diastolic in mmHg)
- Weight (convert kg to lbs if needed)
- Height (convert cm to inches if needed)

Respond with ONLY valid JSON in this exact format:
{
  "sugarLevel": number or null,
  "cholesterol": number or null,
  "bloodPressureSystolic": number or null,
  "bloodPressureDiastolic": number or null,
  "weight": number or null,
  "height": number or null
}

IMPORTANT:
- Convert units: 1 kg = 2.2 lbs, 1 cm = 0.39 inches
- Return null for any metric not found
- Use only numeric values
- Respond with ONLY the JSON, no additional text`, TruncateString(reportText, MaxDebugContentLength))

	content, err := g.complete(ctx, "extract_health_metrics", systemMsg,
		"Extract health metrics from this medical report text.", 500)
	if err != nil {
		return nil, err
	}

	metrics := &models.HealthMetrics{}
	if err := parseJSON(content, metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// HealthFacts generates facts about the given topic
func (g *OpenAIGenerator) HealthFacts(ctx context.Context, topic string, count int) ([]HealthFact, error) {
	systemMsg := fmt.Sprintf(`You are a sustainability and nutrition expert providing accurate, evidence-based facts about %s.
Generate %d compelling facts that are:
1. Statistically accurate and well-researched
2. Include specific numbers, percentages, or data points
3. Focus on food waste, nutrition, sustainable eating, and grocery management
4. Include credible sources (UN, USDA, WHO, environmental organizations, etc.)
5. Highlight the impact on health, environment, and economy

Format your response as a JSON object:
{
  "facts": [
    {"fact": "The main fact/statistic", "source": "Credible source", "impact": "Brief impact description"}
  ]
}

IMPORTANT: Respond with ONLY valid JSON. Do not include any text before or after the JSON.`, topic, count)

	content, err := g.complete(ctx, "health_facts", systemMsg,
		fmt.Sprintf("Generate %d facts about %s with global health impact focus.", count, topic), 1000)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Facts []HealthFact `json:"facts"`
	}
	if err := parseJSON(content, &payload); err != nil {
		return nil, err
	}
	if len(payload.Facts) == 0 {
		return nil, errors.New("no facts in response")
	}
	return payload.Facts, nil
}

// WastedAmounts prices expired items for the waste report
func (g *OpenAIGenerator) WastedAmounts(ctx context.Context, expired []*models.GroceryItem) ([]WastedItem, error) {
	described, err := json.Marshal(expired)
	if err != nil {
		return nil, fmt.Errorf("marshal expired items: %w", err)
	}

	systemMsg := `You are a pricing expert for grocery items. Calculate the current market value for expired grocery items based on typical grocery store pricing.

For each item, provide:
1. Current market price per unit
2. Total wasted amount (price x quantity)

Price ranges to consider:
- Fresh produce: $0.50-$4.00 per unit
- Dairy products: $1.50-$6.00 per unit
- Meat/Protein: $3.00-$12.00 per unit
- Grains/Pantry: $0.75-$5.00 per unit
- Beverages: $1.00-$4.00 per unit

Respond with ONLY valid JSON in this exact format:
{
  "items": [
    {
      "productName": "item name",
      "category": "category",
      "quantity": number,
      "pricePerUnit": number (in USD),
      "totalWastedAmount": number (in USD, price x quantity)
    }
  ]
}

IMPORTANT:
- Round to 2 decimal places
- Be realistic about grocery store pricing
- Respond with ONLY the JSON, no additional text`

	content, err := g.complete(ctx, "wasted_amounts", systemMsg,
		"Calculate wasted amounts for these expired items: "+string(described), 1000)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Items []WastedItem `json:"items"`
	}
	if err := parseJSON(content, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

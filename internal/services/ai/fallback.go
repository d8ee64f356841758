package ai

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/pantrywatch/pantry-api/internal/models"
)

// FallbackGenerator produces deterministic results without calling any
// external API. It backs the OpenAI generator so annotation endpoints
// always return something useful.
type FallbackGenerator struct{}

// NewFallbackGenerator creates a fallback generator
func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{}
}

var _ ContentGenerator = (*FallbackGenerator)(nil)

func inventoryHas(items []*models.GroceryItem, match func(*models.GroceryItem) bool) bool {
	for _, item := range items {
		if match(item) {
			return true
		}
	}
	return false
}

func nameContains(sub string) func(*models.GroceryItem) bool {
	return func(item *models.GroceryItem) bool {
		return strings.Contains(strings.ToLower(item.ProductName), sub)
	}
}

// GenerateRecipe returns a canned recipe matching the query, marking
// ingredients that exist in the available inventory as expiring.
func (f *FallbackGenerator) GenerateRecipe(ctx context.Context, query string, available []*models.GroceryItem) (*Recipe, error) {
	recipes := map[string]*Recipe{
		"chicken": {
			Title: "Simple Chicken Stir-Fry",
			Type:  "Main Course",
			Ingredients: []Ingredient{
				{Name: "Chicken", Amount: "1 lb, diced", Expiring: inventoryHas(available, nameContains("chicken"))},
				{Name: "Vegetables", Amount: "2 cups mixed", Expiring: inventoryHas(available, func(i *models.GroceryItem) bool { return i.Category == models.CategoryVegetables })},
				{Name: "Oil", Amount: "2 tbsp", Expiring: false},
				{Name: "Soy Sauce", Amount: "3 tbsp", Expiring: false},
			},
			Steps: []string{
				"Heat oil in a large pan over medium-high heat",
				"Add diced chicken and cook until golden brown",
				"Add vegetables and stir-fry for 3-4 minutes",
				"Add soy sauce and cook for another 2 minutes",
				"Serve hot over rice or noodles",
			},
			Tips: "Cut chicken into uniform pieces for even cooking",
		},
		"pasta": {
			Title: "Quick Pasta Delight",
			Type:  "Main Course",
			Ingredients: []Ingredient{
				{Name: "Pasta", Amount: "8 oz", Expiring: inventoryHas(available, nameContains("pasta"))},
				{Name: "Tomatoes", Amount: "2 medium, diced", Expiring: inventoryHas(available, nameContains("tomato"))},
				{Name: "Garlic", Amount: "3 cloves, minced", Expiring: inventoryHas(available, nameContains("garlic"))},
				{Name: "Olive Oil", Amount: "3 tbsp", Expiring: false},
			},
			Steps: []string{
				"Cook pasta according to package instructions",
				"Heat olive oil in a pan and saute garlic",
				"Add diced tomatoes and cook until soft",
				"Toss cooked pasta with the sauce",
				"Season with salt and pepper to taste",
			},
			Tips: "Reserve some pasta water to help the sauce stick better",
		},
		"salad": {
			Title: "Fresh Garden Salad",
			Type:  "Appetizer",
			Ingredients: []Ingredient{
				{Name: "Lettuce", Amount: "1 head, chopped", Expiring: inventoryHas(available, nameContains("lettuce"))},
				{Name: "Tomatoes", Amount: "2 medium, sliced", Expiring: inventoryHas(available, nameContains("tomato"))},
				{Name: "Cucumber", Amount: "1 medium, sliced", Expiring: inventoryHas(available, nameContains("cucumber"))},
				{Name: "Olive Oil", Amount: "2 tbsp", Expiring: false},
				{Name: "Lemon Juice", Amount: "1 tbsp", Expiring: false},
			},
			Steps: []string{
				"Wash and chop all vegetables",
				"Combine lettuce, tomatoes, and cucumber in a bowl",
				"Whisk together olive oil and lemon juice",
				"Drizzle dressing over salad and toss gently",
				"Serve immediately",
			},
			Tips: "Add dressing just before serving to keep vegetables crisp",
		},
	}

	queryLower := strings.ToLower(query)
	for key, recipe := range recipes {
		if strings.Contains(queryLower, key) {
			return recipe, nil
		}
	}
	return recipes["chicken"], nil
}

// NutritionFacts estimates nutrition from the recipe type alone
func (f *FallbackGenerator) NutritionFacts(ctx context.Context, recipe *Recipe) (*NutritionFacts, error) {
	facts := &NutritionFacts{
		Calories: "150-200",
		Protein:  "8-12",
		Carbs:    "20-30",
		Fats:     "5-8",
		Fiber:    "2-4",
		Vitamins: "Vitamin C, B6, Folate",
	}

	recipeType := strings.ToLower(recipe.Type)
	switch {
	case strings.Contains(recipeType, "dessert"):
		facts = &NutritionFacts{
			Calories: "300-400",
			Protein:  "4-6",
			Carbs:    "45-60",
			Fats:     "12-18",
			Fiber:    "1-2",
			Vitamins: "Vitamin A, C",
		}
	case strings.Contains(recipeType, "salad"):
		facts = &NutritionFacts{
			Calories: "80-120",
			Protein:  "3-5",
			Carbs:    "10-15",
			Fats:     "4-6",
			Fiber:    "3-5",
			Vitamins: "Vitamin A, C, K",
		}
	case strings.Contains(recipeType, "soup"):
		facts = &NutritionFacts{
			Calories: "100-150",
			Protein:  "6-10",
			Carbs:    "15-25",
			Fats:     "3-6",
			Fiber:    "2-4",
			Vitamins: "Vitamin A, C, B6",
		}
	}

	return facts, nil
}

// HealthAnalysis applies basic clinical thresholds to the stored metrics
func (f *FallbackGenerator) HealthAnalysis(ctx context.Context, metrics *models.HealthMetrics, items []*models.GroceryItem) (*HealthAnalysis, error) {
	var active []*models.GroceryItem
	for _, item := range items {
		if item.Status == models.StatusActive {
			active = append(active, item)
		}
	}

	riskLevel := "Low"
	var risks, recommendations []string

	if metrics.SugarLevel != nil {
		if *metrics.SugarLevel > 126 {
			riskLevel = "High"
			risks = append(risks, "High blood sugar levels detected")
			recommendations = append(recommendations, "Monitor blood sugar levels regularly")
		} else if *metrics.SugarLevel > 100 {
			riskLevel = "Medium"
			risks = append(risks, "Elevated blood sugar levels")
			recommendations = append(recommendations, "Consider reducing sugar intake")
		}
	}

	if metrics.Cholesterol != nil && *metrics.Cholesterol > 200 {
		riskLevel = "High"
		risks = append(risks, "High cholesterol levels")
		recommendations = append(recommendations, "Limit saturated fats and increase fiber intake")
	}

	highSystolic := metrics.BloodPressureSystolic != nil && *metrics.BloodPressureSystolic > 140
	highDiastolic := metrics.BloodPressureDiastolic != nil && *metrics.BloodPressureDiastolic > 90
	if highSystolic || highDiastolic {
		riskLevel = "High"
		risks = append(risks, "High blood pressure")
		recommendations = append(recommendations, "Reduce sodium intake and increase physical activity")
	}

	var avoidItems []string
	sugary := 0
	for _, item := range active {
		name := strings.ToLower(item.ProductName)
		if strings.Contains(name, "juice") || strings.Contains(name, "soda") || strings.Contains(name, "candy") {
			if sugary < 2 {
				avoidItems = append(avoidItems, item.ProductName+": High sugar content can affect blood sugar levels")
				sugary++
			}
		}
	}
	for _, item := range active {
		name := strings.ToLower(item.ProductName)
		if strings.Contains(name, "butter") || strings.Contains(name, "cheese") || strings.Contains(name, "cream") {
			avoidItems = append(avoidItems, item.ProductName+": High saturated fat content can affect cholesterol levels")
			break
		}
	}
	if len(avoidItems) > 3 {
		avoidItems = avoidItems[:3]
	}

	preferredItems := []string{
		"Leafy Greens: Low in calories and high in nutrients",
		"Whole Grains: High in fiber, helps manage blood sugar",
		"Lean Proteins: Essential for muscle health and satiety",
	}

	return &HealthAnalysis{
		RiskLevel:       riskLevel,
		Risks:           risks,
		Recommendations: recommendations,
		AvoidItems:      avoidItems,
		PreferredItems:  preferredItems,
	}, nil
}

var (
	glucosePattern     = regexp.MustCompile(`(?i)glucose[:\s]*(\d+(?:\.\d+)?)\s*mg/dl`)
	cholesterolPattern = regexp.MustCompile(`(?i)cholesterol[:\s]*(\d+(?:\.\d+)?)\s*mg/dl`)
	bpPattern          = regexp.MustCompile(`(?i)blood\s*pressure[:\s]*(\d+)/(\d+)\s*mmhg`)
	weightPattern      = regexp.MustCompile(`(?i)weight[:\s]*(\d+(?:\.\d+)?)\s*(?:lbs?|kg)`)
	heightPattern      = regexp.MustCompile(`(?i)height[:\s]*(\d+(?:\.\d+)?)\s*(?:inches?|cm)`)
)

func parseMetric(match []string, idx int) *float64 {
	if len(match) <= idx {
		return nil
	}
	v, err := strconv.ParseFloat(match[idx], 64)
	if err != nil {
		return nil
	}
	return &v
}

// ExtractHealthMetrics scans report text for common metric patterns
func (f *FallbackGenerator) ExtractHealthMetrics(ctx context.Context, reportText string) (*models.HealthMetrics, error) {
	metrics := &models.HealthMetrics{}

	metrics.SugarLevel = parseMetric(glucosePattern.FindStringSubmatch(reportText), 1)
	metrics.Cholesterol = parseMetric(cholesterolPattern.FindStringSubmatch(reportText), 1)
	if bp := bpPattern.FindStringSubmatch(reportText); bp != nil {
		metrics.BloodPressureSystolic = parseMetric(bp, 1)
		metrics.BloodPressureDiastolic = parseMetric(bp, 2)
	}
	metrics.Weight = parseMetric(weightPattern.FindStringSubmatch(reportText), 1)
	metrics.Height = parseMetric(heightPattern.FindStringSubmatch(reportText), 1)

	return metrics, nil
}

// HealthFacts returns a fixed set of food waste facts
func (f *FallbackGenerator) HealthFacts(ctx context.Context, topic string, count int) ([]HealthFact, error) {
	facts := []HealthFact{
		{
			Fact:   "1.3 billion tons of food is wasted globally each year, while 820 million people go hungry",
			Source: "United Nations Food and Agriculture Organization",
			Impact: "Global food security crisis",
		},
		{
			Fact:   "Food waste accounts for 8% of global greenhouse gas emissions, contributing to climate change",
			Source: "United Nations Environment Programme",
			Impact: "Environmental degradation",
		},
		{
			Fact:   "The average household wastes 30-40% of purchased food, costing families $1,500 annually",
			Source: "USDA Economic Research Service",
			Impact: "Economic burden on families",
		},
		{
			Fact:   "Proper meal planning and grocery management can reduce food waste by up to 50%",
			Source: "Harvard School of Public Health",
			Impact: "Sustainable living potential",
		},
		{
			Fact:   "Consuming expired or spoiled food leads to 48 million foodborne illnesses annually in the US alone",
			Source: "Centers for Disease Control and Prevention",
			Impact: "Public health risk",
		},
	}

	if count > 0 && count < len(facts) {
		facts = facts[:count]
	}
	return facts, nil
}

// WastedAmounts prices expired items by category
func (f *FallbackGenerator) WastedAmounts(ctx context.Context, expired []*models.GroceryItem) ([]WastedItem, error) {
	out := make([]WastedItem, 0, len(expired))
	for _, item := range expired {
		pricePerUnit := 2.50
		switch item.Category {
		case models.CategoryMeat:
			pricePerUnit = 6.00
		case models.CategoryDairy:
			pricePerUnit = 3.50
		case models.CategoryFruits, models.CategoryVegetables:
			pricePerUnit = 2.00
		case models.CategoryGrains, models.CategoryPantry:
			pricePerUnit = 2.75
		case models.CategoryBeverages:
			pricePerUnit = 2.25
		}

		out = append(out, WastedItem{
			ProductName:       item.ProductName,
			Category:          string(item.Category),
			Quantity:          item.Quantity,
			PricePerUnit:      pricePerUnit,
			TotalWastedAmount: float64(item.Quantity) * pricePerUnit,
		})
	}
	return out, nil
}

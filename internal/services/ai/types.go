package ai

// Ingredient is one line of a recipe's ingredient list. Expiring marks
// ingredients drawn from the household inventory.
type Ingredient struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Expiring bool   `json:"expiring"`
}

// Recipe is a generated recipe
type Recipe struct {
	Title       string       `json:"title"`
	Type        string       `json:"type"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []string     `json:"steps"`
	Tips        string       `json:"tips"`
}

// NutritionFacts describes a recipe per 100g of the prepared dish. Values
// are strings because estimates may be ranges like "150-200".
type NutritionFacts struct {
	Calories string `json:"calories"`
	Protein  string `json:"protein"`
	Carbs    string `json:"carbs"`
	Fats     string `json:"fats"`
	Fiber    string `json:"fiber"`
	Vitamins string `json:"vitamins"`
}

// HealthAnalysis is a risk assessment of the household's metrics against
// its current inventory.
type HealthAnalysis struct {
	RiskLevel       string   `json:"riskLevel"`
	Risks           []string `json:"risks"`
	Recommendations []string `json:"recommendations"`
	AvoidItems      []string `json:"avoidItems"`
	PreferredItems  []string `json:"preferredItems"`
}

// HealthFact is a single evidence-based fact about food waste or nutrition
type HealthFact struct {
	Fact   string `json:"fact"`
	Source string `json:"source"`
	Impact string `json:"impact"`
}

// WastedItem prices one expired item for the waste cost report
type WastedItem struct {
	ProductName       string  `json:"productName"`
	Category          string  `json:"category"`
	Quantity          int     `json:"quantity"`
	PricePerUnit      float64 `json:"pricePerUnit"`
	TotalWastedAmount float64 `json:"totalWastedAmount"`
}

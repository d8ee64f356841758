package scan

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pantrywatch/pantry-api/internal/expiry"
	"github.com/pantrywatch/pantry-api/internal/models"
)

// LabelGuess is what a scanner could read off a product label. Empty
// fields mean the scanner found nothing usable for them.
type LabelGuess struct {
	ProductName string          `json:"productName"`
	Category    models.Category `json:"category"`
	ExpiryDate  string          `json:"expiryDate"`
}

// Scanner extracts a label guess from OCR'd or typed label text.
type Scanner interface {
	ScanLabel(ctx context.Context, labelText string) (*LabelGuess, error)
}

// Service runs the primary scanner and falls back to the heuristic one
// when the primary is missing or fails.
type Service struct {
	primary  Scanner
	fallback *HeuristicScanner
	logger   *zap.Logger
}

// NewService creates a scan service. primary may be nil.
func NewService(primary Scanner, logger *zap.Logger) *Service {
	return &Service{
		primary:  primary,
		fallback: NewHeuristicScanner(),
		logger:   logger,
	}
}

// ScanLabel always returns a guess; heuristics answer when the primary fails.
func (s *Service) ScanLabel(ctx context.Context, labelText string) *LabelGuess {
	if s.primary != nil {
		guess, err := s.primary.ScanLabel(ctx, labelText)
		if err == nil {
			return guess
		}
		s.logger.Warn("label scan failed, using heuristics", zap.Error(err))
	}
	guess, _ := s.fallback.ScanLabel(ctx, labelText)
	return guess
}

// HeuristicScanner guesses label contents with regular expressions and
// keyword matching.
type HeuristicScanner struct{}

// NewHeuristicScanner creates a heuristic scanner
func NewHeuristicScanner() *HeuristicScanner {
	return &HeuristicScanner{}
}

var _ Scanner = (*HeuristicScanner)(nil)

var (
	isoDatePattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	dmyDatePattern = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)
	expiryLine     = regexp.MustCompile(`(?i)(?:exp(?:iry|ires)?|best\s*before|use\s*by)[:.\s]*(.+)`)
)

type categoryKeyword struct {
	keyword  string
	category models.Category
}

// Checked in order; the first keyword found in the label wins, so a label
// matching several keywords always maps to the same category.
var categoryKeywords = []categoryKeyword{
	{"milk", models.CategoryDairy},
	{"yogurt", models.CategoryDairy},
	{"cheese", models.CategoryDairy},
	{"butter", models.CategoryDairy},
	{"chicken", models.CategoryMeat},
	{"beef", models.CategoryMeat},
	{"pork", models.CategoryMeat},
	{"fish", models.CategoryMeat},
	{"apple", models.CategoryFruits},
	{"banana", models.CategoryFruits},
	{"orange", models.CategoryFruits},
	{"lettuce", models.CategoryVegetables},
	{"tomato", models.CategoryVegetables},
	{"carrot", models.CategoryVegetables},
	{"bread", models.CategoryGrains},
	{"pasta", models.CategoryGrains},
	{"rice", models.CategoryGrains},
	{"juice", models.CategoryBeverages},
	{"soda", models.CategoryBeverages},
	{"water", models.CategoryBeverages},
	{"chips", models.CategorySnacks},
	{"candy", models.CategorySnacks},
	{"frozen", models.CategoryFrozen},
}

// ScanLabel extracts a product name, category, and expiry date from label text
func (h *HeuristicScanner) ScanLabel(ctx context.Context, labelText string) (*LabelGuess, error) {
	guess := &LabelGuess{Category: models.CategoryOther}

	lines := strings.Split(labelText, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// First substantial line that is not an expiry marker is the name.
		if guess.ProductName == "" && !expiryLine.MatchString(line) {
			guess.ProductName = line
		}
	}

	lower := strings.ToLower(labelText)
	for _, kw := range categoryKeywords {
		if strings.Contains(lower, kw.keyword) {
			guess.Category = kw.category
			break
		}
	}

	guess.ExpiryDate = findDate(labelText)

	return guess, nil
}

func findDate(text string) string {
	// Prefer dates on a line marked as an expiry date.
	searchIn := text
	if m := expiryLine.FindStringSubmatch(text); m != nil {
		searchIn = m[1] + "\n" + text
	}

	if m := isoDatePattern.FindString(searchIn); m != "" {
		if _, err := expiry.ParseDate(m); err == nil {
			return m
		}
	}
	if m := dmyDatePattern.FindStringSubmatch(searchIn); m != nil {
		candidate := m[3] + "-" + m[2] + "-" + m[1]
		if t, err := time.Parse(expiry.DateLayout, candidate); err == nil {
			return expiry.FormatDate(t)
		}
	}
	return ""
}

package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pantrywatch/pantry-api/internal/expiry"
	"github.com/pantrywatch/pantry-api/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation
	if err := Validate.RegisterValidation("category", validateCategory); err != nil {
		panic(fmt.Sprintf("failed to register category validator: %v", err))
	}
	if err := Validate.RegisterValidation("item_status", validateItemStatus); err != nil {
		panic(fmt.Sprintf("failed to register item_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("iso_date", validateISODate); err != nil {
		panic(fmt.Sprintf("failed to register iso_date validator: %v", err))
	}
}

// validateCategory validates that a string is a valid Category enum value
func validateCategory(fl validator.FieldLevel) bool {
	return models.Category(fl.Field().String()).IsValid()
}

// validateItemStatus validates that a string is a valid ItemStatus enum value
func validateItemStatus(fl validator.FieldLevel) bool {
	switch models.ItemStatus(fl.Field().String()) {
	case models.StatusActive, models.StatusExpired, models.StatusCompleted:
		return true
	default:
		return false
	}
}

// validateISODate validates that a string parses as an ISO calendar date
func validateISODate(fl validator.FieldLevel) bool {
	_, err := expiry.ParseDate(fl.Field().String())
	return err == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateCategory validates a Category string value
func ValidateCategory(value string) error {
	if models.Category(value).IsValid() {
		return nil
	}
	return fmt.Errorf("invalid category: %s", value)
}

// ValidateItemStatus validates an ItemStatus string value
func ValidateItemStatus(value string) error {
	switch models.ItemStatus(value) {
	case models.StatusActive, models.StatusExpired, models.StatusCompleted:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'active', 'expired', or 'completed')", value)
	}
}

package global

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"optometry_report/internal/answer"
	"optometry_report/internal/fiscal"
)

// InitValidator creates Validate and registers the custom tags.
func InitValidator() {
	Validate = NewValidator()
}

// NewValidator returns a validator with no_xss, fiscal_month, fiscal_year and
// answer_keys registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("no_xss", validateNoXSS)
	_ = v.RegisterValidation("fiscal_month", validateFiscalMonth)
	_ = v.RegisterValidation("fiscal_year", validateFiscalYear)
	_ = v.RegisterValidation("answer_keys", validateAnswerKeys)
	return v
}

// validateNoXSS rejects markup commonly used for script injection.
func validateNoXSS(fl validator.FieldLevel) bool {
	dangerousPatterns := []string{
		"<script",
		"javascript:",
		"onerror=",
		"onload=",
		"onclick=",
		"eval(",
		"document.cookie",
		"<iframe",
		"<object",
		"<embed",
	}
	value := strings.ToLower(fl.Field().String())
	for _, pattern := range dangerousPatterns {
		if strings.Contains(value, pattern) {
			return false
		}
	}
	return true
}

// validateFiscalMonth accepts full month names and common abbreviations.
func validateFiscalMonth(fl validator.FieldLevel) bool {
	_, err := fiscal.ParseMonth(fl.Field().String())
	return err == nil
}

// validateFiscalYear accepts a four digit year.
func validateFiscalYear(fl validator.FieldLevel) bool {
	_, err := fiscal.ParseYear(fl.Field().String())
	return err == nil
}

// validateAnswerKeys requires every key of a map to be q1..q84.
func validateAnswerKeys(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Map {
		return false
	}
	for _, k := range field.MapKeys() {
		if k.Kind() != reflect.String {
			return false
		}
		if _, ok := answer.SlotIndex(k.String()); !ok {
			return false
		}
	}
	return true
}

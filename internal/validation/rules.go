// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/integration-events/internal/errors"
)

var (
	// crnRegex matches probation case reference numbers, e.g. X123456.
	crnRegex = regexp.MustCompile(`^[A-Z]\d{6}$`)
	// nomsRegex matches prisoner numbers. Upstream systems emit more than one
	// shape (A1234BC, AA0001A), so this checks the token form rather than one
	// fixed layout: uppercase alphanumeric, starts with a letter, 4-10 chars.
	nomsRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]{3,9}$`)
	// prisonIDRegex matches prison establishment codes, e.g. MDI.
	prisonIDRegex = regexp.MustCompile(`^[A-Z]{2,6}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// CRN validates probation case reference number format
var CRN = validation.NewStringRuleWithError(
	func(s string) bool {
		return crnRegex.MatchString(s)
	},
	validation.NewError("validation_crn_format", "must be a valid case reference number"),
)

// NomsNumber validates prisoner number format
var NomsNumber = validation.NewStringRuleWithError(
	func(s string) bool {
		return nomsRegex.MatchString(s) && strings.ContainsAny(s, "0123456789")
	},
	validation.NewError("validation_noms_format", "must be a valid prisoner number"),
)

// PrisonID validates prison establishment code format
var PrisonID = validation.NewStringRuleWithError(
	func(s string) bool {
		return prisonIDRegex.MatchString(s)
	},
	validation.NewError("validation_prison_id_format", "must be a valid prison code"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

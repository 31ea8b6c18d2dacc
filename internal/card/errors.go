package card

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes card validation errors.
type ErrorCode string

const (
	ErrCodeEmptyID           ErrorCode = "CARD_EMPTY_ID"
	ErrCodeNonPositiveID     ErrorCode = "CARD_NON_POSITIVE_NUMERIC_ID"
	ErrCodeEmptyName         ErrorCode = "CARD_EMPTY_NAME"
	ErrCodeUnknownType       ErrorCode = "CARD_UNKNOWN_TYPE"
	ErrCodeUnknownTargetRule ErrorCode = "CARD_UNKNOWN_TARGET_RULE"
	ErrCodeCostOutOfRange    ErrorCode = "CARD_COST_OUT_OF_RANGE"
	ErrCodeEmptyEffectKind   ErrorCode = "CARD_EMPTY_EFFECT_KIND"
	ErrCodeEmptyTextKey      ErrorCode = "CARD_EMPTY_TEXT_KEY"
	ErrCodeEmptyRarity       ErrorCode = "CARD_EMPTY_RARITY"
	ErrCodeEmptyClassTag     ErrorCode = "CARD_EMPTY_CLASS_TAG"
	ErrCodeInvalidUpgradeID  ErrorCode = "CARD_INVALID_UPGRADE_ID"
	ErrCodeMissingDefinition ErrorCode = "CARD_MISSING_DEFINITION"
	ErrCodeNoUpgradeMapping  ErrorCode = "CARD_NO_UPGRADE_MAPPING"
)

// ValidationError reports a card definition or instance that fails
// construction-time validation.
type ValidationError struct {
	Code    ErrorCode
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
}

func invalid(code ErrorCode, field, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationCode returns the code of the ValidationError wrapped by err, or
// the empty code when err is not a validation error.
func ValidationCode(err error) ErrorCode {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

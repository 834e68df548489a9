// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/sidevault/sidevault/internal/errors"
	"github.com/sidevault/sidevault/internal/exchange"
)

var (
	// providerRegex matches provider identifiers like "openai" or "vertex-ai".
	providerRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,62}[a-z0-9]$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// PublicKey validates the encoded ephemeral public key format. Runs before
// any session lookup so malformed keys fail fast without acting as a
// session-existence oracle.
var PublicKey = validation.NewStringRuleWithError(
	func(s string) bool {
		return exchange.ValidatePublicKey(s) == nil
	},
	validation.NewError("validation_public_key", "must be a base64-encoded uncompressed P-256 public key"),
)

// KeyID validates the ephemeral key id format (ek-<32 hex>).
var KeyID = validation.NewStringRuleWithError(
	func(s string) bool {
		return exchange.ValidateKeyID(s) == nil
	},
	validation.NewError("validation_key_id", "must match ek-<32 hex characters>"),
)

// Provider validates provider identifiers.
var Provider = validation.NewStringRuleWithError(
	func(s string) bool {
		return providerRegex.MatchString(s)
	},
	validation.NewError("validation_provider", "must be a lowercase provider identifier"),
)

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

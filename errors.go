package classroom

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced in error payloads for observability; clients should
// rely on the HTTP status, not on these.
const (
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeMissingSigningKey = "MISSING_SIGNING_KEY"
	TextCodeMissingToken      = "MISSING_TOKEN"
	TextCodeRoleRequired      = "ROLE_REQUIRED"
	TextCodeRequestConflict   = "REQUEST_CONFLICT"
	TextCodeEmailTaken        = "EMAIL_TAKEN"
	TextCodeEmptyPassword     = "EMPTY_PASSWORD"
)

// ErrMismatchedHashAndPassword is returned for any failed credential check.
// Lookup misses and bcrypt mismatches surface identically so login does not
// leak which check failed.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a token is past its embedded expiry.
var ErrTokenExpired = errors.New("authentication token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token fails signature verification or
// structural parsing.
var ErrTokenMalformed = errors.New("authentication token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrMissingToken is returned when the Authorization header is absent or does
// not carry a bearer token.
var ErrMissingToken = errors.New("missing or malformed bearer token", errors.CategoryAuth).
	WithTextCode(TextCodeMissingToken).
	WithCode(errors.CodeUnauthorized)

// ErrMissingSigningKey is a configuration fault: endpoints that verify or
// issue tokens report it as an internal error instead of crashing the process.
var ErrMissingSigningKey = errors.New("token signing key is not configured", errors.CategoryInternal).
	WithTextCode(TextCodeMissingSigningKey).
	WithCode(errors.CodeInternal)

// ErrRoleRequired is returned when a valid identity lacks the required role.
var ErrRoleRequired = errors.New("access denied: insufficient role", errors.CategoryAuthz).
	WithTextCode(TextCodeRoleRequired).
	WithCode(errors.CodeForbidden)

// ErrRequestConflict is returned when the conditional status update matched
// zero rows: the request does not exist or was already processed by a
// concurrent actor. The row-count result is authoritative; retrying the same
// call yields the same outcome.
var ErrRequestConflict = errors.New("request not found or already processed", errors.CategoryConflict).
	WithTextCode(TextCodeRequestConflict).
	WithCode(errors.CodeNotFound)

// ErrEmailTaken is returned when registration hits the unique email index.
var ErrEmailTaken = errors.New("email is already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// NewRequestConflictError builds a fresh conflict error so call sites can
// attach metadata without mutating the shared sentinel.
func NewRequestConflictError(id string) *errors.Error {
	return errors.New(ErrRequestConflict.Message, errors.CategoryConflict).
		WithTextCode(TextCodeRequestConflict).
		WithCode(errors.CodeNotFound).
		WithMetadata(map[string]any{"id": id})
}

// IsRequestConflict reports whether err is the zero-rows conflict outcome.
func IsRequestConflict(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeRequestConflict
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

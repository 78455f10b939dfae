package motors

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// LoginFailedMessage is the single user-visible message for both an unknown
// email and a wrong password, so a failed login never reveals whether the
// account exists.
const LoginFailedMessage = "Invalid email or password."

// ErrInvalidCredentials covers both unknown email and wrong password.
var ErrInvalidCredentials = errors.New(LoginFailedMessage, errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("INVALID_CREDENTIALS")

// ErrTokenExpired is returned when a session token is past its expiry.
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_EXPIRED")

// ErrTokenBadSignature is returned when a token's signature does not verify.
var ErrTokenBadSignature = errors.New("session token signature mismatch", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_BAD_SIGNATURE")

// ErrTokenMalformed is returned when a token cannot be decoded at all.
var ErrTokenMalformed = errors.New("session token malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

// ErrEmailTaken is the registration uniqueness conflict.
var ErrEmailTaken = errors.New("email already in use", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode("EMAIL_TAKEN")

// ErrMissingSigningKey is fatal at startup; the process must not serve
// requests without a signing secret.
var ErrMissingSigningKey = errors.New("session signing secret is not configured", errors.CategoryInternal).
	WithTextCode("MISSING_SIGNING_KEY")

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithTextCode("EMPTY_VALUE")

// ErrMismatchedHashAndPassword is the internal credential mismatch sentinel.
// It carries the same user-visible message as ErrInvalidCredentials.
var ErrMismatchedHashAndPassword = errors.New(LoginFailedMessage, errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("CREDENTIAL_MISMATCH")

// ErrUnableToFindSession is the error when the request carries no credential.
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("SESSION_NOT_FOUND")

// ErrUnableToDecodeSession is returned when claims cannot be mapped back into
// a session projection.
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("SESSION_DECODE")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, "TOKEN_EXPIRED") {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsBadSignatureError will check for signature mismatches
func IsBadSignatureError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, "TOKEN_BAD_SIGNATURE") {
		return true
	}
	return strings.Contains(err.Error(), "signature is invalid")
}

// IsMalformedError will check for undecodable tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, "TOKEN_MALFORMED") {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed")
}

// IsCredentialError reports whether err is one of the collapsed login
// failures. Anything else during login is treated as an internal error.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrMismatchedHashAndPassword) ||
		hasTextCode(err, "INVALID_CREDENTIALS") ||
		hasTextCode(err, "CREDENTIAL_MISMATCH")
}

// IsConflictError reports whether err is a uniqueness conflict.
func IsConflictError(err error) bool {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.Category == errors.CategoryConflict
	}
	return false
}

func hasTextCode(err error, code string) bool {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}

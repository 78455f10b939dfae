package motors

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionTokenService implements the TokenService interface with HS256
// signed tokens. It keeps an ordered key set so the signing secret can be
// rotated: new tokens are always minted with the newest key, while
// verification walks every key so sessions signed before a rotation stay
// valid until they expire.
type SessionTokenService struct {
	signingKey      []byte
	legacyKeys      [][]byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
}

// TokenServiceOption configures a SessionTokenService
type TokenServiceOption func(*SessionTokenService)

// WithLegacyKeys registers previously active signing keys, newest first.
// They are used for verification only.
func WithLegacyKeys(keys ...[]byte) TokenServiceOption {
	return func(ts *SessionTokenService) {
		ts.legacyKeys = append(ts.legacyKeys, keys...)
	}
}

// NewTokenService creates a new TokenService instance. tokenExpiration is
// the session lifetime in seconds.
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, audience jwt.ClaimStrings, logger Logger, opts ...TokenServiceOption) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	ts := &SessionTokenService{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          logger,
	}

	for _, opt := range opts {
		opt(ts)
	}

	return ts
}

// Generate creates a signed session token for the given identity
func (ts *SessionTokenService) Generate(identity Identity) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl())),
		},
		UID:         identity.ID(),
		FullName:    identity.Name(),
		AccountRole: identity.Role(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary session claims using the newest signing key.
func (ts *SessionTokenService) SignClaims(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	if len(ts.signingKey) == 0 {
		return "", ErrMissingSigningKey
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// Rejections collapse into three classes: ErrTokenExpired,
// ErrTokenBadSignature, and ErrTokenMalformed.
func (ts *SessionTokenService) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	var lastErr error
	for _, key := range ts.verificationKeys() {
		claims, err := ts.validateWithKey(tokenString, key, parserOptions)
		if err == nil {
			return claims, nil
		}
		if !IsBadSignatureError(err) {
			return nil, err
		}
		lastErr = err
	}

	if lastErr == nil {
		return nil, ErrMissingSigningKey
	}
	return nil, lastErr
}

func (ts *SessionTokenService) validateWithKey(tokenString string, key []byte, parserOptions []jwt.ParserOption) (AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		return nil, ts.classifyRejection(err)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrUnableToDecodeSession
}

func (ts *SessionTokenService) classifyRejection(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || strings.Contains(err.Error(), "signing method") {
		return errors.Wrap(err, ErrTokenBadSignature.Category, ErrTokenBadSignature.Message).
			WithTextCode(ErrTokenBadSignature.TextCode)
	}
	return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
		WithTextCode(ErrTokenMalformed.TextCode)
}

// verificationKeys returns the active key followed by legacy keys, newest
// first.
func (ts *SessionTokenService) verificationKeys() [][]byte {
	keys := make([][]byte, 0, 1+len(ts.legacyKeys))
	if len(ts.signingKey) > 0 {
		keys = append(keys, ts.signingKey)
	}
	keys = append(keys, ts.legacyKeys...)
	return keys
}

func (ts *SessionTokenService) ttl() time.Duration {
	if ts.tokenExpiration <= 0 {
		return time.Hour
	}
	return time.Duration(ts.tokenExpiration) * time.Second
}

// ensureTokenID assigns a jti so individual sessions are distinguishable in
// logs even when minted within the same second.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}

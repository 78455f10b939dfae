package motors

import (
	"context"
	"reflect"

	"github.com/golang-jwt/jwt/v5"
)

// Auther is the credential authentication gate. It turns an email and
// password into a signed session token, and a presented token back into a
// session. Every credential failure surfaces as ErrInvalidCredentials so a
// caller probing for registered emails learns nothing.
type Auther struct {
	provider        IdentityProvider
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        []string
	logger          Logger
	tokenService    TokenService
	tokenValidator  TokenValidator
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:        provider,
		signingKey:      []byte(opts.GetSigningKey()),
		tokenExpiration: opts.GetTokenExpiration(),
		audience:        opts.GetAudience(),
		issuer:          opts.GetIssuer(),
		logger:          defLogger{},
		tokenService:    tokenService,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	s.tokenService = NewTokenService(
		s.signingKey,
		s.tokenExpiration,
		s.issuer,
		s.audience,
		logger,
	)
	return s
}

// WithTokenService replaces the default token service, e.g. to carry legacy
// verification keys across a secret rotation.
func (s *Auther) WithTokenService(service TokenService) *Auther {
	s.tokenService = service
	return s
}

// WithTokenValidator sets a custom token validator for externally issued tokens.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credential pair and mints a session token. Unknown
// email and wrong password come back as the same ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	var err error
	var identity Identity

	if identity, err = s.provider.VerifyIdentity(ctx, email, password); err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		if IsCredentialError(err) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return "", ErrInvalidCredentials
	}

	token, err := s.generateSessionToken(identity)
	if err != nil {
		s.logger.Error("Login token generation failed", "error", err)
		return "", err
	}

	return token, nil
}

// IdentityFromSession loads the fresh identity backing a verified session
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByID(ctx, session.GetAccountID())

	if err != nil {
		s.logger.Error("IdentityFromSession find identity by id: %s", err)
		return nil, err
	}

	return identity, nil
}

// SessionFromToken verifies a raw token and projects it into a session
func (s Auther) SessionFromToken(raw string) (Session, error) {
	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

func (s *Auther) generateSessionToken(identity Identity) (string, error) {
	claims := s.newSessionClaims(identity)
	return s.tokenService.SignClaims(claims)
}

func (s *Auther) newSessionClaims(identity Identity) *SessionClaims {
	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	claims := newSessionClaims(identity, s.issuer, aud, s.ttl())

	return claims
}

func (s *Auther) ttl() int {
	if s.tokenExpiration <= 0 {
		return 3600
	}
	return s.tokenExpiration
}

var _ Authenticator = (*Auther)(nil)

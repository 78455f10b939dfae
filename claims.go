package motors

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the verified view of a session token that the middleware and
// templates consume. The role claim is authoritative for the token's
// lifetime; role changes take effect on re-issuance.
type AuthClaims interface {
	Subject() string
	AccountID() string
	Name() string
	Role() string
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	CanManageInventory() bool
	Expires() time.Time
	IssuedAt() time.Time
}

// SessionClaims is the concrete JWT payload for a site session
type SessionClaims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid,omitempty"`
	FullName    string `json:"name,omitempty"`
	AccountRole string `json:"role,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*SessionClaims)(nil)

// newSessionClaims builds the claim set for a fresh session token
func newSessionClaims(identity Identity, issuer string, audience jwt.ClaimStrings, ttlSeconds int) *SessionClaims {
	now := time.Now()

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   identity.ID(),
			Audience:  audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlSeconds) * time.Second)),
		},
		UID:         identity.ID(),
		FullName:    identity.Name(),
		AccountRole: identity.Role(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// AccountID returns the account identifier
func (c *SessionClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Name returns the display name carried by the token
func (c *SessionClaims) Name() string {
	return c.FullName
}

// Role returns the account type claim
func (c *SessionClaims) Role() string {
	return c.AccountRole
}

// HasRole checks if the session carries a specific role
func (c *SessionClaims) HasRole(role string) bool {
	return c.AccountRole == role
}

// IsAtLeast checks if the session's role is at least the minimum required role
func (c *SessionClaims) IsAtLeast(minRole string) bool {
	return AccountType(c.AccountRole).IsAtLeast(AccountType(minRole))
}

// CanManageInventory checks if the session may reach inventory management
func (c *SessionClaims) CanManageInventory() bool {
	return AccountType(c.AccountRole).CanManageInventory()
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

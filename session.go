package motors

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}
var _ RoleValidator = &SessionObject{}

type SessionObject struct {
	AccountID      string      `json:"account_id,omitempty"`
	Name           string      `json:"name,omitempty"`
	Role           AccountType `json:"role,omitempty"`
	Audience       []string    `json:"audience,omitempty"`
	Issuer         string      `json:"issuer,omitempty"`
	IssuedAt       *time.Time  `json:"issued_at,omitempty"`
	ExpirationDate *time.Time  `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetAccountID() string {
	return s.AccountID
}

func (s *SessionObject) GetAccountUUID() (uuid.UUID, error) {
	return uuid.Parse(s.AccountID)
}

func (s *SessionObject) GetName() string {
	return s.Name
}

func (s *SessionObject) GetRole() AccountType {
	return s.Role
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetExpiration() *time.Time {
	return s.ExpirationDate
}

// HasRole checks if the session carries a specific role
func (s *SessionObject) HasRole(role string) bool {
	return string(s.Role) == role
}

// IsAtLeast checks if the session's role is at least the minimum required role
func (s *SessionObject) IsAtLeast(minRole AccountType) bool {
	return s.Role.IsAtLeast(minRole)
}

// CanManageInventory checks if the session may reach inventory management
func (s *SessionObject) CanManageInventory() bool {
	return s.Role.CanManageInventory()
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"account=%s role=%s aud=%v iss=%s iat=%s",
		s.AccountID,
		s.Role,
		s.Audience,
		s.Issuer,
		issuedAt,
	)
}

// sessionFromAuthClaims creates a SessionObject from verified claims
func sessionFromAuthClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	var audience []string
	var issuer string
	if sc, ok := claims.(*SessionClaims); ok {
		audience = append(audience, sc.RegisteredClaims.Audience...)
		issuer = sc.RegisteredClaims.Issuer
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		AccountID:      claims.AccountID(),
		Name:           claims.Name(),
		Role:           AccountType(claims.Role()),
		Audience:       audience,
		Issuer:         issuer,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}

package motors

// AccountType is the account's role on the site
type AccountType string

const (
	// RoleClient is the default role for self-registered accounts (browse, own account)
	RoleClient AccountType = "client"
	// RoleEmployee is dealership staff (browse, manage inventory)
	RoleEmployee AccountType = "employee"
	// RoleAdmin is full administrative access
	RoleAdmin AccountType = "admin"
)

// RoleValidator defines the checks the middleware gates run against a session
type RoleValidator interface {
	// HasRole checks if the session carries a specific role
	HasRole(role string) bool

	// IsAtLeast checks if the session's role is at least the minimum required role
	IsAtLeast(minRole AccountType) bool

	// CanManageInventory checks if the session may reach inventory management
	CanManageInventory() bool
}

// IsValid checks if the role is one of the predefined valid roles
func (r AccountType) IsValid() bool {
	switch r {
	case RoleClient, RoleEmployee, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanManageInventory checks if this role can reach the inventory management area
func (r AccountType) CanManageInventory() bool {
	switch r {
	case RoleEmployee, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r AccountType) IsAtLeast(minRole AccountType) bool {
	hierarchy := map[AccountType]int{
		RoleClient:   0,
		RoleEmployee: 1,
		RoleAdmin:    2,
	}

	currentLevel, exists := hierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := hierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// In checks membership against an allowed set
func (r AccountType) In(allowed ...AccountType) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// AllAccountTypes returns the predefined roles in hierarchical order
func AllAccountTypes() []AccountType {
	return []AccountType{
		RoleClient,
		RoleEmployee,
		RoleAdmin,
	}
}

// ParseAccountType safely parses a string into an AccountType
func ParseAccountType(role string) (AccountType, bool) {
	r := AccountType(role)
	return r, r.IsValid()
}

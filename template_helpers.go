package motors

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

var TemplateAccountKey = "current_account"

// TemplateHelpers returns a map of helper functions and data for the view
// engine's global context.
//
// In templates:
//
//	{% if current_account %}
//	{% if has_role(current_account, "admin") %}
//	{% if can_manage_inventory(current_account) %}
//	{{ usd(vehicle.Price) }}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated":     isAuthenticated,
		"has_role":             hasRole,
		"is_at_least":          isAtLeast,
		"can_manage_inventory": canManageInventory,

		"usd":   FormatUSD,
		"miles": FormatMiles,

		// Role constants for easy template access
		"roles": map[string]string{
			"client":   string(RoleClient),
			"employee": string(RoleEmployee),
			"admin":    string(RoleAdmin),
		},
	}
}

// TemplateHelpersWithAccount returns template helpers with a specific account
// set as current_account.
func TemplateHelpersWithAccount(account *Account) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateAccountKey] = account
	return helpers
}

// MergeTemplateData folds the session helpers and the logged-in account into
// a view bind. Handlers use it so every page can render the header state.
func MergeTemplateData(ctx router.Context, data router.ViewContext) router.ViewContext {
	if data == nil {
		data = router.ViewContext{}
	}

	for key, value := range TemplateHelpers() {
		if _, taken := data[key]; !taken {
			data[key] = value
		}
	}

	if account := ctx.Locals(TemplateAccountKey); account != nil {
		if _, taken := data[TemplateAccountKey]; !taken {
			data[TemplateAccountKey] = account
		}
	}

	if flash, ok := ctx.Locals("flash").(FlashEntry); ok {
		if _, taken := data["flash"]; !taken {
			data["flash"] = flash
		}
	}

	return data
}

// GetTemplateAccount extracts the session account from the router context
func GetTemplateAccount(ctx router.Context, accountKey string) (any, bool) {
	if accountKey == "" {
		accountKey = TemplateAccountKey
	}

	account := ctx.Locals(accountKey)
	return account, account != nil
}

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field -> message map for templates.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	switch verr := err.(type) {
	case validation.Errors:
		for field, fieldErr := range verr {
			out[field] = fieldErr.Error()
		}
	default:
		var rich *errors.Error
		if errors.As(err, &rich) {
			if vm := rich.ValidationMap(); len(vm) > 0 {
				for field, msg := range vm {
					out[field] = fmt.Sprint(msg)
				}
				return out
			}
		}
		out["form"] = err.Error()
	}

	return out
}

// isAuthenticated checks if the provided account object is not nil
func isAuthenticated(account any) bool {
	if account == nil {
		return false
	}

	switch a := account.(type) {
	case *Account:
		return a != nil
	case Account:
		return true
	case AuthClaims:
		return a != nil && a.AccountID() != ""
	case map[string]any:
		return len(a) > 0
	default:
		return false
	}
}

// hasRole checks if the account has the specified role
func hasRole(account any, role string) bool {
	targetRole := AccountType(role)

	switch a := account.(type) {
	case *Account:
		if a == nil {
			return false
		}
		return a.Type == targetRole
	case Account:
		return a.Type == targetRole
	case AuthClaims:
		if a == nil {
			return false
		}
		return a.HasRole(role)
	case map[string]any:
		if accountType, exists := a["account_type"]; exists {
			if roleStr, ok := accountType.(string); ok {
				return AccountType(roleStr) == targetRole
			}
		}
		return false
	default:
		return false
	}
}

// isAtLeast checks if the account's role is at least the minimum required level
func isAtLeast(account any, minRole string) bool {
	minRoleTyped := AccountType(minRole)

	switch a := account.(type) {
	case *Account:
		if a == nil {
			return false
		}
		return a.Type.IsAtLeast(minRoleTyped)
	case Account:
		return a.Type.IsAtLeast(minRoleTyped)
	case AuthClaims:
		if a == nil {
			return false
		}
		return a.IsAtLeast(minRole)
	case map[string]any:
		if accountType, exists := a["account_type"]; exists {
			if roleStr, ok := accountType.(string); ok {
				return AccountType(roleStr).IsAtLeast(minRoleTyped)
			}
		}
		return false
	default:
		return false
	}
}

// canManageInventory checks if the account can reach inventory management
func canManageInventory(account any) bool {
	switch a := account.(type) {
	case *Account:
		if a == nil {
			return false
		}
		return a.Type.CanManageInventory()
	case Account:
		return a.Type.CanManageInventory()
	case AuthClaims:
		if a == nil {
			return false
		}
		return a.CanManageInventory()
	case map[string]any:
		if accountType, exists := a["account_type"]; exists {
			if roleStr, ok := accountType.(string); ok {
				return AccountType(roleStr).CanManageInventory()
			}
		}
		return false
	default:
		return false
	}
}

// FormatUSD renders a whole-dollar price with thousands separators
func FormatUSD(amount int64) string {
	return "$" + groupThousands(amount)
}

// FormatMiles renders a mileage figure with thousands separators
func FormatMiles(miles int) string {
	return groupThousands(int64(miles))
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
		if len(s) > lead {
			b.WriteString(",")
		}
	}
	for i := lead; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteString(",")
		}
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}

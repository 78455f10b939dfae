package motors

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the persisted account model. The PasswordHash never leaves the
// package boundary: Sanitize strips it before the record feeds claims, views
// or logs.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acct"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Type          AccountType `bun:"account_type,notnull" json:"account_type,omitempty"`
	FirstName     string      `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName      string      `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email         string      `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string      `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash  string      `bun:"password_hash" json:"-"`
	LoggedInAt    *time.Time  `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time  `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Sanitize clears the credential hash from the in-memory projection.
func (a *Account) Sanitize() *Account {
	a.PasswordHash = ""
	return a
}

// DisplayName is the name used in welcome messages and claims.
func (a *Account) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// NormalizeEmail lower-cases and trims an identity key so lookups and the
// uniqueness constraint agree on a single canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Classification is a vehicle category (Sedan, SUV, ...) driving navigation
// and inventory grouping.
type Classification struct {
	bun.BaseModel `bun:"table:classifications,alias:cls"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Vehicle is a single inventory item.
type Vehicle struct {
	bun.BaseModel    `bun:"table:vehicles,alias:veh"`
	ID               uuid.UUID       `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ClassificationID uuid.UUID       `bun:"classification_id,notnull,type:uuid" json:"classification_id,omitempty"`
	Classification   *Classification `bun:"rel:belongs-to,join:classification_id=id" json:"classification,omitempty"`
	Make             string          `bun:"make,notnull" json:"make,omitempty"`
	Model            string          `bun:"model,notnull" json:"model,omitempty"`
	Year             int             `bun:"model_year,notnull" json:"model_year,omitempty"`
	Description      string          `bun:"description" json:"description,omitempty"`
	Image            string          `bun:"image_path" json:"image_path,omitempty"`
	Thumbnail        string          `bun:"thumbnail_path" json:"thumbnail_path,omitempty"`
	Price            int64           `bun:"price,notnull" json:"price,omitempty"`
	Miles            int             `bun:"miles" json:"miles,omitempty"`
	Color            string          `bun:"color" json:"color,omitempty"`
	CreatedAt        *time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt        *time.Time      `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Title renders the human heading for detail pages, e.g. "2019 Jeep Wrangler".
func (v *Vehicle) Title() string {
	parts := []string{}
	if v.Year > 0 {
		parts = append(parts, strconv.Itoa(v.Year))
	}
	parts = append(parts, v.Make, v.Model)
	return strings.TrimSpace(strings.Join(parts, " "))
}

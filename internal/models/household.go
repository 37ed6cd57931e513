package models

import (
	"time"

	"github.com/google/uuid"
)

// Household represents a tenant in the multi-tenant system. All transactions,
// rules, and settlements are owned by exactly one household.
type Household struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Slug     string    `json:"slug" db:"slug"` // Unique identifier for subdomain (e.g., "smith", "garcia-nyc")
	Name     string    `json:"name" db:"name"` // Display name (e.g., "The Smith Household")
	Currency string    `json:"currency" db:"currency"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Member represents a person belonging to a household. A membership record
// belongs to exactly one household.
type Member struct {
	ID           uuid.UUID `json:"id" db:"id"`
	HouseholdID  uuid.UUID `json:"household_id" db:"household_id"`
	Username     string    `json:"username" db:"username"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	Role         string    `json:"role" db:"role"` // "owner" or "member"
	PasswordHash *string   `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Member roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// MemberResponse is the member shape returned by the API.
type MemberResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToResponse converts Member to MemberResponse
func (m *Member) ToResponse() MemberResponse {
	return MemberResponse{
		ID:          m.ID,
		Username:    m.Username,
		DisplayName: m.DisplayName,
		Role:        m.Role,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SplitRule assigns a member a percentage of every shared transaction.
// A household's active rule set only takes effect when it covers members of
// the household and the percentages sum to exactly 100; otherwise shared
// costs split evenly. The member set and weights are runtime inputs, never a
// fixed two-person structure.
type SplitRule struct {
	ID          uuid.UUID `json:"id" db:"id"`
	HouseholdID uuid.UUID `json:"household_id" db:"household_id"`
	MemberID    uuid.UUID `json:"member_id" db:"member_id"`
	Percent     int       `json:"percent" db:"percent"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// BudgetRule caps monthly spending for a category or expense type. Either
// scope may be empty; an empty scope matches all transactions.
type BudgetRule struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	HouseholdID  uuid.UUID       `json:"household_id" db:"household_id"`
	Category     *string         `json:"category,omitempty" db:"category"`
	ExpenseType  *string         `json:"expense_type,omitempty" db:"expense_type"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit" db:"monthly_limit"`
	Active       bool            `json:"active" db:"active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

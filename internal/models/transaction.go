package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction categories. The legacy two-person categories
// ("member-A-pays-for-B", "personal-A", ...) collapse into three shapes that
// work for any member count: shared splits across the household, paid_for
// charges a named beneficiary, personal is self-paid.
const (
	CategoryShared   = "shared"
	CategoryPaidFor  = "paid_for"
	CategoryPersonal = "personal"
)

// ValidCategory reports whether s is a known transaction category.
func ValidCategory(s string) bool {
	switch s {
	case CategoryShared, CategoryPaidFor, CategoryPersonal:
		return true
	}
	return false
}

// Transaction represents a single expense recorded by a household member.
// HouseholdID is immutable after creation.
type Transaction struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	HouseholdID   uuid.UUID       `json:"household_id" db:"household_id"`
	Date          time.Time       `json:"-" db:"date"`
	Merchant      string          `json:"merchant" db:"merchant"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Currency      string          `json:"currency" db:"currency"`
	PaidBy        uuid.UUID       `json:"paid_by" db:"paid_by"`
	Category      string          `json:"category" db:"category"`
	BeneficiaryID *uuid.UUID      `json:"beneficiary_id,omitempty" db:"beneficiary_id"` // required for paid_for
	ExpenseType   *string         `json:"expense_type,omitempty" db:"expense_type"`
	Notes         *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// TransactionResponse is the transaction shape returned by the API, with the
// date rendered as a plain calendar date.
type TransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	Date          string          `json:"date"`
	Merchant      string          `json:"merchant"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaidBy        uuid.UUID       `json:"paid_by"`
	Category      string          `json:"category"`
	BeneficiaryID *uuid.UUID      `json:"beneficiary_id,omitempty"`
	ExpenseType   *string         `json:"expense_type,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToResponse converts Transaction to TransactionResponse
func (t *Transaction) ToResponse() TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,
		Date:          t.Date.Format(DateLayout),
		Merchant:      t.Merchant,
		Amount:        t.Amount,
		Currency:      t.Currency,
		PaidBy:        t.PaidBy,
		Category:      t.Category,
		BeneficiaryID: t.BeneficiaryID,
		ExpenseType:   t.ExpenseType,
		Notes:         t.Notes,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// Month returns the calendar month ("YYYY-MM") the transaction belongs to.
// Dates are plain calendar dates; no timezone conversion is performed.
func (t *Transaction) Month() string {
	return t.Date.Format(MonthLayout)
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settlement locks a household's month once balances are agreed. At most one
// settlement exists per (household_id, month); the database enforces this
// with a unique index, which is the sole arbiter between concurrent settle
// attempts. While a settlement exists, transactions dated in that month are
// read-only.
type Settlement struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	HouseholdID       uuid.UUID       `json:"household_id" db:"household_id"`
	Month             string          `json:"month" db:"month"` // YYYY-MM
	FromMember        *uuid.UUID      `json:"from_member,omitempty" db:"from_member"`
	ToMember          *uuid.UUID      `json:"to_member,omitempty" db:"to_member"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	SettlementMessage string          `json:"settlement_message" db:"settlement_message"`
	Balances          []byte          `json:"-" db:"balances"` // JSONB snapshot of member balances at settle time
	SettledDate       time.Time       `json:"settled_date" db:"settled_date"`
}

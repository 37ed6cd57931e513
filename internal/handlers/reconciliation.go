package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/yilunzh/household-finance-sub002/internal/middleware"
	"github.com/yilunzh/household-finance-sub002/internal/models"
	"github.com/yilunzh/household-finance-sub002/internal/reconcile"
)

// loadMonth gathers everything the reconciliation engine needs for one
// household-month: active members, the month's transactions, split rules,
// budget rules, and whether a settlement already locks the month.
func loadMonth(ctx context.Context, db *pgxpool.Pool, household *models.Household, month string) (*reconcile.Input, error) {
	start, end, err := models.MonthBounds(month)
	if err != nil {
		return nil, err
	}

	in := &reconcile.Input{Month: month, Currency: household.Currency}

	rows, err := db.Query(ctx,
		`SELECT id, household_id, username, display_name, role, is_active, created_at
		 FROM members
		 WHERE household_id = $1 AND is_active = true
		 ORDER BY id`,
		household.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.Username, &m.DisplayName, &m.Role, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, err
		}
		in.Members = append(in.Members, m)
	}
	rows.Close()

	rows, err = db.Query(ctx,
		`SELECT id, household_id, date, merchant, amount, currency, paid_by,
		        category, beneficiary_id, expense_type, notes, created_at, updated_at
		 FROM transactions
		 WHERE household_id = $1 AND date >= $2 AND date < $3
		 ORDER BY date ASC, created_at ASC`,
		household.ID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(
			&t.ID, &t.HouseholdID, &t.Date, &t.Merchant, &t.Amount, &t.Currency,
			&t.PaidBy, &t.Category, &t.BeneficiaryID, &t.ExpenseType, &t.Notes,
			&t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		in.Transactions = append(in.Transactions, t)
	}
	rows.Close()

	rows, err = db.Query(ctx,
		`SELECT id, household_id, member_id, percent, created_at
		 FROM split_rules WHERE household_id = $1`,
		household.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r models.SplitRule
		if err := rows.Scan(&r.ID, &r.HouseholdID, &r.MemberID, &r.Percent, &r.CreatedAt); err != nil {
			return nil, err
		}
		in.SplitRules = append(in.SplitRules, r)
	}
	rows.Close()

	rows, err = db.Query(ctx,
		`SELECT id, household_id, category, expense_type, monthly_limit, active, created_at
		 FROM budget_rules WHERE household_id = $1 AND active = true`,
		household.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r models.BudgetRule
		if err := rows.Scan(&r.ID, &r.HouseholdID, &r.Category, &r.ExpenseType, &r.MonthlyLimit, &r.Active, &r.CreatedAt); err != nil {
			return nil, err
		}
		in.BudgetRules = append(in.BudgetRules, r)
	}
	rows.Close()

	in.IsSettled, err = monthSettled(ctx, db, household.ID, month)
	if err != nil {
		return nil, err
	}
	return in, nil
}

// GetReconciliation returns the settlement summary for a month
func GetReconciliation(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	household, _ := middleware.GetHousehold(c)

	month, err := models.ParseMonth(c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in, err := loadMonth(c.Request.Context(), db, household, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load month", "details": err.Error()})
		return
	}

	summary, err := reconcile.Compute(*in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// SettleMonth computes the month's summary and records a settlement, locking
// the month. The unique index on (household_id, month) decides between
// concurrent settle attempts: the loser gets a conflict, never a second row.
func SettleMonth(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	household, _ := middleware.GetHousehold(c)

	month, err := models.ParseMonth(c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	in, err := loadMonth(ctx, db, household, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load month", "details": err.Error()})
		return
	}
	if in.IsSettled {
		c.JSON(http.StatusConflict, gin.H{"error": "Month is already settled"})
		return
	}

	summary, err := reconcile.Compute(*in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balances, err := json.Marshal(summary.Balances)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to snapshot balances"})
		return
	}

	// A multi-member plan may have several transfers; the settlement row keeps
	// the primary (largest) one plus the full message and balance snapshot.
	var fromMember, toMember *uuid.UUID
	amount := decimal.Zero
	if len(summary.Transfers) > 0 {
		first := summary.Transfers[0]
		fromMember, toMember = &first.From, &first.To
		amount = first.Amount
	}

	settlement := models.Settlement{
		ID:                uuid.New(),
		HouseholdID:       household.ID,
		Month:             month,
		FromMember:        fromMember,
		ToMember:          toMember,
		Amount:            amount,
		SettlementMessage: summary.SettlementMessage,
		Balances:          balances,
	}

	err = db.QueryRow(ctx,
		`INSERT INTO settlements (id, household_id, month, from_member, to_member,
		                          amount, settlement_message, balances)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING settled_date`,
		settlement.ID, settlement.HouseholdID, settlement.Month,
		settlement.FromMember, settlement.ToMember, settlement.Amount,
		settlement.SettlementMessage, settlement.Balances,
	).Scan(&settlement.SettledDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			c.JSON(http.StatusConflict, gin.H{"error": "Month is already settled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record settlement"})
		return
	}

	summary.IsSettled = true
	c.JSON(http.StatusCreated, gin.H{
		"settlement": settlement,
		"summary":    summary,
	})
}

// UnsettleMonth removes a month's settlement, reopening it for edits
func UnsettleMonth(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	month, err := models.ParseMonth(c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := db.Exec(c.Request.Context(),
		`DELETE FROM settlements WHERE household_id = $1 AND month = $2`,
		householdID, month,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove settlement"})
		return
	}
	if result.RowsAffected() == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Month is not settled"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"month": month, "unsettled": true})
}

// ListSettlements returns the household's settlement history
func ListSettlements(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	rows, err := db.Query(c.Request.Context(),
		`SELECT id, household_id, month, from_member, to_member,
		        amount, settlement_message, balances, settled_date
		 FROM settlements
		 WHERE household_id = $1
		 ORDER BY month DESC`,
		householdID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query settlements"})
		return
	}
	defer rows.Close()

	settlements := []gin.H{}
	for rows.Next() {
		var s models.Settlement
		err := rows.Scan(&s.ID, &s.HouseholdID, &s.Month, &s.FromMember, &s.ToMember,
			&s.Amount, &s.SettlementMessage, &s.Balances, &s.SettledDate)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse settlement data"})
			return
		}
		var balances []reconcile.MemberBalance
		if len(s.Balances) > 0 {
			if err := json.Unmarshal(s.Balances, &balances); err != nil {
				balances = nil
			}
		}
		settlements = append(settlements, gin.H{
			"id":                 s.ID,
			"month":              s.Month,
			"from_member":        s.FromMember,
			"to_member":          s.ToMember,
			"amount":             s.Amount,
			"settlement_message": s.SettlementMessage,
			"balances":           balances,
			"settled_date":       s.SettledDate,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"settlements": settlements,
		"count":       len(settlements),
	})
}

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/yilunzh/household-finance-sub002/internal/middleware"
	"github.com/yilunzh/household-finance-sub002/internal/models"
)

type TransactionRequest struct {
	Date          string          `json:"date" binding:"required"`
	Merchant      string          `json:"merchant" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency"`
	PaidBy        uuid.UUID       `json:"paid_by" binding:"required"`
	Category      string          `json:"category" binding:"required"`
	BeneficiaryID *uuid.UUID      `json:"beneficiary_id,omitempty"`
	ExpenseType   *string         `json:"expense_type,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
}

// monthSettled reports whether a settlement locks the given month.
func monthSettled(ctx context.Context, db *pgxpool.Pool, householdID uuid.UUID, month string) (bool, error) {
	var settled bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM settlements WHERE household_id = $1 AND month = $2)`,
		householdID, month,
	).Scan(&settled)
	return settled, err
}

// isHouseholdMember reports whether the member is an active member of the household.
func isHouseholdMember(ctx context.Context, db *pgxpool.Pool, householdID, memberID uuid.UUID) (bool, error) {
	var ok bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM members WHERE id = $1 AND household_id = $2 AND is_active = true)`,
		memberID, householdID,
	).Scan(&ok)
	return ok, err
}

// validateTransactionRequest checks the request against the household and
// returns the parsed date. All failures are Validation errors.
func validateTransactionRequest(ctx context.Context, db *pgxpool.Pool, householdID uuid.UUID, req *TransactionRequest) (time.Time, error) {
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", req.Date)
	}
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return time.Time{}, fmt.Errorf("amount must be positive with at most two decimals")
	}
	if !models.ValidCategory(req.Category) {
		return time.Time{}, fmt.Errorf("invalid category %q", req.Category)
	}
	if req.Category == models.CategoryPaidFor && req.BeneficiaryID == nil {
		return time.Time{}, fmt.Errorf("beneficiary_id is required for paid_for transactions")
	}
	if req.Category != models.CategoryPaidFor && req.BeneficiaryID != nil {
		return time.Time{}, fmt.Errorf("beneficiary_id is only valid for paid_for transactions")
	}

	ok, err := isHouseholdMember(ctx, db, householdID, req.PaidBy)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, fmt.Errorf("paid_by must be an active member of the household")
	}
	if req.BeneficiaryID != nil {
		ok, err := isHouseholdMember(ctx, db, householdID, *req.BeneficiaryID)
		if err != nil {
			return time.Time{}, err
		}
		if !ok {
			return time.Time{}, fmt.Errorf("beneficiary_id must be an active member of the household")
		}
	}
	return date, nil
}

// ListTransactions returns the household's transactions with optional
// month, category, and paid_by filters
func ListTransactions(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	query := `
		SELECT id, household_id, date, merchant, amount, currency, paid_by,
		       category, beneficiary_id, expense_type, notes, created_at, updated_at
		FROM transactions
		WHERE household_id = $1
	`

	params := []interface{}{householdID}
	paramCount := 1

	if month := c.Query("month"); month != "" {
		normalized, err := models.ParseMonth(month)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		start, end, _ := models.MonthBounds(normalized)
		paramCount++
		query += fmt.Sprintf(" AND date >= $%d", paramCount)
		params = append(params, start)
		paramCount++
		query += fmt.Sprintf(" AND date < $%d", paramCount)
		params = append(params, end)
	}

	if category := c.Query("category"); category != "" {
		if !models.ValidCategory(category) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid category %q", category)})
			return
		}
		paramCount++
		query += fmt.Sprintf(" AND category = $%d", paramCount)
		params = append(params, category)
	}

	if paidBy := c.Query("paid_by"); paidBy != "" {
		payerID, err := uuid.Parse(paidBy)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid paid_by format"})
			return
		}
		paramCount++
		query += fmt.Sprintf(" AND paid_by = $%d", paramCount)
		params = append(params, payerID)
	}

	query += " ORDER BY date DESC, created_at DESC"

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	paramCount++
	query += fmt.Sprintf(" LIMIT $%d", paramCount)
	params = append(params, limit)

	paramCount++
	query += fmt.Sprintf(" OFFSET $%d", paramCount)
	params = append(params, offset)

	rows, err := db.Query(c.Request.Context(), query, params...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query transactions", "details": err.Error()})
		return
	}
	defer rows.Close()

	transactions := []models.TransactionResponse{}
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(
			&t.ID, &t.HouseholdID, &t.Date, &t.Merchant, &t.Amount, &t.Currency,
			&t.PaidBy, &t.Category, &t.BeneficiaryID, &t.ExpenseType, &t.Notes,
			&t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse transaction data"})
			return
		}
		transactions = append(transactions, t.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// GetTransaction returns a single transaction by ID
func GetTransaction(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID format"})
		return
	}

	t, err := fetchTransaction(c.Request.Context(), db, householdID, txID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}

	c.JSON(http.StatusOK, t.ToResponse())
}

func fetchTransaction(ctx context.Context, db *pgxpool.Pool, householdID, txID uuid.UUID) (*models.Transaction, error) {
	var t models.Transaction
	err := db.QueryRow(ctx,
		`SELECT id, household_id, date, merchant, amount, currency, paid_by,
		        category, beneficiary_id, expense_type, notes, created_at, updated_at
		 FROM transactions
		 WHERE id = $1 AND household_id = $2`,
		txID, householdID,
	).Scan(
		&t.ID, &t.HouseholdID, &t.Date, &t.Merchant, &t.Amount, &t.Currency,
		&t.PaidBy, &t.Category, &t.BeneficiaryID, &t.ExpenseType, &t.Notes,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTransaction records a new expense. Rejected with 423 while the
// transaction's month is settled.
func CreateTransaction(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	household, _ := middleware.GetHousehold(c)

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	date, err := validateTransactionRequest(ctx, db, household.ID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	month := date.Format(models.MonthLayout)
	settled, err := monthSettled(ctx, db, household.ID, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check settlement status"})
		return
	}
	if settled {
		c.JSON(http.StatusLocked, gin.H{"error": fmt.Sprintf("Month %s is settled and read-only. Unsettle it first.", month)})
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = household.Currency
	}

	t := models.Transaction{
		ID:            uuid.New(),
		HouseholdID:   household.ID,
		Date:          date,
		Merchant:      req.Merchant,
		Amount:        req.Amount,
		Currency:      currency,
		PaidBy:        req.PaidBy,
		Category:      req.Category,
		BeneficiaryID: req.BeneficiaryID,
		ExpenseType:   req.ExpenseType,
		Notes:         req.Notes,
	}

	err = db.QueryRow(ctx,
		`INSERT INTO transactions (id, household_id, date, merchant, amount, currency,
		                           paid_by, category, beneficiary_id, expense_type, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		t.ID, t.HouseholdID, t.Date, t.Merchant, t.Amount, t.Currency,
		t.PaidBy, t.Category, t.BeneficiaryID, t.ExpenseType, t.Notes,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, t.ToResponse())
}

// UpdateTransaction edits an expense. Refused while either the stored
// month or the requested new month is settled. household_id is immutable.
func UpdateTransaction(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	household, _ := middleware.GetHousehold(c)

	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID format"})
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	existing, err := fetchTransaction(ctx, db, household.ID, txID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}

	date, err := validateTransactionRequest(ctx, db, household.ID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, month := range []string{existing.Month(), date.Format(models.MonthLayout)} {
		settled, err := monthSettled(ctx, db, household.ID, month)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check settlement status"})
			return
		}
		if settled {
			c.JSON(http.StatusLocked, gin.H{"error": fmt.Sprintf("Month %s is settled and read-only. Unsettle it first.", month)})
			return
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = existing.Currency
	}

	t := models.Transaction{
		ID:            txID,
		HouseholdID:   household.ID,
		Date:          date,
		Merchant:      req.Merchant,
		Amount:        req.Amount,
		Currency:      currency,
		PaidBy:        req.PaidBy,
		Category:      req.Category,
		BeneficiaryID: req.BeneficiaryID,
		ExpenseType:   req.ExpenseType,
		Notes:         req.Notes,
		CreatedAt:     existing.CreatedAt,
	}

	err = db.QueryRow(ctx,
		`UPDATE transactions
		 SET date = $1, merchant = $2, amount = $3, currency = $4, paid_by = $5,
		     category = $6, beneficiary_id = $7, expense_type = $8, notes = $9,
		     updated_at = NOW()
		 WHERE id = $10 AND household_id = $11
		 RETURNING updated_at`,
		t.Date, t.Merchant, t.Amount, t.Currency, t.PaidBy,
		t.Category, t.BeneficiaryID, t.ExpenseType, t.Notes,
		t.ID, t.HouseholdID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transaction", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, t.ToResponse())
}

// DeleteTransaction removes an expense. Refused while its month is settled.
func DeleteTransaction(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID format"})
		return
	}

	ctx := c.Request.Context()
	existing, err := fetchTransaction(ctx, db, householdID, txID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}

	settled, err := monthSettled(ctx, db, householdID, existing.Month())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check settlement status"})
		return
	}
	if settled {
		c.JSON(http.StatusLocked, gin.H{"error": fmt.Sprintf("Month %s is settled and read-only. Unsettle it first.", existing.Month())})
		return
	}

	result, err := db.Exec(ctx,
		`DELETE FROM transactions WHERE id = $1 AND household_id = $2`,
		txID, householdID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete transaction"})
		return
	}
	if result.RowsAffected() == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": txID})
}

package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yilunzh/household-finance-sub002/internal/middleware"
	"github.com/yilunzh/household-finance-sub002/internal/models"
)

// GetSplitRules returns the household's split rule set
func GetSplitRules(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	rows, err := db.Query(c.Request.Context(),
		`SELECT id, household_id, member_id, percent, created_at
		 FROM split_rules
		 WHERE household_id = $1
		 ORDER BY percent DESC, member_id ASC`,
		householdID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query split rules"})
		return
	}
	defer rows.Close()

	rules := []models.SplitRule{}
	total := 0
	for rows.Next() {
		var r models.SplitRule
		if err := rows.Scan(&r.ID, &r.HouseholdID, &r.MemberID, &r.Percent, &r.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse split rule data"})
			return
		}
		rules = append(rules, r)
		total += r.Percent
	}

	c.JSON(http.StatusOK, gin.H{
		"split_rules":   rules,
		"total_percent": total,
		"effective":     len(rules) > 0 && total == 100,
	})
}

type SplitRuleEntry struct {
	MemberID uuid.UUID `json:"member_id" binding:"required"`
	Percent  int       `json:"percent" binding:"required"`
}

type PutSplitRulesRequest struct {
	Rules []SplitRuleEntry `json:"rules"`
}

// PutSplitRules replaces the household's split rule set atomically (owner
// only). An empty rule set clears custom splits and restores the even split.
// Percentages must sum to exactly 100 and each member may appear once.
func PutSplitRules(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	var req PutSplitRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()

	if len(req.Rules) > 0 {
		total := 0
		seen := map[uuid.UUID]bool{}
		for _, entry := range req.Rules {
			if entry.Percent <= 0 || entry.Percent > 100 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Each percent must be between 1 and 100"})
				return
			}
			if seen[entry.MemberID] {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Each member may appear at most once"})
				return
			}
			seen[entry.MemberID] = true
			total += entry.Percent

			isMember, err := isHouseholdMember(ctx, db, householdID, entry.MemberID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
				return
			}
			if !isMember {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Member %s is not an active member of the household", entry.MemberID)})
				return
			}
		}
		if total != 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Percentages must sum to 100, got %d", total)})
			return
		}
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to begin transaction"})
		return
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM split_rules WHERE household_id = $1`, householdID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear split rules"})
		return
	}

	rules := []models.SplitRule{}
	for _, entry := range req.Rules {
		r := models.SplitRule{
			ID:          uuid.New(),
			HouseholdID: householdID,
			MemberID:    entry.MemberID,
			Percent:     entry.Percent,
		}
		err := tx.QueryRow(ctx,
			`INSERT INTO split_rules (id, household_id, member_id, percent)
			 VALUES ($1, $2, $3, $4)
			 RETURNING created_at`,
			r.ID, r.HouseholdID, r.MemberID, r.Percent,
		).Scan(&r.CreatedAt)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save split rules"})
			return
		}
		rules = append(rules, r)
	}

	if err := tx.Commit(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit split rules"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"split_rules": rules})
}

// ListBudgetRules returns the household's budget rules
func ListBudgetRules(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	rows, err := db.Query(c.Request.Context(),
		`SELECT id, household_id, category, expense_type, monthly_limit, active, created_at
		 FROM budget_rules
		 WHERE household_id = $1
		 ORDER BY created_at ASC`,
		householdID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query budget rules"})
		return
	}
	defer rows.Close()

	rules := []models.BudgetRule{}
	for rows.Next() {
		var r models.BudgetRule
		if err := rows.Scan(&r.ID, &r.HouseholdID, &r.Category, &r.ExpenseType, &r.MonthlyLimit, &r.Active, &r.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse budget rule data"})
			return
		}
		rules = append(rules, r)
	}

	c.JSON(http.StatusOK, gin.H{
		"budget_rules": rules,
		"count":        len(rules),
	})
}

type BudgetRuleRequest struct {
	Category     *string         `json:"category,omitempty"`
	ExpenseType  *string         `json:"expense_type,omitempty"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit" binding:"required"`
	Active       *bool           `json:"active,omitempty"`
}

// CreateBudgetRule adds a monthly spending cap (owner only)
func CreateBudgetRule(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	var req BudgetRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if !req.MonthlyLimit.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Monthly limit must be positive"})
		return
	}
	if req.Category != nil && !models.ValidCategory(*req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid category %q", *req.Category)})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := models.BudgetRule{
		ID:           uuid.New(),
		HouseholdID:  householdID,
		Category:     req.Category,
		ExpenseType:  req.ExpenseType,
		MonthlyLimit: req.MonthlyLimit,
		Active:       active,
	}

	err := db.QueryRow(c.Request.Context(),
		`INSERT INTO budget_rules (id, household_id, category, expense_type, monthly_limit, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		rule.ID, rule.HouseholdID, rule.Category, rule.ExpenseType, rule.MonthlyLimit, rule.Active,
	).Scan(&rule.CreatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create budget rule"})
		return
	}

	c.JSON(http.StatusCreated, rule)
}

type UpdateBudgetRuleRequest struct {
	MonthlyLimit *decimal.Decimal `json:"monthly_limit,omitempty"`
	Active       *bool            `json:"active,omitempty"`
}

// UpdateBudgetRule changes a rule's limit or active flag (owner only)
func UpdateBudgetRule(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid budget rule ID format"})
		return
	}

	var req UpdateBudgetRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if req.MonthlyLimit != nil && !req.MonthlyLimit.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Monthly limit must be positive"})
		return
	}

	var rule models.BudgetRule
	err = db.QueryRow(c.Request.Context(),
		`UPDATE budget_rules
		 SET monthly_limit = COALESCE($1, monthly_limit),
		     active = COALESCE($2, active)
		 WHERE id = $3 AND household_id = $4
		 RETURNING id, household_id, category, expense_type, monthly_limit, active, created_at`,
		req.MonthlyLimit, req.Active, ruleID, householdID,
	).Scan(&rule.ID, &rule.HouseholdID, &rule.Category, &rule.ExpenseType,
		&rule.MonthlyLimit, &rule.Active, &rule.CreatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Budget rule not found"})
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteBudgetRule removes a budget rule (owner only)
func DeleteBudgetRule(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid budget rule ID format"})
		return
	}

	result, err := db.Exec(c.Request.Context(),
		`DELETE FROM budget_rules WHERE id = $1 AND household_id = $2`,
		ruleID, householdID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete budget rule"})
		return
	}
	if result.RowsAffected() == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Budget rule not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": ruleID})
}

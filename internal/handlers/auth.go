package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yilunzh/household-finance-sub002/internal/auth"
	"github.com/yilunzh/household-finance-sub002/internal/middleware"
)

type RegisterRequest struct {
	HouseholdName string `json:"household_name" binding:"required"`
	Slug          string `json:"slug" binding:"required"`
	Username      string `json:"username" binding:"required"`
	DisplayName   string `json:"display_name" binding:"required"`
	Password      string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token       string    `json:"token"`
	MemberID    uuid.UUID `json:"member_id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	HouseholdID uuid.UUID `json:"household_id"`
}

// Register creates a new household with its owner member and returns a token.
// It is the one platform-level write: it runs without household context.
func Register(db *pgxpool.Pool, jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
			return
		}

		slug := strings.ToLower(strings.TrimSpace(req.Slug))
		if !middleware.ValidateSlug(slug) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slug. Use 3-50 lowercase letters, numbers, and hyphens"})
			return
		}
		username := strings.ToLower(strings.TrimSpace(req.Username))
		if username == "" || strings.TrimSpace(req.DisplayName) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and display name are required"})
			return
		}

		passwordHash, err := auth.HashPassword(req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrPasswordTooShort) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			}
			return
		}

		ctx := c.Request.Context()
		tx, err := db.Begin(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to begin transaction"})
			return
		}
		defer tx.Rollback(ctx)

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM households WHERE slug = $1)`, slug).Scan(&exists); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check slug"})
			return
		}
		if exists {
			c.JSON(http.StatusConflict, gin.H{"error": "Slug already taken"})
			return
		}

		householdID := uuid.New()
		_, err = tx.Exec(ctx,
			`INSERT INTO households (id, slug, name) VALUES ($1, $2, $3)`,
			householdID, slug, req.HouseholdName,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create household"})
			return
		}

		memberID := uuid.New()
		_, err = tx.Exec(ctx,
			`INSERT INTO members (id, household_id, username, display_name, role, password_hash)
			 VALUES ($1, $2, $3, $4, 'owner', $5)`,
			memberID, householdID, username, req.DisplayName, passwordHash,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create owner member"})
			return
		}

		if err := tx.Commit(ctx); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit registration"})
			return
		}

		token, err := jwtService.GenerateToken(memberID, householdID, username, "owner")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusCreated, LoginResponse{
			Token:       token,
			MemberID:    memberID,
			Username:    username,
			Role:        "owner",
			HouseholdID: householdID,
		})
	}
}

// Login authenticates a household member and returns a JWT token
func Login(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		db, ok := middleware.GetDB(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
			return
		}

		household, ok := middleware.GetHousehold(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Household context required"})
			return
		}

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
			return
		}

		// Normalize username to lowercase
		username := strings.ToLower(strings.TrimSpace(req.Username))

		query := `
			SELECT id, username, display_name, role, password_hash, is_active
			FROM members
			WHERE household_id = $1 AND LOWER(username) = $2
		`

		var memberID uuid.UUID
		var dbUsername, displayName, role string
		var passwordHash *string
		var isActive bool

		err := db.QueryRow(c.Request.Context(), query, household.ID, username).Scan(
			&memberID, &dbUsername, &displayName, &role, &passwordHash, &isActive,
		)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}

		if !isActive || passwordHash == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Login is not enabled for this member"})
			return
		}

		if !auth.CheckPassword(*passwordHash, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}

		token, err := jwtService.GenerateToken(memberID, household.ID, dbUsername, role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, LoginResponse{
			Token:       token,
			MemberID:    memberID,
			Username:    dbUsername,
			Role:        role,
			HouseholdID: household.ID,
		})
	}
}

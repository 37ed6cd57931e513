package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yilunzh/household-finance-sub002/internal/auth"
	"github.com/yilunzh/household-finance-sub002/internal/middleware"
	"github.com/yilunzh/household-finance-sub002/internal/models"
)

// GetHouseholdProfile returns the household with its members
func GetHouseholdProfile(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	household, _ := middleware.GetHousehold(c)

	query := `
		SELECT id, username, display_name, role, is_active, created_at
		FROM members
		WHERE household_id = $1
		ORDER BY role DESC, display_name ASC
	`

	rows, err := db.Query(c.Request.Context(), query, household.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query members"})
		return
	}
	defer rows.Close()

	members := []models.MemberResponse{}
	for rows.Next() {
		var m models.MemberResponse
		err := rows.Scan(&m.ID, &m.Username, &m.DisplayName, &m.Role, &m.IsActive, &m.CreatedAt)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse member data"})
			return
		}
		members = append(members, m)
	}

	c.JSON(http.StatusOK, gin.H{
		"household": household,
		"members":   members,
		"count":     len(members),
	})
}

// ListMembers returns all active members in the household
func ListMembers(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	query := `
		SELECT id, username, display_name, role, is_active, created_at
		FROM members
		WHERE household_id = $1 AND is_active = true
		ORDER BY role DESC, display_name ASC
	`

	rows, err := db.Query(c.Request.Context(), query, householdID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query members"})
		return
	}
	defer rows.Close()

	members := []models.MemberResponse{}
	for rows.Next() {
		var m models.MemberResponse
		err := rows.Scan(&m.ID, &m.Username, &m.DisplayName, &m.Role, &m.IsActive, &m.CreatedAt)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse member data"})
			return
		}
		members = append(members, m)
	}

	c.JSON(http.StatusOK, gin.H{
		"members": members,
		"count":   len(members),
	})
}

type CreateMemberRequest struct {
	Username    string  `json:"username" binding:"required"`
	DisplayName string  `json:"display_name" binding:"required"`
	Password    *string `json:"password,omitempty"`
}

// CreateMember adds a member to the household (owner only)
func CreateMember(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	displayName := strings.TrimSpace(req.DisplayName)
	if username == "" || displayName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and display name are required"})
		return
	}

	var passwordHash *string
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		passwordHash = &hash
	}

	var taken bool
	err := db.QueryRow(c.Request.Context(),
		`SELECT EXISTS(SELECT 1 FROM members WHERE household_id = $1 AND LOWER(username) = $2)`,
		householdID, username,
	).Scan(&taken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check username"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already exists in this household"})
		return
	}

	member := models.Member{
		ID:          uuid.New(),
		HouseholdID: householdID,
		Username:    username,
		DisplayName: displayName,
		Role:        models.RoleMember,
		IsActive:    true,
	}

	err = db.QueryRow(c.Request.Context(),
		`INSERT INTO members (id, household_id, username, display_name, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		member.ID, member.HouseholdID, member.Username, member.DisplayName, member.Role, passwordHash,
	).Scan(&member.CreatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create member"})
		return
	}

	c.JSON(http.StatusCreated, member.ToResponse())
}

type UpdateMemberRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// UpdateMember updates a member's display name or active flag (owner only)
func UpdateMember(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection not found"})
		return
	}
	householdID, _ := middleware.GetHouseholdID(c)

	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member ID format"})
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if req.DisplayName != nil && strings.TrimSpace(*req.DisplayName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Display name cannot be empty"})
		return
	}

	var member models.Member
	err = db.QueryRow(c.Request.Context(),
		`UPDATE members
		 SET display_name = COALESCE($1, display_name),
		     is_active = COALESCE($2, is_active)
		 WHERE id = $3 AND household_id = $4
		 RETURNING id, household_id, username, display_name, role, is_active, created_at`,
		req.DisplayName, req.IsActive, memberID, householdID,
	).Scan(&member.ID, &member.HouseholdID, &member.Username, &member.DisplayName,
		&member.Role, &member.IsActive, &member.CreatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	c.JSON(http.StatusOK, member.ToResponse())
}

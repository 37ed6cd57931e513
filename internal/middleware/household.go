package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yilunzh/household-finance-sub002/internal/models"
)

// contextKey is the key type for household context values
type contextKey string

const (
	HouseholdContextKey contextKey = "household"
	HouseholdIDKey      contextKey = "household_id"
	HouseholdSlugKey    contextKey = "household_slug"
	DBKey               contextKey = "db"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

// HouseholdProvider interface for resolving households by slug
type HouseholdProvider interface {
	GetBySlug(ctx context.Context, slug string) (*models.Household, error)
}

// ExtractHouseholdSlug extracts the household slug from subdomain
// Examples:
//   - smith.householdfinance.app → "smith"
//   - garcia-nyc.householdfinance.app → "garcia-nyc"
//   - api.householdfinance.app → "" (no household, API-only)
func ExtractHouseholdSlug(host string, baseDomain string) string {
	// Remove port if present
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}

	host = strings.ToLower(host)
	baseDomain = strings.ToLower(baseDomain)

	// If host equals base domain or www, no slug
	if host == baseDomain || host == "www."+baseDomain {
		return ""
	}

	// Check if host ends with base domain
	if !strings.HasSuffix(host, "."+baseDomain) {
		return ""
	}

	// Extract subdomain
	slug := strings.TrimSuffix(host, "."+baseDomain)

	// Reserved subdomains that are not household slugs
	reserved := map[string]bool{
		"api":     true,
		"www":     true,
		"app":     true,
		"admin":   true,
		"staging": true,
		"dev":     true,
	}

	if reserved[slug] {
		return ""
	}

	return slug
}

// HouseholdMiddleware extracts the household slug from the subdomain and
// loads the household context plus the shared DB handle. A missing or
// unknown slug yields 404; tenancy failures never distinguish "exists but
// not yours" from "does not exist".
func HouseholdMiddleware(provider HouseholdProvider, db *pgxpool.Pool, baseDomain string) gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host
		slug := ExtractHouseholdSlug(host, baseDomain)

		// If no slug, continue without household context (API-only routes)
		if slug == "" {
			c.Next()
			return
		}

		// Validate slug format
		if !ValidateSlug(slug) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid household identifier",
			})
			c.Abort()
			return
		}

		household, err := provider.GetBySlug(c.Request.Context(), slug)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Household not found",
				"slug":  slug,
			})
			c.Abort()
			return
		}

		// Store household info and DB connection in context
		c.Set(string(HouseholdIDKey), household.ID)
		c.Set(string(HouseholdSlugKey), household.Slug)
		c.Set(string(HouseholdContextKey), household)
		c.Set(string(DBKey), db)

		c.Next()
	}
}

// RequireHousehold ensures a household context exists
func RequireHousehold() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, exists := c.Get(string(HouseholdIDKey))
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Household context required. Please access via your household subdomain (e.g., yourhousehold.householdfinance.app)",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetHouseholdID retrieves household ID from context
func GetHouseholdID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(string(HouseholdIDKey))
	if !exists {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}

// GetHouseholdSlug retrieves household slug from context
func GetHouseholdSlug(c *gin.Context) (string, bool) {
	val, exists := c.Get(string(HouseholdSlugKey))
	if !exists {
		return "", false
	}
	slug, ok := val.(string)
	return slug, ok
}

// GetDB retrieves the database connection from context
func GetDB(c *gin.Context) (*pgxpool.Pool, bool) {
	val, exists := c.Get(string(DBKey))
	if !exists {
		return nil, false
	}
	db, ok := val.(*pgxpool.Pool)
	return db, ok
}

// GetHousehold retrieves full household object from context
func GetHousehold(c *gin.Context) (*models.Household, bool) {
	val, exists := c.Get(string(HouseholdContextKey))
	if !exists {
		return nil, false
	}
	household, ok := val.(*models.Household)
	return household, ok
}

// ValidateSlug checks if a slug is valid
// Rules:
//   - 3-50 characters
//   - Lowercase letters, numbers, hyphens only
//   - Must start and end with letter or number
//   - Cannot have consecutive hyphens
func ValidateSlug(slug string) bool {
	if len(slug) < 3 || len(slug) > 50 {
		return false
	}

	if !slugRegex.MatchString(slug) {
		return false
	}

	// No consecutive hyphens
	if strings.Contains(slug, "--") {
		return false
	}

	return true
}

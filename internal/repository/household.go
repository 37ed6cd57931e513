package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yilunzh/household-finance-sub002/internal/models"
)

var ErrHouseholdNotFound = errors.New("household not found")
var ErrSlugTaken = errors.New("slug already taken")

type HouseholdRepository struct {
	db *pgxpool.Pool
}

func NewHouseholdRepository(db *pgxpool.Pool) *HouseholdRepository {
	return &HouseholdRepository{db: db}
}

// GetBySlug retrieves a household by its slug
func (r *HouseholdRepository) GetBySlug(ctx context.Context, slug string) (*models.Household, error) {
	query := `
		SELECT id, slug, name, currency, created_at, updated_at
		FROM households
		WHERE slug = $1
	`

	var household models.Household
	err := r.db.QueryRow(ctx, query, slug).Scan(
		&household.ID,
		&household.Slug,
		&household.Name,
		&household.Currency,
		&household.CreatedAt,
		&household.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHouseholdNotFound
		}
		return nil, err
	}

	return &household, nil
}

// GetByID retrieves a household by ID
func (r *HouseholdRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Household, error) {
	query := `
		SELECT id, slug, name, currency, created_at, updated_at
		FROM households
		WHERE id = $1
	`

	var household models.Household
	err := r.db.QueryRow(ctx, query, id).Scan(
		&household.ID,
		&household.Slug,
		&household.Name,
		&household.Currency,
		&household.CreatedAt,
		&household.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHouseholdNotFound
		}
		return nil, err
	}

	return &household, nil
}

// SlugExists checks if a slug is already in use
func (r *HouseholdRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM households WHERE slug = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, slug).Scan(&exists)
	return exists, err
}

// Create creates a new household with the given slug
func (r *HouseholdRepository) Create(ctx context.Context, household *models.Household) error {
	exists, err := r.SlugExists(ctx, household.Slug)
	if err != nil {
		return err
	}
	if exists {
		return ErrSlugTaken
	}

	query := `
		INSERT INTO households (id, slug, name, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if household.ID == uuid.Nil {
		household.ID = uuid.New()
	}
	if household.Currency == "" {
		household.Currency = "USD"
	}

	return r.db.QueryRow(ctx, query,
		household.ID,
		household.Slug,
		household.Name,
		household.Currency,
	).Scan(&household.CreatedAt, &household.UpdatedAt)
}

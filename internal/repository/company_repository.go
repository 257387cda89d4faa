package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

type CompanyRepository struct {
	db *sqlx.DB
}

func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	query := `
        INSERT INTO companies (id, name, owner_id)
        VALUES ($1, $2, $3)
        RETURNING created_at`

	return r.db.QueryRowContext(
		ctx,
		query,
		company.ID,
		company.Name,
		company.OwnerID,
	).Scan(&company.CreatedAt)
}

func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	var company domain.Company
	query := `SELECT id, name, owner_id, created_at FROM companies WHERE id = $1`

	err := r.db.GetContext(ctx, &company, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("company %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &company, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, record *domain.AuditRecord) error {
	query := `
        INSERT INTO audit_records (user_id, action, document_id, token, detail)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		record.UserID,
		record.Action,
		record.DocumentID,
		record.Token,
		record.Detail,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	return nil
}

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

type ShareRepository struct {
	db *sqlx.DB
}

func NewShareRepository(db *sqlx.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

// UpsertCompanyShare создает share или реактивирует существующий:
// пара (company_id, shared_with_user_id) уникальна, повторная выдача
// обновляет уровень, срок и статус вместо вставки дубликата.
func (r *ShareRepository) UpsertCompanyShare(ctx context.Context, share *domain.CompanyShare) error {
	query := `
        INSERT INTO company_shares (
            id, company_id, shared_with_user_id, permission_level, status, valid_until
        ) VALUES ($1, $2, $3, $4, 'active', $5)
        ON CONFLICT (company_id, shared_with_user_id) DO UPDATE SET
            permission_level = EXCLUDED.permission_level,
            valid_until = EXCLUDED.valid_until,
            status = 'active',
            updated_at = CURRENT_TIMESTAMP
        RETURNING id, created_at, updated_at`

	share.Status = domain.ShareStatusActive
	return r.db.QueryRowContext(
		ctx,
		query,
		share.ID,
		share.CompanyID,
		share.SharedWithUserID,
		share.PermissionLevel,
		share.ValidUntil,
	).Scan(&share.ID, &share.CreatedAt, &share.UpdatedAt)
}

// GetCompanyShare возвращает share пользователя на компанию независимо
// от статуса. Отсутствие записи — не ошибка: резолвер трактует его как
// отсутствие прав.
func (r *ShareRepository) GetCompanyShare(ctx context.Context, companyID uuid.UUID, userID string) (*domain.CompanyShare, error) {
	var share domain.CompanyShare
	query := `
        SELECT id, company_id, shared_with_user_id, permission_level,
               status, valid_until, created_at, updated_at
        FROM company_shares
        WHERE company_id = $1 AND shared_with_user_id = $2`

	err := r.db.GetContext(ctx, &share, query, companyID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company share: %w", err)
	}

	return &share, nil
}

func (r *ShareRepository) RevokeCompanyShare(ctx context.Context, companyID uuid.UUID, userID string) error {
	query := `
        UPDATE company_shares
        SET status = 'revoked', updated_at = CURRENT_TIMESTAMP
        WHERE company_id = $1 AND shared_with_user_id = $2 AND status = 'active'`

	result, err := r.db.ExecContext(ctx, query, companyID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke company share: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("company share: %w", domain.ErrNotFound)
	}

	return nil
}

// UpsertDocumentShare — аналогично UpsertCompanyShare, но на один документ
func (r *ShareRepository) UpsertDocumentShare(ctx context.Context, share *domain.DocumentShare) error {
	query := `
        INSERT INTO document_shares (
            id, document_id, shared_with_user_id, permission_level, status, valid_until
        ) VALUES ($1, $2, $3, $4, 'active', $5)
        ON CONFLICT (document_id, shared_with_user_id) DO UPDATE SET
            permission_level = EXCLUDED.permission_level,
            valid_until = EXCLUDED.valid_until,
            status = 'active',
            updated_at = CURRENT_TIMESTAMP
        RETURNING id, created_at, updated_at`

	share.Status = domain.ShareStatusActive
	return r.db.QueryRowContext(
		ctx,
		query,
		share.ID,
		share.DocumentID,
		share.SharedWithUserID,
		share.PermissionLevel,
		share.ValidUntil,
	).Scan(&share.ID, &share.CreatedAt, &share.UpdatedAt)
}

func (r *ShareRepository) GetDocumentShare(ctx context.Context, documentID uuid.UUID, userID string) (*domain.DocumentShare, error) {
	var share domain.DocumentShare
	query := `
        SELECT id, document_id, shared_with_user_id, permission_level,
               status, valid_until, created_at, updated_at
        FROM document_shares
        WHERE document_id = $1 AND shared_with_user_id = $2`

	err := r.db.GetContext(ctx, &share, query, documentID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document share: %w", err)
	}

	return &share, nil
}

func (r *ShareRepository) RevokeDocumentShare(ctx context.Context, documentID uuid.UUID, userID string) error {
	query := `
        UPDATE document_shares
        SET status = 'revoked', updated_at = CURRENT_TIMESTAMP
        WHERE document_id = $1 AND shared_with_user_id = $2 AND status = 'active'`

	result, err := r.db.ExecContext(ctx, query, documentID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke document share: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document share: %w", domain.ErrNotFound)
	}

	return nil
}

// GetSharedWithUser возвращает активные company-shares пользователя
func (r *ShareRepository) GetSharedWithUser(ctx context.Context, userID string) ([]domain.CompanyShare, error) {
	query := `
        SELECT id, company_id, shared_with_user_id, permission_level,
               status, valid_until, created_at, updated_at
        FROM company_shares
        WHERE shared_with_user_id = $1
        AND status = 'active'
        AND (valid_until IS NULL OR valid_until > CURRENT_TIMESTAMP)
        ORDER BY created_at DESC`

	var shares []domain.CompanyShare
	err := r.db.SelectContext(ctx, &shares, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user shares: %w", err)
	}

	return shares, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

type TokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, token *domain.DeliveryToken) error {
	query := `
        INSERT INTO delivery_tokens (
            token, document_id, user_id, purpose, expires_at, used
        ) VALUES ($1, $2, $3, $4, $5, false)
        RETURNING created_at`

	return r.db.QueryRowContext(
		ctx,
		query,
		token.Token,
		token.DocumentID,
		token.UserID,
		token.Purpose,
		token.ExpiresAt,
	).Scan(&token.CreatedAt)
}

func (r *TokenRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.DeliveryToken, error) {
	var token domain.DeliveryToken
	query := `
        SELECT token, document_id, user_id, purpose, expires_at, used, used_at, created_at
        FROM delivery_tokens
        WHERE token = $1`

	err := r.db.GetContext(ctx, &token, query, tokenStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to get delivery token: %w", err)
	}

	return &token, nil
}

// Consume атомарно помечает токен использованным. Условие used = false
// в WHERE гарантирует, что из конкурирующих погашений одного токена
// ровно одно увидит rows = 1; проигравшие получают ErrTokenAlreadyUsed.
func (r *TokenRepository) Consume(ctx context.Context, tokenStr string, now time.Time) error {
	query := `
        UPDATE delivery_tokens
        SET used = true, used_at = $2
        WHERE token = $1 AND used = false`

	result, err := r.db.ExecContext(ctx, query, tokenStr, now)
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrTokenAlreadyUsed
	}

	return nil
}

// DeleteTerminal удаляет терминальные токены: просроченные, либо
// погашенные более суток назад. Вызывается фоновой задачей; операция
// идемпотентна и безопасна при параллельной выдаче и погашении.
func (r *TokenRepository) DeleteTerminal(ctx context.Context) (int64, error) {
	query := `
        DELETE FROM delivery_tokens
        WHERE expires_at < CURRENT_TIMESTAMP
        OR (used = true AND used_at < CURRENT_TIMESTAMP - INTERVAL '24 hours')`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete terminal tokens: %w", err)
	}

	return result.RowsAffected()
}

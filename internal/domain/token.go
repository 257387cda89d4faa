package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenPurpose определяет назначение delivery-токена
type TokenPurpose string

const (
	PurposePreview  TokenPurpose = "PREVIEW"
	PurposeDownload TokenPurpose = "DOWNLOAD"
)

// ParseTokenPurpose разбирает назначение токена из запроса
func ParseTokenPurpose(s string) (TokenPurpose, bool) {
	switch s {
	case string(PurposePreview):
		return PurposePreview, true
	case string(PurposeDownload):
		return PurposeDownload, true
	default:
		return "", false
	}
}

// TTL возвращает срок жизни токена. Окно скачивания короче окна
// просмотра: за него должна завершиться полная передача файла.
func (p TokenPurpose) TTL() time.Duration {
	if p == PurposeDownload {
		return 2 * time.Minute
	}
	return 5 * time.Minute
}

// DeliveryToken — одноразовый токен выдачи файла.
// Жизненный цикл: создан (used=false) -> погашен (used=true, used_at)
// либо истек по времени; оба конечных состояния перманентно невалидны.
type DeliveryToken struct {
	Token      string       `json:"token" db:"token"`
	DocumentID uuid.UUID    `json:"document_id" db:"document_id"`
	UserID     string       `json:"user_id" db:"user_id"`
	Purpose    TokenPurpose `json:"purpose" db:"purpose"`
	ExpiresAt  time.Time    `json:"expires_at" db:"expires_at"`
	Used       bool         `json:"used" db:"used"`
	UsedAt     *time.Time   `json:"used_at,omitempty" db:"used_at"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// AuditRecord фиксирует попытку погашения токена — успешную или нет.
// Записывается всегда, даже когда клиенту уходит обобщенный ответ.
type AuditRecord struct {
	ID         int64      `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	Action     string     `json:"action" db:"action"`
	DocumentID *uuid.UUID `json:"document_id,omitempty" db:"document_id"`
	Token      string     `json:"token" db:"token"`
	Detail     string     `json:"detail" db:"detail"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

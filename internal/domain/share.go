package domain

import (
	"time"

	"github.com/google/uuid"
)

// ShareStatus определяет состояние выданного доступа
type ShareStatus string

const (
	ShareStatusActive  ShareStatus = "active"
	ShareStatusRevoked ShareStatus = "revoked"
)

// CompanyShare — доступ пользователя к компании целиком.
// Пара (company_id, shared_with_user_id) уникальна: повторная выдача
// реактивирует существующую запись, а не создает дубликат.
type CompanyShare struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	CompanyID        uuid.UUID       `json:"company_id" db:"company_id"`
	SharedWithUserID string          `json:"shared_with_user_id" db:"shared_with_user_id"`
	PermissionLevel  PermissionLevel `json:"permission_level" db:"permission_level"`
	Status           ShareStatus     `json:"status" db:"status"`
	ValidUntil       *time.Time      `json:"valid_until,omitempty" db:"valid_until"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// DocumentShare — доступ пользователя к отдельному документу.
// Уникальна пара (document_id, shared_with_user_id).
type DocumentShare struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	DocumentID       uuid.UUID       `json:"document_id" db:"document_id"`
	SharedWithUserID string          `json:"shared_with_user_id" db:"shared_with_user_id"`
	PermissionLevel  PermissionLevel `json:"permission_level" db:"permission_level"`
	Status           ShareStatus     `json:"status" db:"status"`
	ValidUntil       *time.Time      `json:"valid_until,omitempty" db:"valid_until"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// IsUsable проверяет, что доступ активен и не истек на момент now.
// Отозванный или просроченный share никогда не дает прав.
func (s *CompanyShare) IsUsable(now time.Time) bool {
	if s.Status != ShareStatusActive {
		return false
	}
	return s.ValidUntil == nil || s.ValidUntil.After(now)
}

func (s *DocumentShare) IsUsable(now time.Time) bool {
	if s.Status != ShareStatusActive {
		return false
	}
	return s.ValidUntil == nil || s.ValidUntil.After(now)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
)

// PermissionService вычисляет эффективный уровень доступа принципала
// к компании или документу из роли, владения и активных shares.
// Сервис только читает записи и не кэширует результаты: каждый вызов
// заново опрашивает хранилище, чтобы отзыв доступа действовал сразу.
type PermissionService struct {
	companies CompanyStore
	documents DocumentStore
	shares    ShareStore

	now func() time.Time
}

func NewPermissionService(companies CompanyStore, documents DocumentStore, shares ShareStore) *PermissionService {
	return &PermissionService{
		companies: companies,
		documents: documents,
		shares:    shares,
		now:       time.Now,
	}
}

// ActionType определяет тип операции для проверок, зависящих от действия
type ActionType string

const (
	ActionView   ActionType = "view"
	ActionEdit   ActionType = "edit"
	ActionDelete ActionType = "delete"
	ActionShare  ActionType = "share"
)

// roleCeiling возвращает уровень, который роль дает безотносительно
// владения и shares. ADMIN, SUPER_ADMIN и SUPERVISOR управляют любой
// компанией; AUDITOR видит все в режиме чтения; EMPLOYEE прав от роли
// не получает.
func roleCeiling(role domain.Role) domain.PermissionLevel {
	switch role {
	case domain.RoleAdmin, domain.RoleSuperAdmin, domain.RoleSupervisor:
		return domain.PermissionManage
	case domain.RoleAuditor:
		return domain.PermissionView
	default:
		return domain.PermissionNone
	}
}

// ResolveCompany возвращает потолок прав принципала на компанию.
// Отсутствие компании — ErrNotFound, а не NONE: вызывающий сам решает,
// раскрывать ли клиенту различие между "нет ресурса" и "нет прав".
func (s *PermissionService) ResolveCompany(ctx context.Context, principal domain.Principal, companyID uuid.UUID) (domain.PermissionLevel, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return domain.PermissionNone, err
	}

	level := roleCeiling(principal.Role)

	if company.OwnerID == principal.ID {
		level = domain.MaxPermission(level, domain.PermissionManage)
	}

	if level == domain.PermissionManage {
		return level, nil
	}

	share, err := s.shares.GetCompanyShare(ctx, companyID, principal.ID)
	if err != nil {
		return domain.PermissionNone, fmt.Errorf("failed to get company share: %w", err)
	}
	if share != nil && share.IsUsable(s.now()) {
		level = domain.MaxPermission(level, share.PermissionLevel)
	}

	return level, nil
}

// ResolveDocument возвращает эффективный уровень прав на документ:
// максимум из потолка роли, унаследованных прав на компанию, права
// загрузившего (минимум EDIT) и прямого document share. Прямой share
// только добавляет права и никогда не понижает унаследованные.
func (s *PermissionService) ResolveDocument(ctx context.Context, principal domain.Principal, documentID uuid.UUID) (domain.PermissionLevel, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return domain.PermissionNone, err
	}

	level, err := s.ResolveCompany(ctx, principal, doc.CompanyID)
	if err != nil {
		return domain.PermissionNone, err
	}

	if doc.UploadedBy == principal.ID {
		level = domain.MaxPermission(level, domain.PermissionEdit)
	}

	if level == domain.PermissionManage {
		return level, nil
	}

	share, err := s.shares.GetDocumentShare(ctx, documentID, principal.ID)
	if err != nil {
		return domain.PermissionNone, fmt.Errorf("failed to get document share: %w", err)
	}
	if share != nil && share.IsUsable(s.now()) {
		level = domain.MaxPermission(level, share.PermissionLevel)
	}

	return level, nil
}

// capForAction ограничивает потолок для конкретного действия:
// SUPERVISOR управляет компаниями, но деструктивные операции для него
// ограничены уровнем EDIT.
func capForAction(level domain.PermissionLevel, role domain.Role, action ActionType) domain.PermissionLevel {
	if action == ActionDelete && role == domain.RoleSupervisor && level > domain.PermissionEdit {
		return domain.PermissionEdit
	}
	return level
}

// ResolveCompanyForAction — ResolveCompany с учетом ограничений действия
func (s *PermissionService) ResolveCompanyForAction(ctx context.Context, principal domain.Principal, companyID uuid.UUID, action ActionType) (domain.PermissionLevel, error) {
	level, err := s.ResolveCompany(ctx, principal, companyID)
	if err != nil {
		return domain.PermissionNone, err
	}
	return capForAction(level, principal.Role, action), nil
}

// ResolveDocumentForAction — ResolveDocument с учетом ограничений действия
func (s *PermissionService) ResolveDocumentForAction(ctx context.Context, principal domain.Principal, documentID uuid.UUID, action ActionType) (domain.PermissionLevel, error) {
	level, err := s.ResolveDocument(ctx, principal, documentID)
	if err != nil {
		return domain.PermissionNone, err
	}
	return capForAction(level, principal.Role, action), nil
}

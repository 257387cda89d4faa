package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
)

// ShareService выдает и отзывает доступы к компаниям и документам
type ShareService struct {
	shares      ShareStore
	permissions *PermissionService
}

func NewShareService(shares ShareStore, permissions *PermissionService) *ShareService {
	return &ShareService{
		shares:      shares,
		permissions: permissions,
	}
}

// ShareCompany выдает пользователю доступ к компании. Повторная выдача
// тому же пользователю реактивирует существующую запись с новым
// уровнем и сроком.
func (s *ShareService) ShareCompany(
	ctx context.Context,
	principal domain.Principal,
	companyID uuid.UUID,
	targetUserID string,
	level domain.PermissionLevel,
	validUntil *time.Time,
) (*domain.CompanyShare, error) {
	own, err := s.permissions.ResolveCompanyForAction(ctx, principal, companyID, ActionShare)
	if err != nil {
		return nil, err
	}
	if !own.AtLeast(domain.PermissionManage) {
		return nil, domain.ErrForbidden
	}

	share := &domain.CompanyShare{
		ID:               uuid.New(),
		CompanyID:        companyID,
		SharedWithUserID: targetUserID,
		PermissionLevel:  level,
		ValidUntil:       validUntil,
	}
	if err := s.shares.UpsertCompanyShare(ctx, share); err != nil {
		return nil, err
	}

	return share, nil
}

func (s *ShareService) RevokeCompanyShare(ctx context.Context, principal domain.Principal, companyID uuid.UUID, targetUserID string) error {
	own, err := s.permissions.ResolveCompanyForAction(ctx, principal, companyID, ActionShare)
	if err != nil {
		return err
	}
	if !own.AtLeast(domain.PermissionManage) {
		return domain.ErrForbidden
	}

	return s.shares.RevokeCompanyShare(ctx, companyID, targetUserID)
}

func (s *ShareService) ShareDocument(
	ctx context.Context,
	principal domain.Principal,
	documentID uuid.UUID,
	targetUserID string,
	level domain.PermissionLevel,
	validUntil *time.Time,
) (*domain.DocumentShare, error) {
	own, err := s.permissions.ResolveDocumentForAction(ctx, principal, documentID, ActionShare)
	if err != nil {
		return nil, err
	}
	if !own.AtLeast(domain.PermissionManage) {
		return nil, domain.ErrForbidden
	}

	share := &domain.DocumentShare{
		ID:               uuid.New(),
		DocumentID:       documentID,
		SharedWithUserID: targetUserID,
		PermissionLevel:  level,
		ValidUntil:       validUntil,
	}
	if err := s.shares.UpsertDocumentShare(ctx, share); err != nil {
		return nil, err
	}

	return share, nil
}

func (s *ShareService) RevokeDocumentShare(ctx context.Context, principal domain.Principal, documentID uuid.UUID, targetUserID string) error {
	own, err := s.permissions.ResolveDocumentForAction(ctx, principal, documentID, ActionShare)
	if err != nil {
		return err
	}
	if !own.AtLeast(domain.PermissionManage) {
		return domain.ErrForbidden
	}

	return s.shares.RevokeDocumentShare(ctx, documentID, targetUserID)
}

// GetSharedWithMe возвращает активные доступы пользователя к чужим компаниям
func (s *ShareService) GetSharedWithMe(ctx context.Context, principal domain.Principal) ([]domain.CompanyShare, error) {
	return s.shares.GetSharedWithUser(ctx, principal.ID)
}

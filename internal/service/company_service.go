package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"docvault/internal/domain"
)

// Имя корневой папки, создаваемой вместе с компанией
const rootFolderName = "Documents"

type CompanyService struct {
	companies   CompanyStore
	folders     FolderStore
	permissions *PermissionService
}

func NewCompanyService(companies CompanyStore, folders FolderStore, permissions *PermissionService) *CompanyService {
	return &CompanyService{
		companies:   companies,
		folders:     folders,
		permissions: permissions,
	}
}

// Create создает компанию с вызывающим в роли владельца и ее корневую
// папку. Владелец назначается один раз и не меняется.
func (s *CompanyService) Create(ctx context.Context, principal domain.Principal, name string) (*domain.Company, error) {
	company := &domain.Company{
		ID:      uuid.New(),
		Name:    name,
		OwnerID: principal.ID,
	}

	if err := s.companies.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	root := &domain.Folder{
		CompanyID: company.ID,
		Name:      rootFolderName,
	}
	if err := s.folders.Create(ctx, root); err != nil {
		return nil, fmt.Errorf("failed to create root folder: %w", err)
	}

	return company, nil
}

func (s *CompanyService) Get(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Company, error) {
	level, err := s.permissions.ResolveCompany(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !level.AtLeast(domain.PermissionView) {
		return nil, domain.ErrForbidden
	}
	return s.companies.GetByID(ctx, id)
}

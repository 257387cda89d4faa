package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docvault/internal/domain"
)

// FolderService поддерживает иерархию папок компании и ее
// материализованные пути
type FolderService struct {
	folders     FolderStore
	permissions *PermissionService
}

func NewFolderService(folders FolderStore, permissions *PermissionService) *FolderService {
	return &FolderService{
		folders:     folders,
		permissions: permissions,
	}
}

func (s *FolderService) requireCompanyLevel(ctx context.Context, principal domain.Principal, companyID uuid.UUID, required domain.PermissionLevel) error {
	level, err := s.permissions.ResolveCompany(ctx, principal, companyID)
	if err != nil {
		return err
	}
	if !level.AtLeast(required) {
		return domain.ErrForbidden
	}
	return nil
}

func (s *FolderService) CreateFolder(ctx context.Context, principal domain.Principal, companyID uuid.UUID, parentID *int64, name string) (*domain.Folder, error) {
	if err := domain.ValidateFolderName(name); err != nil {
		return nil, err
	}

	if err := s.requireCompanyLevel(ctx, principal, companyID, domain.PermissionEdit); err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.folders.GetByID(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get parent folder: %w", err)
		}
		if parent.CompanyID != companyID {
			return nil, fmt.Errorf("parent folder: %w", domain.ErrNotFound)
		}
	}

	exists, err := s.folders.HasSibling(ctx, companyID, parentID, name, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateFolderName
	}

	folder := &domain.Folder{
		CompanyID: companyID,
		ParentID:  parentID,
		Name:      name,
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return folder, nil
}

// RenameFolder меняет имя папки и каскадно переписывает пути всех
// потомков. Новый путь вычисляется заменой последнего сегмента.
func (s *FolderService) RenameFolder(ctx context.Context, principal domain.Principal, folderID int64, newName string) (*domain.Folder, error) {
	if err := domain.ValidateFolderName(newName); err != nil {
		return nil, err
	}

	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}

	if err := s.requireCompanyLevel(ctx, principal, folder.CompanyID, domain.PermissionEdit); err != nil {
		return nil, err
	}

	exists, err := s.folders.HasSibling(ctx, folder.CompanyID, folder.ParentID, newName, folder.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateFolderName
	}

	parentPrefix := strings.TrimSuffix(folder.Path, folder.Name+"/")
	newPath := parentPrefix + newName + "/"

	if err := s.folders.Rename(ctx, folder, newName, newPath); err != nil {
		return nil, err
	}

	folder.Name = newName
	folder.Path = newPath
	return folder, nil
}

// MoveFolder переносит папку под нового родителя. Перемещение в
// собственное поддерево (включая саму папку) запрещено: путь целевого
// родителя не может начинаться с пути перемещаемой папки.
func (s *FolderService) MoveFolder(ctx context.Context, principal domain.Principal, folderID, newParentID int64) (*domain.Folder, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}

	newParent, err := s.folders.GetByID(ctx, newParentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get target folder: %w", err)
	}

	// Перемещение между компаниями не поддерживается
	if newParent.CompanyID != folder.CompanyID {
		return nil, fmt.Errorf("target folder: %w", domain.ErrNotFound)
	}

	if err := s.requireCompanyLevel(ctx, principal, folder.CompanyID, domain.PermissionEdit); err != nil {
		return nil, err
	}

	if domain.IsDescendantPath(newParent.Path, folder.Path) {
		return nil, domain.ErrCyclicMove
	}

	exists, err := s.folders.HasSibling(ctx, folder.CompanyID, &newParentID, folder.Name, folder.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateFolderName
	}

	newPath := domain.ChildPath(newParent.Path, folder.Name)
	levelDelta := newParent.Level + 1 - folder.Level

	if err := s.folders.Move(ctx, folder, newParentID, newPath, levelDelta); err != nil {
		return nil, err
	}

	folder.ParentID = &newParentID
	folder.Path = newPath
	folder.Level += levelDelta
	return folder, nil
}

// GetStructure возвращает дерево папок компании, упорядоченное по путям
func (s *FolderService) GetStructure(ctx context.Context, principal domain.Principal, companyID uuid.UUID) ([]domain.Folder, error) {
	if err := s.requireCompanyLevel(ctx, principal, companyID, domain.PermissionView); err != nil {
		return nil, err
	}
	return s.folders.GetCompanyFolders(ctx, companyID)
}

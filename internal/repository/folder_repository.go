package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var parentPath string
	var level int

	if folder.ParentID != nil {
		// Сначала получаем данные родительской папки
		err := tx.QueryRowContext(ctx,
			"SELECT path, level FROM folders WHERE id = $1 AND company_id = $2",
			folder.ParentID, folder.CompanyID,
		).Scan(&parentPath, &level)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("parent folder: %w", domain.ErrNotFound)
			}
			return fmt.Errorf("failed to get parent folder: %w", err)
		}
		level++
	}

	path := domain.ChildPath(parentPath, folder.Name)

	query := `
        INSERT INTO folders (company_id, parent_id, name, path, level)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(
		ctx,
		query,
		folder.CompanyID,
		folder.ParentID,
		folder.Name,
		path,
		level,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	folder.Path = path
	folder.Level = level

	return tx.Commit()
}

func (r *FolderRepository) GetByID(ctx context.Context, id int64) (*domain.Folder, error) {
	var folder domain.Folder
	query := `
        SELECT id, company_id, parent_id, name, path, level, created_at, updated_at
        FROM folders
        WHERE id = $1`

	err := r.db.GetContext(ctx, &folder, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return &folder, nil
}

// HasSibling проверяет наличие папки с тем же именем у того же родителя
func (r *FolderRepository) HasSibling(ctx context.Context, companyID uuid.UUID, parentID *int64, name string, excludeID int64) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM folders
            WHERE company_id = $1
            AND parent_id IS NOT DISTINCT FROM $2
            AND name = $3
            AND id != $4
        )`

	err := r.db.GetContext(ctx, &exists, query, companyID, parentID, name, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check folder existence: %w", err)
	}

	return exists, nil
}

// Rename обновляет имя и путь папки и переписывает пути всех потомков
// заменой старого префикса на новый. Каскад и само переименование
// выполняются одной транзакцией: частично перезаписанного дерева
// снаружи не видно.
func (r *FolderRepository) Rename(ctx context.Context, folder *domain.Folder, newName, newPath string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.rewriteSubtree(ctx, tx, folder.CompanyID, folder.Path, newPath, 0); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE folders SET name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		newName, folder.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to rename folder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("folder %d: %w", folder.ID, domain.ErrNotFound)
	}

	return tx.Commit()
}

// Move переносит папку под нового родителя с тем же каскадом путей.
// levelDelta — изменение глубины, применяется ко всему поддереву.
func (r *FolderRepository) Move(ctx context.Context, folder *domain.Folder, newParentID int64, newPath string, levelDelta int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.rewriteSubtree(ctx, tx, folder.CompanyID, folder.Path, newPath, levelDelta); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE folders SET parent_id = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		newParentID, folder.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to move folder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("folder %d: %w", folder.ID, domain.ErrNotFound)
	}

	return tx.Commit()
}

// rewriteSubtree переписывает префикс пути у папки и всех ее потомков.
// Сравнение по left(), а не LIKE: в именах папок допустимо
// подчеркивание, которое в LIKE было бы метасимволом.
func (r *FolderRepository) rewriteSubtree(ctx context.Context, tx *sqlx.Tx, companyID uuid.UUID, oldPath, newPath string, levelDelta int) error {
	query := `
        UPDATE folders
        SET path = $3 || substr(path, char_length($2) + 1),
            level = level + $4,
            updated_at = CURRENT_TIMESTAMP
        WHERE company_id = $1
        AND left(path, char_length($2)) = $2`

	result, err := tx.ExecContext(ctx, query, companyID, oldPath, newPath, levelDelta)
	if err != nil {
		return fmt.Errorf("failed to rewrite subtree paths: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	log.Printf("[FolderRepository] Переписано путей: %d (%s -> %s)", rows, oldPath, newPath)
	return nil
}

// GetCompanyFolders возвращает все папки компании, отсортированные по пути
func (r *FolderRepository) GetCompanyFolders(ctx context.Context, companyID uuid.UUID) ([]domain.Folder, error) {
	var folders []domain.Folder
	query := `
        SELECT id, company_id, parent_id, name, path, level, created_at, updated_at
        FROM folders
        WHERE company_id = $1
        ORDER BY path`

	err := r.db.SelectContext(ctx, &folders, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get company folders: %w", err)
	}

	return folders, nil
}

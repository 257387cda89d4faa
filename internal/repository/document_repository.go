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

type DocumentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `
    id, company_id, folder_id, name, mime_type, size_bytes, storage_key,
    uploaded_by, version, is_latest, parent_document_id, created_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	query := `
        INSERT INTO documents (
            id, company_id, folder_id, name, mime_type, size_bytes,
            storage_key, uploaded_by, version, is_latest, parent_document_id
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING created_at`

	return r.db.QueryRowContext(
		ctx,
		query,
		doc.ID,
		doc.CompanyID,
		doc.FolderID,
		doc.Name,
		doc.MIMEType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.UploadedBy,
		doc.Version,
		doc.IsLatest,
		doc.ParentDocumentID,
	).Scan(&doc.CreatedAt)
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	err := r.db.GetContext(ctx, &doc, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// CreateVersion добавляет новую версию документа. Снятие флага
// is_latest со старой версии и вставка новой выполняются в одной
// транзакции: цепочка версий не должна наблюдаться без актуальной.
func (r *DocumentRepository) CreateVersion(ctx context.Context, previous *domain.Document, next *domain.Document) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE documents SET is_latest = false WHERE id = $1 AND is_latest = true`,
		previous.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to unset latest version: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		// Кто-то успел загрузить версию параллельно
		return fmt.Errorf("document %s is not the latest version: %w", previous.ID, domain.ErrNotFound)
	}

	query := `
        INSERT INTO documents (
            id, company_id, folder_id, name, mime_type, size_bytes,
            storage_key, uploaded_by, version, is_latest, parent_document_id
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, $10)
        RETURNING created_at`

	err = tx.QueryRowContext(
		ctx,
		query,
		next.ID,
		next.CompanyID,
		next.FolderID,
		next.Name,
		next.MIMEType,
		next.SizeBytes,
		next.StorageKey,
		next.UploadedBy,
		next.Version,
		previous.ID,
	).Scan(&next.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert new version: %w", err)
	}

	next.IsLatest = true
	next.ParentDocumentID = &previous.ID

	return tx.Commit()
}

// GetVersions возвращает все версии цепочки, к которой принадлежит
// документ, от первой к последней
func (r *DocumentRepository) GetVersions(ctx context.Context, id uuid.UUID) ([]domain.Document, error) {
	query := `
        WITH RECURSIVE ancestors AS (
            SELECT ` + documentColumns + ` FROM documents WHERE id = $1
            UNION ALL
            SELECT ` + docCols("d") + `
            FROM documents d
            INNER JOIN ancestors a ON d.id = a.parent_document_id
        ),
        descendants AS (
            SELECT ` + documentColumns + ` FROM documents WHERE id = $1
            UNION ALL
            SELECT ` + docCols("d") + `
            FROM documents d
            INNER JOIN descendants s ON d.parent_document_id = s.id
        )
        SELECT DISTINCT ` + documentColumns + ` FROM (
            SELECT * FROM ancestors
            UNION
            SELECT * FROM descendants
        ) chain
        ORDER BY version ASC`

	var docs []domain.Document
	err := r.db.SelectContext(ctx, &docs, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document versions: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return docs, nil
}

func (r *DocumentRepository) FindLatestByName(ctx context.Context, companyID uuid.UUID, folderID *int64, name string) (*domain.Document, error) {
	var doc domain.Document
	query := `
        SELECT ` + documentColumns + ` FROM documents
        WHERE company_id = $1
        AND folder_id IS NOT DISTINCT FROM $2
        AND name = $3
        AND is_latest = true
        LIMIT 1`

	err := r.db.GetContext(ctx, &doc, query, companyID, folderID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find document by name: %w", err)
	}

	return &doc, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// docCols разворачивает список столбцов документа с алиасом таблицы
func docCols(alias string) string {
	return alias + `.id, ` + alias + `.company_id, ` + alias + `.folder_id, ` +
		alias + `.name, ` + alias + `.mime_type, ` + alias + `.size_bytes, ` +
		alias + `.storage_key, ` + alias + `.uploaded_by, ` + alias + `.version, ` +
		alias + `.is_latest, ` + alias + `.parent_document_id, ` + alias + `.created_at`
}

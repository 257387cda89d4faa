package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/domain"
)

type folderFixture struct {
	folders   *memFolderStore
	service   *FolderService
	companyID uuid.UUID
	owner     domain.Principal
}

func newFolderFixture(t *testing.T) *folderFixture {
	t.Helper()

	companies := newMemCompanyStore()
	documents := newMemDocumentStore()
	shares := newMemShareStore()
	folders := newMemFolderStore()

	permissions := NewPermissionService(companies, documents, shares)

	company := &domain.Company{ID: uuid.New(), Name: "Acme", OwnerID: "owner"}
	require.NoError(t, companies.Create(context.Background(), company))

	return &folderFixture{
		folders:   folders,
		service:   NewFolderService(folders, permissions),
		companyID: company.ID,
		owner:     domain.Principal{ID: "owner", Role: domain.RoleEmployee},
	}
}

func (f *folderFixture) mustCreate(t *testing.T, parentID *int64, name string) *domain.Folder {
	t.Helper()
	folder, err := f.service.CreateFolder(context.Background(), f.owner, f.companyID, parentID, name)
	require.NoError(t, err)
	return folder
}

func TestCreateFolder_PathAndLevel(t *testing.T) {
	f := newFolderFixture(t)

	root := f.mustCreate(t, nil, "Documents")
	assert.Equal(t, "/Documents/", root.Path)
	assert.Equal(t, 0, root.Level)

	child := f.mustCreate(t, &root.ID, "Contracts")
	assert.Equal(t, "/Documents/Contracts/", child.Path)
	assert.Equal(t, 1, child.Level)

	grandchild := f.mustCreate(t, &child.ID, "2026")
	assert.Equal(t, "/Documents/Contracts/2026/", grandchild.Path)
	assert.Equal(t, 2, grandchild.Level)
}

func TestCreateFolder_InvalidName(t *testing.T) {
	f := newFolderFixture(t)

	for _, name := range []string{"", "a/b", "a\\b", "..", "name.", "semi;colon"} {
		_, err := f.service.CreateFolder(context.Background(), f.owner, f.companyID, nil, name)
		assert.ErrorIs(t, err, domain.ErrInvalidFolderName, "name %q", name)
	}

	// Нелатинские буквы, цифры, пробел, дефис и подчеркивание допустимы
	for _, name := range []string{"Отчеты 2026", "Q1_drafts", "budget-v2"} {
		_, err := f.service.CreateFolder(context.Background(), f.owner, f.companyID, nil, name)
		assert.NoError(t, err, "name %q", name)
	}
}

func TestCreateFolder_DuplicateSibling(t *testing.T) {
	f := newFolderFixture(t)

	root := f.mustCreate(t, nil, "Documents")
	f.mustCreate(t, &root.ID, "Contracts")

	_, err := f.service.CreateFolder(context.Background(), f.owner, f.companyID, &root.ID, "Contracts")
	assert.ErrorIs(t, err, domain.ErrDuplicateFolderName)

	// То же имя под другим родителем — не конфликт
	other := f.mustCreate(t, nil, "Archive")
	_, err = f.service.CreateFolder(context.Background(), f.owner, f.companyID, &other.ID, "Contracts")
	assert.NoError(t, err)
}

func TestCreateFolder_RequiresEdit(t *testing.T) {
	f := newFolderFixture(t)

	stranger := domain.Principal{ID: "stranger", Role: domain.RoleEmployee}
	_, err := f.service.CreateFolder(context.Background(), stranger, f.companyID, nil, "Documents")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	auditor := domain.Principal{ID: "auditor", Role: domain.RoleAuditor}
	_, err = f.service.CreateFolder(context.Background(), auditor, f.companyID, nil, "Documents")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// Переименование переписывает пути всего поддерева
func TestRenameFolder_CascadesToDescendants(t *testing.T) {
	f := newFolderFixture(t)

	root := f.mustCreate(t, nil, "Documents")
	child := f.mustCreate(t, &root.ID, "Contracts")
	grandchild := f.mustCreate(t, &child.ID, "2026")

	renamed, err := f.service.RenameFolder(context.Background(), f.owner, root.ID, "Files")
	require.NoError(t, err)
	assert.Equal(t, "/Files/", renamed.Path)

	got, err := f.folders.GetByID(context.Background(), child.ID)
	require.NoError(t, err)
	assert.Equal(t, "/Files/Contracts/", got.Path)

	got, err = f.folders.GetByID(context.Background(), grandchild.ID)
	require.NoError(t, err)
	assert.Equal(t, "/Files/Contracts/2026/", got.Path)
	assert.Equal(t, 2, got.Level)
}

func TestMoveFolder_RebasesSubtree(t *testing.T) {
	f := newFolderFixture(t)

	docs := f.mustCreate(t, nil, "Documents")
	archive := f.mustCreate(t, nil, "Archive")
	contracts := f.mustCreate(t, &docs.ID, "Contracts")
	year := f.mustCreate(t, &contracts.ID, "2026")

	moved, err := f.service.MoveFolder(context.Background(), f.owner, contracts.ID, archive.ID)
	require.NoError(t, err)
	assert.Equal(t, "/Archive/Contracts/", moved.Path)
	assert.Equal(t, 1, moved.Level)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, archive.ID, *moved.ParentID)

	got, err := f.folders.GetByID(context.Background(), year.ID)
	require.NoError(t, err)
	assert.Equal(t, "/Archive/Contracts/2026/", got.Path)
	assert.Equal(t, 2, got.Level)
}

func TestMoveFolder_IntoOwnSubtreeForbidden(t *testing.T) {
	f := newFolderFixture(t)

	docs := f.mustCreate(t, nil, "Documents")
	contracts := f.mustCreate(t, &docs.ID, "Contracts")
	year := f.mustCreate(t, &contracts.ID, "2026")

	// В собственного потомка
	_, err := f.service.MoveFolder(context.Background(), f.owner, contracts.ID, year.ID)
	assert.ErrorIs(t, err, domain.ErrCyclicMove)

	// В саму себя
	_, err = f.service.MoveFolder(context.Background(), f.owner, contracts.ID, contracts.ID)
	assert.ErrorIs(t, err, domain.ErrCyclicMove)
}

// Папка с путем-префиксом чужого пути не считается предком: /A/B/ не
// предок /A/BB/
func TestMoveFolder_SimilarPrefixIsNotCycle(t *testing.T) {
	f := newFolderFixture(t)

	a := f.mustCreate(t, nil, "A")
	b := f.mustCreate(t, &a.ID, "B")
	bb := f.mustCreate(t, &a.ID, "BB")

	_, err := f.service.MoveFolder(context.Background(), f.owner, b.ID, bb.ID)
	require.NoError(t, err)

	got, err := f.folders.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "/A/BB/B/", got.Path)
}

func TestMoveFolder_DuplicateInTarget(t *testing.T) {
	f := newFolderFixture(t)

	docs := f.mustCreate(t, nil, "Documents")
	archive := f.mustCreate(t, nil, "Archive")
	f.mustCreate(t, &docs.ID, "Contracts")
	moving := f.mustCreate(t, &archive.ID, "Contracts")

	_, err := f.service.MoveFolder(context.Background(), f.owner, moving.ID, docs.ID)
	assert.ErrorIs(t, err, domain.ErrDuplicateFolderName)
}

func TestGetStructure_OrderedByPath(t *testing.T) {
	f := newFolderFixture(t)

	docs := f.mustCreate(t, nil, "Documents")
	f.mustCreate(t, &docs.ID, "Contracts")
	f.mustCreate(t, nil, "Archive")

	folders, err := f.service.GetStructure(context.Background(), f.owner, f.companyID)
	require.NoError(t, err)
	require.Len(t, folders, 3)
	assert.Equal(t, "/Archive/", folders[0].Path)
	assert.Equal(t, "/Documents/", folders[1].Path)
	assert.Equal(t, "/Documents/Contracts/", folders[2].Path)
}

package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
)

// In-memory двойники хранилищ для тестов сервисов. Семантика повторяет
// репозитории: те же sentinel-ошибки и тот же CAS на расходе токена.

type memCompanyStore struct {
	mu        sync.Mutex
	companies map[uuid.UUID]domain.Company
}

func newMemCompanyStore() *memCompanyStore {
	return &memCompanyStore{companies: make(map[uuid.UUID]domain.Company)}
}

func (s *memCompanyStore) Create(_ context.Context, company *domain.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	company.CreatedAt = time.Now()
	s.companies[company.ID] = *company
	return nil
}

func (s *memCompanyStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	company, ok := s.companies[id]
	if !ok {
		return nil, fmt.Errorf("company %s: %w", id, domain.ErrNotFound)
	}
	return &company, nil
}

type memDocumentStore struct {
	mu        sync.Mutex
	documents map[uuid.UUID]domain.Document
}

func newMemDocumentStore() *memDocumentStore {
	return &memDocumentStore{documents: make(map[uuid.UUID]domain.Document)}
}

func (s *memDocumentStore) Create(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.CreatedAt = time.Now()
	s.documents[doc.ID] = *doc
	return nil
}

func (s *memDocumentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return &doc, nil
}

func (s *memDocumentStore) CreateVersion(_ context.Context, previous, next *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.documents[previous.ID]
	if !ok || !prev.IsLatest {
		return fmt.Errorf("document version conflict")
	}
	prev.IsLatest = false
	s.documents[prev.ID] = prev

	next.IsLatest = true
	parentID := prev.ID
	next.ParentDocumentID = &parentID
	next.CreatedAt = time.Now()
	s.documents[next.ID] = *next
	return nil
}

func (s *memDocumentStore) GetVersions(_ context.Context, id uuid.UUID) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	// Вверх по цепочке предков
	chain := map[uuid.UUID]domain.Document{doc.ID: doc}
	cur := doc
	for cur.ParentDocumentID != nil {
		parent, ok := s.documents[*cur.ParentDocumentID]
		if !ok {
			break
		}
		chain[parent.ID] = parent
		cur = parent
	}
	// И вниз по потомкам
	for changed := true; changed; {
		changed = false
		for _, d := range s.documents {
			if d.ParentDocumentID == nil {
				continue
			}
			if _, inChain := chain[*d.ParentDocumentID]; inChain {
				if _, seen := chain[d.ID]; !seen {
					chain[d.ID] = d
					changed = true
				}
			}
		}
	}

	versions := make([]domain.Document, 0, len(chain))
	for _, d := range chain {
		versions = append(versions, d)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	return versions, nil
}

func (s *memDocumentStore) FindLatestByName(_ context.Context, companyID uuid.UUID, folderID *int64, name string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.documents {
		if d.CompanyID != companyID || !d.IsLatest || d.Name != name {
			continue
		}
		if (d.FolderID == nil) != (folderID == nil) {
			continue
		}
		if d.FolderID != nil && *d.FolderID != *folderID {
			continue
		}
		doc := d
		return &doc, nil
	}
	return nil, nil
}

func (s *memDocumentStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	delete(s.documents, id)
	return nil
}

type memFolderStore struct {
	mu      sync.Mutex
	nextID  int64
	folders map[int64]domain.Folder
}

func newMemFolderStore() *memFolderStore {
	return &memFolderStore{folders: make(map[int64]domain.Folder)}
}

func (s *memFolderStore) Create(_ context.Context, folder *domain.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if folder.ParentID != nil {
		parent, ok := s.folders[*folder.ParentID]
		if !ok || parent.CompanyID != folder.CompanyID {
			return fmt.Errorf("parent folder: %w", domain.ErrNotFound)
		}
		folder.Path = domain.ChildPath(parent.Path, folder.Name)
		folder.Level = parent.Level + 1
	} else {
		folder.Path = "/" + folder.Name + "/"
		folder.Level = 0
	}

	s.nextID++
	folder.ID = s.nextID
	folder.CreatedAt = time.Now()
	folder.UpdatedAt = folder.CreatedAt
	s.folders[folder.ID] = *folder
	return nil
}

func (s *memFolderStore) GetByID(_ context.Context, id int64) (*domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	folder, ok := s.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	return &folder, nil
}

func (s *memFolderStore) HasSibling(_ context.Context, companyID uuid.UUID, parentID *int64, name string, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.folders {
		if f.CompanyID != companyID || f.Name != name || f.ID == excludeID {
			continue
		}
		if (f.ParentID == nil) != (parentID == nil) {
			continue
		}
		if f.ParentID != nil && *f.ParentID != *parentID {
			continue
		}
		return true, nil
	}
	return false, nil
}

// rewriteSubtree переписывает пути и уровни всего поддерева oldPath,
// как это делает каскадный UPDATE в репозитории
func (s *memFolderStore) rewriteSubtree(companyID uuid.UUID, oldPath, newPath string, levelDelta int) {
	for id, f := range s.folders {
		if f.CompanyID != companyID || !domain.IsDescendantPath(f.Path, oldPath) {
			continue
		}
		f.Path = domain.RebasePath(f.Path, oldPath, newPath)
		f.Level += levelDelta
		f.UpdatedAt = time.Now()
		s.folders[id] = f
	}
}

func (s *memFolderStore) Rename(_ context.Context, folder *domain.Folder, newName, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folder.ID]
	if !ok {
		return fmt.Errorf("folder %d: %w", folder.ID, domain.ErrNotFound)
	}
	s.rewriteSubtree(f.CompanyID, f.Path, newPath, 0)
	f = s.folders[folder.ID]
	f.Name = newName
	s.folders[folder.ID] = f
	return nil
}

func (s *memFolderStore) Move(_ context.Context, folder *domain.Folder, newParentID int64, newPath string, levelDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folder.ID]
	if !ok {
		return fmt.Errorf("folder %d: %w", folder.ID, domain.ErrNotFound)
	}
	s.rewriteSubtree(f.CompanyID, f.Path, newPath, levelDelta)
	f = s.folders[folder.ID]
	f.ParentID = &newParentID
	s.folders[folder.ID] = f
	return nil
}

func (s *memFolderStore) GetCompanyFolders(_ context.Context, companyID uuid.UUID) ([]domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var folders []domain.Folder
	for _, f := range s.folders {
		if f.CompanyID == companyID {
			folders = append(folders, f)
		}
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Path < folders[j].Path })
	return folders, nil
}

type shareKey struct {
	resource uuid.UUID
	userID   string
}

type memShareStore struct {
	mu             sync.Mutex
	companyShares  map[shareKey]domain.CompanyShare
	documentShares map[shareKey]domain.DocumentShare
}

func newMemShareStore() *memShareStore {
	return &memShareStore{
		companyShares:  make(map[shareKey]domain.CompanyShare),
		documentShares: make(map[shareKey]domain.DocumentShare),
	}
}

func (s *memShareStore) UpsertCompanyShare(_ context.Context, share *domain.CompanyShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := shareKey{share.CompanyID, share.SharedWithUserID}
	if existing, ok := s.companyShares[key]; ok {
		share.ID = existing.ID
		share.CreatedAt = existing.CreatedAt
	} else {
		share.CreatedAt = time.Now()
	}
	share.Status = domain.ShareStatusActive
	share.UpdatedAt = time.Now()
	s.companyShares[key] = *share
	return nil
}

func (s *memShareStore) GetCompanyShare(_ context.Context, companyID uuid.UUID, userID string) (*domain.CompanyShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	share, ok := s.companyShares[shareKey{companyID, userID}]
	if !ok {
		return nil, nil
	}
	return &share, nil
}

func (s *memShareStore) RevokeCompanyShare(_ context.Context, companyID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := shareKey{companyID, userID}
	share, ok := s.companyShares[key]
	if !ok {
		return fmt.Errorf("company share: %w", domain.ErrNotFound)
	}
	share.Status = domain.ShareStatusRevoked
	share.UpdatedAt = time.Now()
	s.companyShares[key] = share
	return nil
}

func (s *memShareStore) UpsertDocumentShare(_ context.Context, share *domain.DocumentShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := shareKey{share.DocumentID, share.SharedWithUserID}
	if existing, ok := s.documentShares[key]; ok {
		share.ID = existing.ID
		share.CreatedAt = existing.CreatedAt
	} else {
		share.CreatedAt = time.Now()
	}
	share.Status = domain.ShareStatusActive
	share.UpdatedAt = time.Now()
	s.documentShares[key] = *share
	return nil
}

func (s *memShareStore) GetDocumentShare(_ context.Context, documentID uuid.UUID, userID string) (*domain.DocumentShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	share, ok := s.documentShares[shareKey{documentID, userID}]
	if !ok {
		return nil, nil
	}
	return &share, nil
}

func (s *memShareStore) RevokeDocumentShare(_ context.Context, documentID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := shareKey{documentID, userID}
	share, ok := s.documentShares[key]
	if !ok {
		return fmt.Errorf("document share: %w", domain.ErrNotFound)
	}
	share.Status = domain.ShareStatusRevoked
	share.UpdatedAt = time.Now()
	s.documentShares[key] = share
	return nil
}

func (s *memShareStore) GetSharedWithUser(_ context.Context, userID string) ([]domain.CompanyShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var shares []domain.CompanyShare
	for _, share := range s.companyShares {
		if share.SharedWithUserID == userID && share.Status == domain.ShareStatusActive {
			shares = append(shares, share)
		}
	}
	return shares, nil
}

type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]domain.DeliveryToken
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[string]domain.DeliveryToken)}
}

func (s *memTokenStore) Create(_ context.Context, token *domain.DeliveryToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token.CreatedAt = time.Now()
	s.tokens[token.Token] = *token
	return nil
}

func (s *memTokenStore) GetByToken(_ context.Context, tokenStr string) (*domain.DeliveryToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenStr]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return &token, nil
}

// Consume повторяет CAS репозитория: used ставится только если было false
func (s *memTokenStore) Consume(_ context.Context, tokenStr string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenStr]
	if !ok {
		return domain.ErrTokenInvalid
	}
	if token.Used {
		return domain.ErrTokenAlreadyUsed
	}
	token.Used = true
	token.UsedAt = &now
	s.tokens[tokenStr] = token
	return nil
}

type memAuditStore struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

func newMemAuditStore() *memAuditStore {
	return &memAuditStore{}
}

func (s *memAuditStore) Record(_ context.Context, record *domain.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ID = int64(len(s.records) + 1)
	record.CreatedAt = time.Now()
	s.records = append(s.records, *record)
	return nil
}

func (s *memAuditStore) byAction(action string) []domain.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditRecord
	for _, r := range s.records {
		if r.Action == action {
			out = append(out, r)
		}
	}
	return out
}

package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/splax/cybervault/internal/domain"
	"github.com/splax/cybervault/internal/repository"
)

// Store keeps every record in process memory. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	dids        map[int64]domain.DID
	didsByKey   map[string]int64
	docs        map[int64]domain.Document
	docsByKey   map[string]int64
	users       map[int64]domain.User
	usersByName map[string]int64
	ops         map[string]domain.Operation

	nextDID  int64
	nextDoc  int64
	nextUser int64

	now func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp created records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		dids:        make(map[int64]domain.DID),
		didsByKey:   make(map[string]int64),
		docs:        make(map[int64]domain.Document),
		docsByKey:   make(map[string]int64),
		users:       make(map[int64]domain.User),
		usersByName: make(map[string]int64),
		ops:         make(map[string]domain.Operation),
		nextDID:     1,
		nextDoc:     1,
		nextUser:    1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.Store = (*Store)(nil)

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// CreateDID inserts a DID unless its value is already present.
func (s *Store) CreateDID(_ context.Context, did *domain.DID) error {
	if did == nil {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.didsByKey[did.DID]; exists {
		return repository.ErrConflict
	}
	did.ID = s.nextDID
	s.nextDID++
	did.CreatedAt = s.now().UnixMilli()
	s.dids[did.ID] = *did
	s.didsByKey[did.DID] = did.ID
	return nil
}

// GetDIDByID returns the DID with the given id.
func (s *Store) GetDIDByID(_ context.Context, id int64) (*domain.DID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	did, ok := s.dids[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &did, nil
}

// GetDIDByValue returns the DID whose identifier matches exactly.
func (s *Store) GetDIDByValue(_ context.Context, value string) (*domain.DID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.didsByKey[value]
	if !ok {
		return nil, repository.ErrNotFound
	}
	did := s.dids[id]
	return &did, nil
}

// ListDIDs returns every DID, newest first.
func (s *Store) ListDIDs(context.Context) ([]domain.DID, error) {
	s.mu.RLock()
	out := make([]domain.DID, 0, len(s.dids))
	for _, did := range s.dids {
		out = append(out, did)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// UpdateDIDStatus replaces the status of an existing DID.
func (s *Store) UpdateDIDStatus(_ context.Context, id int64, status string) (*domain.DID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	did, ok := s.dids[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	did.Status = status
	s.dids[id] = did
	return &did, nil
}

// CountDIDs returns the number of stored DIDs.
func (s *Store) CountDIDs(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dids), nil
}

// CreateDocument inserts a document unless its hash is already present.
func (s *Store) CreateDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docsByKey[doc.Hash]; exists {
		return repository.ErrConflict
	}
	doc.ID = s.nextDoc
	s.nextDoc++
	doc.CreatedAt = s.now().UnixMilli()
	s.docs[doc.ID] = *doc
	s.docsByKey[doc.Hash] = doc.ID
	return nil
}

// GetDocumentByID returns the document with the given id.
func (s *Store) GetDocumentByID(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &doc, nil
}

// GetDocumentByHash returns the document with an exactly matching hash.
func (s *Store) GetDocumentByHash(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.docsByKey[hash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	doc := s.docs[id]
	return &doc, nil
}

// ListDocuments returns every document, newest first.
func (s *Store) ListDocuments(context.Context) ([]domain.Document, error) {
	return s.filterDocuments(func(domain.Document) bool { return true }), nil
}

// SearchDocuments matches query case-insensitively against hash, file name
// and category.
func (s *Store) SearchDocuments(_ context.Context, query string) ([]domain.Document, error) {
	needle := strings.ToLower(query)
	return s.filterDocuments(func(doc domain.Document) bool {
		return strings.Contains(strings.ToLower(doc.Hash), needle) ||
			strings.Contains(strings.ToLower(doc.FileName), needle) ||
			strings.Contains(strings.ToLower(doc.Category), needle)
	}), nil
}

func (s *Store) filterDocuments(keep func(domain.Document) bool) []domain.Document {
	s.mu.RLock()
	out := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if keep(doc) {
			out = append(out, doc)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// CountDocuments returns the number of stored documents.
func (s *Store) CountDocuments(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// CreateUser inserts a user unless the username is taken.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	if user == nil {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByName[user.Username]; exists {
		return repository.ErrConflict
	}
	user.ID = s.nextUser
	s.nextUser++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}
	s.users[user.ID] = *user
	s.usersByName[user.Username] = user.ID
	return nil
}

// GetUserByID returns the user with the given id.
func (s *Store) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

// GetUserByUsername returns the user with the given username.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := s.users[id]
	return &user, nil
}

// CreateOperation stores a new saga trail.
func (s *Store) CreateOperation(_ context.Context, op *domain.Operation) error {
	if op == nil || op.ID == "" {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ops[op.ID]; exists {
		return repository.ErrConflict
	}
	s.ops[op.ID] = cloneOperation(*op)
	return nil
}

// UpdateOperation replaces a stored saga trail.
func (s *Store) UpdateOperation(_ context.Context, op *domain.Operation) error {
	if op == nil {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ops[op.ID]; !exists {
		return repository.ErrNotFound
	}
	s.ops[op.ID] = cloneOperation(*op)
	return nil
}

// GetOperation returns one saga trail.
func (s *Store) GetOperation(_ context.Context, id string) (*domain.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneOperation(op)
	return &out, nil
}

// ListOperations returns up to limit saga trails, newest first. A
// non-positive limit returns all of them.
func (s *Store) ListOperations(_ context.Context, limit int) ([]domain.Operation, error) {
	s.mu.RLock()
	out := make([]domain.Operation, 0, len(s.ops))
	for _, op := range s.ops {
		out = append(out, cloneOperation(op))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneOperation(op domain.Operation) domain.Operation {
	op.Steps = append([]domain.OperationStep(nil), op.Steps...)
	if op.CompletedAt != nil {
		at := *op.CompletedAt
		op.CompletedAt = &at
	}
	return op
}

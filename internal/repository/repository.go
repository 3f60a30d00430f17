package repository

import (
	"context"

	"github.com/splax/cybervault/internal/domain"
)

// DIDRepository persists decentralized identifiers.
type DIDRepository interface {
	// CreateDID assigns ID and CreatedAt. It returns ErrConflict when the
	// did value is already stored; check and insert are atomic.
	CreateDID(ctx context.Context, did *domain.DID) error
	GetDIDByID(ctx context.Context, id int64) (*domain.DID, error)
	GetDIDByValue(ctx context.Context, did string) (*domain.DID, error)
	ListDIDs(ctx context.Context) ([]domain.DID, error)
	UpdateDIDStatus(ctx context.Context, id int64, status string) (*domain.DID, error)
	CountDIDs(ctx context.Context) (int, error)
}

// DocumentRepository persists notarized documents.
type DocumentRepository interface {
	// CreateDocument assigns ID and CreatedAt. It returns ErrConflict when
	// the hash is already stored; check and insert are atomic.
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocumentByID(ctx context.Context, id int64) (*domain.Document, error)
	GetDocumentByHash(ctx context.Context, hash string) (*domain.Document, error)
	ListDocuments(ctx context.Context) ([]domain.Document, error)
	SearchDocuments(ctx context.Context, query string) ([]domain.Document, error)
	CountDocuments(ctx context.Context) (int, error)
}

// UserRepository persists dashboard accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// OperationRepository stores saga trails for multi-step creations.
type OperationRepository interface {
	CreateOperation(ctx context.Context, op *domain.Operation) error
	UpdateOperation(ctx context.Context, op *domain.Operation) error
	GetOperation(ctx context.Context, id string) (*domain.Operation, error)
	ListOperations(ctx context.Context, limit int) ([]domain.Operation, error)
}

// Store bundles every repository a backend provides.
type Store interface {
	DIDRepository
	DocumentRepository
	UserRepository
	OperationRepository
	Ping(ctx context.Context) error
	Close()
}

package notarization

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/splax/cybervault/internal/domain"
	"github.com/splax/cybervault/internal/notary"
	"github.com/splax/cybervault/internal/repository"
	"github.com/splax/cybervault/internal/service/operation"
)

// NotFoundMessage is reported when a hash is neither stored nor anchored.
const NotFoundMessage = "Document not found in blockchain records"

var (
	// ErrDocumentExists is returned when the hash was already notarized.
	ErrDocumentExists = errors.New("document hash already notarized")
	// ErrQueryRequired is returned for an empty search query.
	ErrQueryRequired = errors.New("search query is required")
)

// Notary is the subset of the notarization adapter used for documents.
type Notary interface {
	NotarizeDocument(ctx context.Context, hash string, timestamp int64) (notary.NotarizeResult, error)
	VerifyDocument(ctx context.Context, hash string) (notary.VerifyResult, error)
}

// Publisher receives record change events.
type Publisher interface {
	Publish(event domain.Event)
}

// NotarizeInput carries the fields of a notarization request.
type NotarizeInput struct {
	Hash      string `json:"hash"`
	FileName  string `json:"fileName"`
	Category  string `json:"category"`
	Timestamp int64  `json:"timestamp"`
}

// Blockchain summarises the notarize call.
type Blockchain struct {
	Notarized             bool      `json:"notarized"`
	TransactionHash       string    `json:"transactionHash"`
	TransactionHashParsed bool      `json:"transactionHashParsed"`
	BlockchainTimestamp   time.Time `json:"blockchainTimestamp"`
	OperationID           string    `json:"operationId"`
}

// Notarization is a persisted document together with its chain outcome.
type Notarization struct {
	Document   *domain.Document
	Blockchain Blockchain
}

// LocalMatch is a verified document found in the store.
type LocalMatch struct {
	domain.Document
	OnChain            bool `json:"onChain"`
	BlockchainVerified bool `json:"blockchainVerified"`
}

// ChainMatch is a verified hash known only to the chain.
type ChainMatch struct {
	Hash        string `json:"hash"`
	OnChainOnly bool   `json:"onChainOnly"`
}

// Verification is the result of a verify-by-hash lookup. Document holds a
// LocalMatch or a ChainMatch when Verified is true.
type Verification struct {
	Verified bool   `json:"verified"`
	Document any    `json:"document,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Service manages document notarization.
type Service struct {
	docs       repository.DocumentRepository
	notary     Notary
	operations operation.Service
	events     Publisher
	logger     *slog.Logger
}

// New returns a notarization service. events may be nil.
func New(docs repository.DocumentRepository, n Notary, ops operation.Service, events Publisher, logger *slog.Logger) Service {
	return Service{docs: docs, notary: n, operations: ops, events: events, logger: logger}
}

// Validate normalises input and checks it.
func Validate(input NotarizeInput) (NotarizeInput, error) {
	input.Hash = strings.TrimSpace(input.Hash)
	input.FileName = strings.TrimSpace(input.FileName)
	input.Category = strings.TrimSpace(input.Category)
	if !domain.ValidDocumentHash(input.Hash) {
		return input, domain.Invalid("hash", "must be a hex encoded SHA-256 digest")
	}
	if input.FileName == "" {
		return input, domain.Invalid("fileName", "is required")
	}
	if !domain.ValidCategory(input.Category) {
		return input, domain.Invalid("category", "is not a known category")
	}
	if input.Timestamp <= 0 {
		return input, domain.Invalid("timestamp", "must be positive")
	}
	return input, nil
}

// Notarize validates input, anchors the hash and persists the record.
func (s Service) Notarize(ctx context.Context, input NotarizeInput) (*Notarization, error) {
	input, err := Validate(input)
	if err != nil {
		return nil, err
	}
	if _, err := s.docs.GetDocumentByHash(ctx, input.Hash); err == nil {
		return nil, ErrDocumentExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	trail := s.operations.Start(ctx, domain.OperationNotarizeDocument, input.Hash)

	res, err := s.notary.NotarizeDocument(ctx, input.Hash, input.Timestamp)
	if err != nil {
		trail.Abort(ctx, "notarize", err.Error())
		return nil, err
	}
	trail.Succeeded(ctx, "notarize", res.TransactionHash)

	doc := &domain.Document{
		Hash:                input.Hash,
		FileName:            input.FileName,
		Category:            input.Category,
		Timestamp:           input.Timestamp,
		BlockchainTxHash:    res.TransactionHash,
		BlockchainTimestamp: res.BlockchainTimestamp.Format(time.RFC3339Nano),
		OnChain:             true,
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			trail.Abort(ctx, "persist", ErrDocumentExists.Error())
			return nil, ErrDocumentExists
		}
		trail.Abort(ctx, "persist", err.Error())
		return nil, err
	}
	trail.Succeeded(ctx, "persist", "")
	trail.Complete(ctx)

	s.logger.Info("document notarized", "document_id", doc.ID, "hash", doc.Hash, "category", doc.Category, "operation_id", trail.ID())
	if s.events != nil {
		s.events.Publish(domain.Event{Type: domain.EventDocumentNotarized, Payload: doc, At: time.Now().UTC()})
	}
	return &Notarization{
		Document: doc,
		Blockchain: Blockchain{
			Notarized:             true,
			TransactionHash:       res.TransactionHash,
			TransactionHashParsed: res.HashParsed,
			BlockchainTimestamp:   res.BlockchainTimestamp,
			OperationID:           trail.ID(),
		},
	}, nil
}

// List returns every document, newest first.
func (s Service) List(ctx context.Context) ([]domain.Document, error) {
	return s.docs.ListDocuments(ctx)
}

// Search matches query against hash, file name and category.
func (s Service) Search(ctx context.Context, query string) ([]domain.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}
	return s.docs.SearchDocuments(ctx, query)
}

// Verify reports whether hash is notarized. A hash unknown to the store is
// only reported verified when the chain was actually consulted.
func (s Service) Verify(ctx context.Context, hash string) (Verification, error) {
	hash = strings.TrimSpace(hash)
	local, err := s.docs.GetDocumentByHash(ctx, hash)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Verification{}, err
	}
	chain, err := s.notary.VerifyDocument(ctx, hash)
	if err != nil {
		return Verification{}, err
	}

	switch {
	case local != nil:
		return Verification{
			Verified: true,
			Document: LocalMatch{Document: *local, OnChain: chain.OnChain, BlockchainVerified: chain.Verified},
		}, nil
	case chain.Checked && chain.Verified:
		return Verification{Verified: true, Document: ChainMatch{Hash: hash, OnChainOnly: true}}, nil
	default:
		return Verification{Verified: false, Message: NotFoundMessage}, nil
	}
}

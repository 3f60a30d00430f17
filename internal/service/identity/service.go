package identity

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

var (
	// ErrDIDExists is returned when the did value is already registered.
	ErrDIDExists = errors.New("did already exists")
	// ErrDIDNotFound is returned for unknown DID ids.
	ErrDIDNotFound = errors.New("did not found")
	// ErrStatusRequired is returned when a status update carries no status.
	ErrStatusRequired = errors.New("status is required")
)

// Notary is the subset of the notarization adapter used for identities.
type Notary interface {
	RegisterDID(ctx context.Context, did string) (notary.TxResult, error)
	BindDIDToWallet(ctx context.Context, did, wallet string) (notary.TxResult, error)
}

// Publisher receives record change events.
type Publisher interface {
	Publish(event domain.Event)
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	DID           string `json:"did"`
	WalletAddress string `json:"walletAddress"`
	Status        string `json:"status"`
}

// Blockchain summarises the external calls made during registration.
type Blockchain struct {
	Registered           bool      `json:"registered"`
	Bound                bool      `json:"bound"`
	RegistrationTx       string    `json:"registrationTx"`
	RegistrationTxParsed bool      `json:"registrationTxParsed"`
	BindingTx            string    `json:"bindingTx,omitempty"`
	BindingTxParsed      *bool     `json:"bindingTxParsed,omitempty"`
	BindingError         string    `json:"bindingError,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
	OperationID          string    `json:"operationId"`
}

// Registration is a persisted DID together with its chain outcome.
type Registration struct {
	DID        *domain.DID
	Blockchain Blockchain
}

// Service manages DID registration and lifecycle.
type Service struct {
	dids       repository.DIDRepository
	notary     Notary
	operations operation.Service
	events     Publisher
	logger     *slog.Logger
}

// New returns an identity service. events may be nil.
func New(dids repository.DIDRepository, n Notary, ops operation.Service, events Publisher, logger *slog.Logger) Service {
	return Service{dids: dids, notary: n, operations: ops, events: events, logger: logger}
}

// Validate normalises input and checks it.
func Validate(input RegisterInput) (RegisterInput, error) {
	input.DID = strings.TrimSpace(input.DID)
	input.WalletAddress = strings.TrimSpace(input.WalletAddress)
	input.Status = strings.TrimSpace(input.Status)
	if !domain.ValidDID(input.DID) {
		return input, domain.Invalid("did", "must look like did:<method>:<identifier>")
	}
	if input.WalletAddress == "" {
		return input, domain.Invalid("walletAddress", "is required")
	}
	if input.Status == "" {
		input.Status = domain.DIDStatusActive
	}
	return input, nil
}

// Register validates input, anchors the DID, binds it to the wallet and
// persists the record. A binding failure is recorded but does not abort the
// registration. Chain side effects are not rolled back on later failures.
func (s Service) Register(ctx context.Context, input RegisterInput) (*Registration, error) {
	input, err := Validate(input)
	if err != nil {
		return nil, err
	}
	if _, err := s.dids.GetDIDByValue(ctx, input.DID); err == nil {
		return nil, ErrDIDExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	trail := s.operations.Start(ctx, domain.OperationRegisterDID, input.DID)

	reg, err := s.notary.RegisterDID(ctx, input.DID)
	if err != nil {
		trail.Abort(ctx, "register", err.Error())
		return nil, err
	}
	trail.Succeeded(ctx, "register", reg.TransactionHash)

	chain := Blockchain{
		Registered:           true,
		RegistrationTx:       reg.TransactionHash,
		RegistrationTxParsed: reg.HashParsed,
		Timestamp:            reg.Timestamp,
		OperationID:          trail.ID(),
	}
	record := &domain.DID{
		DID:              input.DID,
		WalletAddress:    input.WalletAddress,
		Status:           input.Status,
		BlockchainTxHash: reg.TransactionHash,
		OnChain:          true,
	}

	bind, err := s.notary.BindDIDToWallet(ctx, input.DID, input.WalletAddress)
	if err != nil {
		s.logger.Warn("did wallet binding failed", "did", input.DID, "error", err)
		trail.Failed(ctx, "bind", err.Error())
		chain.BindingError = err.Error()
	} else {
		trail.Succeeded(ctx, "bind", bind.TransactionHash)
		parsed := bind.HashParsed
		chain.Bound = true
		chain.BindingTx = bind.TransactionHash
		chain.BindingTxParsed = &parsed
		record.BindingTxHash = bind.TransactionHash
	}

	if err := s.dids.CreateDID(ctx, record); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			trail.Abort(ctx, "persist", ErrDIDExists.Error())
			return nil, ErrDIDExists
		}
		trail.Abort(ctx, "persist", err.Error())
		return nil, err
	}
	trail.Succeeded(ctx, "persist", "")
	trail.Complete(ctx)

	s.logger.Info("did registered", "did_id", record.ID, "did", record.DID, "bound", chain.Bound, "operation_id", trail.ID())
	s.publish(domain.EventDIDRegistered, record)
	return &Registration{DID: record, Blockchain: chain}, nil
}

// List returns every DID, newest first.
func (s Service) List(ctx context.Context) ([]domain.DID, error) {
	return s.dids.ListDIDs(ctx)
}

// UpdateStatus replaces the status of the DID with id.
func (s Service) UpdateStatus(ctx context.Context, id int64, status string) (*domain.DID, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, ErrStatusRequired
	}
	did, err := s.dids.UpdateDIDStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDIDNotFound
		}
		return nil, err
	}
	s.logger.Info("did status updated", "did_id", did.ID, "status", status)
	s.publish(domain.EventDIDStatusUpdated, did)
	return did, nil
}

func (s Service) publish(kind string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(domain.Event{Type: kind, Payload: payload, At: time.Now().UTC()})
}

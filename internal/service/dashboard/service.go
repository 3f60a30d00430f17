package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/splax/cybervault/internal/domain"
)

// Counter reports record totals.
type Counter interface {
	CountDIDs(ctx context.Context) (int, error)
	CountDocuments(ctx context.Context) (int, error)
}

// Prober reports whether the notarization CLI can be invoked.
type Prober interface {
	CheckAvailability(ctx context.Context) bool
}

const (
	verificationsPerDocument = 2
	gigabytesPerDocument     = 0.05

	readyMessage       = "CyberVault CLI is ready"
	unavailableMessage = "CyberVault CLI not available. Ensure Rust and cargo are installed."
)

// Service assembles dashboard summaries.
type Service struct {
	counter Counter
	prober  Prober
	logger  *slog.Logger
}

// New returns a dashboard service.
func New(counter Counter, prober Prober, logger *slog.Logger) Service {
	return Service{counter: counter, prober: prober, logger: logger}
}

// Stats counts records and probes the CLI concurrently. Verifications and
// StorageUsed are fixed multiples of the document count.
func (s Service) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		dids, docs int
		connected  bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.counter.CountDIDs(gctx)
		if err != nil {
			return fmt.Errorf("count dids: %w", err)
		}
		dids = n
		return nil
	})
	g.Go(func() error {
		n, err := s.counter.CountDocuments(gctx)
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}
		docs = n
		return nil
	})
	g.Go(func() error {
		connected = s.prober.CheckAvailability(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{
		RegisteredDIDs:      dids,
		NotarizedDocuments:  docs,
		Verifications:       docs * verificationsPerDocument,
		StorageUsed:         fmt.Sprintf("%.1f", float64(docs)*gigabytesPerDocument),
		BlockchainConnected: connected,
	}, nil
}

// ChainStatus probes the CLI.
func (s Service) ChainStatus(ctx context.Context) domain.ChainStatus {
	if s.prober.CheckAvailability(ctx) {
		return domain.ChainStatus{CLIAvailable: true, Status: domain.ChainReady, Message: readyMessage}
	}
	s.logger.Warn("notary cli unavailable")
	return domain.ChainStatus{CLIAvailable: false, Status: domain.ChainUnavailable, Message: unavailableMessage}
}

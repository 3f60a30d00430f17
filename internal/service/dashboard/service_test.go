package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/splax/cybervault/internal/domain"
)

type stubCounter struct {
	dids, docs int
	err        error
}

func (s stubCounter) CountDIDs(context.Context) (int, error) { return s.dids, nil }
func (s stubCounter) CountDocuments(context.Context) (int, error) {
	return s.docs, s.err
}

type stubProber bool

func (p stubProber) CheckAvailability(context.Context) bool { return bool(p) }

func TestStatsDerivesCounters(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := []struct {
		docs    int
		storage string
	}{
		{docs: 0, storage: "0.0"},
		{docs: 1, storage: "0.1"},
		{docs: 2, storage: "0.1"},
		{docs: 10, storage: "0.5"},
		{docs: 40, storage: "2.0"},
	}
	for _, tc := range cases {
		svc := New(stubCounter{dids: 5, docs: tc.docs}, stubProber(true), log)
		stats, err := svc.Stats(context.Background())
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		want := domain.Stats{
			RegisteredDIDs:      5,
			NotarizedDocuments:  tc.docs,
			Verifications:       tc.docs * 2,
			StorageUsed:         tc.storage,
			BlockchainConnected: true,
		}
		if stats != want {
			t.Fatalf("docs=%d: got %+v, want %+v", tc.docs, stats, want)
		}
	}
}

func TestStatsPropagatesStoreErrors(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(stubCounter{err: errors.New("db down")}, stubProber(false), log)
	if _, err := svc.Stats(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestChainStatus(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ready := New(stubCounter{}, stubProber(true), log).ChainStatus(context.Background())
	if !ready.CLIAvailable || ready.Status != domain.ChainReady || ready.Message == "" {
		t.Fatalf("unexpected ready status %+v", ready)
	}
	down := New(stubCounter{}, stubProber(false), log).ChainStatus(context.Background())
	if down.CLIAvailable || down.Status != domain.ChainUnavailable || down.Message == "" {
		t.Fatalf("unexpected unavailable status %+v", down)
	}
}

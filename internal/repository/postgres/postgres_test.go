package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/splax/cybervault/internal/repository"
)

func TestInsertErrorMapsConflicts(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{name: "no rows from do nothing", in: pgx.ErrNoRows, want: repository.ErrConflict},
		{name: "unique violation", in: &pgconn.PgError{Code: "23505"}, want: repository.ErrConflict},
		{name: "wrapped unique violation", in: fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"}), want: repository.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := insertError(tc.in); !errors.Is(got, tc.want) {
				t.Fatalf("insertError(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}

	other := errors.New("connection reset")
	if got := insertError(other); got != other {
		t.Fatalf("unexpected mapping for unrelated error: %v", got)
	}
}

func TestNullHelpers(t *testing.T) {
	if nilIfEmpty("  ") != nil {
		t.Fatalf("expected blank string to map to nil")
	}
	if nilIfEmpty("0xabc") != "0xabc" {
		t.Fatalf("expected value to pass through")
	}
	if timePtrToNil(nil) != nil {
		t.Fatalf("expected nil time to map to nil")
	}
	now := time.Now()
	if got, ok := timePtrToNil(&now).(time.Time); !ok || !got.Equal(now) {
		t.Fatalf("unexpected time mapping: %v", got)
	}
	if steps := stepsOrEmpty(nil); steps == nil || len(steps) != 0 {
		t.Fatalf("expected empty non-nil slice")
	}
}

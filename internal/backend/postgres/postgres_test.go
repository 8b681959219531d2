package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xtg/pdo/internal/backend"
)

func TestClassify(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "t_pkey"`})

	var be *backend.Error
	if !errors.As(backend.Wrap(err, classify), &be) {
		t.Fatal("Wrap did not produce *backend.Error")
	}
	if be.Code != "23505" {
		t.Errorf("code = %q, want 23505", be.Code)
	}
	if be.Message != `duplicate key value violates unique constraint "t_pkey"` {
		t.Errorf("message = %q", be.Message)
	}
	var pgErr *pgconn.PgError
	if !errors.As(be, &pgErr) {
		t.Error("backend error does not unwrap to *pgconn.PgError")
	}
}

func TestCapabilities(t *testing.T) {
	caps := Driver{}.Capabilities()
	if caps.Quote || caps.LastInsertID || caps.InitCommands {
		t.Errorf("capabilities = %+v, want none", caps)
	}
}

func TestRegistered(t *testing.T) {
	kind, err := backend.Default().Resolve("PostgreSQL")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if kind != backend.KindPostgreSQL {
		t.Errorf("kind = %s, want postgresql", kind)
	}
}

func TestOpenRefused(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Driver{}.Open(ctx, backend.Target{Host: "127.0.0.1", Port: 1, DBName: "test", User: "u"})
	if err == nil {
		t.Fatal("Open succeeded against a cancelled context")
	}
	var be *backend.Error
	if !errors.As(err, &be) {
		t.Errorf("Open error %T, want *backend.Error", err)
	}
}

func TestOpenRejectsPort(t *testing.T) {
	for _, port := range []int{0, -5432, 70000} {
		_, err := Driver{}.Open(context.Background(), backend.Target{Host: "localhost", Port: port, DBName: "app"})
		if !errors.Is(err, backend.ErrInvalidPort) {
			t.Errorf("Open(port %d) err = %v, want ErrInvalidPort", port, err)
		}
	}
}

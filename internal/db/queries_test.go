package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studioshot/internal/domain"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// stubDB scripts responses per SQL fragment and records the statements it
// saw.
type stubDB struct {
	rowFor  func(sql string, args []any) pgx.Row
	execTag pgconn.CommandTag
	execErr error
	seen    []string
}

func (s *stubDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.seen = append(s.seen, sql)
	return s.execTag, s.execErr
}

func (s *stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	s.seen = append(s.seen, sql)
	return nil, errors.New("query not scripted")
}

func (s *stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	s.seen = append(s.seen, sql)
	if s.rowFor == nil {
		return simpleRow{}
	}
	return s.rowFor(sql, args)
}

func setInt(dest any, v int) {
	*(dest.(*int)) = v
}

func TestGetQuota(t *testing.T) {
	stub := &stubDB{rowFor: func(sql string, args []any) pgx.Row {
		if args[0] != "user-1" {
			t.Fatalf("unexpected user arg %v", args[0])
		}
		return simpleRow{scan: func(dest ...any) error {
			setInt(dest[0], 12)
			setInt(dest[1], 2)
			return nil
		}}
	}}
	q := New(stub)
	quota, err := q.GetQuota(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetQuota returned error: %v", err)
	}
	if quota.CreditsBalance != 12 || quota.FreeTrialUsed != 2 {
		t.Fatalf("unexpected quota: %+v", quota)
	}
}

func TestGetQuotaNotFound(t *testing.T) {
	q := New(&stubDB{})
	_, err := q.GetQuota(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateQuotaUpsertsMissingRow(t *testing.T) {
	stub := &stubDB{execTag: pgconn.NewCommandTag("INSERT 0 1")}
	q := New(stub)
	if err := q.UpdateQuota(context.Background(), "new-user", domain.UserQuotaState{CreditsBalance: 0, FreeTrialUsed: 1}); err != nil {
		t.Fatalf("UpdateQuota returned error: %v", err)
	}
	if len(stub.seen) != 1 || !strings.Contains(stub.seen[0], "ON CONFLICT (user_id) DO UPDATE") {
		t.Fatalf("expected quota upsert, got: %v", stub.seen)
	}
}

func TestInsertGenerationReturnsServerFields(t *testing.T) {
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	stub := &stubDB{rowFor: func(sql string, args []any) pgx.Row {
		if !strings.Contains(sql, "INSERT INTO generations") {
			t.Fatalf("unexpected sql: %s", sql)
		}
		return simpleRow{scan: func(dest ...any) error {
			*(dest[0].(*string)) = "gen-1"
			*(dest[1].(*time.Time)) = created
			return nil
		}}
	}}
	q := New(stub)
	id, createdAt, err := q.InsertGeneration(context.Background(), &domain.GenerationRecord{
		UserID:            "user-1",
		GeneratedImageKey: "user-1/a.png",
		Prompt:            "p",
	})
	if err != nil {
		t.Fatalf("InsertGeneration returned error: %v", err)
	}
	if id != "gen-1" || !createdAt.Equal(created) {
		t.Fatalf("unexpected id/createdAt: %s %v", id, createdAt)
	}
}

func TestDeleteGenerationScansOwnership(t *testing.T) {
	stub := &stubDB{execTag: pgconn.NewCommandTag("DELETE 0")}
	q := New(stub)
	if err := q.DeleteGeneration(context.Background(), "g1", "intruder"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(stub.seen) != 1 || !strings.Contains(stub.seen[0], "user_id = $2") {
		t.Fatalf("delete must be owner scoped: %v", stub.seen)
	}
}

func TestDeleteGenerationsEmptyInputSkipsQuery(t *testing.T) {
	stub := &stubDB{}
	q := New(stub)
	deleted, err := q.DeleteGenerations(context.Background(), nil, "user-1")
	if err != nil || deleted != 0 {
		t.Fatalf("expected no-op, got %d %v", deleted, err)
	}
	if len(stub.seen) != 0 {
		t.Fatalf("expected no statements, saw %v", stub.seen)
	}
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	stub := &stubDB{execTag: pgconn.NewCommandTag("UPDATE 0")}
	q := New(stub)
	if err := q.MarkNotificationRead(context.Background(), "n1", "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package exam_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rccm-study/examcore/internal/bank"
	"github.com/rccm-study/examcore/internal/db"
	"github.com/rccm-study/examcore/internal/exam"
)

func testStoreLifecycle(t *testing.T, store exam.Store, repo *bank.Repository) {
	t.Helper()
	ctx := context.Background()
	s := startedSession(t, repo)

	if err := store.Put(ctx, s); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentIndex != s.CurrentIndex || got.Category != s.Category {
		t.Errorf("restored session diverged: %+v", got)
	}

	// Advance and overwrite; the store must return the newer state.
	q, err := got.Present()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := got.SubmitAnswer(q.ID, "c", time.Second); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, got); err != nil {
		t.Fatal(err)
	}
	latest, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if latest.CurrentIndex != 2 {
		t.Errorf("index after overwrite = %d, want 2", latest.CurrentIndex)
	}

	if err := store.Delete(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, s.ID); !errors.Is(err, exam.ErrSessionNotFound) {
		t.Errorf("after delete: err = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, exam.ErrSessionNotFound) {
		t.Errorf("unknown id: err = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	repo := newTestRepo(t)
	testStoreLifecycle(t, exam.NewMemoryStore(repo), repo)
}

func TestSQLStoreSQLite(t *testing.T) {
	repo := newTestRepo(t)
	dsn := "file:" + filepath.Join(t.TempDir(), "sessions.db")
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	testStoreLifecycle(t, exam.NewSQLStore(conn, repo), repo)
}

func TestSQLStoreSweepsAbandonedSessions(t *testing.T) {
	repo := newTestRepo(t)
	dsn := "file:" + filepath.Join(t.TempDir(), "sessions.db")
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	ctx := context.Background()
	store := exam.NewSQLStore(conn, repo)
	s := startedSession(t, repo)
	if err := store.Put(ctx, s); err != nil {
		t.Fatal(err)
	}

	// A cutoff before the write removes nothing.
	n, err := store.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("premature sweep removed %d sessions", n)
	}

	n, err = store.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("sweep removed %d sessions, want 1", n)
	}
	if _, err := store.Get(ctx, s.ID); !errors.Is(err, exam.ErrSessionNotFound) {
		t.Errorf("swept session still readable: %v", err)
	}
}

package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SaveAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	facts := []domain.Fact{
		{Category: "note", Content: "deploy window is friday", Source: "cli"},
		{Category: "note", Content: "api uses postgres"},
		{Category: "note", Content: "staging deploy is broken", Importance: 8},
	}
	for _, f := range facts {
		if err := s.SaveFact(ctx, f); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := s.SearchFacts(ctx, "deploy", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	// Higher importance sorts first.
	if got[0].Content != "staging deploy is broken" {
		t.Errorf("importance ordering wrong, got %q first", got[0].Content)
	}
	if got[0].Importance != 8 {
		t.Errorf("importance not persisted: %d", got[0].Importance)
	}
}

func TestSQLiteStore_DefaultImportance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveFact(ctx, domain.Fact{Category: "note", Content: "plain"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.RecentFacts(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Importance != 5 {
		t.Errorf("unset importance should default to 5: %+v", got)
	}
}

func TestSQLiteStore_ExpiredFactsHidden(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	s.SaveFact(ctx, domain.Fact{Category: "note", Content: "stale secret", ExpiresAt: &past})
	s.SaveFact(ctx, domain.Fact{Category: "note", Content: "fresh secret", ExpiresAt: &future})

	got, err := s.SearchFacts(ctx, "secret", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "fresh secret" {
		t.Errorf("expired fact should be filtered: %+v", got)
	}
}

func TestSQLiteStore_RecentFactsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	for i, content := range []string{"first", "second", "third"} {
		err := s.SaveFact(ctx, domain.Fact{
			Category:  "note",
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.RecentFacts(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("limit not applied, got %d", len(got))
	}
	if got[0].Content != "third" || got[1].Content != "second" {
		t.Errorf("newest should come first: %v, %v", got[0].Content, got[1].Content)
	}
}

func TestSQLiteStore_AuditLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []domain.AuditEntry{
		{Action: "deploy", Skill: "repo", Command: "deploy api", Result: "ok"},
		{Action: "scan", Skill: "repo", Command: "scan repo api", Result: "ok", Details: "no findings"},
	}
	for _, e := range entries {
		if err := s.LogAudit(ctx, e); err != nil {
			t.Fatalf("audit: %v", err)
		}
	}

	got, err := s.RecentAudit(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	for _, e := range got {
		if e.Skill != "repo" || e.Result != "ok" {
			t.Errorf("entry fields wrong: %+v", e)
		}
		if e.CreatedAt.IsZero() {
			t.Error("created_at should be set by the database")
		}
	}
}

func TestSQLiteStore_MigrationIsIdempotent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	path := filepath.Join(t.TempDir(), "memory.db")

	s1, err := NewSQLiteStore(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	s1.SaveFact(context.Background(), domain.Fact{Category: "note", Content: "kept"})
	s1.Close()

	s2, err := NewSQLiteStore(path, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.RecentFacts(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "kept" {
		t.Errorf("data should survive reopen: %+v", got)
	}
}

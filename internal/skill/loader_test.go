package skill

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
)

func writeSkillFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "greet.yaml", `
name: greet
description: Greets people
priority: 20
commands:
  - pattern: 'greet\s+(\S+)'
    usage: greet <name>
reply: "Hello, {1}!"
`)
	writeSkillFile(t, dir, "notes.txt", "not a skill")
	writeSkillFile(t, dir, "broken.yaml", ":\n  - [")
	writeSkillFile(t, dir, "empty.yaml", "name: empty\n")

	loaded, err := LoadFromDirectory(dir, testLogger())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 skill (malformed and commandless skipped), got %d", len(loaded))
	}

	s := loaded[0]
	if s.Name() != "greet" || s.Priority() != 20 {
		t.Errorf("unexpected identity: %s/%d", s.Name(), s.Priority())
	}
	if !s.CanHandle("greet alice", nil) {
		t.Error("declarative skill should match its pattern")
	}

	result, err := s.Execute(context.Background(), "greet alice", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Message != "Hello, alice!" {
		t.Errorf("capture expansion failed: %q", result.Message)
	}
}

func TestLoadFromDirectory_MissingDirIsNotAnError(t *testing.T) {
	loaded, err := LoadFromDirectory(filepath.Join(t.TempDir(), "nope"), testLogger())
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected no skills, got %d", len(loaded))
	}
}

func TestLoadFromDirectory_NameDefaultsToFilename(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "ping.yml", `
commands:
  - pattern: 'ping'
reply: pong
`)
	loaded, err := LoadFromDirectory(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].Name() != "ping" {
		t.Fatalf("expected skill named after file, got %v", loaded)
	}
}

func TestDeclarative_MultipleCaptures(t *testing.T) {
	d := NewDeclarative(Definition{
		Name: "move",
		Commands: []domain.CommandSpec{
			{Pattern: `move\s+(\S+)\s+to\s+(\S+)`},
		},
		Reply: "moving {1} into {2}",
	})

	result, err := d.Execute(context.Background(), "move box to attic", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Message != "moving box into attic" {
		t.Errorf("got %q", result.Message)
	}
}

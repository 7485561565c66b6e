package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/giquina/aws-clawd-bot-sub009/internal/bus"
	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
)

func newTestSkill(exec Executor) *Skill {
	logger := testLogger()
	catalog := NewCatalog("", logger)
	runner := NewRunner(catalog, exec, bus.NewEventBus(logger), logger)
	return NewSkill(catalog, runner)
}

func TestSkill_CanHandle(t *testing.T) {
	s := newTestSkill(&recordingExec{})

	for _, cmd := range []string{
		"workflow list",
		"workflows",
		"workflow run hotfix myrepo 42",
		`workflow create check "scan repo {repo}"`,
		"workflow status",
		"workflow stop",
	} {
		if !s.CanHandle(cmd, nil) {
			t.Errorf("should handle %q", cmd)
		}
	}
	for _, cmd := range []string{"workflow", "run hotfix", "workflow run"} {
		if s.CanHandle(cmd, nil) {
			t.Errorf("should not handle %q", cmd)
		}
	}
}

func TestSkill_List(t *testing.T) {
	s := newTestSkill(&recordingExec{})

	result, err := s.Execute(context.Background(), "workflow list", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("list failed: %s", result.Message)
	}
	for name := range Builtins() {
		if !strings.Contains(result.Message, name) {
			t.Errorf("list should include built-in %s", name)
		}
	}
	if !strings.Contains(result.Message, "built-in") {
		t.Error("list should label built-ins")
	}
}

func TestSkill_RunDispatchesWithTokenizedArgs(t *testing.T) {
	exec := &recordingExec{}
	s := newTestSkill(exec)

	result, err := s.Execute(context.Background(), `workflow run hotfix "my repo" 42`, &domain.SkillContext{})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}
	if got := exec.executed()[0]; got != "fix issue my repo #42" {
		t.Errorf("quoted arg should survive tokenizing, got %q", got)
	}
}

func TestSkill_CreateThenRun(t *testing.T) {
	exec := &recordingExec{}
	s := newTestSkill(exec)
	ctx := context.Background()

	created, err := s.Execute(ctx, `workflow create check "scan repo {repo}" "remember checked {repo}" "announce ok"`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !created.Success {
		t.Fatalf("create failed: %s", created.Message)
	}
	if !strings.Contains(created.Message, "3 steps") {
		t.Errorf("create report should count steps: %q", created.Message)
	}
	if !strings.Contains(created.Message, "Arguments: repo") {
		t.Errorf("create report should list detected args: %q", created.Message)
	}
	if !strings.Contains(created.Message, "workflow run check <repo>") {
		t.Errorf("create report should show run usage: %q", created.Message)
	}

	ran, err := s.Execute(ctx, "workflow run check api", &domain.SkillContext{})
	if err != nil {
		t.Fatal(err)
	}
	if !ran.Success {
		t.Fatalf("run failed: %s", ran.Message)
	}
	if got := exec.executed(); len(got) != 3 || got[1] != "remember checked api" {
		t.Errorf("unexpected executed steps: %v", got)
	}
}

func TestSkill_CreateRejectsBuiltinName(t *testing.T) {
	s := newTestSkill(&recordingExec{})
	result, err := s.Execute(context.Background(), `workflow create hotfix "status"`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Error("creating over a built-in should fail")
	}
}

func TestSkill_StatusAndStop(t *testing.T) {
	s := newTestSkill(&recordingExec{})
	ctx := context.Background()

	status, _ := s.Execute(ctx, "workflow status", nil)
	if !status.Success || !strings.Contains(status.Message, "No workflow running") {
		t.Errorf("idle status wrong: %+v", status)
	}

	stop, _ := s.Execute(ctx, "workflow stop", nil)
	if stop.Success {
		t.Error("stop with nothing running should fail")
	}
}

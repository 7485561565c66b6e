package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/giquina/aws-clawd-bot-sub009/internal/bus"
	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
)

// recordingExec captures every executed command and answers from a
// script keyed by command substring.
type recordingExec struct {
	mu       sync.Mutex
	commands []string
	failOn   string // command containing this substring fails
	errOn    string // command containing this substring returns an error
	block    chan struct{}
	onExec   func(command string)
}

func (e *recordingExec) ExecuteCommand(_ context.Context, command string, _ *domain.SkillContext) (*domain.RoutingResult, error) {
	e.mu.Lock()
	e.commands = append(e.commands, command)
	e.mu.Unlock()
	if e.onExec != nil {
		e.onExec(command)
	}
	if e.block != nil {
		<-e.block
	}
	if e.errOn != "" && strings.Contains(command, e.errOn) {
		return nil, fmt.Errorf("simulated failure")
	}
	if e.failOn != "" && strings.Contains(command, e.failOn) {
		return domain.Failure("step refused"), nil
	}
	return domain.Succeed("test", "ok"), nil
}

func (e *recordingExec) executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.commands...)
}

func newTestRunner(exec Executor) (*Runner, *Catalog) {
	logger := testLogger()
	catalog := NewCatalog("", logger)
	return NewRunner(catalog, exec, bus.NewEventBus(logger), logger), catalog
}

func TestRun_ResolvesTemplatesAndCompletes(t *testing.T) {
	exec := &recordingExec{}
	r, _ := newTestRunner(exec)

	result := r.Run(context.Background(), "hotfix", []string{"myrepo", "42"}, &domain.SkillContext{})

	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}
	want := []string{"fix issue myrepo #42", "create pr myrepo", "deploy myrepo"}
	got := exec.executed()
	if len(got) != len(want) {
		t.Fatalf("expected %d steps, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if !strings.Contains(result.Message, "(auto-approved)") {
		t.Error("confirmation step should be annotated auto-approved")
	}
	if !strings.Contains(result.Message, "completed (3/3 steps)") {
		t.Errorf("summary should show 3/3 completed: %q", result.Message)
	}
}

func TestRun_UnknownWorkflow(t *testing.T) {
	r, _ := newTestRunner(&recordingExec{})
	result := r.Run(context.Background(), "nope", nil, &domain.SkillContext{})
	if result.Success {
		t.Fatal("unknown workflow should fail")
	}
	if !strings.Contains(result.Message, "workflow list") {
		t.Errorf("failure should suggest workflow list: %q", result.Message)
	}
}

func TestRun_StepFailureHaltsRun(t *testing.T) {
	exec := &recordingExec{failOn: "create pr"}
	r, _ := newTestRunner(exec)

	result := r.Run(context.Background(), "hotfix", []string{"myrepo", "42"}, &domain.SkillContext{})

	if result.Success {
		t.Fatal("run with failed step should not succeed")
	}
	got := exec.executed()
	if len(got) != 2 {
		t.Fatalf("steps after the failure must not run, got %v", got)
	}

	history := r.History()
	if len(history) != 1 {
		t.Fatalf("failed run should be archived, got %d", len(history))
	}
	run := history[0]
	if run.Status != StatusFailed {
		t.Errorf("expected failed status, got %s", run.Status)
	}
	if run.Failed == nil || run.Failed.Index != 1 || run.Failed.Name != "pull request" {
		t.Errorf("failed step record wrong: %+v", run.Failed)
	}
	if len(run.Completed) != 1 {
		t.Errorf("only the first step should be completed, got %d", len(run.Completed))
	}
}

func TestRun_ExecutorErrorHaltsRun(t *testing.T) {
	exec := &recordingExec{errOn: "scan repo"}
	r, _ := newTestRunner(exec)

	result := r.Run(context.Background(), "ship", []string{"api"}, &domain.SkillContext{})
	if result.Success {
		t.Fatal("executor error should fail the run")
	}
	if got := exec.executed(); len(got) != 1 {
		t.Errorf("expected halt after first step, got %v", got)
	}
	if !strings.Contains(result.Message, "simulated failure") {
		t.Errorf("summary should carry the step error: %q", result.Message)
	}
}

func TestRun_MissingArgsReportsUsage(t *testing.T) {
	exec := &recordingExec{}
	r, _ := newTestRunner(exec)

	result := r.Run(context.Background(), "hotfix", []string{"myrepo"}, &domain.SkillContext{})
	if result.Success {
		t.Fatal("missing args should fail before any step runs")
	}
	if !strings.Contains(result.Message, "issue") {
		t.Errorf("failure should name the missing argument: %q", result.Message)
	}
	if !strings.Contains(result.Message, "workflow run hotfix <repo> <issue>") {
		t.Errorf("failure should show usage: %q", result.Message)
	}
	if len(exec.executed()) != 0 {
		t.Error("no steps should execute")
	}
	if r.Active() != nil {
		t.Error("active slot must be released after an argument failure")
	}
}

func TestRun_RepoAutofillFromContext(t *testing.T) {
	exec := &recordingExec{}
	r, _ := newTestRunner(exec)

	sc := &domain.SkillContext{Config: map[string]any{"currentRepo": "ambient"}}
	result := r.Run(context.Background(), "ship", nil, sc)

	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}
	got := exec.executed()
	if got[0] != "scan repo ambient" {
		t.Errorf("repo should come from ambient config, got %q", got[0])
	}
}

func TestRun_QuotedArgumentsSurvive(t *testing.T) {
	exec := &recordingExec{}
	r, catalog := newTestRunner(exec)

	catalog.Add(Definition{
		Name:  "note",
		Steps: []StepSpec{{Name: "step 1", Command: "remember {text}"}},
	})

	result := r.Run(context.Background(), "note", Tokenize(`"hello there world"`), &domain.SkillContext{})
	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}
	if got := exec.executed()[0]; got != "remember hello there world" {
		t.Errorf("quoted argument should stay one token, got %q", got)
	}
}

func TestRun_ArgsBindPositionally(t *testing.T) {
	exec := &recordingExec{}
	r, catalog := newTestRunner(exec)

	catalog.Add(Definition{
		Name:  "promote",
		Steps: []StepSpec{{Name: "step 1", Command: "deploy {repo} to {env}"}},
	})

	result := r.Run(context.Background(), "promote", []string{"api", "prod"}, &domain.SkillContext{})
	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}
	if got := exec.executed()[0]; got != "deploy api to prod" {
		t.Errorf("detected args should bind in placeholder order, got %q", got)
	}
}

func TestRun_OnlyOneRunAtATime(t *testing.T) {
	exec := &recordingExec{block: make(chan struct{})}
	r, _ := newTestRunner(exec)

	started := make(chan struct{}, 1)
	exec.onExec = func(string) {
		select {
		case started <- struct{}{}:
		default:
		}
	}

	done := make(chan *domain.RoutingResult, 1)
	go func() {
		done <- r.Run(context.Background(), "ship", []string{"api"}, &domain.SkillContext{})
	}()
	<-started

	second := r.Run(context.Background(), "morning", nil, &domain.SkillContext{})
	if second.Success {
		t.Error("second run must be rejected while the first is active")
	}
	if !strings.Contains(second.Message, "ship") {
		t.Errorf("rejection should name the active workflow: %q", second.Message)
	}

	close(exec.block)
	first := <-done
	if !first.Success {
		t.Errorf("first run should complete: %s", first.Message)
	}
}

func TestStop_NoActiveRun(t *testing.T) {
	r, _ := newTestRunner(&recordingExec{})
	result := r.Stop()
	if result.Success {
		t.Error("stop with no active run should fail")
	}
	if result.Message != "no workflow is running" {
		t.Errorf("got %q", result.Message)
	}
}

func TestStop_HaltsAtNextBoundaryAndArchives(t *testing.T) {
	exec := &recordingExec{block: make(chan struct{}, 3)}
	r, _ := newTestRunner(exec)

	stopped := make(chan struct{})
	exec.onExec = func(command string) {
		if strings.HasPrefix(command, "scan") {
			// Stop while the first step is in flight.
			go func() {
				r.Stop()
				close(stopped)
				exec.block <- struct{}{}
			}()
			<-stopped
		}
	}
	exec.block <- struct{}{}
	exec.block <- struct{}{}

	result := r.Run(context.Background(), "ship", []string{"api"}, &domain.SkillContext{})

	if result.Success {
		t.Error("stopped run should not report success")
	}
	if got := exec.executed(); len(got) != 1 {
		t.Errorf("remaining steps must be skipped, executed %v", got)
	}

	history := r.History()
	if len(history) != 1 || history[0].Status != StatusStopped {
		t.Fatalf("stopped run should be archived with stopped status: %+v", history)
	}
	if r.Active() != nil {
		t.Error("active slot should be clear after stop")
	}
	if !strings.Contains(result.Message, "skipped") {
		t.Errorf("summary should mention skipped steps: %q", result.Message)
	}
}

func TestHistory_BoundedFIFO(t *testing.T) {
	exec := &recordingExec{}
	r, catalog := newTestRunner(exec)

	catalog.Add(Definition{
		Name:  "tiny",
		Steps: []StepSpec{{Name: "step 1", Command: "status"}},
	})

	for i := 0; i < maxHistory+5; i++ {
		result := r.Run(context.Background(), "tiny", nil, &domain.SkillContext{})
		if !result.Success {
			t.Fatalf("run %d failed: %s", i, result.Message)
		}
	}

	history := r.History()
	if len(history) != maxHistory {
		t.Fatalf("history should cap at %d, got %d", maxHistory, len(history))
	}
	// Every archived run finished; the oldest five were evicted.
	for _, run := range history {
		if run.Status != StatusCompleted {
			t.Errorf("unexpected status in history: %s", run.Status)
		}
	}
}

func TestRun_CustomWorkflowFromCreate(t *testing.T) {
	exec := &recordingExec{}
	r, catalog := newTestRunner(exec)

	steps := ParseSteps(`"scan repo {repo}" "remember scanned {repo}" "announce done"`)
	var specs []StepSpec
	for i, s := range steps {
		specs = append(specs, StepSpec{Name: fmt.Sprintf("step %d", i+1), Command: s})
	}
	if err := catalog.Add(Definition{Name: "check", Steps: specs}); err != nil {
		t.Fatal(err)
	}

	result := r.Run(context.Background(), "check", []string{"api"}, &domain.SkillContext{})
	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}
	history := r.History()
	if len(history[0].Completed) != 3 {
		t.Errorf("expected 3 completed steps, got %d", len(history[0].Completed))
	}
}

func TestStatusReport(t *testing.T) {
	exec := &recordingExec{}
	r, _ := newTestRunner(exec)

	if got := r.StatusReport(); !strings.Contains(got, "No workflow running") {
		t.Errorf("idle report wrong: %q", got)
	}

	r.Run(context.Background(), "morning", nil, &domain.SkillContext{})

	got := r.StatusReport()
	if !strings.Contains(got, "Recent runs:") || !strings.Contains(got, "morning") {
		t.Errorf("report should list the finished run: %q", got)
	}
}

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/giquina/aws-clawd-bot-sub009/internal/bus"
	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
)

// maxHistory bounds the archive of finished runs (FIFO eviction).
const maxHistory = 20

// currentRepoKey is the config key holding the ambient "current repo"
// used to auto-fill a missing {repo} argument.
const currentRepoKey = "currentRepo"

// Status of a workflow run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// CompletedStep records one finished step of a run.
type CompletedStep struct {
	Index       int       `json:"index"`
	Name        string    `json:"name"`
	Command     string    `json:"command"`
	CompletedAt time.Time `json:"completed_at"`
}

// FailedStep records the step that ended a run.
type FailedStep struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Run is one workflow execution. At most one run has StatusRunning at
// any time; finished runs move to the bounded history.
type Run struct {
	ID        string          `json:"id"`
	Workflow  string          `json:"workflow"`
	Steps     []StepSpec      `json:"steps"` // commands already resolved
	Current   int             `json:"current"`
	Status    Status          `json:"status"`
	Completed []CompletedStep `json:"completed"`
	Failed    *FailedStep     `json:"failed,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at,omitzero"`
}

// Executor runs one resolved step command. The registry satisfies this
// through a small adapter; tests substitute fakes.
type Executor interface {
	ExecuteCommand(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error)

func (f ExecutorFunc) ExecuteCommand(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error) {
	return f(ctx, command, sc)
}

// Runner executes workflows strictly one at a time. Steps may have
// ordering dependencies encoded only in their sequence, so runs are
// never concurrent.
type Runner struct {
	mu      sync.Mutex
	catalog *Catalog
	exec    Executor
	active  *Run
	history []*Run

	events *bus.EventBus
	logger *slog.Logger
}

func NewRunner(catalog *Catalog, exec Executor, events *bus.EventBus, logger *slog.Logger) *Runner {
	return &Runner{
		catalog: catalog,
		exec:    exec,
		events:  events,
		logger:  logger,
	}
}

// Run looks up the workflow, binds arguments, and executes every step
// in order. It blocks until the run finishes, fails, or is stopped; the
// returned result carries a per-step report.
func (r *Runner) Run(ctx context.Context, key string, argTokens []string, sc *domain.SkillContext) *domain.RoutingResult {
	def, ok := r.catalog.Lookup(key)
	if !ok {
		return domain.Failure(fmt.Sprintf("unknown workflow %q — try 'workflow list'", key))
	}

	run := &Run{
		ID:        uuid.NewString(),
		Workflow:  def.Name,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}

	// Claim the single active slot before anything else; runs are
	// strictly serialized.
	r.mu.Lock()
	if r.active != nil {
		name := r.active.Workflow
		r.mu.Unlock()
		return domain.Failure(fmt.Sprintf("workflow %q is already running — stop it first or wait for it to finish", name))
	}
	r.active = run
	r.mu.Unlock()

	args, missing := r.bindArgs(def, argTokens, sc)
	if len(missing) > 0 {
		r.mu.Lock()
		r.active = nil
		r.mu.Unlock()
		return domain.Failure(fmt.Sprintf(
			"workflow %s is missing arguments: %s\nusage: workflow run %s %s",
			def.Name, strings.Join(missing, ", "), def.Name, usageArgs(def.Args)))
	}

	run.Steps = make([]StepSpec, len(def.Steps))
	for i, step := range def.Steps {
		run.Steps[i] = step
		run.Steps[i].Command = ResolveTemplate(step.Command, args)
	}

	r.events.Emit(bus.Event{Type: bus.EventWorkflowStarted, Source: "workflow", Payload: map[string]any{
		"run":      run.ID,
		"workflow": run.Workflow,
		"steps":    len(run.Steps),
	}})
	r.logger.Info("workflow started", "workflow", run.Workflow, "run", run.ID, "steps", len(run.Steps))

	report := r.executeSteps(ctx, run, sc)
	return r.finalize(run, report)
}

// executeSteps drives the step loop. The runner lock is held only for
// state checks, never across a step's execution, so Stop can flip the
// run state while a step is in flight.
func (r *Runner) executeSteps(ctx context.Context, run *Run, sc *domain.SkillContext) []string {
	var report []string

	for i, step := range run.Steps {
		r.mu.Lock()
		if run.Status != StatusRunning {
			r.mu.Unlock()
			break
		}
		run.Current = i
		r.mu.Unlock()

		line := fmt.Sprintf("%d. %s: %s", i+1, step.Name, step.Command)
		if step.RequiresConfirm {
			// No interactive confirmation channel here: the step
			// proceeds and the report says so.
			line += " (auto-approved)"
		}

		result, err := r.exec.ExecuteCommand(ctx, step.Command, sc)
		if err == nil && result != nil && !result.Success {
			err = fmt.Errorf("%s", result.Message)
		}

		if err != nil {
			r.mu.Lock()
			run.Failed = &FailedStep{Index: i, Name: step.Name, Error: err.Error()}
			run.Status = StatusFailed
			r.mu.Unlock()
			r.logger.Warn("workflow step failed", "workflow", run.Workflow, "step", step.Name, "index", i, "err", err)
			report = append(report, line+" ✗ "+err.Error())
			break
		}

		r.mu.Lock()
		run.Completed = append(run.Completed, CompletedStep{
			Index:       i,
			Name:        step.Name,
			Command:     step.Command,
			CompletedAt: time.Now(),
		})
		r.mu.Unlock()

		if result != nil && result.Message != "" {
			line += " ✓ " + firstLine(result.Message)
		} else {
			line += " ✓"
		}
		report = append(report, line)
	}

	return report
}

// finalize archives the run, clears the active slot, and renders the
// user-facing summary.
func (r *Runner) finalize(run *Run, report []string) *domain.RoutingResult {
	r.mu.Lock()
	if run.Status == StatusRunning {
		run.Status = StatusCompleted
	}
	run.EndedAt = time.Now()
	r.history = append(r.history, run)
	if len(r.history) > maxHistory {
		r.history = r.history[len(r.history)-maxHistory:]
	}
	r.active = nil
	status := run.Status
	completed := len(run.Completed)
	failed := run.Failed
	r.mu.Unlock()

	r.events.Emit(bus.Event{Type: bus.EventWorkflowFinished, Source: "workflow", Payload: map[string]any{
		"run":      run.ID,
		"workflow": run.Workflow,
		"status":   string(status),
		"steps":    completed,
	}})
	r.logger.Info("workflow finished", "workflow", run.Workflow, "run", run.ID, "status", status, "completed", completed)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Workflow %s %s (%d/%d steps)\n", run.Workflow, status, completed, len(run.Steps))
	for _, line := range report {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	switch status {
	case StatusFailed:
		fmt.Fprintf(&sb, "Failed at step %d (%s): %s", failed.Index+1, failed.Name, failed.Error)
	case StatusStopped:
		fmt.Fprintf(&sb, "Stopped — %d of %d steps skipped", len(run.Steps)-completed, len(run.Steps))
	}

	return &domain.RoutingResult{
		Success: status == StatusCompleted,
		Message: strings.TrimRight(sb.String(), "\n"),
		Data: map[string]any{
			"run":       run.ID,
			"workflow":  run.Workflow,
			"status":    string(status),
			"completed": completed,
		},
	}
}

// Stop marks the active run stopped. The step loop observes the flip at
// the next step boundary; no further steps execute.
func (r *Runner) Stop() *domain.RoutingResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return domain.Failure("no workflow is running")
	}
	r.active.Status = StatusStopped
	name := r.active.Workflow
	done := len(r.active.Completed)
	r.logger.Info("workflow stop requested", "workflow", name, "completed", done)
	return &domain.RoutingResult{Success: true,
		Message: fmt.Sprintf("Stopping workflow %s after %d completed steps; remaining steps will be skipped.", name, done)}
}

// Active returns a snapshot of the in-progress run, or nil.
func (r *Runner) Active() *Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil
	}
	snapshot := *r.active
	snapshot.Completed = append([]CompletedStep(nil), r.active.Completed...)
	return &snapshot
}

// History returns finished runs, most recent last, capped at maxHistory.
func (r *Runner) History() []*Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Run(nil), r.history...)
}

// StatusReport renders the active run's progress plus the most recent
// history entries.
func (r *Runner) StatusReport() string {
	r.mu.Lock()
	active := r.active
	var activeLine string
	if active != nil {
		total := len(active.Steps)
		done := len(active.Completed)
		activeLine = fmt.Sprintf("Running: %s — step %d/%d %s",
			active.Workflow, active.Current+1, total, progressBar(done, total))
	}
	recent := r.history
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	lines := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		run := recent[i]
		lines = append(lines, fmt.Sprintf("• %s — %s (%d/%d steps, %s)",
			run.Workflow, run.Status, len(run.Completed), len(run.Steps),
			run.EndedAt.Format("15:04:05")))
	}
	r.mu.Unlock()

	var sb strings.Builder
	if activeLine != "" {
		sb.WriteString(activeLine)
		sb.WriteString("\n")
	} else {
		sb.WriteString("No workflow running.\n")
	}
	if len(lines) > 0 {
		sb.WriteString("Recent runs:\n")
		for _, l := range lines {
			sb.WriteString(l)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// bindArgs assigns tokens to declared argument names positionally. A
// missing "repo" argument falls back to the ambient current repo from
// the context config. Returns the resolved map and any still-missing
// names.
func (r *Runner) bindArgs(def Definition, tokens []string, sc *domain.SkillContext) (map[string]string, []string) {
	args := make(map[string]string, len(def.Args))
	var missing []string
	for i, name := range def.Args {
		if i < len(tokens) {
			args[name] = tokens[i]
			continue
		}
		if name == "repo" {
			if repo := sc.ConfigString(currentRepoKey); repo != "" {
				args[name] = repo
				continue
			}
		}
		missing = append(missing, name)
	}
	return args, missing
}

func usageArgs(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = "<" + n + ">"
	}
	return strings.Join(parts, " ")
}

func progressBar(done, total int) string {
	const width = 10
	if total <= 0 {
		return ""
	}
	filled := done * width / total
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
	"github.com/giquina/aws-clawd-bot-sub009/internal/skill"
)

var (
	runRe    = regexp.MustCompile(`\Aworkflow\s+run\s+(\S+)(?:\s+(.+))?\z`)
	createRe = regexp.MustCompile(`\Aworkflow\s+create\s+(\S+)\s+(.+)\z`)
)

// Skill exposes the workflow engine on the command surface:
// list, run, create, status, stop.
type Skill struct {
	*skill.Base
	catalog *Catalog
	runner  *Runner
}

// NewSkill wires the catalog and runner behind the `workflow ...`
// commands. Priority sits above the generic skills so the workflow
// surface always wins its own namespace.
func NewSkill(catalog *Catalog, runner *Runner) *Skill {
	return &Skill{
		Base: skill.NewBase(skill.BaseConfig{
			Name:        "workflow",
			Description: "Run and manage multi-step command pipelines",
			Version:     "1.0",
			Priority:    80,
			Commands: []domain.CommandSpec{
				{Pattern: `workflow\s+list|workflows`, Usage: "workflow list", Description: "List available workflows"},
				{Pattern: `workflow\s+run\s+\S+(?:\s+.+)?`, Usage: "workflow run <name> [args...]", Description: "Run a workflow with positional arguments"},
				{Pattern: `workflow\s+create\s+\S+\s+.+`, Usage: `workflow create <name> "<step>" "<step>" ...`, Description: "Create a custom workflow (max 10 steps)"},
				{Pattern: `workflow\s+status`, Usage: "workflow status", Description: "Show the active run and recent history"},
				{Pattern: `workflow\s+stop`, Usage: "workflow stop", Description: "Stop the active run"},
			},
		}),
		catalog: catalog,
		runner:  runner,
	}
}

func (s *Skill) Execute(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error) {
	switch {
	case command == "workflow list" || command == "workflows":
		return domain.Succeed(s.Name(), s.listText()), nil

	case command == "workflow status":
		return domain.Succeed(s.Name(), s.runner.StatusReport()), nil

	case command == "workflow stop":
		return s.runner.Stop(), nil
	}

	if m := runRe.FindStringSubmatch(command); m != nil {
		return s.runner.Run(ctx, m[1], Tokenize(m[2]), sc), nil
	}

	if m := createRe.FindStringSubmatch(command); m != nil {
		return s.create(m[1], m[2]), nil
	}

	return domain.Failure("usage: workflow list | run <name> [args] | create <name> \"<step>\" ... | status | stop"), nil
}

func (s *Skill) create(name, rawSteps string) *domain.RoutingResult {
	commands := ParseSteps(rawSteps)
	steps := make([]StepSpec, len(commands))
	for i, cmd := range commands {
		steps[i] = StepSpec{Name: fmt.Sprintf("step %d", i+1), Command: cmd}
	}
	def := Definition{Name: name, Description: "custom workflow", Steps: steps}
	if err := s.catalog.Add(def); err != nil {
		return domain.Failure(err.Error())
	}
	stored, _ := s.catalog.Lookup(name)
	msg := fmt.Sprintf("Created workflow %s with %d steps.", stored.Name, len(stored.Steps))
	if len(stored.Args) > 0 {
		msg += fmt.Sprintf(" Arguments: %s.", strings.Join(stored.Args, ", "))
	}
	msg += fmt.Sprintf("\nRun it with: workflow run %s %s", stored.Name, usageArgs(stored.Args))
	return domain.Succeed(s.Name(), strings.TrimSpace(msg))
}

func (s *Skill) listText() string {
	var sb strings.Builder
	sb.WriteString("Available workflows:\n")
	for _, def := range s.catalog.List() {
		kind := "custom"
		if def.BuiltIn {
			kind = "built-in"
		}
		fmt.Fprintf(&sb, "• %s (%s, %d steps)", def.Name, kind, len(def.Steps))
		if len(def.Args) > 0 {
			fmt.Fprintf(&sb, " — args: %s", strings.Join(def.Args, ", "))
		}
		if def.Description != "" {
			fmt.Fprintf(&sb, " — %s", def.Description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nworkflow run <name> [args...] to execute one.")
	return sb.String()
}

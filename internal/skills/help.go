// Package skills holds the built-in skill implementations. Each one is
// a thin collaborator: the routing and workflow engine neither knows
// nor cares what they do beyond the Skill contract.
package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
	"github.com/giquina/aws-clawd-bot-sub009/internal/skill"
)

// Help lists registered skills and their command usage.
type Help struct {
	*skill.Base
	registry *skill.Registry
}

func NewHelp(registry *skill.Registry) *Help {
	return &Help{
		Base: skill.NewBase(skill.BaseConfig{
			Name:        "help",
			Description: "List available skills and commands",
			Priority:    30,
			Commands: []domain.CommandSpec{
				{Pattern: `help|skills`, Usage: "help", Description: "Show this listing"},
			},
		}),
		registry: registry,
	}
}

func (h *Help) Execute(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error) {
	var sb strings.Builder
	sb.WriteString("Available skills:\n")
	for _, s := range h.registry.List() {
		fmt.Fprintf(&sb, "\n*%s* (priority %d) — %s\n", s.Name(), s.Priority(), s.Description())
		for _, spec := range s.Commands() {
			fmt.Fprintf(&sb, "  %s — %s\n", spec.Usage, spec.Description)
		}
	}
	return domain.Succeed(h.Name(), strings.TrimRight(sb.String(), "\n")), nil
}

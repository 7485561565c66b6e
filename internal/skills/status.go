package skills

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
	"github.com/giquina/aws-clawd-bot-sub009/internal/skill"
)

// Status reports process health: uptime, version, skill count.
type Status struct {
	*skill.Base
	registry  *skill.Registry
	version   string
	startedAt time.Time
}

func NewStatus(registry *skill.Registry, version string) *Status {
	return &Status{
		Base: skill.NewBase(skill.BaseConfig{
			Name:        "status",
			Description: "Show bot status and uptime",
			Priority:    40,
			Commands: []domain.CommandSpec{
				{Pattern: `status`, Usage: "status", Description: "Bot status summary"},
				{Pattern: `uptime`, Usage: "uptime", Description: "Process uptime"},
				{Pattern: `version`, Usage: "version", Description: "Version info"},
			},
		}),
		registry:  registry,
		version:   version,
		startedAt: time.Now(),
	}
}

func (s *Status) Execute(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error) {
	uptime := time.Since(s.startedAt).Round(time.Second)

	switch command {
	case "uptime":
		return domain.Succeed(s.Name(), fmt.Sprintf("Uptime: %s", uptime)), nil
	case "version":
		return domain.Succeed(s.Name(), fmt.Sprintf("clawdbot v%s (%s/%s, Go %s)",
			s.version, runtime.GOOS, runtime.GOARCH, runtime.Version())), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*clawdbot v%s*\n", s.version)
	fmt.Fprintf(&sb, "Skills: %d registered\n", len(s.registry.List()))
	fmt.Fprintf(&sb, "Uptime: %s\n", uptime)
	fmt.Fprintf(&sb, "Runtime: %s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
	return domain.Succeed(s.Name(), sb.String()), nil
}

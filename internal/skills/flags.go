package skills

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
	"github.com/giquina/aws-clawd-bot-sub009/internal/skill"
	"github.com/giquina/aws-clawd-bot-sub009/internal/store"
)

var (
	flagSetRe = regexp.MustCompile(`\Aflag\s+set\s+(\S+)\s+(on|off)\z`)
	flagGetRe = regexp.MustCompile(`\Aflag\s+get\s+(\S+)\z`)
)

// Flags toggles feature flags in the JSON flag document.
type Flags struct {
	*skill.Base
	flags *store.Flags
}

func NewFlags(flags *store.Flags) *Flags {
	return &Flags{
		Base: skill.NewBase(skill.BaseConfig{
			Name:        "flags",
			Description: "Toggle and inspect feature flags",
			Priority:    50,
			Commands: []domain.CommandSpec{
				{Pattern: `flags`, Usage: "flags", Description: "List all flags"},
				{Pattern: `flag\s+set\s+\S+\s+(?:on|off)`, Usage: "flag set <name> on|off", Description: "Toggle a flag"},
				{Pattern: `flag\s+get\s+\S+`, Usage: "flag get <name>", Description: "Read a flag"},
			},
		}),
		flags: flags,
	}
}

func (f *Flags) Execute(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error) {
	if command == "flags" {
		values, names, err := f.flags.All()
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return domain.Succeed(f.Name(), "No flags set."), nil
		}
		var sb strings.Builder
		sb.WriteString("Flags:\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "• %s: %s\n", name, onOff(values[name]))
		}
		return domain.Succeed(f.Name(), strings.TrimRight(sb.String(), "\n")), nil
	}

	if m := flagSetRe.FindStringSubmatch(command); m != nil {
		value := m[2] == "on"
		if err := f.flags.Set(m[1], value); err != nil {
			return nil, err
		}
		return domain.Succeed(f.Name(), fmt.Sprintf("Flag %s is now %s.", m[1], onOff(value))), nil
	}

	if m := flagGetRe.FindStringSubmatch(command); m != nil {
		value, err := f.flags.Get(m[1])
		if err != nil {
			return nil, err
		}
		return domain.Succeed(f.Name(), fmt.Sprintf("Flag %s: %s", m[1], onOff(value))), nil
	}

	return domain.Failure("usage: flags | flag set <name> on|off | flag get <name>"), nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

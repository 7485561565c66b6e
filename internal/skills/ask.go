package skills

import (
	"context"
	"fmt"
	"regexp"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
	"github.com/giquina/aws-clawd-bot-sub009/internal/skill"
)

var askRe = regexp.MustCompile(`\Aask\s+(.+)\z`)

// Ask forwards a free-text question to the AI handle. Lowest priority:
// it should never outrank a structured command.
type Ask struct {
	*skill.Base
}

func NewAsk() *Ask {
	return &Ask{
		Base: skill.NewBase(skill.BaseConfig{
			Name:        "ask",
			Description: "Ask the AI a question",
			Priority:    10,
			Commands: []domain.CommandSpec{
				{Pattern: `ask\s+.+`, Usage: "ask <question>", Description: "Free-form question to the AI"},
			},
		}),
	}
}

func (a *Ask) Execute(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error) {
	if sc == nil || sc.AI == nil {
		return domain.Failure("AI is not available"), nil
	}
	m := askRe.FindStringSubmatch(command)
	if m == nil {
		return domain.Failure("usage: ask <question>"), nil
	}
	answer, err := sc.AI.Complete(ctx, m[1])
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	return domain.Succeed(a.Name(), answer), nil
}

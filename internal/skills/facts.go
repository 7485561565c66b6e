package skills

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
	"github.com/giquina/aws-clawd-bot-sub009/internal/skill"
)

var (
	rememberRe = regexp.MustCompile(`\Aremember\s+(.+)\z`)
	recallRe   = regexp.MustCompile(`\Arecall\s+(.+)\z`)
)

// Facts remembers and recalls free-text notes through the shared
// memory handle.
type Facts struct {
	*skill.Base
}

func NewFacts() *Facts {
	return &Facts{
		Base: skill.NewBase(skill.BaseConfig{
			Name:        "facts",
			Description: "Remember and recall notes",
			Priority:    50,
			Commands: []domain.CommandSpec{
				{Pattern: `remember\s+.+`, Usage: "remember <text>", Description: "Store a note"},
				{Pattern: `recall\s+.+`, Usage: "recall <query>", Description: "Search stored notes ('recall recent' for latest)"},
			},
		}),
	}
}

func (f *Facts) Execute(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error) {
	if sc == nil || sc.Memory == nil {
		return domain.Failure("memory store is not available"), nil
	}

	if m := rememberRe.FindStringSubmatch(command); m != nil {
		fact := domain.Fact{Category: "note", Content: m[1], Source: "chat"}
		if err := sc.Memory.SaveFact(ctx, fact); err != nil {
			return nil, fmt.Errorf("save fact: %w", err)
		}
		return domain.Succeed(f.Name(), fmt.Sprintf("Noted: %s", m[1])), nil
	}

	if m := recallRe.FindStringSubmatch(command); m != nil {
		query := m[1]
		var (
			facts []domain.Fact
			err   error
		)
		if query == "recent" {
			facts, err = sc.Memory.RecentFacts(ctx, 5)
		} else {
			facts, err = sc.Memory.SearchFacts(ctx, query, 5)
		}
		if err != nil {
			return nil, fmt.Errorf("recall: %w", err)
		}
		if len(facts) == 0 {
			return domain.Succeed(f.Name(), fmt.Sprintf("Nothing remembered for %q.", query)), nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Found %d note(s):\n", len(facts))
		for _, fact := range facts {
			fmt.Fprintf(&sb, "• %s (%s)\n", fact.Content, fact.CreatedAt.Format("Jan 2 15:04"))
		}
		return domain.Succeed(f.Name(), strings.TrimRight(sb.String(), "\n")), nil
	}

	return domain.Failure("usage: remember <text> | recall <query>"), nil
}

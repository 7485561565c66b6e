package skill

import (
	"context"
	"regexp"
	"sync"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
)

// BaseConfig declares the static identity of a skill.
type BaseConfig struct {
	Name         string
	Description  string
	Version      string
	Priority     int
	RequiresAuth bool
	Commands     []domain.CommandSpec
}

// Base is the embeddable half of a skill: identity, pre-compiled
// command matching, context storage, and lifecycle bookkeeping.
// Concrete skills embed it and implement Execute.
type Base struct {
	cfg      BaseConfig
	patterns []*regexp.Regexp

	mu    sync.RWMutex
	ctx   *domain.SkillContext
	state domain.SkillState
}

// NewBase compiles the command patterns and returns the base. Every
// pattern is forced to match the full trimmed command; invalid patterns
// are skipped (their commands simply never match).
func NewBase(cfg BaseConfig) *Base {
	b := &Base{cfg: cfg, state: domain.SkillStateUninitialized}
	for _, spec := range cfg.Commands {
		re, err := regexp.Compile(`\A(?:` + spec.Pattern + `)\z`)
		if err != nil {
			continue
		}
		b.patterns = append(b.patterns, re)
	}
	return b
}

func (b *Base) Name() string                   { return b.cfg.Name }
func (b *Base) Description() string            { return b.cfg.Description }
func (b *Base) Priority() int                  { return b.cfg.Priority }
func (b *Base) Commands() []domain.CommandSpec { return b.cfg.Commands }

// CanHandle matches the trimmed command against the compiled patterns.
func (b *Base) CanHandle(command string, _ *domain.SkillContext) bool {
	for _, re := range b.patterns {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

// InjectContext fills context fields the skill has not already set.
func (b *Base) InjectContext(sc *domain.SkillContext) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		b.ctx = &domain.SkillContext{}
	}
	b.ctx.FillFrom(sc)
}

// Context returns the injected shared context.
func (b *Base) Context() *domain.SkillContext {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

func (b *Base) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = domain.SkillStateReady
	return nil
}

func (b *Base) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = domain.SkillStateShutDown
	return nil
}

func (b *Base) Metadata() domain.SkillMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return domain.SkillMetadata{
		Name:         b.cfg.Name,
		Version:      b.cfg.Version,
		Description:  b.cfg.Description,
		Priority:     b.cfg.Priority,
		Commands:     b.cfg.Commands,
		RequiresAuth: b.cfg.RequiresAuth,
		State:        b.state,
	}
}

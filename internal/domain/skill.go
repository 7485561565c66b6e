package domain

import (
	"context"
	"log/slog"
)

// SkillState is the registry-managed lifecycle state of a skill.
type SkillState string

const (
	SkillStateUninitialized SkillState = "uninitialized"
	SkillStateReady         SkillState = "ready"
	SkillStateShutDown      SkillState = "shutdown"
)

// CommandSpec pairs a command pattern with its documentation.
// Patterns are anchored regular expressions evaluated against the full
// trimmed command string; a partial match is not a dispatch match.
type CommandSpec struct {
	Pattern     string `json:"pattern" yaml:"pattern"`
	Usage       string `json:"usage" yaml:"usage"`
	Description string `json:"description" yaml:"description"`
}

// SkillContext is the process-wide state injected into every skill at
// registration time. The registry fills only the fields a skill has not
// already set, so skill-level overrides survive injection.
type SkillContext struct {
	Memory FactStore
	AI     AIClient
	Config map[string]any
	Logger *slog.Logger
}

// FillFrom copies fields from other into c where c has none set.
func (c *SkillContext) FillFrom(other *SkillContext) {
	if other == nil {
		return
	}
	if c.Memory == nil {
		c.Memory = other.Memory
	}
	if c.AI == nil {
		c.AI = other.AI
	}
	if c.Config == nil {
		c.Config = other.Config
	}
	if c.Logger == nil {
		c.Logger = other.Logger
	}
}

// ConfigString reads a string value from the context config map.
func (c *SkillContext) ConfigString(key string) string {
	if c == nil || c.Config == nil {
		return ""
	}
	if v, ok := c.Config[key].(string); ok {
		return v
	}
	return ""
}

// RoutingResult is produced for every routed command. It lives only for
// the duration of one request and is never persisted.
type RoutingResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Skill   string         `json:"skill,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Failure builds a failure result with a user-facing message.
func Failure(message string) *RoutingResult {
	return &RoutingResult{Success: false, Message: message}
}

// Succeed builds a success result attributed to a skill.
func Succeed(skill, message string) *RoutingResult {
	return &RoutingResult{Success: true, Skill: skill, Message: message}
}

// SkillMetadata is the introspection view of a skill.
type SkillMetadata struct {
	Name         string        `json:"name"`
	Version      string        `json:"version,omitempty"`
	Description  string        `json:"description"`
	Priority     int           `json:"priority"`
	Commands     []CommandSpec `json:"commands"`
	RequiresAuth bool          `json:"requires_auth,omitempty"`
	State        SkillState    `json:"state"`
}

// Skill is a named handler for a class of commands. Implementations keep
// any internal state (cached scan results, counters) private; the
// registry owns the skill once registered.
type Skill interface {
	Name() string
	Description() string
	Priority() int
	Commands() []CommandSpec

	// CanHandle reports whether this skill claims the trimmed command.
	CanHandle(command string, sc *SkillContext) bool

	// Execute runs the command. Errors are caught at the registry
	// boundary and converted to failure results; they must not crash
	// the router.
	Execute(ctx context.Context, command string, sc *SkillContext) (*RoutingResult, error)

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error

	Metadata() SkillMetadata
}

// ContextReceiver is implemented by skills that accept shared-context
// injection at registration time.
type ContextReceiver interface {
	InjectContext(sc *SkillContext)
}

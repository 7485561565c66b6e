// Package skill provides the command routing core: the registry that
// owns the skill set, dispatches commands by priority, and manages
// skill lifecycle.
package skill

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/giquina/aws-clawd-bot-sub009/internal/bus"
	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
)

// Registry holds registered skills, injects the shared context, and
// routes commands to the highest-priority matching skill.
type Registry struct {
	mu          sync.RWMutex
	skills      map[string]domain.Skill
	seq         map[string]int // registration order, breaks priority ties
	nextSeq     int
	states      map[string]domain.SkillState
	ctx         *domain.SkillContext
	initialized bool

	events *bus.EventBus
	logger *slog.Logger
}

func NewRegistry(events *bus.EventBus, logger *slog.Logger) *Registry {
	return &Registry{
		skills: make(map[string]domain.Skill),
		seq:    make(map[string]int),
		states: make(map[string]domain.SkillState),
		ctx:    &domain.SkillContext{},
		events: events,
		logger: logger,
	}
}

// Initialize merges the supplied shared context into the registry's
// context, then initializes every registered skill. A failing skill is
// logged and reported via event; it does not block the others. Skills
// registered after this call are initialized automatically.
func (r *Registry) Initialize(ctx context.Context, sc *domain.SkillContext) error {
	r.mu.Lock()
	if sc != nil {
		merged := *sc
		merged.FillFrom(r.ctx)
		r.ctx = &merged
	}
	r.initialized = true
	skills := r.sortedLocked()
	shared := r.ctx
	r.mu.Unlock()

	for _, s := range skills {
		r.injectContext(s, shared)
		r.initSkill(ctx, s)
	}

	r.events.Emit(bus.Event{Type: bus.EventRegistryInit, Source: "registry", Payload: map[string]any{
		"skills": len(skills),
	}})
	r.logger.Info("skill registry initialized", "skills", len(skills))
	return nil
}

// Register adds a skill. A skill with the same name as an existing one
// replaces it; the old instance is shut down first (hot reload). When
// the registry is already initialized the new skill is initialized
// asynchronously; initialization errors surface as events, not errors.
func (r *Registry) Register(ctx context.Context, s domain.Skill) error {
	if s == nil || strings.TrimSpace(s.Name()) == "" {
		r.logger.Error("rejecting skill without a name")
		return fmt.Errorf("skill must have a name")
	}
	name := s.Name()

	r.mu.RLock()
	_, replacing := r.skills[name]
	r.mu.RUnlock()
	if replacing {
		r.logger.Info("replacing skill", "name", name)
		if err := r.Unregister(ctx, name); err != nil {
			r.logger.Warn("shutdown of replaced skill failed", "name", name, "err", err)
		}
	}

	r.mu.Lock()
	r.skills[name] = s
	r.seq[name] = r.nextSeq
	r.nextSeq++
	r.states[name] = domain.SkillStateUninitialized
	shared := r.ctx
	initialized := r.initialized
	r.mu.Unlock()

	r.injectContext(s, shared)

	r.events.Emit(bus.Event{Type: bus.EventSkillRegistered, Source: "registry", Payload: map[string]any{
		"name":     name,
		"priority": s.Priority(),
	}})
	r.logger.Info("skill registered", "name", name, "priority", s.Priority())

	if initialized {
		go r.initSkill(ctx, s)
	}
	return nil
}

// Unregister shuts the skill down and removes it. Absent names warn and
// no-op.
func (r *Registry) Unregister(ctx context.Context, name string) error {
	r.mu.Lock()
	s, ok := r.skills[name]
	if ok {
		delete(r.skills, name)
		delete(r.seq, name)
		delete(r.states, name)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("unregister of unknown skill", "name", name)
		return nil
	}

	if err := s.Shutdown(ctx); err != nil {
		r.logger.Warn("skill shutdown failed", "name", name, "err", err)
		r.emitSkillError(name, "shutdown", err)
	}

	r.events.Emit(bus.Event{Type: bus.EventSkillUnregistered, Source: "registry", Payload: map[string]any{
		"name": name,
	}})
	r.logger.Info("skill unregistered", "name", name)
	return nil
}

// Route dispatches a command to the highest-priority matching skill.
// All predicates are evaluated so ambiguous matches can be reported:
// more than one claimant means a latent priority misconfiguration, and
// a conflict event fires once per call listing every claimant. Dispatch
// still proceeds to the single best match. Skill faults never escape;
// they come back as failure results.
func (r *Registry) Route(ctx context.Context, command string, req *domain.SkillContext) *domain.RoutingResult {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return domain.Failure("empty command")
	}

	r.mu.RLock()
	skills := r.sortedLocked()
	shared := r.ctx
	r.mu.RUnlock()

	sc := r.effectiveContext(shared, req)

	var matches []domain.Skill
	for _, s := range skills {
		if s.CanHandle(trimmed, sc) {
			matches = append(matches, s)
		}
	}

	if len(matches) > 1 {
		claimants := make([]map[string]any, 0, len(matches))
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			claimants = append(claimants, map[string]any{"name": m.Name(), "priority": m.Priority()})
			names = append(names, m.Name())
		}
		r.events.Emit(bus.Event{Type: bus.EventSkillConflict, Source: "registry", Payload: map[string]any{
			"command": trimmed,
			"matches": claimants,
		}})
		r.logger.Warn("command matched by multiple skills", "command", trimmed, "skills", strings.Join(names, ", "))
	}

	if len(matches) == 0 {
		return domain.Failure(fmt.Sprintf("no skill can handle %q — try 'help' for available commands", trimmed))
	}

	target := matches[0]
	name := target.Name()

	if !r.isReady(name) {
		if err := target.Initialize(ctx); err != nil {
			r.emitSkillError(name, "initialize", err)
			r.logger.Error("lazy skill init failed", "name", name, "err", err)
			return &domain.RoutingResult{Success: false, Skill: name,
				Message: fmt.Sprintf("skill %s failed to initialize: %v", name, err)}
		}
		r.markReady(name)
	}

	r.events.Emit(bus.Event{Type: bus.EventBeforeExecute, Source: "registry", Payload: map[string]any{
		"skill":   name,
		"command": trimmed,
	}})

	result, err := r.safeExecute(ctx, target, trimmed, sc)
	if err != nil {
		r.emitSkillError(name, "execute", err)
		r.logger.Error("skill execution failed", "name", name, "command", trimmed, "err", err)
		result = &domain.RoutingResult{Success: false, Skill: name,
			Message: fmt.Sprintf("%s failed: %v", name, err)}
	}
	if result == nil {
		result = &domain.RoutingResult{Success: true, Skill: name}
	}
	if result.Skill == "" {
		result.Skill = name
	}

	r.events.Emit(bus.Event{Type: bus.EventAfterExecute, Source: "registry", Payload: map[string]any{
		"skill":   name,
		"command": trimmed,
		"success": result.Success,
	}})
	return result
}

// Shutdown shuts down every skill best-effort, clears the set, and
// resets the initialized flag.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	skills := r.sortedLocked()
	r.skills = make(map[string]domain.Skill)
	r.seq = make(map[string]int)
	r.states = make(map[string]domain.SkillState)
	r.initialized = false
	r.mu.Unlock()

	for _, s := range skills {
		if err := s.Shutdown(ctx); err != nil {
			r.logger.Warn("skill shutdown failed", "name", s.Name(), "err", err)
			r.emitSkillError(s.Name(), "shutdown", err)
		}
	}

	r.events.Emit(bus.Event{Type: bus.EventRegistryShutdown, Source: "registry"})
	r.logger.Info("skill registry shut down", "skills", len(skills))
}

// List returns all skills in dispatch order (priority descending,
// registration order on ties).
func (r *Registry) List() []domain.Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

// Get returns a skill by name.
func (r *Registry) Get(name string) (domain.Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// State reports the registry-tracked lifecycle state of a skill.
func (r *Registry) State(name string) domain.SkillState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if st, ok := r.states[name]; ok {
		return st
	}
	return domain.SkillStateShutDown
}

// FindMatching returns every skill claiming the command, in dispatch
// order. Read-only; no events fire.
func (r *Registry) FindMatching(command string, req *domain.SkillContext) []domain.Skill {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return nil
	}
	r.mu.RLock()
	skills := r.sortedLocked()
	shared := r.ctx
	r.mu.RUnlock()

	sc := r.effectiveContext(shared, req)
	var matches []domain.Skill
	for _, s := range skills {
		if s.CanHandle(trimmed, sc) {
			matches = append(matches, s)
		}
	}
	return matches
}

// sortedLocked snapshots the skill set in dispatch order. Callers hold
// at least a read lock.
func (r *Registry) sortedLocked() []domain.Skill {
	out := make([]domain.Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].Priority(), out[j].Priority()
		if pi != pj {
			return pi > pj
		}
		return r.seq[out[i].Name()] < r.seq[out[j].Name()]
	})
	return out
}

func (r *Registry) effectiveContext(shared, req *domain.SkillContext) *domain.SkillContext {
	if req == nil {
		return shared
	}
	merged := *req
	merged.FillFrom(shared)
	return &merged
}

func (r *Registry) injectContext(s domain.Skill, shared *domain.SkillContext) {
	if recv, ok := s.(domain.ContextReceiver); ok {
		recv.InjectContext(shared)
	}
}

func (r *Registry) initSkill(ctx context.Context, s domain.Skill) {
	name := s.Name()
	if r.isReady(name) {
		return
	}
	if err := s.Initialize(ctx); err != nil {
		r.emitSkillError(name, "initialize", err)
		r.logger.Error("skill init failed", "name", name, "err", err)
		return
	}
	r.markReady(name)
}

func (r *Registry) isReady(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[name] == domain.SkillStateReady
}

func (r *Registry) markReady(name string) {
	r.mu.Lock()
	if _, ok := r.states[name]; ok {
		r.states[name] = domain.SkillStateReady
	}
	r.mu.Unlock()
	r.events.Emit(bus.Event{Type: bus.EventSkillInitialized, Source: "registry", Payload: map[string]any{
		"name": name,
	}})
}

func (r *Registry) emitSkillError(name, phase string, err error) {
	r.events.Emit(bus.Event{Type: bus.EventSkillError, Source: "registry", Payload: map[string]any{
		"name":  name,
		"phase": phase,
		"error": err.Error(),
	}})
}

// safeExecute invokes the skill with panic isolation.
func (r *Registry) safeExecute(ctx context.Context, s domain.Skill, command string, sc *domain.SkillContext) (result *domain.RoutingResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in skill %s: %v", s.Name(), rec)
			result = nil
		}
	}()
	return s.Execute(ctx, command, sc)
}

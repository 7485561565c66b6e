// Package workflow implements the multi-step pipeline engine: a catalog
// of named command sequences and a strictly serialized runner that
// resolves templated arguments and tracks partial completion.
package workflow

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// maxSteps bounds user-defined workflows against pathological inputs.
const maxSteps = 10

// StepSpec is one command within a workflow. The command may contain
// {name} placeholders resolved at run time.
type StepSpec struct {
	Name            string `json:"name"`
	Command         string `json:"command"`
	RequiresConfirm bool   `json:"requires_confirm,omitempty"`
}

// Definition is a named, ordered pipeline. Built-ins are immutable
// constants; custom definitions are created via `workflow create` and
// persisted wholesale as a JSON document.
type Definition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Steps       []StepSpec `json:"steps"`
	Args        []string   `json:"args,omitempty"`
	BuiltIn     bool       `json:"-"`
}

// Builtins returns the built-in workflow table. Keys are lowercase.
func Builtins() map[string]Definition {
	return map[string]Definition{
		"hotfix": {
			Name:        "hotfix",
			Description: "Fix an issue, open a PR, and deploy",
			Args:        []string{"repo", "issue"},
			Steps: []StepSpec{
				{Name: "fix", Command: "fix issue {repo} #{issue}"},
				{Name: "pull request", Command: "create pr {repo}"},
				{Name: "deploy", Command: "deploy {repo}", RequiresConfirm: true},
			},
		},
		"ship": {
			Name:        "ship",
			Description: "Scan a repo and deploy it",
			Args:        []string{"repo"},
			Steps: []StepSpec{
				{Name: "scan", Command: "scan repo {repo}"},
				{Name: "deploy", Command: "deploy {repo}", RequiresConfirm: true},
				{Name: "announce", Command: "announce shipped {repo}"},
			},
		},
		"morning": {
			Name:        "morning",
			Description: "Morning report: status plus recent activity",
			Steps: []StepSpec{
				{Name: "status", Command: "status"},
				{Name: "flags", Command: "flags"},
				{Name: "recent", Command: "recall recent"},
			},
		},
		"audit": {
			Name:        "audit",
			Description: "Scan a repo and remember the result",
			Args:        []string{"repo"},
			Steps: []StepSpec{
				{Name: "scan", Command: "scan repo {repo}"},
				{Name: "note", Command: "remember audited {repo}"},
			},
		},
	}
}

// Catalog resolves workflow names: built-ins first, then custom
// definitions. Built-ins can never be shadowed.
type Catalog struct {
	mu       sync.RWMutex
	builtins map[string]Definition
	custom   map[string]Definition
	path     string // optional JSON persistence for custom definitions
	logger   *slog.Logger
}

// NewCatalog builds a catalog. When path is non-empty, custom
// definitions are loaded from it and saved back on every change
// (wholesale read-modify-write, single-writer by design).
func NewCatalog(path string, logger *slog.Logger) *Catalog {
	c := &Catalog{
		builtins: Builtins(),
		custom:   make(map[string]Definition),
		path:     path,
		logger:   logger,
	}
	if path != "" {
		if err := c.load(); err != nil {
			logger.Warn("cannot load custom workflows", "path", path, "err", err)
		}
	}
	return c
}

// Lookup finds a workflow by name, built-ins first.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if def, ok := c.builtins[key]; ok {
		def.BuiltIn = true
		return def, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.custom[key]
	return def, ok
}

// IsBuiltin reports whether name is a built-in workflow.
func (c *Catalog) IsBuiltin(name string) bool {
	_, ok := c.builtins[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Add validates and stores a custom definition keyed by lowercase name.
func (c *Catalog) Add(def Definition) error {
	key := strings.ToLower(strings.TrimSpace(def.Name))
	if key == "" {
		return fmt.Errorf("workflow needs a name")
	}
	if c.IsBuiltin(key) {
		return fmt.Errorf("%q is a built-in workflow and cannot be replaced", key)
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("workflow %q has no steps", key)
	}
	if len(def.Steps) > maxSteps {
		return fmt.Errorf("workflow %q has %d steps, maximum is %d", key, len(def.Steps), maxSteps)
	}
	def.Name = key
	def.Args = DetectArgs(def.Steps)

	c.mu.Lock()
	c.custom[key] = def
	c.mu.Unlock()

	if c.path != "" {
		if err := c.save(); err != nil {
			c.logger.Warn("cannot persist custom workflows", "path", c.path, "err", err)
		}
	}
	c.logger.Info("custom workflow created", "name", key, "steps", len(def.Steps), "args", strings.Join(def.Args, ","))
	return nil
}

// List returns every definition, built-ins first, each group sorted by
// name.
func (c *Catalog) List() []Definition {
	var builtin, custom []Definition
	for _, def := range c.builtins {
		def.BuiltIn = true
		builtin = append(builtin, def)
	}
	c.mu.RLock()
	for _, def := range c.custom {
		custom = append(custom, def)
	}
	c.mu.RUnlock()

	sort.Slice(builtin, func(i, j int) bool { return builtin[i].Name < builtin[j].Name })
	sort.Slice(custom, func(i, j int) bool { return custom[i].Name < custom[j].Name })
	return append(builtin, custom...)
}

func (c *Catalog) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var doc map[string]Definition
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", c.path, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, def := range doc {
		if c.IsBuiltin(key) {
			continue
		}
		c.custom[strings.ToLower(key)] = def
	}
	return nil
}

func (c *Catalog) save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.custom, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o600)
}

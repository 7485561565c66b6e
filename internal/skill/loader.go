package skill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
)

// Definition is a declarative skill authored as a YAML file: command
// patterns mapped to a reply template. `{1}`, `{2}`, ... expand to the
// capture groups of the matched pattern.
type Definition struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Version     string               `yaml:"version"`
	Priority    int                  `yaml:"priority"`
	Commands    []domain.CommandSpec `yaml:"commands"`
	Reply       string               `yaml:"reply"`
}

// LoadFromDirectory loads declarative skills from YAML files in dir.
// Files must have a .yaml or .yml extension. A missing directory is not
// an error; malformed files are skipped with a warning.
func LoadFromDirectory(dir string, logger *slog.Logger) ([]domain.Skill, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("skills directory does not exist, skipping", "dir", dir)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	var skills []domain.Skill
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read skill file", "path", path, "err", err)
			continue
		}

		var def Definition
		if err := yaml.Unmarshal(data, &def); err != nil {
			logger.Warn("cannot parse skill file", "path", path, "err", err)
			continue
		}
		if def.Name == "" {
			def.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		if len(def.Commands) == 0 {
			logger.Warn("skill file declares no commands", "path", path)
			continue
		}

		logger.Info("loaded user skill", "name", def.Name, "path", path)
		skills = append(skills, NewDeclarative(def))
	}

	return skills, nil
}

// Declarative is a skill built from a Definition. Its reply template is
// expanded with the capture groups of whichever pattern matched.
type Declarative struct {
	*Base
	def Definition
}

func NewDeclarative(def Definition) *Declarative {
	return &Declarative{
		Base: NewBase(BaseConfig{
			Name:        def.Name,
			Description: def.Description,
			Version:     def.Version,
			Priority:    def.Priority,
			Commands:    def.Commands,
		}),
		def: def,
	}
}

func (d *Declarative) Execute(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error) {
	reply := d.def.Reply
	for _, re := range d.patterns {
		groups := re.FindStringSubmatch(command)
		if groups == nil {
			continue
		}
		for i := 1; i < len(groups); i++ {
			reply = strings.ReplaceAll(reply, fmt.Sprintf("{%d}", i), groups[i])
		}
		return domain.Succeed(d.Name(), reply), nil
	}
	return domain.Failure(fmt.Sprintf("%s: no pattern matched %q", d.Name(), command)), nil
}

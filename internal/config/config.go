// Package config holds the assistant's JSON configuration document.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the root configuration.
type Config struct {
	General   GeneralConfig   `json:"general"`
	Channels  ChannelsConfig  `json:"channels"`
	Memory    MemoryConfig    `json:"memory"`
	AI        AIConfig        `json:"ai"`
	Workflows WorkflowsConfig `json:"workflows"`
	Flags     FlagsConfig     `json:"flags"`
	Skills    SkillsConfig    `json:"skills"`
}

type GeneralConfig struct {
	Workspace   string `json:"workspace"`
	LogLevel    string `json:"logLevel"`
	CurrentRepo string `json:"currentRepo,omitempty"` // ambient repo for workflow auto-fill
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled   bool           `json:"enabled"`
	Token     string         `json:"token"`
	AllowFrom FlexStringList `json:"allowFrom"`
	ParseMode string         `json:"parseMode"`
}

type MemoryConfig struct {
	DBPath string `json:"dbPath"`
}

type AIConfig struct {
	Enabled bool   `json:"enabled"`
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
}

type WorkflowsConfig struct {
	File string `json:"file"` // custom workflow definitions (JSON)
}

type FlagsConfig struct {
	File string `json:"file"` // feature flag document (JSON)
}

type SkillsConfig struct {
	Dir string `json:"dir"` // declarative YAML skills
}

// FlexStringList is a []string that also accepts JSON numbers, so chat
// IDs can be written unquoted in the config file.
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, fmt.Sprintf("%.0f", t))
		default:
			return fmt.Errorf("allowFrom entries must be strings or numbers, got %T", v)
		}
	}
	*f = out
	return nil
}

// DefaultConfigDir is ~/.clawdbot.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".clawdbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Defaults returns a working configuration rooted in the default dir.
func Defaults() *Config {
	dir := DefaultConfigDir()
	return &Config{
		General: GeneralConfig{
			Workspace: filepath.Join(dir, "workspace"),
			LogLevel:  "info",
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{ParseMode: "Markdown"},
		},
		Memory:    MemoryConfig{DBPath: filepath.Join(dir, "memory.db")},
		AI:        AIConfig{Model: "gpt-4o-mini"},
		Workflows: WorkflowsConfig{File: filepath.Join(dir, "workflows.json")},
		Flags:     FlagsConfig{File: filepath.Join(dir, "flags.json")},
		Skills:    SkillsConfig{Dir: filepath.Join(dir, "skills")},
	}
}

// Load reads the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config file at path (0600; it may hold tokens).
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ContextMap is the read-only configuration mapping handed to skills in
// the shared context.
func (c *Config) ContextMap() map[string]any {
	return map[string]any{
		"workspace":   c.General.Workspace,
		"currentRepo": c.General.CurrentRepo,
		"aiModel":     c.AI.Model,
	}
}

// Sanitize returns a copy safe for printing: secrets redacted.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	if out.Channels.Telegram.Token != "" {
		out.Channels.Telegram.Token = "***"
	}
	if out.AI.APIKey != "" {
		out.AI.APIKey = "***"
	}
	return &out
}

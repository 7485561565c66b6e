package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/giquina/aws-clawd-bot-sub009/internal/ai"
	"github.com/giquina/aws-clawd-bot-sub009/internal/bus"
	"github.com/giquina/aws-clawd-bot-sub009/internal/channel"
	"github.com/giquina/aws-clawd-bot-sub009/internal/config"
	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
	"github.com/giquina/aws-clawd-bot-sub009/internal/gateway"
	"github.com/giquina/aws-clawd-bot-sub009/internal/skill"
	"github.com/giquina/aws-clawd-bot-sub009/internal/skills"
	"github.com/giquina/aws-clawd-bot-sub009/internal/store"
	"github.com/giquina/aws-clawd-bot-sub009/internal/workflow"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "clawdbot",
		Short: "clawdbot: chat-driven automation assistant",
		Long:  "clawdbot routes free-text commands to pluggable skills and runs multi-step workflows.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.clawdbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(skillsCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}
	return cfg
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.General.Workspace, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "workspace", cfg.General.Workspace)
			return nil
		},
	}
}

// runtime bundles everything the chat and gateway commands share.
type runtime struct {
	registry *skill.Registry
	bus      *bus.MessageBus
	gateway  *gateway.Gateway
	memStore *store.SQLiteStore
}

func (rt *runtime) close(ctx context.Context) {
	rt.registry.Shutdown(ctx)
	rt.bus.Close()
	if rt.memStore != nil {
		rt.memStore.Close()
	}
}

// buildRuntime wires the registry, workflow engine, stores, and skills.
func buildRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	events := bus.NewEventBus(logger)
	messageBus := bus.New(100, logger)

	memStore, err := store.NewSQLiteStore(cfg.Memory.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}

	var aiClient domain.AIClient = ai.Disabled{}
	if cfg.AI.Enabled {
		aiClient = ai.NewHTTPClient(ai.HTTPConfig{
			APIBase: cfg.AI.APIBase,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Logger:  logger,
		})
	}

	registry := skill.NewRegistry(events, logger)

	catalog := workflow.NewCatalog(cfg.Workflows.File, logger)
	runner := workflow.NewRunner(catalog, workflow.ExecutorFunc(
		func(ctx context.Context, command string, sc *domain.SkillContext) (*domain.RoutingResult, error) {
			return registry.Route(ctx, command, sc), nil
		}), events, logger)

	flagStore := store.NewFlags(cfg.Flags.File)

	for _, s := range []domain.Skill{
		workflow.NewSkill(catalog, runner),
		skills.NewRepo(),
		skills.NewFlags(flagStore),
		skills.NewFacts(),
		skills.NewStatus(registry, version),
		skills.NewHelp(registry),
		skills.NewAsk(),
	} {
		if err := registry.Register(ctx, s); err != nil {
			return nil, fmt.Errorf("register %s: %w", s.Name(), err)
		}
	}

	userSkills, err := skill.LoadFromDirectory(cfg.Skills.Dir, logger)
	if err != nil {
		logger.Warn("cannot load user skills", "dir", cfg.Skills.Dir, "err", err)
	}
	for _, s := range userSkills {
		if err := registry.Register(ctx, s); err != nil {
			logger.Warn("cannot register user skill", "name", s.Name(), "err", err)
		}
	}

	if err := registry.Initialize(ctx, &domain.SkillContext{
		Memory: memStore,
		AI:     aiClient,
		Config: cfg.ContextMap(),
		Logger: logger,
	}); err != nil {
		return nil, fmt.Errorf("registry init: %w", err)
	}

	gw := gateway.New(gateway.Config{
		Registry: registry,
		Bus:      messageBus,
		Logger:   logger,
	})

	return &runtime{registry: registry, bus: messageBus, gateway: gw, memStore: memStore}, nil
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat (CLI)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.close(context.Background())

			go rt.gateway.Run(ctx)

			cli := channel.NewCLI(channel.CLIConfig{Logger: logger})
			return cli.Start(ctx, rt.bus)
		},
	}
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start the gateway (Telegram + routing loop)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.close(context.Background())

			go rt.gateway.Run(ctx)

			if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
				tg := channel.NewTelegram(channel.TelegramConfig{
					Token:     cfg.Channels.Telegram.Token,
					AllowFrom: cfg.Channels.Telegram.AllowFrom,
					ParseMode: cfg.Channels.Telegram.ParseMode,
					Logger:    logger,
				})
				go func() {
					if err := tg.Start(ctx, rt.bus); err != nil {
						logger.Error("telegram channel error", "err", err)
					}
				}()
				logger.Info("telegram channel enabled")
			} else {
				logger.Info("telegram channel disabled")
			}

			logger.Info("gateway started, press Ctrl+C to stop")
			<-ctx.Done()
			logger.Info("shutting down gateway")
			return nil
		},
	}
}

func skillsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "List registered skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx := context.Background()
			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			for _, s := range rt.registry.List() {
				meta := s.Metadata()
				fmt.Printf("%s (priority %d, %s) — %s\n", meta.Name, meta.Priority, meta.State, meta.Description)
				for _, spec := range meta.Commands {
					fmt.Printf("  %s\n", spec.Usage)
				}
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. general.currentRepo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. general.currentRepo myrepo)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values (secrets redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

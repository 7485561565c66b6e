// Package gateway connects the message bus to the skill registry: every
// inbound command is routed and its result sent back on the channel it
// came from.
package gateway

import (
	"context"
	"log/slog"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
	"github.com/giquina/aws-clawd-bot-sub009/internal/skill"
)

const defaultConcurrency = 3

// Gateway is the routing loop between channels and skills.
type Gateway struct {
	registry    *skill.Registry
	bus         domain.MessageBus
	logger      *slog.Logger
	concurrency int
}

type Config struct {
	Registry    *skill.Registry
	Bus         domain.MessageBus
	Logger      *slog.Logger
	Concurrency int // max parallel commands (default 3)
}

func New(cfg Config) *Gateway {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Gateway{
		registry:    cfg.Registry,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Run consumes inbound commands with bounded concurrency until the
// context is cancelled or the bus closes. Independent commands may
// interleave; the single-active-workflow constraint lives in the
// workflow runner, not here.
func (g *Gateway) Run(ctx context.Context) {
	g.logger.Info("gateway loop started", "concurrency", g.concurrency)

	sem := make(chan struct{}, g.concurrency)
	inbound := g.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("gateway loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				g.logger.Info("inbound channel closed, gateway loop stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				g.handle(ctx, m)
			}(msg)
		}
	}
}

// Process routes one command synchronously and returns the reply text.
// Used by the CLI and by tests that need a blocking answer.
func (g *Gateway) Process(ctx context.Context, content, channel, chatID string) string {
	result := g.registry.Route(ctx, content, nil)
	return render(result)
}

func (g *Gateway) handle(ctx context.Context, msg domain.InboundMessage) {
	g.logger.Debug("routing command", "channel", msg.Channel, "chat", msg.ChatID, "len", len(msg.Content))
	result := g.registry.Route(ctx, msg.Content, nil)
	g.bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: render(result),
		Format:  "markdown",
	})
}

func render(result *domain.RoutingResult) string {
	if result == nil {
		return "no response"
	}
	if result.Message != "" {
		return result.Message
	}
	if result.Success {
		return "done"
	}
	return "command failed"
}

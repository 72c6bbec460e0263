// Package discord assembles the gateway, router and command pipeline into a
// running bot.
package discord

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/keshon/lighthouse/internal/command"
	"github.com/keshon/lighthouse/internal/commands/debug"
	"github.com/keshon/lighthouse/internal/config"
	"github.com/keshon/lighthouse/internal/events"
	"github.com/keshon/lighthouse/internal/gateway"
	"github.com/keshon/lighthouse/internal/interaction"
	"github.com/keshon/lighthouse/internal/permissions"
	"github.com/keshon/lighthouse/internal/sysinfo"
)

// Bot is a Discord bot
type Bot struct {
	cfg      *config.Config
	logger   *zap.Logger
	gateway  *gateway.Manager
	registry *command.Registry
	syncer   *command.Syncer
	router   *events.Router
}

// NewBot wires every component but opens no connection.
func NewBot(cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	gw, err := gateway.New(gateway.Options{
		Token:            cfg.DiscordToken,
		ShardCount:       cfg.ShardCount,
		IdentifyInterval: cfg.IdentifyInterval,
	}, logger.Named("gateway"))
	if err != nil {
		return nil, err
	}
	client := gw.Client()

	guard := permissions.NewGuard(cfg.AdministratorID)
	registry := NewRegistry(guard, logger.Named("command"))

	syncer := &command.Syncer{
		Registry:  registry,
		Publisher: client,
		GuildID:   cfg.GuildID,
		Logger:    logger.Named("sync"),
	}

	dispatcher := interaction.NewDispatcher(registry, logger.Named("interaction"), cfg.AckDeadline)
	handler := interaction.NewHandler(dispatcher, interaction.NewSessionResponder(client), logger.Named("interaction"))

	var onReady events.CommandSyncer
	if cfg.SyncCommands {
		onReady = syncer
	}

	return &Bot{
		cfg:      cfg,
		logger:   logger,
		gateway:  gw,
		registry: registry,
		syncer:   syncer,
		router:   events.NewRouter(handler, onReady, logger.Named("events")),
	}, nil
}

// NewRegistry returns the registry of every command the bot serves.
func NewRegistry(guard *permissions.Guard, logger *zap.Logger) *command.Registry {
	reg := command.NewRegistry()
	reg.MustRegister(
		command.Apply(
			debug.New(guard, sysinfo.NewHost(), logger.Named("debug")),
			command.WithPermissionCheck(guard),
			command.WithLogging(logger),
		),
	)
	return reg
}

// Run connects every shard and routes events until ctx is cancelled, then
// waits for in-flight events before returning.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.gateway.Open(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	b.logger.Info("Bot is running", zap.Int("shards", b.gateway.ShardCount()), zap.Int("commands", len(b.registry.All())))

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.router.Run(ctx, b.gateway.Events())
	}()

	var closeErr error
	select {
	case <-ctx.Done():
		b.logger.Info("Shutdown signal received. Cleaning up...")
		closeErr = b.gateway.Close()
		<-done
	case <-done:
		closeErr = b.gateway.Close()
	}
	b.router.Wait()

	if closeErr != nil {
		return fmt.Errorf("failed to close gateway: %w", closeErr)
	}
	return nil
}

// SyncCommands publishes slash definitions without connecting to the gateway.
func (b *Bot) SyncCommands(ctx context.Context) error {
	app, err := b.gateway.Client().Application("@me")
	if err != nil {
		return fmt.Errorf("fetch application: %w", err)
	}
	if app == nil || app.ID == "" {
		return errors.New("fetch application: empty application id")
	}
	return b.syncer.Sync(ctx, app.ID)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/keshon/lighthouse/internal/config"
	"github.com/keshon/lighthouse/internal/discord"
	"github.com/keshon/lighthouse/internal/logger"
	"github.com/keshon/lighthouse/internal/telemetry"
)

const appName = "lighthouse"

// rootCmd runs the bot until SIGINT or SIGTERM.
var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Run the Lighthouse Discord bot",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

// commandsCmd groups slash command maintenance.
var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Manage slash command definitions",
}

var commandsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Publish slash command definitions and exit",
	Long: `Overwrite the application's slash commands with the definitions of
every registered command. Set DISCORD_GUILD_ID to publish to a single guild.`,
	RunE: runCommandsSync,
}

func init() {
	commandsCmd.AddCommand(commandsSyncCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(diagCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "[ERR]", err)
		os.Exit(1)
	}
}

// setup loads config and builds the logger every subcommand shares.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return nil, nil, err
	}
	logger.RouteDiscordgo(log)
	if !cfg.DotEnvLoaded {
		log.Debug("No .env file found, using process environment")
	}
	return cfg, log, nil
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Info("Starting bot", zap.String("app", appName))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: appName,
		Endpoint:    cfg.OtelEndpoint,
		Enabled:     cfg.OtelEnabled,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	bot, err := discord.NewBot(cfg, log)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Run(ctx)
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	var runErr error
	select {
	case s := <-sig:
		log.Info("Received signal, shutting down", zap.String("signal", s.String()))
		cancel()
		runErr = <-errCh
	case runErr = <-errCh:
		cancel()
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Discord bot error", zap.Error(runErr))
		return runErr
	}
	log.Info("Discord bot exited cleanly")
	return nil
}

func runCommandsSync(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	bot, err := discord.NewBot(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	return bot.SyncCommands(ctx)
}

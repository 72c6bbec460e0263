package command

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Publisher is the part of *discordgo.Session used to publish definitions.
type Publisher interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Syncer publishes the registry's slash definitions to Discord. Commands
// missing from the registry are removed by the overwrite.
type Syncer struct {
	Registry  *Registry
	Publisher Publisher
	GuildID   string // empty publishes global commands
	Logger    *zap.Logger

	mu   sync.Mutex
	done bool
}

// Sync overwrites the application's commands with the registry's definitions.
func (s *Syncer) Sync(ctx context.Context, appID string) error {
	if appID == "" {
		return fmt.Errorf("sync commands: empty application id")
	}
	defs := s.Registry.Definitions()
	if defs == nil {
		defs = []*discordgo.ApplicationCommand{}
	}

	created, err := s.Publisher.ApplicationCommandBulkOverwrite(appID, s.GuildID, defs, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sync commands: %w", err)
	}

	names := make([]string, 0, len(created))
	for _, c := range created {
		names = append(names, c.Name)
	}
	s.Logger.Info("Slash commands synced",
		zap.String("guild_id", s.GuildID),
		zap.Strings("commands", names),
	)
	return nil
}

// SyncOnce runs Sync until it succeeds once; later calls are no-ops.
func (s *Syncer) SyncOnce(ctx context.Context, appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	if err := s.Sync(ctx, appID); err != nil {
		return err
	}
	s.done = true
	return nil
}

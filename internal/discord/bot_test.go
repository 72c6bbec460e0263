package discord

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/keshon/lighthouse/internal/command"
	"github.com/keshon/lighthouse/internal/config"
	"github.com/keshon/lighthouse/internal/interaction"
	"github.com/keshon/lighthouse/internal/permissions"
	"github.com/keshon/lighthouse/internal/response"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry(permissions.NewGuard("1"), zap.NewNop())

	h, ok := reg.Get("debug")
	require.True(t, ok)
	assert.Equal(t, "debug", command.Root(h).Name())

	defs := reg.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, discordgo.ChatApplicationCommand, defs[0].Type)
}

func TestNewBotWiresSyncOnReady(t *testing.T) {
	cfg := &config.Config{DiscordToken: "t", AdministratorID: "1", ShardCount: 1, SyncCommands: true}

	b, err := NewBot(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, b.router.Syncer)

	cfg.SyncCommands = false
	b, err = NewBot(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, b.router.Syncer)
}

func TestDebugThroughDispatcher(t *testing.T) {
	reg := NewRegistry(permissions.NewGuard("671477574932627516"), zap.NewNop())
	d := interaction.NewDispatcher(reg, zap.NewNop(), 0)

	info := &discordgo.ApplicationCommandInteractionDataOption{Name: "info", Type: discordgo.ApplicationCommandOptionSubCommand}
	newInteraction := func(userID string) *discordgo.Interaction {
		return &discordgo.Interaction{
			ID:     "1",
			Type:   discordgo.InteractionApplicationCommand,
			Member: &discordgo.Member{User: &discordgo.User{ID: userID}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    "debug",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{info},
			},
		}
	}

	resp := d.Dispatch(context.Background(), newInteraction("671477574932627516"))
	require.Len(t, resp.Data.Embeds, 1)
	assert.Equal(t, "Lighthouse Debug Information", resp.Data.Embeds[0].Title)

	resp = d.Dispatch(context.Background(), newInteraction("42"))
	assert.Empty(t, resp.Data.Embeds)
	assert.Equal(t, "You are not allowed perform this action.", resp.Data.Content)

	unknown := newInteraction("671477574932627516")
	unknown.Data = discordgo.ApplicationCommandInteractionData{Name: "unknown"}
	resp = d.Dispatch(context.Background(), unknown)
	assert.Equal(t, response.UnimplementedCommand, resp.Data.Content)
}

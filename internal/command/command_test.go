package command

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	name      string
	resp      *discordgo.InteractionResponse
	err       error
	calls     int
	userPerms int64
	botPerms  int64
}

func (h *stubHandler) Name() string        { return h.name }
func (h *stubHandler) Description() string { return "stub " + h.name }

func (h *stubHandler) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: h.name, Description: h.Description()}
}

func (h *stubHandler) Execute(ctx context.Context, inv *Invocation) (*discordgo.InteractionResponse, error) {
	h.calls++
	return h.resp, h.err
}

type privilegedStub struct {
	stubHandler
}

func (h *privilegedStub) UserPermissions() int64 { return h.userPerms }
func (h *privilegedStub) BotPermissions() int64  { return h.botPerms }

func TestInvocationUserID(t *testing.T) {
	tests := []struct {
		name        string
		interaction *discordgo.Interaction
		wantID      string
		wantName    string
	}{
		{
			name:        "guild member",
			interaction: &discordgo.Interaction{Member: &discordgo.Member{User: &discordgo.User{ID: "1", Username: "ann"}}},
			wantID:      "1",
			wantName:    "ann",
		},
		{
			name:        "direct message user",
			interaction: &discordgo.Interaction{User: &discordgo.User{ID: "2", Username: "bob"}},
			wantID:      "2",
			wantName:    "bob",
		},
		{
			name:        "member without user falls back",
			interaction: &discordgo.Interaction{Member: &discordgo.Member{}, User: &discordgo.User{ID: "3"}},
			wantID:      "3",
		},
		{name: "no author", interaction: &discordgo.Interaction{}},
		{name: "no interaction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invocation{Interaction: tt.interaction}
			assert.Equal(t, tt.wantID, inv.UserID())
			assert.Equal(t, tt.wantName, inv.Username())
		})
	}
}

func TestInvocationSubcommand(t *testing.T) {
	sub := &discordgo.ApplicationCommandInteractionDataOption{
		Name: "info",
		Type: discordgo.ApplicationCommandOptionSubCommand,
	}
	inv := &Invocation{Data: discordgo.ApplicationCommandInteractionData{
		Name:    "debug",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{sub},
	}}

	got, err := inv.Subcommand()
	require.NoError(t, err)
	assert.Equal(t, "info", got.Name)

	empty := &Invocation{Data: discordgo.ApplicationCommandInteractionData{Name: "debug"}}
	_, err = empty.Subcommand()
	assert.True(t, errors.Is(err, ErrMissingSubcommand))

	leaf := &Invocation{Data: discordgo.ApplicationCommandInteractionData{
		Name: "debug",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "verbose", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
		},
	}}
	_, err = leaf.Subcommand()
	assert.ErrorIs(t, err, ErrMissingSubcommand)
}

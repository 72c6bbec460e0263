// Package command provides the command registry used by the interaction
// dispatcher: a command has a name, a Discord definition and Execute.
// Delivery of the produced response is owned by the dispatcher, never by the
// command itself.
package command

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

// ErrMissingSubcommand is returned when a command that declares subcommands is
// invoked without one. This is a schema mismatch, not a user error.
var ErrMissingSubcommand = errors.New("command invoked without a subcommand")

// Handler is the contract every command implements.
type Handler interface {
	Name() string
	Description() string
	Definition() *discordgo.ApplicationCommand
	Execute(ctx context.Context, inv *Invocation) (*discordgo.InteractionResponse, error)
}

// PermissionRequirer is an optional interface for handlers that need guild
// permission bits from the invoking member or from the bot.
type PermissionRequirer interface {
	UserPermissions() int64
	BotPermissions() int64
}

// Invocation carries one application-command interaction into a handler.
type Invocation struct {
	Interaction *discordgo.Interaction
	Data        discordgo.ApplicationCommandInteractionData
}

// UserID returns the invoking user's id: the guild member when invoked in a
// guild, the user otherwise. Empty when neither is present.
func (inv *Invocation) UserID() string {
	i := inv.Interaction
	if i == nil {
		return ""
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Username mirrors UserID for display purposes.
func (inv *Invocation) Username() string {
	i := inv.Interaction
	if i == nil {
		return ""
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}

// Subcommand returns the first option, which must be a subcommand or a
// subcommand group.
func (inv *Invocation) Subcommand() (*discordgo.ApplicationCommandInteractionDataOption, error) {
	if len(inv.Data.Options) == 0 || inv.Data.Options[0] == nil {
		return nil, ErrMissingSubcommand
	}
	opt := inv.Data.Options[0]
	switch opt.Type {
	case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
		return opt, nil
	default:
		return nil, ErrMissingSubcommand
	}
}

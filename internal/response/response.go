// Package response builds interaction acknowledgements. It performs no I/O.
package response

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/lighthouse/internal/permissions"
)

const (
	UnimplementedInteraction = "This interaction has not been implemented yet."
	UnimplementedCommand     = "This command has not been implemented yet."
	UnimplementedSubcommand  = "This subcommand has not been implemented yet."
	UnknownError             = "An unknown error occurred."
)

// --- Plain text ---

// Message builds a public text response.
func Message(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}
}

// Ephemeral builds a text response visible only to the invoking user.
func Ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

// --- Embeds ---

// EphemeralEmbed validates e and wraps it in an ephemeral response.
func EphemeralEmbed(e Embed) (*discordgo.InteractionResponse, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:  discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{e.MessageEmbed()},
		},
	}, nil
}

// EmbedOrFallback returns the embed response, or an ephemeral plain-text
// fallback when the embed does not validate. The validation error is returned
// alongside the fallback so callers can log it.
func EmbedOrFallback(e Embed, fallback string) (*discordgo.InteractionResponse, error) {
	resp, err := EphemeralEmbed(e)
	if err != nil {
		return Ephemeral(fallback), err
	}
	return resp, nil
}

// --- Errors ---

// FromError renders a dispatch failure. Permission errors carry their own
// user-facing text; anything else becomes the generic message.
func FromError(err error) *discordgo.InteractionResponse {
	if perr, ok := permissions.AsError(err); ok {
		return Ephemeral(perr.Error())
	}
	return Ephemeral(UnknownError)
}

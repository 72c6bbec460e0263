package interaction

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Responder sends the single acknowledgement for an interaction.
type Responder interface {
	Respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error
}

// SessionResponder answers through a discordgo session's REST client.
type SessionResponder struct {
	Session *discordgo.Session
}

func NewSessionResponder(s *discordgo.Session) *SessionResponder {
	return &SessionResponder{Session: s}
}

func (r *SessionResponder) Respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return r.Session.InteractionRespond(i, resp, discordgo.WithContext(ctx))
}

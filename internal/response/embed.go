package response

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// Discord embed limits, counted in characters.
const (
	MaxTitleLength       = 256
	MaxDescriptionLength = 4096
	MaxEmbedLength       = 6000
	MaxColor             = 0xFFFFFF
)

type Embed struct {
	Title       string
	Description string
	Color       int
}

// ValidationError reports an embed that Discord would reject.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid embed %s: %s", e.Field, e.Reason)
}

// Validate checks the embed against Discord's structural limits.
func (e Embed) Validate() error {
	title := utf8.RuneCountInString(e.Title)
	desc := utf8.RuneCountInString(e.Description)

	switch {
	case strings.TrimSpace(e.Title) == "":
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	case title > MaxTitleLength:
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("%d characters exceeds %d", title, MaxTitleLength)}
	case desc > MaxDescriptionLength:
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("%d characters exceeds %d", desc, MaxDescriptionLength)}
	case e.Color < 0 || e.Color > MaxColor:
		return &ValidationError{Field: "color", Reason: fmt.Sprintf("%#x is not an RGB value", e.Color)}
	case title+desc > MaxEmbedLength:
		return &ValidationError{Field: "embed", Reason: fmt.Sprintf("%d characters exceeds %d", title+desc, MaxEmbedLength)}
	}
	return nil
}

func (e Embed) MessageEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
}

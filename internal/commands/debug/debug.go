// Package debug implements the owner-only /debug command.
package debug

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/keshon/lighthouse/internal/command"
	"github.com/keshon/lighthouse/internal/permissions"
	"github.com/keshon/lighthouse/internal/response"
	"github.com/keshon/lighthouse/internal/sysinfo"
)

const (
	Title      = "Lighthouse Debug Information"
	EmbedColor = 0x545863

	headerWidth = 37
)

// Command shows information about the bot. Only the configured
// administrator may run it.
type Command struct {
	Guard     *permissions.Guard
	Collector sysinfo.Collector
	Logger    *zap.Logger
	Now       func() time.Time
}

func New(guard *permissions.Guard, collector sysinfo.Collector, logger *zap.Logger) *Command {
	return &Command{
		Guard:     guard,
		Collector: collector,
		Logger:    logger,
		Now:       time.Now,
	}
}

func (c *Command) Name() string        { return "debug" }
func (c *Command) Description() string { return "Debug commands for the bot owner" }

func (c *Command) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "info",
				Description: "Show information about the bot",
			},
		},
	}
}

func (c *Command) Execute(ctx context.Context, inv *command.Invocation) (*discordgo.InteractionResponse, error) {
	if err := c.Guard.Authorize(inv.UserID()); err != nil {
		return nil, err
	}

	sub, err := inv.Subcommand()
	if err != nil {
		return nil, fmt.Errorf("debug: %w", err)
	}

	switch sub.Name {
	case "info":
		return c.info(ctx)
	default:
		return response.Ephemeral(response.UnimplementedSubcommand), nil
	}
}

func (c *Command) info(ctx context.Context) (*discordgo.InteractionResponse, error) {
	snap, err := c.Collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("debug info: %w", err)
	}

	embed := response.Embed{
		Title:       Title,
		Description: InfoBlock(snap, c.now()),
		Color:       EmbedColor,
	}
	resp, err := response.EmbedOrFallback(embed, response.UnknownError)
	if err != nil {
		c.Logger.Warn("Debug embed rejected, sending text fallback", zap.Error(err))
	}
	return resp, nil
}

func (c *Command) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// InfoBlock formats a snapshot as an ANSI code block.
func InfoBlock(s sysinfo.Snapshot, now time.Time) string {
	cores := sysinfo.Unknown
	if s.PhysicalCores > 0 {
		cores = strconv.Itoa(s.PhysicalCores)
	}
	started := sysinfo.Unknown
	if !s.StartedAt.IsZero() {
		started = humanize.RelTime(s.StartedAt, now, "ago", "from now")
	}

	var b strings.Builder
	b.WriteString("```ansi\n")
	header(&b, "System Information")
	field(&b, "OS", sysinfo.OrUnknown(s.OS))
	field(&b, "CPU Model", sysinfo.OrUnknown(s.CPUModel))
	field(&b, "Total CPU Cores", cores)
	b.WriteString("\n")
	header(&b, "Process Stats")
	field(&b, "Memory Usage", fmt.Sprintf("%dMB", s.MemoryBytes/1_000_000))
	field(&b, "Started", started)
	b.WriteString("```")
	return b.String()
}

func header(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\u001b[0;42m%-*s\u001b[0m\n", headerWidth, title)
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "\u001b[0;37m%s: \u001b[0m%s\n", label, value)
}

package command

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/keshon/lighthouse/internal/permissions"
)

// Middleware wraps a handler (logging, permission checks).
type Middleware func(Handler) Handler

// Apply applies middlewares in order; the last in the list is the outermost.
func Apply(h Handler, mws ...Middleware) Handler {
	for _, mw := range mws {
		h = mw(h)
	}
	return h
}

// ExecuteFunc is the signature of Handler.Execute.
type ExecuteFunc func(ctx context.Context, inv *Invocation) (*discordgo.InteractionResponse, error)

// Wrapped replaces Execute of an inner handler. The inner handler is exposed
// via Unwrap so optional interfaces stay reachable through Root.
type Wrapped struct {
	Inner       Handler
	ExecuteFunc ExecuteFunc
}

func (w *Wrapped) Name() string                              { return w.Inner.Name() }
func (w *Wrapped) Description() string                       { return w.Inner.Description() }
func (w *Wrapped) Definition() *discordgo.ApplicationCommand { return w.Inner.Definition() }
func (w *Wrapped) Unwrap() Handler                           { return w.Inner }

func (w *Wrapped) Execute(ctx context.Context, inv *Invocation) (*discordgo.InteractionResponse, error) {
	if w.ExecuteFunc != nil {
		return w.ExecuteFunc(ctx, inv)
	}
	return w.Inner.Execute(ctx, inv)
}

// Wrap returns a handler that runs fn instead of h.Execute.
func Wrap(h Handler, fn ExecuteFunc) Handler {
	return &Wrapped{Inner: h, ExecuteFunc: fn}
}

// Root unwraps middleware until the underlying handler is reached.
func Root(h Handler) Handler {
	for {
		u, ok := h.(interface{ Unwrap() Handler })
		if !ok {
			return h
		}
		h = u.Unwrap()
	}
}

// WithLogging records every execution with its duration and outcome.
func WithLogging(logger *zap.Logger) Middleware {
	return func(h Handler) Handler {
		return Wrap(h, func(ctx context.Context, inv *Invocation) (*discordgo.InteractionResponse, error) {
			start := time.Now()
			resp, err := h.Execute(ctx, inv)

			fields := []zap.Field{
				zap.String("command", h.Name()),
				zap.String("user_id", inv.UserID()),
				zap.String("username", inv.Username()),
				zap.Duration("took", time.Since(start)),
			}
			if inv.Interaction != nil {
				fields = append(fields,
					zap.String("interaction_id", inv.Interaction.ID),
					zap.String("guild_id", inv.Interaction.GuildID),
					zap.String("channel_id", inv.Interaction.ChannelID),
				)
			}

			if err != nil {
				logger.Warn("Command failed", append(fields, zap.Error(err))...)
			} else {
				logger.Info("Command executed", fields...)
			}
			return resp, err
		})
	}
}

// WithPermissionCheck enforces the permission bits declared by handlers
// implementing PermissionRequirer. Handlers without requirements are open
// (default allow). Members with Administrator always pass the user check.
func WithPermissionCheck(guard *permissions.Guard) Middleware {
	return func(h Handler) Handler {
		req, ok := Root(h).(PermissionRequirer)
		if !ok {
			return h
		}
		return Wrap(h, func(ctx context.Context, inv *Invocation) (*discordgo.InteractionResponse, error) {
			if err := guard.RequireUser(inv.Interaction, req.UserPermissions()); err != nil {
				return nil, err
			}
			if err := guard.RequireBot(inv.Interaction, req.BotPermissions()); err != nil {
				return nil, err
			}
			return h.Execute(ctx, inv)
		})
	}
}

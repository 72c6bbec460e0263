// Package events fans gateway events out to their handlers.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/keshon/lighthouse/internal/gateway"
)

// InteractionHandler answers one interaction.
type InteractionHandler interface {
	Handle(ctx context.Context, i *discordgo.Interaction) error
}

// CommandSyncer publishes slash definitions for an application.
type CommandSyncer interface {
	SyncOnce(ctx context.Context, appID string) error
}

// Router handles every event in its own goroutine. A failure while handling
// one event never affects the others.
type Router struct {
	Interactions InteractionHandler
	Logger       *zap.Logger

	// Syncer, when set, publishes commands on the first Ready.
	Syncer CommandSyncer

	wg sync.WaitGroup
}

func NewRouter(interactions InteractionHandler, syncer CommandSyncer, logger *zap.Logger) *Router {
	return &Router{Interactions: interactions, Syncer: syncer, Logger: logger}
}

// Run consumes events until ctx is done or the channel closes. It does not
// wait for in-flight handlers; call Wait for that. Handlers already started
// keep ctx's values but not its cancellation, so they can still respond
// during shutdown.
func (r *Router) Run(ctx context.Context, events <-chan gateway.Event) {
	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.safeHandle(handlerCtx, ev)
			}()
		}
	}
}

// Wait blocks until every spawned handler has returned.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) safeHandle(ctx context.Context, ev gateway.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Error("Panic while handling event",
				zap.Int("shard", ev.ShardID),
				zap.String("event", fmt.Sprintf("%T", ev.Payload)),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
		}
	}()

	if err := r.Handle(ctx, ev); err != nil {
		r.Logger.Error("Error handling event",
			zap.Int("shard", ev.ShardID),
			zap.String("event", fmt.Sprintf("%T", ev.Payload)),
			zap.Error(err),
		)
	}
}

// Handle processes one event synchronously.
func (r *Router) Handle(ctx context.Context, ev gateway.Event) error {
	switch e := ev.Payload.(type) {
	case *discordgo.Ready:
		return r.onReady(ctx, ev.ShardID, e)
	case *discordgo.InteractionCreate:
		if e.Interaction == nil {
			return nil
		}
		return r.Interactions.Handle(ctx, e.Interaction)
	default:
		if ce := r.Logger.Check(zap.DebugLevel, "Ignoring event"); ce != nil {
			ce.Write(zap.Int("shard", ev.ShardID), zap.String("event", fmt.Sprintf("%T", ev.Payload)))
		}
		return nil
	}
}

func (r *Router) onReady(ctx context.Context, shardID int, ready *discordgo.Ready) error {
	var userID, username string
	if ready.User != nil {
		userID, username = ready.User.ID, ready.User.Username
	}
	r.Logger.Info("Shard ready",
		zap.Int("shard", shardID),
		zap.String("user_id", userID),
		zap.String("username", username),
		zap.Int("guilds", len(ready.Guilds)),
	)

	if r.Syncer == nil {
		return nil
	}
	appID := userID
	if ready.Application != nil && ready.Application.ID != "" {
		appID = ready.Application.ID
	}
	return r.Syncer.SyncOnce(ctx, appID)
}

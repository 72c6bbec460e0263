// Package interaction turns one Discord interaction into exactly one
// acknowledgement: it resolves the command, runs its handler and converts
// every failure into a user-visible response.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/keshon/lighthouse/internal/command"
	"github.com/keshon/lighthouse/internal/response"
)

const tracerName = "github.com/keshon/lighthouse/internal/interaction"

var (
	// ErrNoResponse means a handler returned neither a response nor an error.
	ErrNoResponse = errors.New("handler returned no response")
	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("handler panicked")
	// ErrDeadlineExceeded means the handler did not finish within the
	// acknowledgement deadline.
	ErrDeadlineExceeded = errors.New("acknowledgement deadline exceeded")
)

// Outcome labels the path a dispatch took.
type Outcome string

const (
	OutcomeSuccess                  Outcome = "success"
	OutcomeUnimplementedInteraction Outcome = "unimplemented_interaction"
	OutcomeUnimplementedCommand     Outcome = "unimplemented_command"
	OutcomeError                    Outcome = "error"
)

// Dispatcher resolves application commands against a registry.
type Dispatcher struct {
	Registry *command.Registry
	Logger   *zap.Logger
	Tracer   trace.Tracer

	// AckDeadline bounds handler execution. Zero disables the bound.
	AckDeadline time.Duration
}

func NewDispatcher(registry *command.Registry, logger *zap.Logger, ackDeadline time.Duration) *Dispatcher {
	return &Dispatcher{
		Registry:    registry,
		Logger:      logger,
		Tracer:      otel.Tracer(tracerName),
		AckDeadline: ackDeadline,
	}
}

// Dispatch always returns exactly one response; it never returns nil.
func (d *Dispatcher) Dispatch(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	ctx, span := d.Tracer.Start(ctx, "interaction.dispatch", trace.WithAttributes(
		attribute.String("interaction.id", i.ID),
		attribute.String("interaction.type", i.Type.String()),
	))
	defer span.End()

	resp, outcome := d.dispatch(ctx, i, span)
	span.SetAttributes(attribute.String("dispatch.outcome", string(outcome)))
	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, i *discordgo.Interaction, span trace.Span) (*discordgo.InteractionResponse, Outcome) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return response.Ephemeral(response.UnimplementedInteraction), OutcomeUnimplementedInteraction
	}
	data, ok := i.Data.(discordgo.ApplicationCommandInteractionData)
	if !ok {
		return response.Ephemeral(response.UnimplementedInteraction), OutcomeUnimplementedInteraction
	}
	span.SetAttributes(attribute.String("command.name", data.Name))

	h, ok := d.Registry.Get(data.Name)
	if !ok {
		d.Logger.Warn("Unknown command", zap.String("command", data.Name), zap.String("interaction_id", i.ID))
		return response.Ephemeral(response.UnimplementedCommand), OutcomeUnimplementedCommand
	}

	resp, err := d.execute(ctx, h, &command.Invocation{Interaction: i, Data: data})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.Logger.Error("Error handling interaction",
			zap.String("command", data.Name),
			zap.String("interaction_id", i.ID),
			zap.Error(err),
		)
		return response.FromError(err), OutcomeError
	}
	return resp, OutcomeSuccess
}

// execute runs the handler, bounded by AckDeadline when set. A handler that
// outlives the deadline keeps running but its result is discarded.
func (d *Dispatcher) execute(ctx context.Context, h command.Handler, inv *command.Invocation) (*discordgo.InteractionResponse, error) {
	if d.AckDeadline <= 0 {
		return safeExecute(ctx, h, inv)
	}

	ctx, cancel := context.WithTimeout(ctx, d.AckDeadline)
	defer cancel()

	type result struct {
		resp *discordgo.InteractionResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := safeExecute(ctx, h, inv)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("command %q after %s: %w", h.Name(), d.AckDeadline, errors.Join(ErrDeadlineExceeded, ctx.Err()))
	}
}

func safeExecute(ctx context.Context, h command.Handler, inv *command.Invocation) (resp *discordgo.InteractionResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("command %q: %w: %v", h.Name(), ErrHandlerPanic, r)
		}
	}()

	resp, err = h.Execute(ctx, inv)
	if err == nil && resp == nil {
		err = fmt.Errorf("command %q: %w", h.Name(), ErrNoResponse)
	}
	return resp, err
}

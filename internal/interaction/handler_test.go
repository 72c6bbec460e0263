package interaction

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/keshon/lighthouse/internal/command"
	"github.com/keshon/lighthouse/internal/response"
)

type sent struct {
	interaction *discordgo.Interaction
	resp        *discordgo.InteractionResponse
}

type recordingResponder struct {
	sent []sent
	err  error
}

func (r *recordingResponder) Respond(_ context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	r.sent = append(r.sent, sent{i, resp})
	return r.err
}

func newHandler(t *testing.T, responder Responder, handlers ...command.Handler) (*Handler, *observer.ObservedLogs) {
	t.Helper()
	f := newFixture(t, handlers...)
	core, logs := observer.New(zap.DebugLevel)
	return NewHandler(f.dispatcher, responder, zap.New(core), WithReplayWindow(128, 0)), logs
}

func TestHandleSendsExactlyOnce(t *testing.T) {
	panicking := &funcHandler{name: "boom", fn: func(context.Context, *command.Invocation) (*discordgo.InteractionResponse, error) {
		panic("x")
	}}

	tests := []struct {
		name        string
		interaction *discordgo.Interaction
		want        string
	}{
		{name: "success", interaction: commandInteraction("ping"), want: "pong"},
		{name: "failing", interaction: commandInteraction("fail"), want: response.UnknownError},
		{name: "panicking", interaction: commandInteraction("boom"), want: response.UnknownError},
		{name: "unknown command", interaction: commandInteraction("nope"), want: response.UnimplementedCommand},
		{name: "component", interaction: &discordgo.Interaction{ID: "7", Type: discordgo.InteractionMessageComponent}, want: response.UnimplementedInteraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responder := &recordingResponder{}
			h, _ := newHandler(t, responder,
				returning("ping", response.Message("pong"), nil),
				returning("fail", nil, errors.New("nope")),
				panicking,
			)

			require.NoError(t, h.Handle(context.Background(), tt.interaction))
			require.Len(t, responder.sent, 1)
			assert.Same(t, tt.interaction, responder.sent[0].interaction)
			assert.Equal(t, tt.want, responder.sent[0].resp.Data.Content)
		})
	}
}

func TestHandleTransportFailureIsNotRetried(t *testing.T) {
	restErr := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	responder := &recordingResponder{err: restErr}
	h, logs := newHandler(t, responder, returning("ping", response.Message("pong"), nil))

	err := h.Handle(context.Background(), commandInteraction("ping"))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "42", te.InteractionID)
	assert.Equal(t, http.StatusNotFound, te.Status)
	assert.ErrorIs(t, err, restErr)
	assert.Len(t, responder.sent, 1)
	assert.Equal(t, 1, logs.FilterMessage("Failed to respond to interaction").Len())
}

func TestHandleTransportFailureWithoutStatus(t *testing.T) {
	responder := &recordingResponder{err: context.DeadlineExceeded}
	h, _ := newHandler(t, responder, returning("ping", response.Message("pong"), nil))

	err := h.Handle(context.Background(), commandInteraction("ping"))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.Status)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "respond to interaction 42: context deadline exceeded", te.Error())
}

func TestHandleNilInteraction(t *testing.T) {
	responder := &recordingResponder{}
	h, _ := newHandler(t, responder)

	assert.ErrorIs(t, h.Handle(context.Background(), nil), ErrNilInteraction)
	assert.Empty(t, responder.sent)
}

func TestHandleDropsRedeliveredInteraction(t *testing.T) {
	responder := &recordingResponder{}
	h, logs := newHandler(t, responder, returning("ping", response.Message("pong"), nil))

	first := commandInteraction("ping")
	replay := commandInteraction("ping")
	replay.Token = first.Token

	require.NoError(t, h.Handle(context.Background(), first))
	require.NoError(t, h.Handle(context.Background(), replay))

	require.Len(t, responder.sent, 1)
	assert.Same(t, first, responder.sent[0].interaction)
	assert.Equal(t, 1, logs.FilterMessage("Dropping re-delivered interaction").Len())
}

func TestHandleRedeliveryAfterFailedSendIsNotRetried(t *testing.T) {
	responder := &recordingResponder{err: errors.New("connection reset")}
	h, _ := newHandler(t, responder, returning("ping", response.Message("pong"), nil))

	var te *TransportError
	require.ErrorAs(t, h.Handle(context.Background(), commandInteraction("ping")), &te)
	require.NoError(t, h.Handle(context.Background(), commandInteraction("ping")))
	assert.Len(t, responder.sent, 1)
}

func TestHandleConcurrentRedeliveryAnswersOnce(t *testing.T) {
	responder := &lockedResponder{}
	h, _ := newHandler(t, responder, returning("ping", response.Message("pong"), nil))

	var wg sync.WaitGroup
	for n := 0; n < 16; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Handle(context.Background(), commandInteraction("ping"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, responder.count())
}

func TestHandleReplayWindowEvictsOldest(t *testing.T) {
	responder := &recordingResponder{}
	f := newFixture(t, returning("ping", response.Message("pong"), nil))
	h := NewHandler(f.dispatcher, responder, zap.NewNop(), WithReplayWindow(1, 0))

	a := commandInteraction("ping")
	b := commandInteraction("ping")
	b.ID = "43"

	require.NoError(t, h.Handle(context.Background(), a))
	require.NoError(t, h.Handle(context.Background(), b))
	require.NoError(t, h.Handle(context.Background(), a))

	assert.Len(t, responder.sent, 3)
}

func TestHandleWithoutIDIsNotDeduplicated(t *testing.T) {
	responder := &recordingResponder{}
	h, _ := newHandler(t, responder)

	i := &discordgo.Interaction{Type: discordgo.InteractionPing}
	require.NoError(t, h.Handle(context.Background(), i))
	require.NoError(t, h.Handle(context.Background(), i))
	assert.Len(t, responder.sent, 2)
}

type lockedResponder struct {
	mu sync.Mutex
	n  int
}

func (r *lockedResponder) Respond(context.Context, *discordgo.Interaction, *discordgo.InteractionResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	return nil
}

func (r *lockedResponder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

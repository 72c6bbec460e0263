package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

var ErrNilInteraction = errors.New("nil interaction")

// TransportError means the acknowledgement could not be delivered.
// It is logged and never retried.
type TransportError struct {
	InteractionID string
	Status        int // HTTP status when the API answered, otherwise 0
	Err           error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("respond to interaction %s: status %d: %v", e.InteractionID, e.Status, e.Err)
	}
	return fmt.Sprintf("respond to interaction %s: %v", e.InteractionID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func newTransportError(id string, err error) *TransportError {
	te := &TransportError{InteractionID: id, Err: err}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		te.Status = rest.Response.StatusCode
	}
	return te
}

const (
	// DefaultReplayTTL outlives the 15 minute interaction token.
	DefaultReplayTTL  = 20 * time.Minute
	DefaultReplaySize = 10_000
)

// Handler dispatches an interaction and sends exactly one response for it.
// Interaction ids seen within the replay window are dropped, so a payload
// re-delivered after a gateway resume is never answered twice.
type Handler struct {
	Dispatcher *Dispatcher
	Responder  Responder
	Logger     *zap.Logger

	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	size int
	ttl  time.Duration
}

// WithReplayWindow bounds the set of remembered interaction ids. A ttl of
// zero keeps ids until they are evicted by size.
func WithReplayWindow(size int, ttl time.Duration) HandlerOption {
	return func(o *handlerOptions) {
		o.size = size
		o.ttl = ttl
	}
}

func NewHandler(d *Dispatcher, r Responder, logger *zap.Logger, opts ...HandlerOption) *Handler {
	o := handlerOptions{size: DefaultReplaySize, ttl: DefaultReplayTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return &Handler{
		Dispatcher: d,
		Responder:  r,
		Logger:     logger,
		seen:       expirable.NewLRU[string, struct{}](o.size, nil, o.ttl),
	}
}

func (h *Handler) Handle(ctx context.Context, i *discordgo.Interaction) error {
	if i == nil {
		return ErrNilInteraction
	}
	if !h.firstDelivery(i.ID) {
		h.Logger.Debug("Dropping re-delivered interaction", zap.String("interaction_id", i.ID))
		return nil
	}

	resp := h.Dispatcher.Dispatch(ctx, i)
	if err := h.Responder.Respond(ctx, i, resp); err != nil {
		te := newTransportError(i.ID, err)
		h.Logger.Error("Failed to respond to interaction",
			zap.String("interaction_id", i.ID),
			zap.Int("status", te.Status),
			zap.Error(err),
		)
		return te
	}
	return nil
}

// firstDelivery records id and reports whether it was new. Ids are marked
// before dispatch; a failed send is not retried on re-delivery.
func (h *Handler) firstDelivery(id string) bool {
	if id == "" || h.seen == nil {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seen.Contains(id) {
		return false
	}
	h.seen.Add(id, struct{}{})
	return true
}

package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/assignhub/internal/pkg/pubsub"
)

const resubscribeDelay = 2 * time.Second

// RelayConsumer moves envelopes from a pubsub relay onto the hub
type RelayConsumer struct {
	relay  pubsub.Relay
	hub    *Hub
	logger zerolog.Logger
}

// NewRelayConsumer creates a new RelayConsumer
func NewRelayConsumer(relay pubsub.Relay, hub *Hub, logger zerolog.Logger) *RelayConsumer {
	return &RelayConsumer{
		relay:  relay,
		hub:    hub,
		logger: logger.With().Str("component", "relay_consumer").Logger(),
	}
}

// Start consumes in the background until ctx is done
func (h *RelayConsumer) Start(ctx context.Context) {
	go h.run(ctx)
}

func (h *RelayConsumer) run(ctx context.Context) {
	for {
		err := h.relay.Subscribe(ctx, h.HandleEnvelope)
		if ctx.Err() != nil || err == nil || errors.Is(err, pubsub.ErrClosed) {
			return
		}

		h.logger.Error().Err(err).Msg("Relay subscription lost, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

// HandleEnvelope pushes one relayed notification to its recipient
func (h *RelayConsumer) HandleEnvelope(env pubsub.Envelope) {
	msg := &Message{Type: MessageTypeNotification, Data: env.Payload}
	if err := h.hub.SendToUser(env.UserID, msg); err != nil {
		h.logger.Error().Err(err).Str("userID", env.UserID.String()).Msg("Failed to queue notification frame")
	}
}

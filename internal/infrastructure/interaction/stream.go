package interaction

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vidbridge/conversation-api/internal/domain/conversation"
	"vidbridge/conversation-api/internal/domain/retry"
	"vidbridge/conversation-api/internal/infrastructure/metrics"
)

// Event names published by the interaction platform.
const (
	eventInteractionChanged      = "interaction.changed"
	eventInteractionQueueChanged = "interaction.queue_changed"
	eventInteractionDisconnected = "interaction.disconnected"
)

// changedPayload carries an attribute-change event.
type changedPayload struct {
	InteractionID int64             `json:"interactionId"`
	Attributes    map[string]string `json:"attributes"`
}

// queueChangedPayload carries a queue-assignment event.
type queueChangedPayload struct {
	InteractionID   int64  `json:"interactionId"`
	ScopedQueueName string `json:"scopedQueueName"`
	UserOwner       string `json:"userOwner"`
}

// disconnectedPayload carries an end-of-interaction event.
type disconnectedPayload struct {
	InteractionID int64 `json:"interactionId"`
}

// Stream subscribes to the platform's server-sent event feed and forwards
// events to the handler. It reconnects with backoff forever; the handler is
// told about every connection loss and recovery so it can suspend live
// processing and reconcile afterwards.
type Stream struct {
	eventsURL  string
	authToken  string
	handler    conversation.EventHandler
	policy     retry.Policy
	httpClient *http.Client
	log        zerolog.Logger
}

// NewStream builds a subscriber for the given SSE endpoint.
func NewStream(eventsURL, authToken string, handler conversation.EventHandler, log zerolog.Logger) *Stream {
	return &Stream{
		eventsURL: eventsURL,
		authToken: authToken,
		handler:   handler,
		policy:    retry.ReconnectPolicy(),
		// No overall timeout; the event stream stays open indefinitely.
		httpClient: &http.Client{},
		log:        log.With().Str("component", "event-stream").Logger(),
	}
}

// Run blocks consuming the event feed until the context is cancelled.
func (s *Stream) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.consume(ctx, func() { attempt = 0 })
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return ctx.Err()
		}

		s.log.Warn().Err(err).Msg("event stream dropped")
		s.handler.HandleConnectionLost(ctx)

		attempt++
		metrics.EventStreamReconnects.Inc()
		delay := s.policy.CalculateDelay(attempt)
		s.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnecting to event stream")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// consume opens one subscription and reads it until it fails. onConnect
// fires once the subscription is established, resetting the backoff.
func (s *Stream) consume(ctx context.Context, onConnect func()) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.eventsURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("event stream status %d: %s", resp.StatusCode, string(body))
	}

	s.log.Info().Msg("event stream connected")
	onConnect()
	s.handler.HandleConnectionRegained(ctx)

	reader := bufio.NewReader(resp.Body)
	var eventName string
	var data strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("event stream closed")
			}
			return fmt.Errorf("read event stream: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if eventName != "" && data.Len() > 0 {
				s.dispatch(ctx, eventName, data.String())
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// Keep-alive comment.
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

// dispatch decodes one event and forwards it. Malformed payloads are logged
// and dropped; they never take the stream down.
func (s *Stream) dispatch(ctx context.Context, eventName, payload string) {
	switch eventName {
	case eventInteractionChanged:
		var ev changedPayload
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			s.log.Error().Err(err).Str("event", eventName).Msg("decode event payload")
			return
		}
		s.handler.HandleInteractionChanged(ctx, ev.InteractionID, ev.Attributes)

	case eventInteractionQueueChanged:
		var ev queueChangedPayload
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			s.log.Error().Err(err).Str("event", eventName).Msg("decode event payload")
			return
		}
		s.handler.HandleInteractionQueueChanged(ctx, ev.InteractionID, ev.ScopedQueueName, ev.UserOwner)

	case eventInteractionDisconnected:
		var ev disconnectedPayload
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			s.log.Error().Err(err).Str("event", eventName).Msg("decode event payload")
			return
		}
		s.handler.HandleInteractionDisconnected(ctx, ev.InteractionID)

	default:
		s.log.Debug().Str("event", eventName).Msg("ignoring unknown event")
	}
}

// Package room manages ephemeral video rooms on a LiveKit deployment.
package room

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/twitchtv/twirp"

	"vidbridge/conversation-api/internal/config"
	"vidbridge/conversation-api/internal/domain/conversation"
	"vidbridge/conversation-api/internal/utils/idgen"
)

const roomPinLength = 6

// Client provides access to LiveKit room management APIs as the
// conversation.RoomGateway.
type Client struct {
	client       *lksdk.RoomServiceClient
	joinBaseURL  string
	emptyTimeout time.Duration
}

// NewClient creates a new LiveKit room client.
func NewClient(cfg *config.Config) *Client {
	client := lksdk.NewRoomServiceClient(cfg.LiveKitWsURL, cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
	return &Client{
		client:       client,
		joinBaseURL:  cfg.RoomJoinBaseURL,
		emptyTimeout: cfg.RoomEmptyTimeout,
	}
}

// CreateRoom allocates a room with a generated name and access pin.
func (c *Client) CreateRoom(ctx context.Context) (*conversation.Room, error) {
	name, err := idgen.GenerateSecureID("room", 12)
	if err != nil {
		return nil, fmt.Errorf("generate room name: %w", err)
	}
	pin, err := idgen.GeneratePIN(roomPinLength)
	if err != nil {
		return nil, fmt.Errorf("generate room pin: %w", err)
	}

	created, err := c.client.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:         name,
		EmptyTimeout: uint32(c.emptyTimeout.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("create livekit room: %w", err)
	}

	return &conversation.Room{
		RoomID:    created.Name,
		RoomURL:   c.joinURL(created.Name, pin),
		Pin:       pin,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DeleteRoom removes a room, kicking any remaining participants. Deleting a
// room that is already gone is a no-op.
func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := c.client.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: roomID})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete livekit room: %w", err)
	}
	return nil
}

// GetParticipants returns the members of a room. A missing room reads as
// empty.
func (c *Client) GetParticipants(ctx context.Context, roomID string) ([]conversation.Participant, error) {
	resp, err := c.client.ListParticipants(ctx, &livekit.ListParticipantsRequest{Room: roomID})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list livekit participants: %w", err)
	}

	participants := make([]conversation.Participant, 0, len(resp.Participants))
	for _, p := range resp.Participants {
		participants = append(participants, conversation.Participant{
			ParticipantID: p.Identity,
			DisplayName:   p.Name,
		})
	}
	return participants, nil
}

func (c *Client) GetParticipantCount(ctx context.Context, roomID string) (int, error) {
	participants, err := c.GetParticipants(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return len(participants), nil
}

// MuteParticipant mutes or unmutes every audio track the participant has
// published.
func (c *Client) MuteParticipant(ctx context.Context, roomID, participantID string, muted bool) error {
	info, err := c.client.GetParticipant(ctx, &livekit.RoomParticipantIdentity{
		Room:     roomID,
		Identity: participantID,
	})
	if err != nil {
		return fmt.Errorf("get livekit participant: %w", err)
	}

	for _, track := range info.Tracks {
		if track.Type != livekit.TrackType_AUDIO {
			continue
		}
		_, err := c.client.MutePublishedTrack(ctx, &livekit.MuteRoomTrackRequest{
			Room:     roomID,
			Identity: participantID,
			TrackSid: track.Sid,
			Muted:    muted,
		})
		if err != nil {
			return fmt.Errorf("mute track %s: %w", track.Sid, err)
		}
	}
	return nil
}

// KickParticipant removes a participant from a room.
func (c *Client) KickParticipant(ctx context.Context, roomID, participantID string) error {
	_, err := c.client.RemoveParticipant(ctx, &livekit.RoomParticipantIdentity{
		Room:     roomID,
		Identity: participantID,
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("remove livekit participant: %w", err)
	}
	return nil
}

func (c *Client) joinURL(roomID, pin string) string {
	return c.joinBaseURL + "?room=" + url.QueryEscape(roomID) + "&pin=" + url.QueryEscape(pin)
}

func isNotFound(err error) bool {
	var twerr twirp.Error
	return errors.As(err, &twerr) && twerr.Code() == twirp.NotFound
}

// Ensure interface compliance.
var _ conversation.RoomGateway = (*Client)(nil)

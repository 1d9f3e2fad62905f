// Package interaction talks to the contact-center interaction platform over
// its REST and event-stream APIs.
package interaction

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"vidbridge/conversation-api/internal/domain/conversation"
	"vidbridge/conversation-api/internal/utils/platformerrors"
)

// interactionState values reported by the platform.
const (
	stateDisconnected = "disconnected"
)

// Client implements the conversation.InteractionGateway interface.
type Client struct {
	httpClient *resty.Client
}

// NewClient creates a Resty-backed client against the interaction platform.
func NewClient(baseURL, authToken string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)
	if authToken != "" {
		client.SetAuthToken(authToken)
	}
	return &Client{httpClient: client}
}

// interactionDetail is the platform's view of one interaction.
type interactionDetail struct {
	InteractionID       int64             `json:"interactionId"`
	State               string            `json:"state"`
	MediaType           string            `json:"mediaType"`
	Held                bool              `json:"held"`
	ScopedQueueName     string            `json:"scopedQueueName"`
	UserQueueName       string            `json:"userQueueName"`
	CallbackPhoneNumber string            `json:"callbackPhoneNumber,omitempty"`
	CallbackMessage     string            `json:"callbackMessage,omitempty"`
	Attributes          map[string]string `json:"attributes,omitempty"`
}

type createInteractionResponse struct {
	InteractionID int64 `json:"interactionId"`
}

type chatMessageRequest struct {
	Type string `json:"type"`
	Body string `json:"body"`
}

// getDetail fetches the interaction, mapping 404 to exists=false.
func (c *Client) getDetail(ctx context.Context, interactionID int64) (*interactionDetail, bool, error) {
	var detail interactionDetail
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&detail).
		Get(fmt.Sprintf("/api/v1/interactions/%d", interactionID))
	if err != nil {
		return nil, false, c.remoteErr(ctx, "fetch interaction", err, interactionID)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.IsError() {
		return nil, false, c.statusErr(ctx, "fetch interaction", resp, interactionID)
	}
	return &detail, true, nil
}

func (c *Client) InteractionExists(ctx context.Context, interactionID int64) (bool, error) {
	_, exists, err := c.getDetail(ctx, interactionID)
	return exists, err
}

func (c *Client) InteractionIsDisconnected(ctx context.Context, interactionID int64) (bool, error) {
	detail, exists, err := c.getDetail(ctx, interactionID)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	return strings.EqualFold(detail.State, stateDisconnected), nil
}

func (c *Client) InteractionIsHeld(ctx context.Context, interactionID int64) (bool, error) {
	detail, exists, err := c.getDetail(ctx, interactionID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	return detail.Held, nil
}

func (c *Client) GetUserQueueName(ctx context.Context, interactionID int64) (string, error) {
	detail, exists, err := c.getDetail(ctx, interactionID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", nil
	}
	return detail.UserQueueName, nil
}

func (c *Client) GetInteractionType(ctx context.Context, interactionID int64) (conversation.MediaType, error) {
	detail, exists, err := c.getDetail(ctx, interactionID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", platformerrors.NewWithContext(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeNotFound, "interaction not found", nil,
			map[string]any{"interaction_id": interactionID})
	}
	return conversation.MediaType(strings.ToLower(detail.MediaType)), nil
}

// GetParameters derives initialization parameters from the live interaction,
// so a conversation attached to it can be recreated later.
func (c *Client) GetParameters(ctx context.Context, interactionID int64) (conversation.InitializationParameters, error) {
	detail, exists, err := c.getDetail(ctx, interactionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, platformerrors.NewWithContext(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeNotFound, "interaction not found", nil,
			map[string]any{"interaction_id": interactionID})
	}

	base := conversation.BaseParameters{
		ScopedQueueName:      detail.ScopedQueueName,
		AdditionalAttributes: detail.Attributes,
	}
	switch conversation.MediaType(strings.ToLower(detail.MediaType)) {
	case conversation.MediaTypeChat:
		return &conversation.ChatParameters{BaseParameters: base}, nil
	case conversation.MediaTypeCallback:
		return &conversation.CallbackParameters{
			BaseParameters:      base,
			CallbackPhoneNumber: detail.CallbackPhoneNumber,
			CallbackMessage:     detail.CallbackMessage,
		}, nil
	default:
		return &conversation.GenericInteractionParameters{
			BaseParameters: base,
			InitialState:   conversation.InitialStateOffering,
		}, nil
	}
}

func (c *Client) GetAttributes(ctx context.Context, interactionID int64, names []string) (map[string]string, error) {
	attrs := make(map[string]string)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("names", strings.Join(names, ",")).
		SetResult(&attrs).
		Get(fmt.Sprintf("/api/v1/interactions/%d/attributes", interactionID))
	if err != nil {
		return nil, c.remoteErr(ctx, "fetch interaction attributes", err, interactionID)
	}
	if resp.IsError() {
		return nil, c.statusErr(ctx, "fetch interaction attributes", resp, interactionID)
	}
	return attrs, nil
}

func (c *Client) SetAttributes(ctx context.Context, interactionID int64, attrs map[string]string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(attrs).
		Post(fmt.Sprintf("/api/v1/interactions/%d/attributes", interactionID))
	if err != nil {
		return c.remoteErr(ctx, "set interaction attributes", err, interactionID)
	}
	if resp.IsError() {
		return c.statusErr(ctx, "set interaction attributes", resp, interactionID)
	}
	return nil
}

// CreateInteraction submits initialization parameters with their media type
// discriminator and returns the new interaction's id.
func (c *Client) CreateInteraction(ctx context.Context, params conversation.InitializationParameters) (int64, error) {
	body, err := conversation.MarshalInitializationParameters(params)
	if err != nil {
		return 0, platformerrors.New(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeInternal, "encode initialization parameters", err)
	}

	var created createInteractionResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&created).
		Post("/api/v1/interactions")
	if err != nil {
		return 0, c.remoteErr(ctx, "create interaction", err, 0)
	}
	if resp.IsError() {
		return 0, c.statusErr(ctx, "create interaction", resp, 0)
	}
	return created.InteractionID, nil
}

func (c *Client) SendChatText(ctx context.Context, interactionID int64, text string) error {
	return c.sendChatMessage(ctx, interactionID, chatMessageRequest{Type: "text", Body: text})
}

func (c *Client) SendChatURL(ctx context.Context, interactionID int64, rawURL string) error {
	return c.sendChatMessage(ctx, interactionID, chatMessageRequest{Type: "url", Body: rawURL})
}

func (c *Client) sendChatMessage(ctx context.Context, interactionID int64, msg chatMessageRequest) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		Post(fmt.Sprintf("/api/v1/interactions/%d/messages", interactionID))
	if err != nil {
		return c.remoteErr(ctx, "post chat message", err, interactionID)
	}
	if resp.IsError() {
		return c.statusErr(ctx, "post chat message", resp, interactionID)
	}
	return nil
}

func (c *Client) remoteErr(ctx context.Context, op string, err error, interactionID int64) error {
	fields := map[string]any{}
	if interactionID != 0 {
		fields["interaction_id"] = interactionID
	}
	return platformerrors.NewWithContext(ctx, platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeRemoteFailure, op, err, fields)
}

func (c *Client) statusErr(ctx context.Context, op string, resp *resty.Response, interactionID int64) error {
	fields := map[string]any{"status": resp.StatusCode()}
	if interactionID != 0 {
		fields["interaction_id"] = interactionID
	}
	return platformerrors.NewWithContext(ctx, platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeRemoteFailure,
		fmt.Sprintf("%s: %s", op, resp.String()), nil, fields)
}

// Ensure interface compliance.
var _ conversation.InteractionGateway = (*Client)(nil)

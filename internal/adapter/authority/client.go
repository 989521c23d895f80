package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/internal/domain/types"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
)

const updateLocationPath = "/api/method/hayago_mapping.api.update_driver_location_api"

// Client talks to the backend that owns trip and driver state. Every call
// has a bounded timeout; a slow authority must never stall ingestion.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
}

func New(baseURL, apiKey, apiSecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// updatePayload is the minimal attribute set the authority accepts.
// Null telemetry fields are omitted entirely.
type updatePayload struct {
	Driver    string   `json:"driver"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Timestamp string   `json:"timestamp"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	IsOffline bool     `json:"is_offline,omitempty"`
	Trip      *string  `json:"trip,omitempty"`
}

type updateResponse struct {
	Message struct {
		Status  string `json:"status"`
		Name    string `json:"name,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"message"`
}

// UpdateLocation delivers one location event. A transport-level 200 can
// still carry a business failure, so the embedded status is the real
// success signal. The call is safe to repeat for the same event.
func (c *Client) UpdateLocation(ctx context.Context, event models.LocationEvent) error {
	const op = "AuthorityClient.UpdateLocation"

	payload := updatePayload{
		Driver:    event.DriverID,
		Latitude:  event.Latitude,
		Longitude: event.Longitude,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Speed:     event.Speed,
		Heading:   event.Heading,
		Accuracy:  event.Accuracy,
		IsOffline: event.IsOffline,
		Trip:      event.TripID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal payload: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+updateLocationPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" && c.apiSecret != "" {
		req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.apiKey, c.apiSecret))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w: %v", op, types.ErrAuthorityUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w: unexpected status %d", op, types.ErrAuthorityUnavailable, resp.StatusCode)
	}

	var result updateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}

	if result.Message.Status != "success" {
		return fmt.Errorf("%s: %w: %s", op, types.ErrAuthorityRejected, result.Message.Message)
	}

	return nil
}

package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hayago/tracking-service/internal/domain/types"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
)

var (
	ErrAddressNotFound = fmt.Errorf("address not found")
)

const userAgent = "hayago-tracking-service/1.0"

// Client is a read-only consumer of a Nominatim-compatible geocoding service.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type reversePayload struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// GetAddress reverse-geocodes coordinates into a display address.
func (c *Client) GetAddress(ctx context.Context, longitude, latitude float64) (string, error) {
	const op = "NominatimClient.GetAddress"

	url := fmt.Sprintf("%s/reverse?lat=%f&lon=%f&format=json", c.baseURL, latitude, longitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: failed to make request to Nominatim: %w", op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var payload reversePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}

	if payload.Error != "" || payload.DisplayName == "" {
		return "", ErrAddressNotFound
	}

	return payload.DisplayName, nil
}

package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/craftora/storefront-backend/pkg/config"
	pkgerrors "github.com/craftora/storefront-backend/pkg/errors"
	"github.com/craftora/storefront-backend/pkg/types"
)

// DispatchRequest is one label purchase sent to the carrier API.
type DispatchRequest struct {
	Reference string         `json:"reference"`
	Recipient *types.Address `json:"recipient"`
	Service   string         `json:"service,omitempty"`
}

// DispatchResponse carries the carrier's label assignment.
type DispatchResponse struct {
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url"`
	CarrierCode    string `json:"carrier_code"`
}

// Carrier is the outbound shipment dispatch surface.
type Carrier interface {
	Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResponse, error)
}

// HTTPCarrier talks to the configured carrier aggregator over HTTP.
type HTTPCarrier struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewHTTPCarrier validates the config and builds the carrier client.
func NewHTTPCarrier(cfg config.ShippingConfig) (*HTTPCarrier, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.CarrierBaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("carrier base url is required")
	}
	return &HTTPCarrier{
		httpClient: &http.Client{Timeout: cfg.DispatchTimeout},
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.CarrierAPIKey),
	}, nil
}

// Dispatch requests a label. 4xx responses are terminal; 5xx and
// transport errors come back retryable.
func (c *HTTPCarrier) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResponse, error) {
	if req.Recipient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient address is required")
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/shipments", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "carrier dispatch request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "carrier response read failed")
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var decoded DispatchResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "carrier response malformed")
		}
		if decoded.TrackingNumber == "" {
			return nil, pkgerrors.New(pkgerrors.CodeGateway, "carrier response missing tracking number")
		}
		return &decoded, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("carrier rejected dispatch with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))

	default:
		return nil, pkgerrors.New(pkgerrors.CodeGateway,
			fmt.Sprintf("carrier dispatch returned status %d", resp.StatusCode))
	}
}

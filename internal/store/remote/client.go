// Package remote is the client for the network-backed cart service. It is
// consulted only for authenticated owners; every call is bounded by the
// client timeout so a dead service degrades to the local store instead of
// blocking a mutation.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
	"github.com/PabloPachecoB/pizza4u/internal/engine"
	"github.com/PabloPachecoB/pizza4u/internal/store"
)

const ownerHeader = "X-Owner-ID"

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type cartResponse struct {
	Items    []domain.CartItem `json:"items"`
	Discount *domain.Discount  `json:"discount"`
	Version  uint64            `json:"version"`
}

func (c *Client) Load(ctx context.Context, ownerID string) (*domain.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cart", nil)
	if err != nil {
		return nil, fmt.Errorf("build cart request: %w", err)
	}
	req.Header.Set(ownerHeader, ownerID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cart service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, store.ErrSnapshotNotFound
	default:
		return nil, fmt.Errorf("cart service returned %d", resp.StatusCode)
	}

	var body cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode cart response: %w", err)
	}

	return &domain.Snapshot{
		OwnerID:  ownerID,
		Items:    body.Items,
		Discount: body.Discount,
		Version:  body.Version,
	}, nil
}

func (c *Client) Save(ctx context.Context, snap *domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/cart", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set(ownerHeader, snap.OwnerID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cart service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		return store.ErrStaleSnapshot
	default:
		return fmt.Errorf("cart service returned %d", resp.StatusCode)
	}
}

type applyDiscountRequest struct {
	Code string `json:"code"`
}

type applyDiscountResponse struct {
	Success  bool             `json:"success"`
	Discount *domain.Discount `json:"discount,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// Validate implements engine.DiscountValidator against the cart service.
// A rejected code comes back as *engine.DiscountError so the engine can
// surface the message without touching cart state.
func (c *Client) Validate(ctx context.Context, ownerID, code string) (*domain.Discount, error) {
	payload, err := json.Marshal(applyDiscountRequest{Code: code})
	if err != nil {
		return nil, fmt.Errorf("marshal discount request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cart/discount/apply", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build discount request: %w", err)
	}
	req.Header.Set(ownerHeader, ownerID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cart service unreachable: %w", err)
	}
	defer resp.Body.Close()

	var body applyDiscountResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode discount response: %w", err)
	}

	if !body.Success || body.Discount == nil {
		msg := body.Message
		if msg == "" {
			msg = "discount code rejected"
		}
		return nil, &engine.DiscountError{Code: code, Message: msg}
	}
	return body.Discount, nil
}

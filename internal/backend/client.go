// Package backend is a bearer-token client for the internal
// order-management API used by the operator webhooks.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/beckn-intent/internal/network"
	"github.com/rs/zerolog"
)

type Client struct {
	baseURL string
	token   string
	http    *network.Client
	logger  zerolog.Logger
}

func NewClient(baseURL, token string, httpClient *network.Client, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		logger:  logger.With().Str("component", "backend").Logger(),
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.token}
}

// GetOrder fetches one order; an upstream error means the order id is not
// valid.
func (c *Client) GetOrder(ctx context.Context, orderID string) (map[string]any, error) {
	res := c.http.Call(ctx, fmt.Sprintf("%s/orders/%s", c.baseURL, orderID), "GET", nil, c.headers())
	if !res.Status {
		return nil, fmt.Errorf("failed to fetch order %s: %s", orderID, res.Error)
	}
	return res.Data, nil
}

// OrderAddresses lists address records attached to an order. The backend
// wraps list payloads as {"data": [{"id": ..., "attributes": {...}}]}.
func (c *Client) OrderAddresses(ctx context.Context, orderID string) ([]Record, error) {
	res := c.http.Call(ctx, fmt.Sprintf("%s/order-addresses?order_id=%s", c.baseURL, orderID), "GET", nil, c.headers())
	if !res.Status {
		return nil, fmt.Errorf("failed to fetch order addresses: %s", res.Error)
	}
	return records(res.Data), nil
}

// OrderFulfillments lists fulfillment records attached to an order.
func (c *Client) OrderFulfillments(ctx context.Context, orderID string) ([]Record, error) {
	res := c.http.Call(ctx, fmt.Sprintf("%s/order-fulfillments?order_id=%s", c.baseURL, orderID), "GET", nil, c.headers())
	if !res.Status {
		return nil, fmt.Errorf("failed to fetch order fulfillments: %s", res.Error)
	}
	return records(res.Data), nil
}

// CancelFulfillment marks one fulfillment cancelled.
func (c *Client) CancelFulfillment(ctx context.Context, fulfillmentID int, reason string) error {
	body := map[string]any{
		"data": map[string]any{
			"state_code":  "CANCELLED",
			"state_value": reason,
		},
	}
	res := c.http.Call(ctx, fmt.Sprintf("%s/order-fulfillments/%d", c.baseURL, fulfillmentID), "PUT", body, c.headers())
	if !res.Status {
		return fmt.Errorf("failed to cancel fulfillment %d: %s", fulfillmentID, res.Error)
	}
	return nil
}

// UpdateItem updates a catalog item's name and tag relations.
func (c *Client) UpdateItem(ctx context.Context, itemID int, name string, tagRelations []int) error {
	body := map[string]any{
		"data": map[string]any{
			"name":                   name,
			"cat_attr_tag_relations": tagRelations,
		},
	}
	res := c.http.Call(ctx, fmt.Sprintf("%s/items/%d", c.baseURL, itemID), "PUT", body, c.headers())
	if !res.Status {
		return fmt.Errorf("failed to update item %d: %s", itemID, res.Error)
	}
	return nil
}

// Record is one list entry in a backend response.
type Record struct {
	ID         int
	Attributes map[string]any
}

// Phone returns the phone attribute when present.
func (r Record) Phone() string {
	if s, ok := r.Attributes["phone"].(string); ok {
		return s
	}
	return ""
}

// records unwraps the {"data": [...]} list shape.
func records(data map[string]any) []Record {
	list, ok := data["data"].([]any)
	if !ok {
		return nil
	}

	out := make([]Record, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		rec := Record{Attributes: map[string]any{}}
		if id, ok := m["id"].(float64); ok {
			rec.ID = int(id)
		}
		if attrs, ok := m["attributes"].(map[string]any); ok {
			rec.Attributes = attrs
		}
		out = append(out, rec)
	}
	return out
}

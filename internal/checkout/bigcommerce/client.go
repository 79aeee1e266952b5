package bigcommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ms-checkout/internal/config"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"
)

// Client wraps the commerce platform's checkout and order endpoints. All
// methods are plain request/response; failure classification is left to
// the caller.
type Client struct {
	client *http.Client
	cfg    config.BigCommerceConfig
	logger *logger.Logger
}

func NewClient(client *http.Client, cfg config.BigCommerceConfig, log *logger.Logger) *Client {
	return &Client{client: client, cfg: cfg, logger: log}
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// send builds, authenticates and executes one request and checks the
// status. The caller owns the response body.
func (c *Client) send(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Client", c.cfg.ClientID)
	req.Header.Set("X-Auth-Token", c.cfg.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("commerce platform error: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		c.logger.Error("COMMERCE", fmt.Sprintf("%s %s returned status %d", method, url, resp.StatusCode))
		return nil, fmt.Errorf("commerce platform returned status %d", resp.StatusCode)
	}

	return resp, nil
}

// do sends the request and decodes the v3 data envelope into out.
func (c *Client) do(ctx context.Context, method, url string, body interface{}, out interface{}) error {
	resp, err := c.send(ctx, method, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// GetCheckout fetches the cart with its line items and computed totals.
func (c *Client) GetCheckout(ctx context.Context, cartID string) (*models.Checkout, error) {
	var checkout models.Checkout
	url := fmt.Sprintf("%s/checkouts/%s", c.cfg.BaseURL, cartID)
	if err := c.do(ctx, http.MethodGet, url, nil, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

// CreateOrderFromCheckout converts the checkout into a platform order and
// returns its id.
func (c *Client) CreateOrderFromCheckout(ctx context.Context, cartID string) (int64, error) {
	var created struct {
		ID int64 `json:"id"`
	}
	url := fmt.Sprintf("%s/checkouts/%s/orders", c.cfg.BaseURL, cartID)
	if err := c.do(ctx, http.MethodPost, url, nil, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// MarkOrderPending flips the platform order to external payment, awaiting
// fulfillment. The v2 order endpoint does not use the data envelope, so
// the response body is discarded.
func (c *Client) MarkOrderPending(ctx context.Context, bcOrderID int64) error {
	body := map[string]interface{}{
		"payment_method": "Breaks App",
		"status_id":      c.cfg.PendingStatusID,
	}
	url := fmt.Sprintf("%s/orders/%d", c.cfg.BaseURLV2, bcOrderID)
	resp, err := c.send(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ---------------- CART WRAPPERS ----------------
//
// Thin pass-throughs for client cart management. No local state and no
// compensation design; any failure surfaces as-is.

func (c *Client) AddCartItems(ctx context.Context, cartID string, items []models.LineItem) (*models.Cart, error) {
	var cart models.Cart
	url := fmt.Sprintf("%s/carts/%s/items", c.cfg.BaseURL, cartID)
	body := map[string]interface{}{"line_items": items}
	if err := c.do(ctx, http.MethodPost, url, body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) RemoveCartItem(ctx context.Context, cartID, itemID string) error {
	url := fmt.Sprintf("%s/carts/%s/items/%s", c.cfg.BaseURL, cartID, itemID)
	return c.do(ctx, http.MethodDelete, url, nil, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, cartID, itemID string, item models.LineItem) (*models.Cart, error) {
	var cart models.Cart
	url := fmt.Sprintf("%s/carts/%s/items/%s", c.cfg.BaseURL, cartID, itemID)
	body := map[string]interface{}{"line_item": item}
	if err := c.do(ctx, http.MethodPut, url, body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Package clob submits orders to the Polymarket CLOB.
package clob

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rewired-gh/polyflip/internal/models"
)

// priceTick is the CLOB price grid for binary outcome tokens.
var priceTick = decimal.NewFromFloat(0.01)

// Credentials are the L2 API credentials for authenticated CLOB requests.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
}

// Client submits orders to the CLOB REST API.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a CLOB client.
func NewClient(baseURL string, creds Credentials, timeout time.Duration, maxRetries int) *Client {
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
	}
}

type orderRequest struct {
	ClientID  string `json:"client_id"`
	TokenID   string `json:"token_id"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	OrderType string `json:"order_type"`
}

// OrderResponse is the exchange's acknowledgement of a posted order.
type OrderResponse struct {
	OrderID string `json:"orderID"`
	Success bool   `json:"success"`
	ErrMsg  string `json:"errorMsg"`
}

// SubmitBuy posts a GTC buy order for tokenID. The price is snapped to the
// 0.01 tick and the size to two decimal places before serialization; float
// arithmetic upstream must not leak into the wire format.
func (c *Client) SubmitBuy(ctx context.Context, tokenID string, _ models.Side, price, size float64) (string, error) {
	order := orderRequest{
		ClientID:  uuid.New().String(),
		TokenID:   tokenID,
		Side:      "BUY",
		Price:     decimal.NewFromFloat(price).DivRound(priceTick, 0).Mul(priceTick).String(),
		Size:      decimal.NewFromFloat(size).Round(2).String(),
		OrderType: "GTC",
	}

	resp, err := Retry("submit buy", c.maxRetries, func() (*OrderResponse, error) {
		return c.postOrder(ctx, &order)
	})
	if err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

func (c *Client) postOrder(ctx context.Context, order *orderRequest) (*OrderResponse, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	const path = "/order"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req, http.MethodPost, path, body)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: string(respBody)}
	}

	var orderResp OrderResponse
	if err := json.Unmarshal(respBody, &orderResp); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	if !orderResp.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: orderResp.ErrMsg}
	}
	return &orderResp, nil
}

// sign attaches L2 HMAC authentication headers.
func (c *Client) sign(req *http.Request, method, path string, body []byte) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, []byte(c.creds.Secret))
	mac.Write([]byte(timestamp + method + path))
	mac.Write(body)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("POLY-API-KEY", c.creds.APIKey)
	req.Header.Set("POLY-PASSPHRASE", c.creds.Passphrase)
	req.Header.Set("POLY-TIMESTAMP", timestamp)
	req.Header.Set("POLY-SIGNATURE", signature)
}

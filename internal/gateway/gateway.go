// Package gateway wraps the payment provider behind two narrow
// capabilities: order creation and payment-signature verification.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (string, error)
}

type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(keyID, keySecret, baseURL string) (*Client, error) {
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("missing gateway credentials")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("missing gateway base url")
	}
	return &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}, nil
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID string `json:"id"`
}

func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("invalid order amount")
	}
	body, err := json.Marshal(orderRequest{Amount: amount, Currency: currency, Receipt: receipt, Notes: notes})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway order request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway order failed: status %d", resp.StatusCode)
	}

	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gateway order: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("gateway returned empty order id")
	}
	return out.ID, nil
}

// Verify checks the provider's HMAC-SHA256 signature over
// "<orderID>|<paymentID>" keyed with the secret.
func (c *Client) Verify(orderID, paymentID, signature string) bool {
	return verifySignature(c.keySecret, orderID, paymentID, signature)
}

func verifySignature(secret, orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// StubGateway stands in when no gateway credentials are configured: orders
// get synthetic IDs and every well-formed signature verifies. Local use only.
type StubGateway struct{}

func NewStubGateway() *StubGateway {
	return &StubGateway{}
}

func (g *StubGateway) CreateOrder(_ context.Context, amount int64, _, _ string, _ map[string]string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("invalid order amount")
	}
	return "order_stub_" + uuid.NewString(), nil
}

func (g *StubGateway) Verify(orderID, paymentID, signature string) bool {
	return orderID != "" && paymentID != "" && signature != ""
}

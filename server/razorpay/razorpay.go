package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Daskott/kavach/shared"
	"github.com/go-resty/resty/v2"
)

const (
	DEFAULT_BASE_URL = "https://api.razorpay.com/v1"
	REQUEST_TIMEOUT  = 15 * time.Second
	MAX_RECEIPT_LEN  = 40
)

type Order struct {
	ID       string            `json:"id"`
	Entity   string            `json:"entity"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type Client struct {
	httpClient *resty.Client
	keyID      string
	keySecret  string
}

func NewClient(config shared.RazorpayConfig) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DEFAULT_BASE_URL
	}

	// No retries: creating an order is not idempotent, and a retried POST
	// whose first attempt reached the gateway leaves an orphan order behind.
	// The checkout can always ask for a new order instead.
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(config.KeyID, config.KeySecret).
		SetTimeout(REQUEST_TIMEOUT).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		keyID:      config.KeyID,
		keySecret:  config.KeySecret,
	}
}

// Configured reports whether both halves of the key pair are present.
func (c *Client) Configured() bool {
	return c.keyID != "" && c.keySecret != ""
}

func (c *Client) KeyID() string {
	return c.keyID
}

func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (*Order, error) {
	if len(receipt) > MAX_RECEIPT_LEN {
		receipt = receipt[:MAX_RECEIPT_LEN]
	}

	order := Order{}
	failure := errorResponse{}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(orderRequest{Amount: amountPaise, Currency: currency, Receipt: receipt, Notes: notes}).
		SetResult(&order).
		SetError(&failure).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order: %v", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("razorpay: create order: %v %v (status: %v)",
			failure.Error.Code, failure.Error.Description, resp.StatusCode())
	}

	return &order, nil
}

// VerifySignature checks the checkout signature, an HMAC-SHA256 of
// "orderId|paymentId" keyed with the account secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID, paymentID, signature, c.keySecret)
}

func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if secret == "" {
		return false
	}

	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(sign(orderID, paymentID, secret), expected)
}

func Signature(orderID, paymentID, secret string) string {
	return hex.EncodeToString(sign(orderID, paymentID, secret))
}

func sign(orderID, paymentID, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return mac.Sum(nil)
}

package external

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentClient talks to the external payment gateway. Authentication
// (key/secret/signature) is handled here and is opaque to the engine.
type PaymentClient struct {
	baseURL    string
	apiKey     string
	secret     string
	httpClient *http.Client
}

type PaymentConfig struct {
	BaseURL string
	APIKey  string
	Secret  string
	Timeout time.Duration
}

type chargeRequest struct {
	APIKey    string `json:"api_key"`
	Signature string `json:"signature"`
	Amount    string `json:"amount"`
	Token     string `json:"token"`
	OrderID   string `json:"order_id"`
	Currency  string `json:"currency"`
}

// ChargeResult is the gateway's verdict on a charge attempt.
type ChargeResult struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// Success reports whether the gateway explicitly approved the charge.
func (r *ChargeResult) Success() bool {
	return r != nil && r.Status == "success"
}

type refundRequest struct {
	APIKey        string `json:"api_key"`
	Signature     string `json:"signature"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
}

type refundResponse struct {
	Status string `json:"status"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PaymentClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		secret:  cfg.Secret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// sign builds a SHA-256 signature over the sorted parameter values plus the
// shared secret.
func (pc *PaymentClient) sign(params map[string]string) string {
	params["ApiKey"] = pc.apiKey
	params["Secret"] = pc.secret

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var signString string
	for _, key := range keys {
		signString += params[key]
	}

	hash := sha256.Sum256([]byte(signString))
	return hex.EncodeToString(hash[:])
}

// Charge asks the gateway to charge amount against the given payment token.
// A transport error or timeout is returned as an error; an explicit decline
// comes back as a result with a non-success status.
func (pc *PaymentClient) Charge(ctx context.Context, amount decimal.Decimal, token, orderID string) (*ChargeResult, error) {
	signature := pc.sign(map[string]string{
		"Amount":  amount.String(),
		"OrderId": orderID,
	})

	req := chargeRequest{
		APIKey:    pc.apiKey,
		Signature: signature,
		Amount:    amount.String(),
		Token:     token,
		OrderID:   orderID,
		Currency:  "GBP",
	}

	var result ChargeResult
	if err := pc.post(ctx, "/charge", req, &result); err != nil {
		return nil, fmt.Errorf("charge: %w", err)
	}
	return &result, nil
}

// Refund asks the gateway to return amount against a prior transaction.
func (pc *PaymentClient) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) error {
	signature := pc.sign(map[string]string{
		"Amount":        amount.String(),
		"TransactionId": transactionID,
	})

	req := refundRequest{
		APIKey:        pc.apiKey,
		Signature:     signature,
		TransactionID: transactionID,
		Amount:        amount.String(),
	}

	var result refundResponse
	if err := pc.post(ctx, "/refund", req, &result); err != nil {
		return fmt.Errorf("refund: %w", err)
	}
	if result.Status != "success" {
		return fmt.Errorf("refund declined: status=%s", result.Status)
	}
	return nil
}

func (pc *PaymentClient) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

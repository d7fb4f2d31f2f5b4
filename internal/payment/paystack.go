package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brikvest/apiserver/config"
)

// ErrDeclined is returned when the provider reports a transaction that
// did not succeed.
var ErrDeclined = errors.New("payment declined")

const defaultTimeout = 15 * time.Second

// Client is a thin Paystack REST client covering the operations the
// platform needs: transaction initialize/verify, account resolution,
// and transfer recipient creation.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(cfg config.PaystackConfig) (*Client, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("paystack secret key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &Client{
		baseURL:   baseURL,
		secretKey: cfg.SecretKey,
		http:      &http.Client{Timeout: defaultTimeout},
	}, nil
}

// InitializeTransaction starts a charge and returns the reference and
// the hosted checkout URL.
type InitializeResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

func (c *Client) InitializeTransaction(ctx context.Context, email string, amount int64, reference string) (InitializeResult, error) {
	body := map[string]any{
		"email":     email,
		"amount":    amount,
		"reference": reference,
	}
	var result InitializeResult
	if err := c.post(ctx, "/transaction/initialize", body, &result); err != nil {
		return InitializeResult{}, err
	}
	return result, nil
}

// VerifyTransaction checks a transaction by reference. Returns
// ErrDeclined when the provider reports any status other than success.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) error {
	var result struct {
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	}
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.get(ctx, path, &result); err != nil {
		return err
	}
	if result.Status != "success" {
		return fmt.Errorf("%w: status %s", ErrDeclined, result.Status)
	}
	return nil
}

// ResolvedAccount is the holder name returned for a bank account lookup.
type ResolvedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (ResolvedAccount, error) {
	q := url.Values{}
	q.Set("account_number", accountNumber)
	q.Set("bank_code", bankCode)

	var result ResolvedAccount
	if err := c.get(ctx, "/bank/resolve?"+q.Encode(), &result); err != nil {
		return ResolvedAccount{}, err
	}
	return result, nil
}

// CreateTransferRecipient registers a payout destination and returns
// the provider recipient code.
func (c *Client) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	body := map[string]any{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}
	var result struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.post(ctx, "/transferrecipient", body, &result); err != nil {
		return "", err
	}
	return result.RecipientCode, nil
}

// envelope is Paystack's standard response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paystack request: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("paystack response: %w", err)
	}
	if resp.StatusCode >= 400 || !env.Status {
		return fmt.Errorf("paystack: %s (%d)", env.Message, resp.StatusCode)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("paystack data: %w", err)
		}
	}
	return nil
}

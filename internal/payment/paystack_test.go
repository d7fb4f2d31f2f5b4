package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brikvest/apiserver/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.PaystackConfig{
		SecretKey: "sk_test_x",
		BaseURL:   srv.URL,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresSecretKey(t *testing.T) {
	if _, err := NewClient(config.PaystackConfig{}); err == nil {
		t.Fatal("expected error for missing secret key")
	}
}

func TestInitializeTransaction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_x" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["reference"] != "ref-1" {
			t.Fatalf("unexpected reference %v", body["reference"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"reference":         "ref-1",
				"authorization_url": "https://checkout.example/ref-1",
				"access_code":       "ac_123",
			},
		})
	})

	result, err := client.InitializeTransaction(context.Background(), "a@b.com", 500000, "ref-1")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if result.AuthorizationURL != "https://checkout.example/ref-1" {
		t.Fatalf("unexpected authorization url %q", result.AuthorizationURL)
	}
}

func TestVerifyTransactionDeclined(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"status": "failed", "amount": 500000},
		})
	})

	err := client.VerifyTransaction(context.Background(), "ref-2")
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
}

func TestResolveAccountProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Could not resolve account name",
		})
	})

	if _, err := client.ResolveAccount(context.Background(), "0001112223", "058"); err == nil {
		t.Fatal("expected error for unresolved account")
	}
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSendsBearerAuth(t *testing.T) {
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(QuotesResponse{StateToken: "tok"})
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, APIKey: "secret-key"})
	resp, err := client.RequestQuotes(context.Background(), &QuotesRequest{
		Request: PriceRequest{Kind: RequestKindFixedInput},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %q, want Bearer secret-key", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if resp.StateToken != "tok" {
		t.Errorf("state token = %q, want tok", resp.StateToken)
	}
}

func TestClientHistoryQueryParams(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(HistoryResponse{})
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, APIKey: "k"})
	_, err := client.GetPaymentHistory(context.Background(), "0xowner", 15, "page2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"category":       "ALL",
		"owner_address":  "0xowner",
		"limit":          "15",
		"pagination_key": "page2",
	}
	for key, value := range want {
		if got := gotQuery[key]; len(got) != 1 || got[0] != value {
			t.Errorf("query %s = %v, want %q", key, got, value)
		}
	}
}

func TestClientNon2xxBecomesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"state token consumed"}`))
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, APIKey: "k"})
	_, err := client.ConfirmPayment(context.Background(), &ConfirmRequest{PaymentID: "pay_1"})
	if err == nil {
		t.Fatal("expected error for 422 response")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", apiErr.Status)
	}
	if apiErr.Endpoint != "/payments/confirm" {
		t.Errorf("endpoint = %q, want /payments/confirm", apiErr.Endpoint)
	}
	if string(apiErr.Body) != `{"error":"state token consumed"}` {
		t.Errorf("body = %q, raw payload should be preserved", apiErr.Body)
	}
}

func TestClientReferenceTables(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/assets":
			json.NewEncoder(w).Encode(map[string]Asset{
				"base:usdc": {Symbol: "USDC", Name: "USD Coin"},
			})
		case "/chains":
			json.NewEncoder(w).Encode(map[string]Chain{
				"base": {Explorer: "https://basescan.org/"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, APIKey: "k"})

	assets, err := client.GetAssets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assets["base:usdc"].Symbol != "USDC" {
		t.Errorf("asset symbol = %q, want USDC", assets["base:usdc"].Symbol)
	}

	chains, err := client.GetChains(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chains["base"].Explorer != "https://basescan.org/" {
		t.Errorf("chain explorer = %q", chains["base"].Explorer)
	}
}

func TestClientContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, APIKey: "k"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.GetPayment(ctx, "pay_1"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(nil)
	if client.baseURL != DefaultBaseURL {
		t.Errorf("base URL = %q, want %q", client.baseURL, DefaultBaseURL)
	}
	if client.httpClient == nil {
		t.Error("default http client should be set")
	}
	if client.httpClient.Timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", client.httpClient.Timeout, defaultTimeout)
	}
}

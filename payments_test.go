package payments

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/hallidaylabs/payments-go/api"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"api key only", Config{APIKey: "k"}, false},
		{"missing api key", Config{}, true},
		{"bad base url", Config{APIKey: "k", APIBaseURL: "not a url"}, true},
		{"good base url", Config{APIKey: "k", APIBaseURL: "https://v2.prod.halliday.xyz"}, false},
		{"alpha3 country", Config{APIKey: "k", CountryCode: "USA"}, false},
		{"alpha2 country rejected", Config{APIKey: "k", CountryCode: "US"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	client, err := New(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := client.cfg
	if cfg.PriceCurrency != "USD" {
		t.Errorf("price currency = %q, want USD", cfg.PriceCurrency)
	}
	if cfg.DebounceInterval != 2*time.Second {
		t.Errorf("debounce = %v, want 2s", cfg.DebounceInterval)
	}
	if cfg.RefreshInterval != time.Second {
		t.Errorf("refresh = %v, want 1s", cfg.RefreshInterval)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("poll = %v, want 5s", cfg.PollInterval)
	}
	if cfg.RecoveryPollInterval != 3*time.Second {
		t.Errorf("recovery poll = %v, want 3s", cfg.RecoveryPollInterval)
	}
	if cfg.HistoryScanLimit != 15 {
		t.Errorf("history scan limit = %d, want 15", cfg.HistoryScanLimit)
	}
	if len(cfg.SupportedOnramps) != 3 {
		t.Errorf("onramps = %v, want 3 defaults", cfg.SupportedOnramps)
	}
	if len(cfg.OnrampMethods) != 1 || cfg.OnrampMethods[0] != "CREDIT_CARD" {
		t.Errorf("onramp methods = %v, want [CREDIT_CARD]", cfg.OnrampMethods)
	}
}

func TestConfigExplicitValuesKept(t *testing.T) {
	client, err := New(Config{
		APIKey:           "k",
		PriceCurrency:    "EUR",
		SupportedOnramps: []string{"stripe"},
		DebounceInterval: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.cfg.PriceCurrency != "EUR" {
		t.Errorf("price currency = %q, want EUR", client.cfg.PriceCurrency)
	}
	if len(client.cfg.SupportedOnramps) != 1 {
		t.Errorf("onramps = %v, want [stripe]", client.cfg.SupportedOnramps)
	}
	if client.cfg.DebounceInterval != 50*time.Millisecond {
		t.Errorf("debounce = %v, want 50ms", client.cfg.DebounceInterval)
	}
}

func TestReferenceTablesCachedForClientLifetime(t *testing.T) {
	f := newFakeAPI()
	defer f.close()
	f.respond("/assets", http.StatusOK, map[string]api.Asset{
		"base:usdc": {Symbol: "USDC"},
	})
	f.respond("/chains", http.StatusOK, map[string]api.Chain{
		"base": {Explorer: "https://basescan/"},
	})

	client := newTestClient(t, f)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.SupportedAssets(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := client.SupportedChains(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := f.callCount("/assets"); got != 1 {
		t.Errorf("assets fetched %d times, want 1", got)
	}
	if got := f.callCount("/chains"); got != 1 {
		t.Errorf("chains fetched %d times, want 1", got)
	}
}

func TestExplorerTxURL(t *testing.T) {
	f := newFakeAPI()
	defer f.close()
	f.respond("/chains", http.StatusOK, map[string]api.Chain{
		"base": {Explorer: "https://basescan.org/"},
	})

	client := newTestClient(t, f)
	ctx := context.Background()

	if got := client.ExplorerTxURL(ctx, "base", "0xabc"); got != "https://basescan.org/tx/0xabc" {
		t.Errorf("url = %q", got)
	}
	if got := client.ExplorerTxURL(ctx, "unknownchain", "0xabc"); got != "" {
		t.Errorf("unknown chain should yield empty url, got %q", got)
	}
}

func TestChainOfAsset(t *testing.T) {
	tests := []struct {
		asset string
		want  string
	}{
		{"base:0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", "base"},
		{"story:0x", "story"},
		{"usd", "usd"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := chainOfAsset(tt.asset); got != tt.want {
			t.Errorf("chainOfAsset(%q) = %q, want %q", tt.asset, got, tt.want)
		}
	}
}

func TestStatusContextMessages(t *testing.T) {
	complete := &api.Payment{Status: api.StatusComplete}
	if got := StatusContext(complete); got != "Complete. Check the destination address for the output tokens." {
		t.Errorf("complete message = %q", got)
	}

	awaiting := &api.Payment{
		Status: api.StatusPending,
		Quoted: &api.RoutePlan{Route: []api.RouteStep{{
			Type: api.RouteStepTypeUserFund,
			NetEffect: &api.NetEffect{
				Consume: []api.Resource{{Amount: "100.5", Resource: api.ResourceInfo{Asset: "base:usdc"}}},
			},
		}}},
		Fulfilled: &api.RoutePlan{Route: []api.RouteStep{{
			Type:   api.RouteStepTypeUserFund,
			Status: api.StatusPending,
		}}},
		ProcessingAddresses: []api.ProcessingAddress{{Address: "0xproc"}},
	}
	want := "Waiting for the processing address (0xproc) to be funded with 100.5 tokens."
	if got := StatusContext(awaiting); got != want {
		t.Errorf("awaiting message = %q, want %q", got, want)
	}
}

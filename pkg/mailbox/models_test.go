package mailbox

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestConfigJSONNeverCarriesCredentials(t *testing.T) {
	cfg := Config{
		IMAPServer:        "imap.example.com",
		Username:          "batches@example.com",
		Password:          "hunter2",
		OAuthTokenURL:     "https://login.example.com/token",
		OAuthClientID:     "client-id",
		OAuthClientSecret: "top-secret",
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	body := string(payload)
	for _, secret := range []string{"hunter2", "top-secret", "password", "oauth_client_secret"} {
		if strings.Contains(body, secret) {
			t.Errorf("serialized config leaks %q: %s", secret, body)
		}
	}
	if !strings.Contains(body, "imap.example.com") || !strings.Contains(body, "client-id") {
		t.Errorf("non-secret fields should serialize: %s", body)
	}
}

func TestPollIntervalDefaultsWhenUnset(t *testing.T) {
	var cfg Config
	if got := cfg.PollInterval(); got != 300*time.Second {
		t.Errorf("PollInterval() = %v, want 5m default", got)
	}

	cfg.PollIntervalSecs = 45
	if got := cfg.PollInterval(); got != 45*time.Second {
		t.Errorf("PollInterval() = %v, want 45s", got)
	}
}

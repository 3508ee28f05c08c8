package notification

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bher20/solarquote/internal/estimates"
	"github.com/bher20/solarquote/internal/storage"
)

func TestValidate(t *testing.T) {
	ok := []storage.EmailConfig{
		{Provider: ProviderSMTP, Host: "mail.example.com", Port: 587, Encryption: "tls", FromAddress: "a@example.com"},
		{Provider: ProviderResend, APIKey: "re_123", FromAddress: "a@example.com"},
	}
	for _, cfg := range ok {
		if err := Validate(cfg); err != nil {
			t.Errorf("%s: unexpected error %v", cfg.Provider, err)
		}
	}

	bad := []storage.EmailConfig{
		{Provider: ProviderSMTP, FromAddress: "a@example.com"},
		{Provider: ProviderSendGrid, FromAddress: "a@example.com"},
		{Provider: ProviderSMTP, Host: "h", Port: 25},
		{Provider: ProviderSMTP, Host: "h", Port: 25, Encryption: "starttls", FromAddress: "a@example.com"},
	}
	for _, cfg := range bad {
		if err := Validate(cfg); err == nil {
			t.Errorf("%+v: expected error", cfg)
		}
	}
	if err := Validate(storage.EmailConfig{Provider: "pigeon", FromAddress: "a@example.com"}); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestSend_NotConfigured(t *testing.T) {
	svc := NewService(storage.NewMemory())
	if err := svc.Send(context.Background(), Message{To: "x@example.com"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSaveConfig_KeepsMaskedSecrets(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	svc := NewService(st)

	cfg := storage.EmailConfig{Provider: ProviderResend, APIKey: "re_secret", FromAddress: "a@example.com", Enabled: true}
	if err := svc.SaveConfig(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	masked, err := svc.GetConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if masked.APIKey != redacted {
		t.Fatalf("api key not masked: %q", masked.APIKey)
	}

	masked.FromName = "Sales"
	if err := svc.SaveConfig(ctx, *masked); err != nil {
		t.Fatal(err)
	}
	stored, _ := st.GetEmailConfig(ctx)
	if stored.APIKey != "re_secret" || stored.FromName != "Sales" {
		t.Fatalf("unexpected stored config %+v", stored)
	}
}

func TestSend_Resend(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	st := storage.NewMemory()
	_ = st.SaveEmailConfig(ctx, storage.EmailConfig{Provider: ProviderResend, APIKey: "re_1", FromAddress: "sales@example.com", FromName: "Sales", Enabled: true})
	svc := NewService(st)
	svc.resendURL = srv.URL

	if err := svc.Send(ctx, Message{To: "boss@example.com", Subject: "hi", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if auth != "Bearer re_1" {
		t.Errorf("authorization = %q", auth)
	}
	if got["to"] != "boss@example.com" || got["from"] != "Sales <sales@example.com>" {
		t.Errorf("payload = %v", got)
	}
}

func TestSend_ResendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc := NewService(storage.NewMemory())
	svc.resendURL = srv.URL
	err := svc.TestConfig(context.Background(), storage.EmailConfig{Provider: ProviderResend, APIKey: "x", FromAddress: "a@example.com"}, "b@example.com")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestRenderDigest(t *testing.T) {
	now := time.Date(2026, 6, 2, 7, 0, 0, 0, time.UTC)
	sum := estimates.Summary{
		Since:                 now.Add(-24 * time.Hour),
		Until:                 now,
		Total:                 3,
		ByKind:                map[string]int{"system-size": 2, "battery": 1},
		ByState:               map[string]int{"TX": 2},
		AvgSystemSizeKW:       9.62,
		TotalAnnualSavingsUSD: 3652,
	}
	msg, err := RenderDigest("sales@example.com", sum)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Subject != "solarquote digest: 3 estimates" {
		t.Errorf("subject = %q", msg.Subject)
	}
	for _, want := range []string{"9.62 kW", "$3,652", "Top states: TX", "<td>payback</td><td align=\"right\">0</td>"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("digest missing %q:\n%s", want, msg.HTML)
		}
	}
}

func TestStripTags(t *testing.T) {
	if got := stripTags("<p>Hello <b>there</b></p>"); got != "Hello there" {
		t.Fatalf("got %q", got)
	}
}

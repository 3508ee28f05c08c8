package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/bher20/solarquote/internal/storage"
)

var (
	ErrNotConfigured   = errors.New("email not configured or disabled")
	ErrUnknownProvider = errors.New("unknown email provider")
)

const (
	ProviderSMTP     = "smtp"
	ProviderGmail    = "gmail"
	ProviderSendGrid = "sendgrid"
	ProviderResend   = "resend"
)

const redacted = "********"

// Message is one HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type Service struct {
	storage storage.Storage
	client  *http.Client
	// resendURL is overridden in tests.
	resendURL string
}

func NewService(s storage.Storage) *Service {
	return &Service{
		storage:   s,
		client:    &http.Client{Timeout: 15 * time.Second},
		resendURL: "https://api.resend.com/emails",
	}
}

// GetConfig returns the stored config with secrets masked.
func (s *Service) GetConfig(ctx context.Context) (*storage.EmailConfig, error) {
	cfg, err := s.storage.GetEmailConfig(ctx)
	if err != nil || cfg == nil {
		return cfg, err
	}
	if cfg.Password != "" {
		cfg.Password = redacted
	}
	if cfg.APIKey != "" {
		cfg.APIKey = redacted
	}
	return cfg, nil
}

// SaveConfig validates and stores cfg. Masked secrets keep the stored value.
func (s *Service) SaveConfig(ctx context.Context, cfg storage.EmailConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	prev, err := s.storage.GetEmailConfig(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	if prev != nil {
		if cfg.Password == redacted {
			cfg.Password = prev.Password
		}
		if cfg.APIKey == redacted {
			cfg.APIKey = prev.APIKey
		}
		cfg.ID = prev.ID
		cfg.CreatedAt = prev.CreatedAt
	} else {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	return s.storage.SaveEmailConfig(ctx, cfg)
}

// Validate checks that cfg names a known provider with its required fields.
func Validate(cfg storage.EmailConfig) error {
	if cfg.FromAddress == "" {
		return errors.New("email config: from_address is required")
	}
	switch cfg.Provider {
	case ProviderSMTP, ProviderGmail:
		if cfg.Host == "" || cfg.Port <= 0 {
			return errors.New("email config: smtp requires host and port")
		}
		switch cfg.Encryption {
		case "", "none", "ssl", "tls":
		default:
			return fmt.Errorf("email config: unknown encryption %q", cfg.Encryption)
		}
	case ProviderSendGrid, ProviderResend:
		if cfg.APIKey == "" {
			return fmt.Errorf("email config: %s requires api_key", cfg.Provider)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	return nil
}

// Send delivers msg with the stored configuration.
func (s *Service) Send(ctx context.Context, msg Message) error {
	cfg, err := s.storage.GetEmailConfig(ctx)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Enabled {
		return ErrNotConfigured
	}
	return s.send(ctx, cfg, msg)
}

// TestConfig sends a test email through cfg without storing it.
func (s *Service) TestConfig(ctx context.Context, cfg storage.EmailConfig, to string) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	return s.send(ctx, &cfg, Message{
		To:      to,
		Subject: "solarquote test email",
		HTML:    "<p>This is a test email from solarquote. Digest delivery is working.</p>",
	})
}

func (s *Service) send(ctx context.Context, cfg *storage.EmailConfig, msg Message) error {
	switch cfg.Provider {
	case ProviderSMTP, ProviderGmail:
		return sendSMTP(cfg, msg)
	case ProviderSendGrid:
		return sendSendGrid(cfg, msg)
	case ProviderResend:
		return s.sendResend(ctx, cfg, msg)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

func buildMIME(cfg *storage.EmailConfig, msg Message) []byte {
	var b bytes.Buffer
	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")
	return b.Bytes()
}

func sendSMTP(cfg *storage.EmailConfig, msg Message) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	body := buildMIME(cfg, msg)

	var c *smtp.Client
	switch cfg.Encryption {
	case "ssl":
		// implicit TLS
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
		if err != nil {
			return err
		}
		c, err = smtp.NewClient(conn, cfg.Host)
		if err != nil {
			conn.Close()
			return err
		}
	case "tls":
		var err error
		c, err = smtp.Dial(addr)
		if err != nil {
			return err
		}
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				c.Close()
				return err
			}
		}
	default:
		var auth smtp.Auth
		if cfg.Username != "" {
			auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		}
		return smtp.SendMail(addr, auth, cfg.FromAddress, []string{msg.To}, body)
	}
	defer c.Quit()

	if cfg.Username != "" && cfg.Password != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.FromAddress); err != nil {
		return err
	}
	if err := c.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	return w.Close()
}

func sendSendGrid(cfg *storage.EmailConfig, msg Message) error {
	from := mail.NewEmail(cfg.FromName, cfg.FromAddress)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, stripTags(msg.HTML), msg.HTML)
	resp, err := sendgrid.NewSendClient(cfg.APIKey).Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (s *Service) sendResend(ctx context.Context, cfg *storage.EmailConfig, msg Message) error {
	payload, err := json.Marshal(map[string]string{
		"from":    fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress),
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.resendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend error: %d %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

// stripTags gives SendGrid a rough plain-text alternative.
func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Package notify sends transactional email through the SendPulse SMTP API.
// Dispatch is best-effort everywhere it is used: a failed notification is
// logged and never fails the business operation that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tarjuman/order-service/internal/config"
)

const (
	senderName  = "Tarjuman"
	senderEmail = "admin@tarjuman.org"

	// tokenSlack refreshes the OAuth token slightly before SendPulse
	// invalidates it, so an in-flight send never races expiry.
	tokenSlack = 60 * time.Second
)

var ErrMissingCredentials = errors.New("notify: SENDPULSE_ID and SENDPULSE_SECRET must be set")

// Notifier dispatches one transactional email.
type Notifier interface {
	Send(ctx context.Context, to, toName, subject, html string) error
}

// tokenHolder owns the OAuth access token for one client instance. It is
// refreshed lazily when expired and safe for concurrent reuse across
// requests within one process lifetime.
type tokenHolder struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

type Client struct {
	id         string
	secret     string
	baseURL    string
	httpClient *http.Client
	holder     tokenHolder
	now        func() time.Time
}

// NewClient builds a SendPulse client. Missing credentials are a fatal
// configuration error raised here, at first use.
func NewClient(cfg config.SendPulseConfig) (*Client, error) {
	if cfg.ID == "" || cfg.Secret == "" {
		return nil, ErrMissingCredentials
	}

	return &Client{
		id:         cfg.ID,
		secret:     cfg.Secret,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.holder.mu.Lock()
	defer c.holder.mu.Unlock()

	if c.holder.token != "" && c.now().Before(c.holder.expiresAt) {
		return c.holder.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.id,
		"client_secret": c.secret,
	})
	if err != nil {
		return "", fmt.Errorf("notify: failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/access_token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("notify: failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("notify: token request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("notify: failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("notify: token request failed (%d): %s", resp.StatusCode, raw)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("notify: unparseable token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("notify: token response contained no access token")
	}

	c.holder.token = parsed.AccessToken
	c.holder.expiresAt = c.now().Add(time.Duration(parsed.ExpiresIn)*time.Second - tokenSlack)

	return c.holder.token, nil
}

type smtpEmailRequest struct {
	Email smtpEmail `json:"email"`
}

type smtpEmail struct {
	HTML    string        `json:"html"`
	Text    string        `json:"text"`
	Subject string        `json:"subject"`
	From    smtpAddress   `json:"from"`
	To      []smtpAddress `json:"to"`
}

type smtpAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type smtpResponse struct {
	Result bool `json:"result"`
}

// Send delivers one transactional email. The html body is base64-encoded as
// the SMTP API requires.
func (c *Client) Send(ctx context.Context, to, toName, subject, html string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	if toName == "" {
		toName = "Valued User"
	}

	payload := smtpEmailRequest{
		Email: smtpEmail{
			HTML:    base64.StdEncoding.EncodeToString([]byte(html)),
			Text:    "Please view this email in an HTML compatible client.",
			Subject: subject,
			From:    smtpAddress{Name: senderName, Email: senderEmail},
			To:      []smtpAddress{{Name: toName, Email: to}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/smtp/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: email request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("notify: failed to read email response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify: email request failed (%d): %s", resp.StatusCode, raw)
	}

	var parsed smtpResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("notify: unparseable email response: %w", err)
	}
	if !parsed.Result {
		return fmt.Errorf("notify: sendpulse rejected the email: %s", raw)
	}

	log.Info().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}

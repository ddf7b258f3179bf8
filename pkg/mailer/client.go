package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/craftora/storefront-backend/pkg/config"
	pkgerrors "github.com/craftora/storefront-backend/pkg/errors"
	"github.com/craftora/storefront-backend/pkg/logger"
)

const sendEndpoint = "https://api.sendgrid.com/v3/mail/send"

var errAPIKeyRequired = errors.New("sendgrid api key is required")

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender is the delivery surface consumed by the notification pipeline.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client sends transactional email through the SendGrid v3 API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	from       string
	logger     *logger.Logger
}

// NewClient validates the config and builds the mailer.
func NewClient(cfg config.SendgridConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	from := strings.TrimSpace(cfg.DefaultFrom)
	if from == "" {
		return nil, errors.New("sendgrid from address is required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiKey:     apiKey,
		from:       from,
		logger:     logg,
	}, nil
}

// Send delivers the message, returning a gateway-coded error on failure.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}

	content := []map[string]string{}
	if msg.TextBody != "" {
		content = append(content, map[string]string{"type": "text/plain", "value": msg.TextBody})
	}
	if msg.HTMLBody != "" {
		content = append(content, map[string]string{"type": "text/html", "value": msg.HTMLBody})
	}
	if len(content) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}

	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": msg.To}}},
		},
		"from":    map[string]string{"email": c.from},
		"subject": msg.Subject,
		"content": content,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendEndpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sendgrid request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("sendgrid returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	if c.logger != nil {
		c.logger.Info(c.logger.WithField(ctx, "recipient", msg.To), "email dispatched")
	}
	return nil
}

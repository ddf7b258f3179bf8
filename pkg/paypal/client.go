package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/craftora/storefront-backend/pkg/config"
	pkgerrors "github.com/craftora/storefront-backend/pkg/errors"
	"github.com/craftora/storefront-backend/pkg/logger"
)

const (
	sandboxEnv = "sandbox"
	liveEnv    = "live"

	// PayPal returns this issue code when an order's payment was
	// already captured. The settlement path treats it as success so
	// duplicate callbacks stay idempotent.
	issueOrderAlreadyCaptured = "ORDER_ALREADY_CAPTURED"

	tokenExpirySlack = 30 * time.Second
)

var baseURLs = map[string]string{
	sandboxEnv: "https://api-m.sandbox.paypal.com",
	liveEnv:    "https://api-m.paypal.com",
}

var (
	errCredentialsRequired = errors.New("paypal client id and secret are required")
	errInvalidPayPalEnv    = fmt.Errorf("paypal environment must be %q or %q", sandboxEnv, liveEnv)
)

// Client talks to the PayPal Orders v2 API with cached OAuth tokens.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	logger     *logger.Logger

	mtx         sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// CaptureResult is the normalized outcome of a capture call.
type CaptureResult struct {
	OrderID          string
	CaptureID        string
	Status           string
	AmountCents      int
	Currency         string
	PayerEmail       string
	AlreadyCaptured  bool
}

// Completed reports whether the capture (or a prior one) succeeded.
func (r CaptureResult) Completed() bool {
	return r.AlreadyCaptured || strings.EqualFold(r.Status, "COMPLETED")
}

// NewClient validates credentials and builds the API wrapper.
func NewClient(cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	secret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || secret == "" {
		return nil, errCredentialsRequired
	}

	timeout := cfg.CaptureTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURLs[env],
		clientID:   clientID,
		secret:     secret,
		logger:     logg,
	}, nil
}

// CaptureOrder runs the second phase of PayPal's two-phase flow. The
// customer approved the order at PayPal; this call moves the money.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal order id is required")
	}

	endpoint := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseURL, url.PathEscape(orderID))
	status, body, err := c.doAuthorized(ctx, http.MethodPost, endpoint, []byte("{}"))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "paypal capture request failed")
	}

	switch {
	case status == http.StatusCreated || status == http.StatusOK:
		result, err := parseCaptureResponse(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "paypal capture response malformed")
		}
		c.logInfo(ctx, "paypal order captured", map[string]any{"order_id": orderID, "status": result.Status})
		return result, nil

	case status == http.StatusUnprocessableEntity && hasIssue(body, issueOrderAlreadyCaptured):
		c.logInfo(ctx, "paypal order already captured", map[string]any{"order_id": orderID})
		return &CaptureResult{OrderID: orderID, AlreadyCaptured: true}, nil

	case status == http.StatusNotFound:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "paypal order not found")

	default:
		return nil, pkgerrors.New(pkgerrors.CodeGateway,
			fmt.Sprintf("paypal capture returned status %d", status))
	}
}

// GetOrder fetches the current state of a PayPal order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "paypal order id is required")
	}

	endpoint := fmt.Sprintf("%s/v2/checkout/orders/%s", c.baseURL, url.PathEscape(orderID))
	status, body, err := c.doAuthorized(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "paypal get order failed")
	}
	if status == http.StatusNotFound {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "paypal order not found")
	}
	if status != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("paypal get order returned status %d", status))
	}

	var decoded struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "paypal order response malformed")
	}
	return decoded.Status, nil
}

func (c *Client) doAuthorized(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return 0, nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return c.accessToken, nil
	}

	endpoint := c.baseURL + "/v1/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token request returned status %d", resp.StatusCode)
	}

	var decoded struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode paypal token response: %w", err)
	}
	if decoded.AccessToken == "" {
		return "", errors.New("paypal token response missing access_token")
	}

	c.accessToken = decoded.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(decoded.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *Client) logInfo(ctx context.Context, msg string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Info(c.logger.WithFields(ctx, fields), msg)
}

func parseCaptureResponse(body []byte) (*CaptureResult, error) {
	var decoded struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Payer  struct {
			EmailAddress string `json:"email_address"`
		} `json:"payer"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
					Amount struct {
						CurrencyCode string `json:"currency_code"`
						Value        string `json:"value"`
					} `json:"amount"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}

	result := &CaptureResult{
		OrderID:    decoded.ID,
		Status:     decoded.Status,
		PayerEmail: decoded.Payer.EmailAddress,
	}
	for _, unit := range decoded.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			result.CaptureID = capture.ID
			if result.Status == "" {
				result.Status = capture.Status
			}
			result.Currency = capture.Amount.CurrencyCode
			result.AmountCents = parseAmountCents(capture.Amount.Value)
		}
	}
	return result, nil
}

func hasIssue(body []byte, issue string) bool {
	var decoded struct {
		Details []struct {
			Issue string `json:"issue"`
		} `json:"details"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return false
	}
	for _, detail := range decoded.Details {
		if detail.Issue == issue {
			return true
		}
	}
	return false
}

// parseAmountCents converts PayPal's decimal string ("12.34") to cents
// without floating point drift.
func parseAmountCents(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	negative := strings.HasPrefix(value, "-")
	value = strings.TrimPrefix(value, "-")

	whole, frac, _ := strings.Cut(value, ".")
	cents := 0
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0
		}
		cents = cents*10 + int(r-'0')
	}
	cents *= 100
	if len(frac) > 0 {
		frac = (frac + "00")[:2]
		for _, r := range frac {
			if r < '0' || r > '9' {
				return 0
			}
		}
		cents += int(frac[0]-'0')*10 + int(frac[1]-'0')
	}
	if negative {
		return -cents
	}
	return cents
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidPayPalEnv
	}
}

package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/royalbook/royalbook/internal/observability"
)

// ErrInvalidAmount rejects non-positive amounts before any network call.
var ErrInvalidAmount = errors.New("payment amount must be positive")

// GatewayError carries the upstream failure to the caller. Intent-creation
// errors are never swallowed: the client needs to know there is no secret
// coming.
type GatewayError struct {
	Status  int
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment gateway: %s (%s)", e.Message, e.Code)
	}
	return "payment gateway: " + e.Message
}

// Client wraps the gateway's payment-intent endpoint. The zero currency is
// always "usd"; the secret key authenticates every call.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	prom       *observability.Prom
}

func NewClient(baseURL, secretKey string, prom *observability.Prom) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		prom:       prom,
	}
}

type intentResponse struct {
	ClientSecret string `json:"client_secret"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent asks the gateway for a new payment intent and returns the
// client secret the buyer uses to complete the charge out-of-band.
func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string) (string, error) {
	if amountCents <= 0 {
		return "", ErrInvalidAmount
	}

	if currency == "" {
		currency = "usd"
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	form.Set("payment_method_types[]", "card")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe("create_intent", "error")
		return "", &GatewayError{Status: 0, Message: err.Error()}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.observe("create_intent", "error")
		return "", &GatewayError{Status: resp.StatusCode, Message: "reading gateway response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe("create_intent", "error")

		var gwErr errorResponse
		if jsonErr := json.Unmarshal(body, &gwErr); jsonErr == nil && gwErr.Error.Message != "" {
			return "", &GatewayError{Status: resp.StatusCode, Code: gwErr.Error.Code, Message: gwErr.Error.Message}
		}

		return "", &GatewayError{Status: resp.StatusCode, Message: "unexpected gateway status " + strconv.Itoa(resp.StatusCode)}
	}

	var intent intentResponse
	if err := json.Unmarshal(body, &intent); err != nil {
		c.observe("create_intent", "error")
		return "", &GatewayError{Status: resp.StatusCode, Message: "decoding gateway response: " + err.Error()}
	}

	if intent.ClientSecret == "" {
		c.observe("create_intent", "error")
		return "", &GatewayError{Status: resp.StatusCode, Message: "gateway returned no client secret"}
	}

	c.observe("create_intent", "ok")
	return intent.ClientSecret, nil
}

func (c *Client) observe(op, result string) {
	if c.prom != nil {
		c.prom.GatewayRequests.WithLabelValues(op, result).Inc()
	}
}

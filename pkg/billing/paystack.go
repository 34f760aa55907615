package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// PaystackConfig holds configuration for the Paystack gateway client.
type PaystackConfig struct {
	SecretKey   string        `env:"PAYSTACK_SECRET_KEY,required"`
	BaseURL     string        `env:"PAYSTACK_BASE_URL" envDefault:"https://api.paystack.co"`
	HTTPTimeout time.Duration `env:"PAYSTACK_HTTP_TIMEOUT" envDefault:"15s"`
}

// PaystackGateway implements Gateway against the Paystack REST API.
// All outbound calls carry a bounded timeout; on timeout the caller's
// subscription is left PENDING so a retry remains possible.
type PaystackGateway struct {
	config PaystackConfig
	client *http.Client
}

// NewPaystackGateway creates a Paystack gateway client.
func NewPaystackGateway(config PaystackConfig) (*PaystackGateway, error) {
	if config.SecretKey == "" {
		return nil, ErrMissingSecretKey
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.paystack.co"
	}
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = 15 * time.Second
	}
	return &PaystackGateway{
		config: config,
		client: &http.Client{Timeout: config.HTTPTimeout},
	}, nil
}

// NewPaystackGatewayWithClient creates a gateway with a custom HTTP
// client, mainly for testing.
func NewPaystackGatewayWithClient(config PaystackConfig, client *http.Client) (*PaystackGateway, error) {
	gw, err := NewPaystackGateway(config)
	if err != nil {
		return nil, err
	}
	if client != nil {
		gw.client = client
	}
	return gw, nil
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction creates a payment attempt via
// POST /transaction/initialize. The amount is converted to the
// provider's minor unit here and nowhere else.
func (g *PaystackGateway) InitializeTransaction(ctx context.Context, req InitializeRequest) (*Checkout, error) {
	body := map[string]any{
		"email":    req.Email,
		"amount":   req.Amount.Amount * 100, // provider expects minor units
		"currency": req.Amount.Currency,
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := g.post(ctx, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	if data.Reference == "" || data.AuthorizationURL == "" {
		return nil, errors.Join(ErrGatewayDeclined,
			errors.New("initialize response missing reference or payment URL"))
	}

	return &Checkout{
		Reference:  data.Reference,
		PaymentURL: data.AuthorizationURL,
		AccessCode: data.AccessCode,
	}, nil
}

// VerifyTransaction fetches the authoritative transaction outcome via
// GET /transaction/verify/{reference}.
func (g *PaystackGateway) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	if reference == "" {
		return nil, errors.Join(ErrGatewayDeclined, errors.New("reference is required"))
	}

	var data struct {
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Customer struct {
			CustomerCode string `json:"customer_code"`
		} `json:"customer"`
	}
	if err := g.get(ctx, "/transaction/verify/"+reference, &data); err != nil {
		return nil, err
	}

	return &VerifyResult{
		Succeeded: data.Status == "success",
		Amount: Money{
			Amount:   data.Amount / 100, // back to whole currency units
			Currency: data.Currency,
		},
		CustomerCode: data.Customer.CustomerCode,
		GatewayState: data.Status,
	}, nil
}

// VerifyWebhookSignature authenticates a webhook body against the
// provider's signature header: hex-encoded HMAC-SHA512 of the raw body
// keyed with the secret key, compared in constant time.
func (g *PaystackGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	if len(payload) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(g.config.SecretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *PaystackGateway) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *PaystackGateway) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return g.do(req, out)
}

// do executes a request and decodes the provider envelope. Transport
// failures and provider-side outages become ErrGatewayUnavailable so
// callers never confuse them with payment failures.
func (g *PaystackGateway) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+g.config.SecretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.Join(ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.Join(ErrGatewayUnavailable,
			fmt.Errorf("gateway returned %d", resp.StatusCode))
	}

	var envelope paystackEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return errors.Join(ErrGatewayUnavailable, fmt.Errorf("decode response: %w", err))
	}
	if resp.StatusCode >= http.StatusBadRequest || !envelope.Status {
		return errors.Join(ErrGatewayDeclined,
			fmt.Errorf("gateway declined (%d): %s", resp.StatusCode, envelope.Message))
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return errors.Join(ErrGatewayUnavailable, fmt.Errorf("decode response data: %w", err))
		}
	}
	return nil
}

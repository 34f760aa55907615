package billing_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizenhr/billing/pkg/billing"
)

func newTestGateway(t *testing.T, handler http.Handler) (*billing.PaystackGateway, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gw, err := billing.NewPaystackGateway(billing.PaystackConfig{
		SecretKey:   "sk_test_secret",
		BaseURL:     srv.URL,
		HTTPTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	return gw, srv
}

func TestNewPaystackGateway_RequiresSecretKey(t *testing.T) {
	t.Parallel()

	_, err := billing.NewPaystackGateway(billing.PaystackConfig{})
	assert.ErrorIs(t, err, billing.ErrMissingSecretKey)
}

func TestPaystackGateway_InitializeTransaction(t *testing.T) {
	t.Parallel()

	t.Run("converts amount to minor units at the boundary", func(t *testing.T) {
		t.Parallel()

		var got map[string]any
		gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transaction/initialize", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data": map[string]any{
					"authorization_url": "https://checkout.example/abc",
					"access_code":       "AC_1",
					"reference":         "ref-123",
				},
			})
		}))

		checkout, err := gw.InitializeTransaction(context.Background(), billing.InitializeRequest{
			Amount:      billing.Money{Amount: 50000, Currency: "NGN"},
			Email:       "hr@acme.test",
			CallbackURL: "https://app.test/billing/callback",
		})
		require.NoError(t, err)

		assert.Equal(t, "ref-123", checkout.Reference)
		assert.Equal(t, "https://checkout.example/abc", checkout.PaymentURL)
		assert.Equal(t, float64(5000000), got["amount"], "amount must be multiplied by 100 exactly once")
		assert.Equal(t, "hr@acme.test", got["email"])
		assert.Equal(t, "https://app.test/billing/callback", got["callback_url"])
	})

	t.Run("server error surfaces as gateway unavailable", func(t *testing.T) {
		t.Parallel()

		gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := gw.InitializeTransaction(context.Background(), billing.InitializeRequest{
			Amount: billing.Money{Amount: 100, Currency: "NGN"},
			Email:  "a@b.test",
		})
		assert.ErrorIs(t, err, billing.ErrGatewayUnavailable)
	})

	t.Run("unreachable host surfaces as gateway unavailable", func(t *testing.T) {
		t.Parallel()

		gw, srv := newTestGateway(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close()

		_, err := gw.InitializeTransaction(context.Background(), billing.InitializeRequest{
			Amount: billing.Money{Amount: 100, Currency: "NGN"},
			Email:  "a@b.test",
		})
		assert.ErrorIs(t, err, billing.ErrGatewayUnavailable)
	})

	t.Run("declined envelope is not an availability error", func(t *testing.T) {
		t.Parallel()

		gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":  false,
				"message": "Invalid currency",
			})
		}))

		_, err := gw.InitializeTransaction(context.Background(), billing.InitializeRequest{
			Amount: billing.Money{Amount: 100, Currency: "XXX"},
			Email:  "a@b.test",
		})
		assert.ErrorIs(t, err, billing.ErrGatewayDeclined)
		assert.NotErrorIs(t, err, billing.ErrGatewayUnavailable)
	})
}

func TestPaystackGateway_VerifyTransaction(t *testing.T) {
	t.Parallel()

	t.Run("maps a successful charge", func(t *testing.T) {
		t.Parallel()

		gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transaction/verify/ref-123", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data": map[string]any{
					"status":   "success",
					"amount":   5000000,
					"currency": "NGN",
					"customer": map[string]any{"customer_code": "CUS_abc"},
				},
			})
		}))

		result, err := gw.VerifyTransaction(context.Background(), "ref-123")
		require.NoError(t, err)

		assert.True(t, result.Succeeded)
		assert.Equal(t, int64(50000), result.Amount.Amount)
		assert.Equal(t, "NGN", result.Amount.Currency)
		assert.Equal(t, "CUS_abc", result.CustomerCode)
	})

	t.Run("maps a failed charge without error", func(t *testing.T) {
		t.Parallel()

		gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data":   map[string]any{"status": "failed", "amount": 0, "currency": "NGN"},
			})
		}))

		result, err := gw.VerifyTransaction(context.Background(), "ref-456")
		require.NoError(t, err)
		assert.False(t, result.Succeeded)
		assert.Equal(t, "failed", result.GatewayState)
	})
}

func TestPaystackGateway_VerifyWebhookSignature(t *testing.T) {
	t.Parallel()

	gw, err := billing.NewPaystackGateway(billing.PaystackConfig{SecretKey: "sk_test_secret"})
	require.NoError(t, err)

	payload := []byte(`{"event":"charge.success","data":{"reference":"ref-123"}}`)

	mac := hmac.New(sha512.New, []byte("sk_test_secret"))
	mac.Write(payload)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, gw.VerifyWebhookSignature(payload, valid))
	assert.False(t, gw.VerifyWebhookSignature(payload, "deadbeef"))
	assert.False(t, gw.VerifyWebhookSignature(payload, ""))
	assert.False(t, gw.VerifyWebhookSignature(nil, valid))
	assert.False(t, gw.VerifyWebhookSignature([]byte(`tampered`), valid))
}

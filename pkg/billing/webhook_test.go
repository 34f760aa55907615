package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizenhr/billing/pkg/billing"
)

func TestParseWebhookEvent(t *testing.T) {
	t.Parallel()

	t.Run("charge success converts amount to whole units", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`{
			"event": "charge.success",
			"data": {
				"reference": "ref-123",
				"amount": 5000000,
				"currency": "NGN",
				"customer": {"customer_code": "CUS_abc"}
			}
		}`)

		event, err := billing.ParseWebhookEvent(payload)
		require.NoError(t, err)

		charge, ok := event.(billing.ChargeSuccessEvent)
		require.True(t, ok, "expected ChargeSuccessEvent, got %T", event)
		assert.Equal(t, "ref-123", charge.Reference)
		assert.Equal(t, int64(50000), charge.Amount.Amount)
		assert.Equal(t, "NGN", charge.Amount.Currency)
		assert.Equal(t, "CUS_abc", charge.CustomerCode)
	})

	t.Run("transfer events carry the reference", func(t *testing.T) {
		t.Parallel()

		event, err := billing.ParseWebhookEvent([]byte(`{"event":"transfer.success","data":{"reference":"trf-1"}}`))
		require.NoError(t, err)
		assert.Equal(t, billing.TransferSuccessEvent{Reference: "trf-1"}, event)

		event, err = billing.ParseWebhookEvent([]byte(`{"event":"transfer.failed","data":{"reference":"trf-2"}}`))
		require.NoError(t, err)
		assert.Equal(t, billing.TransferFailedEvent{Reference: "trf-2"}, event)
	})

	t.Run("unrecognized event types fail closed to OtherEvent", func(t *testing.T) {
		t.Parallel()

		event, err := billing.ParseWebhookEvent([]byte(`{"event":"invoice.create","data":{"reference":"ref-9"}}`))
		require.NoError(t, err)
		assert.Equal(t, billing.OtherEvent{Type: "invoice.create"}, event)
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		t.Parallel()

		_, err := billing.ParseWebhookEvent([]byte(`{not json`))
		assert.Error(t, err)
	})

	t.Run("missing event type is an error", func(t *testing.T) {
		t.Parallel()

		_, err := billing.ParseWebhookEvent([]byte(`{"data":{"reference":"ref-1"}}`))
		assert.Error(t, err)
	})
}

package billing

import (
	"encoding/json"
	"errors"
	"fmt"
)

// WebhookOutcome reports how an authenticated webhook event was handled.
// Ignored and NoMatch are acknowledged successes so the gateway does not
// retry-storm events this domain does not care about.
type WebhookOutcome string

const (
	// OutcomeApplied means a subscription state transition was applied
	// (or had already been applied by an earlier delivery).
	OutcomeApplied WebhookOutcome = "applied"
	// OutcomeIgnored means the event type is not payment-relevant.
	OutcomeIgnored WebhookOutcome = "ignored"
	// OutcomeNoMatch means no subscription holds the event's reference.
	// Gateway events may reference transactions outside this domain.
	OutcomeNoMatch WebhookOutcome = "no_match"
)

// GatewayEvent is the classified form of a provider webhook payload.
// The set is closed: event types this domain does not recognize are
// routed to OtherEvent instead of silently matching a payment branch.
type GatewayEvent interface {
	isGatewayEvent()
}

// ChargeSuccessEvent reports a completed charge for a transaction.
type ChargeSuccessEvent struct {
	Reference    string
	Amount       Money
	CustomerCode string
}

// TransferSuccessEvent reports a completed transfer.
type TransferSuccessEvent struct {
	Reference string
}

// TransferFailedEvent reports a failed transfer.
type TransferFailedEvent struct {
	Reference string
}

// OtherEvent carries any event type outside the recognized set.
type OtherEvent struct {
	Type string
}

func (ChargeSuccessEvent) isGatewayEvent()   {}
func (TransferSuccessEvent) isGatewayEvent() {}
func (TransferFailedEvent) isGatewayEvent()  {}
func (OtherEvent) isGatewayEvent()           {}

// rawWebhook matches the provider's envelope: an event type plus a data
// object whose shape varies by type. Amounts arrive in the provider's
// minor unit and are converted here, at the boundary.
type rawWebhook struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Customer  struct {
			CustomerCode string `json:"customer_code"`
		} `json:"customer"`
	} `json:"data"`
}

// ParseWebhookEvent classifies a raw, already-authenticated webhook body.
// Signature verification is the caller's responsibility and must happen
// before this function sees the payload.
func ParseWebhookEvent(payload []byte) (GatewayEvent, error) {
	var raw rawWebhook
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if raw.Event == "" {
		return nil, errors.New("webhook payload has no event type")
	}

	switch raw.Event {
	case "charge.success":
		return ChargeSuccessEvent{
			Reference: raw.Data.Reference,
			Amount: Money{
				Amount:   raw.Data.Amount / 100,
				Currency: raw.Data.Currency,
			},
			CustomerCode: raw.Data.Customer.CustomerCode,
		}, nil
	case "transfer.success":
		return TransferSuccessEvent{Reference: raw.Data.Reference}, nil
	case "transfer.failed":
		return TransferFailedEvent{Reference: raw.Data.Reference}, nil
	default:
		return OtherEvent{Type: raw.Event}, nil
	}
}

package billing

import "context"

// Gateway is the minimal interface over the external payment provider.
// One concrete gateway (Paystack) ships with this package; the
// abstraction keeps the orchestrator free of provider specifics.
//
// Implementations must surface network and timeout failures as
// ErrGatewayUnavailable so they are never mistaken for payment failures,
// and must convert amounts to the provider's minor unit at this boundary
// only.
type Gateway interface {
	// InitializeTransaction creates a payment attempt and returns the
	// hosted payment URL plus the provider's transaction reference.
	InitializeTransaction(ctx context.Context, req InitializeRequest) (*Checkout, error)

	// VerifyTransaction fetches the authoritative outcome of a
	// previously initialized transaction.
	VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error)

	// VerifyWebhookSignature authenticates a raw webhook body against
	// the provider's signature header. It must be called before any
	// parsing of event semantics.
	VerifyWebhookSignature(payload []byte, signature string) bool
}

// InitializeRequest carries the inputs for creating a payment attempt.
type InitializeRequest struct {
	Amount      Money
	Email       string
	CallbackURL string
}

// Checkout is the result of a successful transaction initialization.
type Checkout struct {
	Reference  string // provider's transaction reference
	PaymentURL string // hosted payment page
	AccessCode string // provider's short-lived checkout code, if any
}

// VerifyResult is the gateway's authoritative view of a transaction.
// Succeeded=false means the provider explicitly reported a failed or
// abandoned charge, not a transport error.
type VerifyResult struct {
	Succeeded    bool
	Amount       Money
	CustomerCode string
	GatewayState string // provider's raw status string, for diagnostics
}

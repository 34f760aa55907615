// Package billing implements the subscription lifecycle core of a
// multi-tenant HR platform: plan selection, trial activation, paid-plan
// payment initiation, webhook reconciliation, post-login access
// decisions, cancellation, and trial-to-paid upgrades.
//
// # Architecture
//
//   - Service: the orchestrator owning the subscription state machine
//   - Plan / PlanSource: the read-only pricing catalog
//   - BillingPeriod: calendar-aware end date and expiry arithmetic
//   - Gateway: minimal interface over the payment provider, with a
//     Paystack implementation included
//   - Store: persistence contract with a conditional-write transition
//   - Publisher: domain event outlet for the notification boundary
//
// The lifecycle is PENDING -> ACTIVE | FAILED, ACTIVE -> EXPIRED |
// CANCELLED. Expiry is detected on read rather than by a scheduler, so
// correctness never depends on a background sweep. A webhook delivery
// and a synchronous verification can race on the same gateway
// reference; the store's compare-and-set transition makes the second
// writer a no-op.
//
// # Quick start
//
//	plans := billing.NewStaticSource(
//		billing.Plan{
//			ID:     "starter-trial",
//			Name:   "Starter Trial",
//			Period: billing.FixedDays(2),
//			Trial:  true,
//		},
//		billing.Plan{
//			ID:     "team-monthly",
//			Name:   "Team",
//			Price:  billing.Money{Amount: 50000, Currency: "NGN"},
//			Period: billing.Monthly(),
//		},
//	)
//
//	gateway, err := billing.NewPaystackGateway(paystackCfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	svc, err := billing.NewService(ctx, plans, gateway, store,
//		billing.WithCallbackURL("https://app.example.com/billing/callback"),
//		billing.WithPublisher(events),
//	)
//
//	selection, err := svc.SelectPlan(ctx, userID, "team-monthly")
//	// redirect the user to selection.PaymentURL
//
// On every login:
//
//	access, err := svc.PostLoginStatus(ctx, userID)
//	if access.State.Allowed() {
//		// proceed to the product
//	}
//
// Webhook handler:
//
//	outcome, err := svc.HandleWebhook(ctx, rawBody, r.Header.Get("X-Paystack-Signature"))
//	if errors.Is(err, billing.ErrInvalidSignature) {
//		// reject with 401; no state was touched
//	}
package billing

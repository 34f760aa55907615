package billing

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kaizenhr/billing/pkg/billing"
)

// paystackSignatureHeader carries the HMAC-SHA512 hex digest of the
// webhook body, computed with the account's secret key.
const paystackSignatureHeader = "X-Paystack-Signature"

// webhookBodyLimit bounds webhook payload reads. Real gateway events
// are a few KB.
const webhookBodyLimit = 1 << 20

func (m *Module) router() chi.Router {
	r := chi.NewRouter()

	r.Post("/plans/{planID}/select", m.handleSelectPlan)
	r.Get("/status", m.handleStatus)
	r.Post("/access", m.handlePostLogin)
	r.Post("/activate", m.handleActivate)
	r.Get("/trial", m.handleTrial)
	r.Post("/upgrade", m.handleUpgrade)
	r.Post("/subscriptions/{id}/cancel", m.handleCancel)
	r.Get("/verify/{reference}", m.handleVerify)
	r.Post("/webhook", m.handleWebhook)

	return r
}

func (m *Module) handleSelectPlan(w http.ResponseWriter, r *http.Request) {
	ctx, p, err := m.withPrincipal(r)
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	sel, err := m.svc.SelectPlan(ctx, p.UserID, chi.URLParam(r, "planID"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if sel.AlreadyActive {
		status = http.StatusOK
	}
	writeJSON(w, status, toSelectionResponse(sel))
}

func (m *Module) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, p, err := m.withPrincipal(r)
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	access, err := m.svc.Status(ctx, p.UserID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccessResponse(access))
}

// handlePostLogin is the login-time check. Unlike handleStatus it may
// activate a pending trial or re-initiate a stalled payment.
func (m *Module) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	ctx, p, err := m.withPrincipal(r)
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	access, err := m.svc.PostLoginStatus(ctx, p.UserID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccessResponse(access))
}

func (m *Module) handleActivate(w http.ResponseWriter, r *http.Request) {
	ctx, p, err := m.withPrincipal(r)
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	access, err := m.svc.ActivatePending(ctx, p.UserID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccessResponse(access))
}

func (m *Module) handleTrial(w http.ResponseWriter, r *http.Request) {
	ctx, p, err := m.withPrincipal(r)
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	trial, err := m.svc.TrialStatus(ctx, p.UserID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrialResponse(trial))
}

func (m *Module) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ctx, p, err := m.withPrincipal(r)
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	sel, err := m.svc.UpgradeExpiredTrial(ctx, p.UserID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSelectionResponse(sel))
}

func (m *Module) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx, _, err := m.withPrincipal(r)
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid subscription id"})
		return
	}

	sub, err := m.svc.Cancel(ctx, id)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// handleVerify is the customer-return leg: the hosted payment page
// redirects back with the reference, and the frontend confirms the
// outcome here regardless of whether the webhook has landed yet.
func (m *Module) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx, _, err := m.withPrincipal(r)
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	sub, err := m.svc.VerifyPayment(ctx, chi.URLParam(r, "reference"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// handleWebhook is unauthenticated by design; the HMAC signature over
// the raw body is the authentication.
func (m *Module) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable payload"})
		return
	}

	outcome, err := m.svc.HandleWebhook(r.Context(), payload, r.Header.Get(paystackSignatureHeader))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, webhookResponse{Outcome: string(outcome)})
}

type selectionResponse struct {
	Subscription    *subscriptionResponse `json:"subscription"`
	AlreadyActive   bool                  `json:"already_active"`
	RequiresPayment bool                  `json:"requires_payment"`
	PaymentURL      string                `json:"payment_url,omitempty"`
}

type subscriptionResponse struct {
	ID            uuid.UUID  `json:"id"`
	PlanID        string     `json:"plan_id"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	IsTrial       bool       `json:"is_trial"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	AutoRenew     bool       `json:"auto_renew"`
}

type accessResponse struct {
	State           string                `json:"state"`
	Allowed         bool                  `json:"allowed"`
	DaysUntilExpiry int                   `json:"days_until_expiry,omitempty"`
	PaymentURL      string                `json:"payment_url,omitempty"`
	NextStep        string                `json:"next_step,omitempty"`
	Subscription    *subscriptionResponse `json:"subscription,omitempty"`
}

type trialResponse struct {
	OnTrial       bool       `json:"on_trial"`
	Expired       bool       `json:"expired"`
	DaysRemaining int        `json:"days_remaining"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
}

type webhookResponse struct {
	Outcome string `json:"outcome"`
}

func toSubscriptionResponse(sub *billing.Subscription) *subscriptionResponse {
	if sub == nil {
		return nil
	}
	return &subscriptionResponse{
		ID:            sub.ID,
		PlanID:        sub.PlanID,
		Status:        string(sub.Status),
		PaymentStatus: string(sub.PaymentStatus),
		IsTrial:       sub.IsTrial,
		StartDate:     sub.StartDate,
		EndDate:       sub.EndDate,
		AutoRenew:     sub.AutoRenew,
	}
}

func toSelectionResponse(sel *billing.PlanSelection) selectionResponse {
	return selectionResponse{
		Subscription:    toSubscriptionResponse(sel.Subscription),
		AlreadyActive:   sel.AlreadyActive,
		RequiresPayment: sel.RequiresPayment,
		PaymentURL:      sel.PaymentURL,
	}
}

func toAccessResponse(a *billing.Access) accessResponse {
	return accessResponse{
		State:           string(a.State),
		Allowed:         a.State.Allowed(),
		DaysUntilExpiry: a.DaysUntilExpiry,
		PaymentURL:      a.PaymentURL,
		NextStep:        string(a.NextStep),
		Subscription:    toSubscriptionResponse(a.Subscription),
	}
}

func toTrialResponse(t *billing.TrialStatus) trialResponse {
	return trialResponse{
		OnTrial:       t.OnTrial,
		Expired:       t.Expired,
		DaysRemaining: t.DaysRemaining,
		EndsAt:        t.EndsAt,
	}
}

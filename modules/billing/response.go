package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kaizenhr/billing/pkg/billing"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes. Unknown errors
// become opaque 500s so internals do not leak to clients.
func (m *Module) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, ErrNoPrincipal), errors.Is(err, billing.ErrEmailNotInContext):
		status, msg = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, billing.ErrInvalidSignature):
		status, msg = http.StatusUnauthorized, "invalid webhook signature"
	case errors.Is(err, billing.ErrPlanNotFound):
		status, msg = http.StatusNotFound, "plan not found"
	case errors.Is(err, billing.ErrSubscriptionNotFound):
		status, msg = http.StatusNotFound, "subscription not found"
	case errors.Is(err, billing.ErrNoExpiredTrial):
		status, msg = http.StatusConflict, "no expired trial to upgrade"
	case errors.Is(err, billing.ErrGatewayUnavailable):
		status, msg = http.StatusServiceUnavailable, "payment gateway unavailable, try again"
	case errors.Is(err, billing.ErrGatewayDeclined), errors.Is(err, billing.ErrPaymentRejected):
		status, msg = http.StatusPaymentRequired, "payment was not accepted"
	}

	if status >= http.StatusInternalServerError {
		m.log.ErrorContext(r.Context(), "billing request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		m.log.DebugContext(r.Context(), "billing request rejected",
			"method", r.Method, "path", r.URL.Path, "status", status,
			slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody{Error: msg})
}

package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	billingsvc "github.com/dmitrymomot/tenantkit/pkg/billing"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/membership"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// CurrentUserFunc extracts the authenticated user id plus profile fields
// needed for customer provisioning.
type CurrentUserFunc func(r *http.Request) (id uuid.UUID, email, name string, err error)

// RouterOptions configures the billing module.
type RouterOptions struct {
	Billing     *billingsvc.Service
	Guard       *membership.Guard
	CurrentUser CurrentUserFunc
	Logger      *slog.Logger
}

// Router creates the billing API router. Routes operate on the tenant
// resolved for the request host; the caller must be a member.
//
//	r.Mount("/billing", billing.Router(billing.RouterOptions{
//	    Billing:     billingSvc,
//	    Guard:       guard,
//	    CurrentUser: authUser,
//	}))
//
// The webhook endpoint is mounted separately and unauthenticated:
//
//	r.Handle("/webhooks/billing", billingsvc.NewWebhookHandler(billingSvc, log))
func Router(opts RouterOptions) chi.Router {
	if opts.Billing == nil {
		panic("billing: billing service is required")
	}
	if opts.Guard == nil {
		panic("billing: guard is required")
	}
	if opts.CurrentUser == nil {
		panic("billing: current user func is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.New(logger.WithAttr(slog.String("module", "billing")))
	}

	h := &handlers{
		billing:     opts.Billing,
		guard:       opts.Guard,
		currentUser: opts.CurrentUser,
		log:         opts.Logger,
	}

	r := chi.NewRouter()
	r.Get("/customer", h.customer)
	r.Get("/subscriptions", h.subscriptions)
	r.Get("/plans", h.plans)
	r.Post("/checkout", h.checkout)
	r.Post("/portal", h.portal)
	return r
}

type handlers struct {
	billing     *billingsvc.Service
	guard       *membership.Guard
	currentUser CurrentUserFunc
	log         *slog.Logger
}

// authorize resolves the caller and the request tenant and verifies
// membership. On failure it writes the response and returns ok=false.
func (h *handlers) authorize(w http.ResponseWriter, r *http.Request) (userID, tenantID uuid.UUID, email, name string, ok bool) {
	userID, email, name, err := h.currentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, uuid.Nil, "", "", false
	}
	t, found := tenant.FromContext(r.Context())
	if !found {
		writeError(w, http.StatusNotFound, "no tenant resolved for this host")
		return uuid.Nil, uuid.Nil, "", "", false
	}
	if err := h.guard.RequireAccess(r.Context(), userID, t.ID); err != nil {
		h.fail(w, r, err)
		return uuid.Nil, uuid.Nil, "", "", false
	}
	return userID, t.ID, email, name, true
}

type customerResponse struct {
	CustomerID    string `json:"customer_id"`
	Email         string `json:"email"`
	ProviderEmail string `json:"provider_email,omitempty"`
	ProviderLive  bool   `json:"provider_live"`
}

func (h *handlers) customer(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, _, _, ok := h.authorize(w, r)
	if !ok {
		return
	}
	state, err := h.billing.GetCustomerState(r.Context(), userID, tenantID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := customerResponse{
		CustomerID: state.Customer.CustomerID,
		Email:      state.Customer.Email,
	}
	if state.Provider != nil {
		resp.ProviderLive = true
		resp.ProviderEmail = state.Provider.Email
	}
	writeJSON(w, http.StatusOK, resp)
}

type subscriptionResponse struct {
	SubscriptionID     string     `json:"subscription_id"`
	Status             string     `json:"status"`
	Active             bool       `json:"active"`
	PriceID            string     `json:"price_id"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
}

func (h *handlers) subscriptions(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, _, _, ok := h.authorize(w, r)
	if !ok {
		return
	}
	subs, err := h.billing.GetUserSubscriptions(r.Context(), userID, tenantID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]subscriptionResponse, 0, len(subs))
	for i := range subs {
		s := &subs[i]
		out = append(out, subscriptionResponse{
			SubscriptionID:     s.SubscriptionID,
			Status:             string(s.Status),
			Active:             s.IsActive(),
			PriceID:            s.PriceID,
			CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
			CurrentPeriodStart: s.CurrentPeriodStart,
			CurrentPeriodEnd:   s.CurrentPeriodEnd,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"plans": h.billing.PlanSlugs()})
}

type checkoutRequest struct {
	Plan       string `json:"plan"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

func (h *handlers) checkout(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, email, name, ok := h.authorize(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.billing.CreateCheckoutSession(r.Context(), billingsvc.CheckoutInput{
		UserID:     userID,
		TenantID:   tenantID,
		Email:      email,
		Name:       name,
		PlanSlug:   req.Plan,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

type portalRequest struct {
	ReturnURL string `json:"return_url"`
}

func (h *handlers) portal(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, _, _, ok := h.authorize(w, r)
	if !ok {
		return
	}
	var req portalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.billing.CreatePortalSession(r.Context(), userID, tenantID, req.ReturnURL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, billingsvc.ErrUnknownPlan):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, membership.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, billingsvc.ErrCustomerNotFound), errors.Is(err, billingsvc.ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.log.ErrorContext(r.Context(), "billing request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

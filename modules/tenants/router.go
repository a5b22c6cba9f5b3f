package tenants

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/membership"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// CurrentUserFunc extracts the authenticated user id from the request.
// It is supplied by the host application's auth layer.
type CurrentUserFunc func(r *http.Request) (uuid.UUID, error)

// RouterOptions configures the tenants module.
type RouterOptions struct {
	Tenants     *tenant.Service
	Members     *membership.Service
	Guard       *membership.Guard
	CurrentUser CurrentUserFunc
	Logger      *slog.Logger
}

// Router creates the tenant management API router. All routes require an
// authenticated user; mutation routes additionally require a role on the
// target tenant.
//
//	r.Mount("/tenants", tenants.Router(tenants.RouterOptions{
//	    Tenants:     tenantSvc,
//	    Members:     memberSvc,
//	    Guard:       guard,
//	    CurrentUser: authUser,
//	}))
func Router(opts RouterOptions) chi.Router {
	if opts.Tenants == nil {
		panic("tenants: tenant service is required")
	}
	if opts.Members == nil {
		panic("tenants: membership service is required")
	}
	if opts.Guard == nil {
		panic("tenants: guard is required")
	}
	if opts.CurrentUser == nil {
		panic("tenants: current user func is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.New(logger.WithAttr(slog.String("module", "tenants")))
	}

	h := &handlers{
		tenants:     opts.Tenants,
		members:     opts.Members,
		guard:       opts.Guard,
		currentUser: opts.CurrentUser,
		log:         opts.Logger,
	}

	r := chi.NewRouter()
	r.Get("/current", h.current)
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{tenantID}", func(r chi.Router) {
		r.Patch("/", h.update)
		r.Delete("/", h.delete)
		r.Get("/members", h.listMembers)
		r.Post("/members", h.addMember)
		r.Patch("/members/{userID}", h.updateMemberRole)
		r.Delete("/members/{userID}", h.removeMember)
	})
	return r
}

type handlers struct {
	tenants     *tenant.Service
	members     *membership.Service
	guard       *membership.Guard
	currentUser CurrentUserFunc
	log         *slog.Logger
}

type tenantResponse struct {
	ID           uuid.UUID `json:"id"`
	Subdomain    string    `json:"subdomain"`
	CustomDomain string    `json:"custom_domain,omitempty"`
	Name         string    `json:"name"`
	Active       bool      `json:"active"`
}

func toTenantResponse(t *tenant.Tenant) tenantResponse {
	return tenantResponse{
		ID:           t.ID,
		Subdomain:    t.Subdomain,
		CustomDomain: t.CustomDomain,
		Name:         t.Name,
		Active:       t.Active,
	}
}

type memberResponse struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   membership.Role `json:"role"`
}

// current returns the tenant resolved for the request host, 404 when the
// host does not map to one.
func (h *handlers) current(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no tenant resolved for this host")
		return
	}
	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	memberships, err := h.members.TenantsForUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberships)
}

type createTenantRequest struct {
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	CustomDomain string `json:"custom_domain"`
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.tenants.CreateTenant(r.Context(), req.Name, req.Subdomain, userID, req.CustomDomain)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTenantResponse(t))
}

type updateTenantRequest struct {
	Name         *string `json:"name"`
	Subdomain    *string `json:"subdomain"`
	CustomDomain *string `json:"custom_domain"`
	Active       *bool   `json:"active"`
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.authorize(w, r, membership.RoleAdmin)
	if !ok {
		return
	}

	var req updateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.tenants.UpdateTenant(r.Context(), tenantID, tenant.UpdateParams{
		Name:         req.Name,
		Subdomain:    req.Subdomain,
		CustomDomain: req.CustomDomain,
		Active:       req.Active,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.authorize(w, r, membership.RoleOwner)
	if !ok {
		return
	}
	if err := h.tenants.DeleteTenant(r.Context(), tenantID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listMembers(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.authorize(w, r, membership.RoleMember)
	if !ok {
		return
	}
	members, err := h.members.MembersOfTenant(r.Context(), tenantID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{UserID: m.UserID, Role: m.Role})
	}
	writeJSON(w, http.StatusOK, out)
}

type addMemberRequest struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   membership.Role `json:"role"`
}

func (h *handlers) addMember(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.authorize(w, r, membership.RoleAdmin)
	if !ok {
		return
	}
	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := h.members.AddUser(r.Context(), req.UserID, tenantID, req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, memberResponse{UserID: m.UserID, Role: m.Role})
}

type updateRoleRequest struct {
	Role membership.Role `json:"role"`
}

func (h *handlers) updateMemberRole(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.authorize(w, r, membership.RoleOwner)
	if !ok {
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := h.members.UpdateRole(r.Context(), targetID, tenantID, req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{UserID: m.UserID, Role: m.Role})
}

func (h *handlers) removeMember(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.authorize(w, r, membership.RoleAdmin)
	if !ok {
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.members.RemoveUser(r.Context(), targetID, tenantID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorize resolves the caller and checks they hold at least the required
// role on the tenant from the URL. On failure it writes the response and
// returns ok=false.
func (h *handlers) authorize(w http.ResponseWriter, r *http.Request, required membership.Role) (userID, tenantID uuid.UUID, ok bool) {
	userID, err := h.currentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, uuid.Nil, false
	}
	tenantID, err = uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return uuid.Nil, uuid.Nil, false
	}
	if err := h.guard.RequireRole(r.Context(), userID, tenantID, required); err != nil {
		h.fail(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, tenantID, true
}

// fail maps domain errors onto HTTP statuses.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tenant.ErrInvalidSubdomain), errors.Is(err, membership.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, membership.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, tenant.ErrTenantNotFound), errors.Is(err, membership.ErrNotMember):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, tenant.ErrSubdomainTaken), errors.Is(err, tenant.ErrCustomDomainTaken),
		errors.Is(err, membership.ErrAlreadyMember):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "tenant request failed", slog.Any("error", err))
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

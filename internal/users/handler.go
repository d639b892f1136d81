package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-ops/meridian/internal/audit"
	"github.com/meridian-ops/meridian/internal/platform/httpx"
	"github.com/meridian-ops/meridian/internal/sessions"
	"github.com/meridian-ops/meridian/internal/shared"
)

// Handler wires the user administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Post("/", h.createUser)
	r.Get("/search", h.searchUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", h.getUser)
		r.Put("/", h.updateUser)
		r.Delete("/", h.deleteUser)
		r.Put("/password", h.changePassword)
		r.Get("/permissions", h.getPermissions)
		r.Put("/preferences", h.updatePreferences)
		r.Get("/audit-log", h.getAuditLog)
		r.Get("/sessions", h.listSessions)
		r.Delete("/sessions", h.terminateSessions)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	userList, err := h.service.List(r.Context(), principal)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": NewProfiles(userList)})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	created, err := h.service.Create(r.Context(), principal, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"user": NewProfile(*created)})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	principal, targetID, ok := h.principalAndTarget(w, r)
	if !ok {
		return
	}
	u, err := h.service.Get(r.Context(), principal, targetID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": NewProfile(*u)})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	principal, targetID, ok := h.principalAndTarget(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	updated, err := h.service.Update(r.Context(), principal, targetID, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": NewProfile(*updated)})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	principal, targetID, ok := h.principalAndTarget(w, r)
	if !ok {
		return
	}
	hard := r.URL.Query().Get("hard") == "true"
	if err := h.service.Delete(r.Context(), principal, targetID, hard); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true, "hard": hard})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	principal, targetID, ok := h.principalAndTarget(w, r)
	if !ok {
		return
	}
	var in PasswordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if err := h.service.ChangePassword(r.Context(), principal, targetID, in); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "password_changed"})
}

func (h *Handler) getPermissions(w http.ResponseWriter, r *http.Request) {
	principal, targetID, ok := h.principalAndTarget(w, r)
	if !ok {
		return
	}
	perms, err := h.service.Permissions(r.Context(), principal, targetID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if perms == nil {
		perms = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	principal, targetID, ok := h.principalAndTarget(w, r)
	if !ok {
		return
	}
	var prefs map[string]any
	if err := httpx.DecodeJSON(r, &prefs); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.UpdatePreferences(r.Context(), principal, targetID, prefs); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"preferences": prefs})
}

func (h *Handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	q := r.URL.Query()
	criteria := SearchCriteria{
		Username: q.Get("username"),
		Email:    q.Get("email"),
		Name:     q.Get("name"),
		Status:   Status(q.Get("status")),
		Limit:    intParam(q.Get("limit")),
		Offset:   intParam(q.Get("offset")),
	}
	if raw := q.Get("role_id"); raw != "" {
		roleID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid role_id")
			return
		}
		criteria.RoleID = roleID
	}
	rows, page, err := h.service.Search(r.Context(), principal, criteria)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": NewProfiles(rows), "pagination": page})
}

func (h *Handler) getAuditLog(w http.ResponseWriter, r *http.Request) {
	principal, targetID, ok := h.principalAndTarget(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	entries, page, err := h.service.AuditLog(r.Context(), principal, targetID, intParam(q.Get("limit")), intParam(q.Get("offset")))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries, "pagination": page})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	principal, targetID, ok := h.principalAndTarget(w, r)
	if !ok {
		return
	}
	list, err := h.service.Sessions(r.Context(), principal, targetID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if list == nil {
		list = []sessions.Session{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sessions": list, "count": len(list)})
}

func (h *Handler) terminateSessions(w http.ResponseWriter, r *http.Request) {
	principal, targetID, ok := h.principalAndTarget(w, r)
	if !ok {
		return
	}
	terminated, err := h.service.TerminateSessions(r.Context(), principal, targetID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"terminated": terminated})
}

func (h *Handler) principalAndTarget(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return 0, 0, false
	}
	targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || targetID <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid user id")
		return 0, 0, false
	}
	return principal, targetID, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSelfDelete), errors.Is(err, shared.ErrForbidden):
		httpx.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "user not found")
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrHasDependents):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrWrongPassword), errors.Is(err, ErrPasswordPolicy), errors.Is(err, ErrInvalidStatus):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	default:
		if h.logger != nil {
			h.logger.Error("user operation failed", slog.Any("error", err))
		}
		httpx.Internal(w)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "validation failed on field " + verrs[0].Field()
	}
	return "validation failed"
}

func intParam(raw string) int {
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

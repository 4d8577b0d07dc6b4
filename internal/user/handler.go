package user

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/utilities"
)

// Handler exposes user management endpoints. Capability gating happens in the router.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users := h.svc.List()
	out := make([]entity.PublicUser, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req NewUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid user payload", "err", err)
		utilities.WriteError(w, r, apperr.Validation("Invalid payload", err.Error()))
		return
	}
	u, err := h.svc.Add(req)
	if err != nil {
		h.logger.Warnw("add user failed", "username", req.Username, "err", err)
		utilities.WriteError(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, u.Public())
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req Update
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid user payload", "err", err)
		utilities.WriteError(w, r, apperr.Validation("Invalid payload", err.Error()))
		return
	}
	u, err := h.svc.Update(r.PathValue("username"), req)
	if err != nil {
		h.logger.Warnw("update user failed", "username", r.PathValue("username"), "err", err)
		utilities.WriteError(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, u.Public())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.PathValue("username")); err != nil {
		h.logger.Warnw("delete user failed", "username", r.PathValue("username"), "err", err)
		utilities.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

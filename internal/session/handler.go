package session

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/utilities"
)

// SubscriberLister reports the subscribers a principal can see in the working table.
type SubscriberLister interface {
	AccessibleSubscribers(p access.Principal) []string
}

// Handler exposes login, logout and the current session.
type Handler struct {
	mgr    *Manager
	subs   SubscriberLister
	logger *zap.SugaredLogger
}

func NewHandler(mgr *Manager, subs SubscriberLister, logger *zap.SugaredLogger) *Handler {
	return &Handler{mgr: mgr, subs: subs, logger: logger}
}

// LoginRequest login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token       string              `json:"token"`
	TokenType   string              `json:"token_type"`
	ExpiresIn   int                 `json:"expires_in"`
	User        entity.PublicUser   `json:"user"`
	Permissions access.Capabilities `json:"permissions"`
}

type MeResponse struct {
	User                  entity.PublicUser   `json:"user"`
	Permissions           access.Capabilities `json:"permissions"`
	AccessibleSubscribers []string            `json:"accessible_subscribers"`
	CurrentCustomer       string              `json:"current_customer,omitempty"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		utilities.WriteError(w, r, apperr.Validation("Invalid payload", err.Error()))
		return
	}
	s, token, err := h.mgr.Login(req.Username, req.Password)
	if err != nil {
		h.logger.Debugw("login failed", "username", req.Username, "err", err)
		utilities.WriteError(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:       token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.mgr.tokens.TTL().Seconds()),
		User:        s.User,
		Permissions: s.Permissions,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, r, apperr.Unauthenticated())
		return
	}
	h.mgr.Logout(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, r, apperr.Unauthenticated())
		return
	}
	subs := h.subs.AccessibleSubscribers(s.Principal())
	if subs == nil {
		subs = []string{}
	}
	utilities.WriteJSON(w, http.StatusOK, MeResponse{
		User:                  s.User,
		Permissions:           s.Permissions,
		AccessibleSubscribers: subs,
		CurrentCustomer:       s.CurrentCustomer(),
	})
}

package profile

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/utilities"
)

// Handler exposes the customer grid, row mutations, history, export and the
// score dashboard. It expects the auth middleware to have attached a session;
// capability gates are applied by the router.
type Handler struct {
	store  *Store
	logger *zap.SugaredLogger
}

func NewHandler(store *Store, logger *zap.SugaredLogger) *Handler {
	return &Handler{store: store, logger: logger}
}

// noDataActions are offered when a customer has no visible rows.
var noDataActions = []string{"create_first_row", "search_again"}

type CustomerListResponse struct {
	Customers []string `json:"customers"`
	Total     int      `json:"total"`
}

type CustomerResponse struct {
	CustomerID string       `json:"customer_id"`
	NoData     bool         `json:"no_data"`
	Rows       []IndexedRow `json:"rows"`
	Summary    *Summary     `json:"summary,omitempty"`
	Actions    []string     `json:"actions,omitempty"`
}

type AddRowRequest struct {
	SubscriberID string `json:"subscriber_id"`
}

type UpdateRowsRequest struct {
	Rows []RowEdit `json:"rows"`
}

type HistoryResponse struct {
	Changed bool  `json:"changed"`
	Depth   Depth `json:"depth"`
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, r, apperr.Unauthenticated())
	}
	return s, ok
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	if apperr.As(err).Code == apperr.CodePermissionDenied {
		metrics.PermissionDenials.WithLabelValues(action).Inc()
		h.logger.Warnw("action refused", "action", action, "err", err)
	} else {
		h.logger.Debugw("action failed", "action", action, "err", err)
	}
	utilities.WriteError(w, r, err)
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ids := h.store.SearchCustomers(r.URL.Query().Get("q"), s.Principal())
	utilities.WriteJSON(w, http.StatusOK, CustomerListResponse{Customers: ids, Total: len(ids)})
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	s.SelectCustomer(id)
	rows := h.store.CustomerRows(id, s.Principal())
	if len(rows) == 0 {
		utilities.WriteJSON(w, http.StatusOK, CustomerResponse{CustomerID: id, NoData: true, Rows: []IndexedRow{}, Actions: noDataActions})
		return
	}
	summary := Summarize(products(rows), h.store.Today())
	utilities.WriteJSON(w, http.StatusOK, CustomerResponse{CustomerID: id, Rows: rows, Summary: &summary})
}

func (h *Handler) AddRow(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AddRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, "add_row", apperr.Validation("Invalid payload", err.Error()))
		return
	}
	p := s.Principal()
	row, err := h.store.AddRow(r.PathValue("id"), req.SubscriberID, &p)
	metrics.ProfileMutations.WithLabelValues("add", metrics.Result(err)).Inc()
	if err != nil {
		h.fail(w, r, "add_row", err)
		return
	}
	h.trackDepth()
	utilities.WriteJSON(w, http.StatusCreated, row)
}

func (h *Handler) UpdateRows(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req UpdateRowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, "update_rows", apperr.Validation("Invalid payload", err.Error()))
		return
	}
	p := s.Principal()
	res, err := h.store.UpdateRows(r.PathValue("id"), req.Rows, &p)
	metrics.ProfileMutations.WithLabelValues("update", metrics.Result(err)).Inc()
	if err != nil {
		h.fail(w, r, "update_rows", err)
		return
	}
	if len(res.Skipped) > 0 {
		metrics.PermissionDenials.WithLabelValues("update_rows").Add(float64(len(res.Skipped)))
	}
	h.trackDepth()
	utilities.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.fail(w, r, "delete_row", apperr.Validation("Invalid row index", r.PathValue("index")).Wrap(ErrRowIndex))
		return
	}
	p := s.Principal()
	err = h.store.DeleteRow(r.PathValue("id"), index, &p)
	metrics.ProfileMutations.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		h.fail(w, r, "delete_row", err)
		return
	}
	h.trackDepth()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	changed := h.store.Undo()
	h.trackDepth()
	utilities.WriteJSON(w, http.StatusOK, HistoryResponse{Changed: changed, Depth: h.store.Depth()})
}

func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	changed := h.store.Redo()
	h.trackDepth()
	utilities.WriteJSON(w, http.StatusOK, HistoryResponse{Changed: changed, Depth: h.store.Depth()})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	err := h.store.Reload(r.Context())
	metrics.ProfileMutations.WithLabelValues("refresh", metrics.Result(err)).Inc()
	if err != nil {
		h.logger.Warnw("refresh failed", "err", err)
		utilities.WriteError(w, r, err)
		return
	}
	h.trackDepth()
	utilities.WriteJSON(w, http.StatusOK, HistoryResponse{Changed: true, Depth: h.store.Depth()})
}

func (h *Handler) HistoryDepth(w http.ResponseWriter, r *http.Request) {
	utilities.WriteJSON(w, http.StatusOK, h.store.Depth())
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view := h.store.View(s.Principal())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, view); err != nil {
		h.logger.Warnw("export aborted", "err", err)
	}
	h.logger.Infow("profiles exported", "rows", len(view.Rows), "username", s.User.Username)
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	utilities.WriteJSON(w, http.StatusOK, NewOverview(h.store.View(s.Principal())))
}

func (h *Handler) trackDepth() {
	metrics.UndoDepth.Set(float64(h.store.Depth().Undo))
}

func products(rows []IndexedRow) []entity.CreditProduct {
	out := make([]entity.CreditProduct, len(rows))
	for i, r := range rows {
		out[i] = r.CreditProduct
	}
	return out
}

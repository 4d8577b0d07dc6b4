package profile

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/scoring"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user"
	userentity "github.com/ovaphlow/pitchfork/service-credit-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/utilities"
)

type directory map[string]userentity.User

func (d directory) Authenticate(username, _ string) (userentity.User, error) {
	u, ok := d[username]
	if !ok {
		return userentity.User{}, user.ErrBadCredentials
	}
	return u, nil
}

func principalUser(p *access.Principal) userentity.User {
	return userentity.User{Username: p.Username, Role: p.Role, SubscriberIDs: p.SubscriberIDs}
}

type testServer struct {
	store *Store
	mux   *http.ServeMux
	sess  *session.Session
}

// newTestServer routes the handler with the session of p attached to every request.
func newTestServer(t *testing.T, p *access.Principal) *testServer {
	t.Helper()
	store := newStore(t)
	users := directory{p.Username: principalUser(p)}
	mgr := session.NewManager(users, store, session.NewTokenIssuer("test-secret", time.Hour), session.Config{HistorySeed: 3}, nil)
	sess, _, err := mgr.Login(p.Username, "pw")
	require.NoError(t, err)

	h := NewHandler(store, zap.NewNop().Sugar())
	inner := http.NewServeMux()
	inner.HandleFunc("GET /customers", h.ListCustomers)
	inner.HandleFunc("GET /customers/{id}", h.GetCustomer)
	inner.HandleFunc("POST /customers/{id}/rows", h.AddRow)
	inner.HandleFunc("PUT /customers/{id}/rows", h.UpdateRows)
	inner.HandleFunc("DELETE /customers/{id}/rows/{index}", h.DeleteRow)
	inner.HandleFunc("GET /customers/{id}/score", h.Score)
	inner.HandleFunc("GET /customers/{id}/simulation", h.GetSimulation)
	inner.HandleFunc("PUT /customers/{id}/simulation", h.UpdateSimulation)
	inner.HandleFunc("DELETE /customers/{id}/simulation", h.ResetSimulation)
	inner.HandleFunc("GET /customers/{id}/plan", h.Plan)
	inner.HandleFunc("POST /undo", h.Undo)
	inner.HandleFunc("POST /redo", h.Redo)
	inner.HandleFunc("GET /history-depth", h.HistoryDepth)
	inner.HandleFunc("GET /export", h.Export)
	inner.HandleFunc("GET /overview", h.Overview)

	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	}))
	return &testServer{store: store, mux: mux, sess: sess}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandler_GetCustomerFiltersRows(t *testing.T) {
	ts := newTestServer(t, manager1)

	rec := ts.do(t, http.MethodGet, "/customers/CUST001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CustomerResponse](t, rec)
	assert.False(t, resp.NoData)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, 0, resp.Rows[0].Index)
	assert.Equal(t, 1, resp.Rows[1].Index)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, 2, resp.Summary.Products)
	assert.Equal(t, "CUST001", ts.sess.CurrentCustomer())
}

func TestHandler_GetCustomerWithoutRowsIsNoData(t *testing.T) {
	ts := newTestServer(t, manager1)

	rec := ts.do(t, http.MethodGet, "/customers/CUST999", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CustomerResponse](t, rec)
	assert.True(t, resp.NoData)
	assert.Empty(t, resp.Rows)
	assert.Nil(t, resp.Summary)
	assert.Equal(t, []string{"create_first_row", "search_again"}, resp.Actions)
}

func TestHandler_ListCustomersSearch(t *testing.T) {
	ts := newTestServer(t, admin)

	resp := decode[CustomerListResponse](t, ts.do(t, http.MethodGet, "/customers?q=cust00", ""))
	assert.Equal(t, 5, resp.Total)

	resp = decode[CustomerListResponse](t, ts.do(t, http.MethodGet, "/customers?q=003", ""))
	assert.Equal(t, []string{"CUST003"}, resp.Customers)
}

func TestHandler_DeleteForeignRowIsForbidden(t *testing.T) {
	ts := newTestServer(t, manager1)
	before := ts.store.Table()

	rec := ts.do(t, http.MethodDelete, "/customers/CUST001/rows/2", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode[utilities.ErrorResponse](t, rec)
	assert.Equal(t, "You don't have permission to delete this record.", body.Message)
	assert.Equal(t, before, ts.store.Table())

	rec = ts.do(t, http.MethodDelete, "/customers/CUST001/rows/x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_MutationsAndUndo(t *testing.T) {
	ts := newTestServer(t, admin)

	rec := ts.do(t, http.MethodPost, "/customers/CUST002/rows", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "NEW8", decode[map[string]any](t, rec)["account_number"])

	rec = ts.do(t, http.MethodDelete, "/customers/CUST001/rows/0", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, Depth{Undo: 2}, decode[Depth](t, ts.do(t, http.MethodGet, "/history-depth", "")))

	resp := decode[HistoryResponse](t, ts.do(t, http.MethodPost, "/undo", ""))
	assert.True(t, resp.Changed)
	assert.Equal(t, Depth{Undo: 1, Redo: 1}, resp.Depth)
	assert.Len(t, ts.store.GetCustomerRows("CUST001"), 3)

	resp = decode[HistoryResponse](t, ts.do(t, http.MethodPost, "/redo", ""))
	assert.True(t, resp.Changed)
	assert.Len(t, ts.store.GetCustomerRows("CUST001"), 2)

	resp = decode[HistoryResponse](t, ts.do(t, http.MethodPost, "/redo", ""))
	assert.False(t, resp.Changed)
}

func TestHandler_UpdateRowsReportsSkipped(t *testing.T) {
	ts := newTestServer(t, manager1)
	rows := ts.store.GetCustomerRows("CUST001")
	own, foreign := rows[0].CreditProduct, rows[2].CreditProduct
	own.CurrentBalance = 900
	foreign.CurrentBalance = 1

	payload, err := json.Marshal(UpdateRowsRequest{Rows: []RowEdit{{Index: 0, Row: own}, {Index: 2, Row: foreign}}})
	require.NoError(t, err)
	rec := ts.do(t, http.MethodPut, "/customers/CUST001/rows", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[UpdateResult](t, rec)
	assert.Equal(t, []int{0}, res.Applied)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Index)
	assert.Equal(t, 900.0, ts.store.GetCustomerRows("CUST001")[0].CurrentBalance)

	rec = ts.do(t, http.MethodPut, "/customers/CUST001/rows", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Score(t *testing.T) {
	ts := newTestServer(t, admin)

	rec := ts.do(t, http.MethodGet, "/customers/CUST001/score", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ScoreResponse](t, rec)
	require.NotNil(t, resp.Score)

	want, err := scoring.Score(products(ts.store.GetCustomerRows("CUST001")), ts.store.Today())
	require.NoError(t, err)
	assert.Equal(t, want.Total, resp.Score.Total)
	assert.Equal(t, want.Category, resp.Score.Category)
	require.Len(t, resp.History, scoring.DefaultHistoryPeriods)
	assert.Equal(t, scoring.ScoreChange(resp.History), resp.ScoreChange)

	again := decode[ScoreResponse](t, ts.do(t, http.MethodGet, "/customers/CUST001/score", ""))
	assert.Equal(t, resp.History, again.History)

	none := decode[ScoreResponse](t, ts.do(t, http.MethodGet, "/customers/CUST999/score", ""))
	assert.True(t, none.NoData)
	assert.Nil(t, none.Score)
}

func TestHandler_Simulation(t *testing.T) {
	ts := newTestServer(t, admin)

	view := decode[SimulationResponse](t, ts.do(t, http.MethodGet, "/customers/CUST001/simulation", "")).Simulation
	assert.Equal(t, scoring.DefaultTarget, view.Target)
	assert.Equal(t, view.CurrentScore, view.SimulatedScore)

	rec := ts.do(t, http.MethodPut, "/customers/CUST001/simulation", `{"target":150,"components":{"Credit Mix":99}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[SimulationResponse](t, rec).Simulation
	assert.Equal(t, scoring.MaxScore, view.Target)
	for _, c := range view.Components {
		if c.Name == scoring.CreditMix {
			assert.Equal(t, c.MaxPoints, c.Points)
		}
	}

	rec = ts.do(t, http.MethodPut, "/customers/CUST001/simulation", `{"components":{"Luck":5}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	view = decode[SimulationResponse](t, ts.do(t, http.MethodDelete, "/customers/CUST001/simulation", "")).Simulation
	assert.Equal(t, view.CurrentScore, view.SimulatedScore)
	assert.Equal(t, scoring.MaxScore, view.Target)

	rec = ts.do(t, http.MethodGet, "/customers/CUST999/simulation", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Plan(t *testing.T) {
	ts := newTestServer(t, admin)

	plan := decode[scoring.Plan](t, ts.do(t, http.MethodGet, "/customers/CUST001/plan?target=0", ""))
	assert.True(t, plan.Reached)
	assert.Empty(t, plan.Recommendations)

	plan = decode[scoring.Plan](t, ts.do(t, http.MethodGet, "/customers/CUST001/plan", ""))
	assert.Equal(t, scoring.DefaultTarget, plan.Target)

	rec := ts.do(t, http.MethodGet, "/customers/CUST001/plan?target=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ExportUsesVisibleRows(t *testing.T) {
	ts := newTestServer(t, manager1)

	rec := ts.do(t, http.MethodGet, "/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "credit_profiles.csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1+len(ts.store.View(*manager1).Rows))
	for _, r := range records[1:] {
		assert.Contains(t, manager1.SubscriberIDs, r[len(r)-1])
	}
}

func TestHandler_Overview(t *testing.T) {
	ts := newTestServer(t, admin)

	o := decode[Overview](t, ts.do(t, http.MethodGet, "/overview", ""))
	assert.Equal(t, Overview{Customers: 5, Products: 7, ActiveProducts: 5, TotalCreditLimit: 341000}, o)
}

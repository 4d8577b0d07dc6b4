package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/scoring"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/utilities"
)

type ScoreResponse struct {
	CustomerID  string                 `json:"customer_id"`
	NoData      bool                   `json:"no_data"`
	Score       *scoring.Result        `json:"score,omitempty"`
	History     []scoring.HistoryPoint `json:"history,omitempty"`
	ScoreChange int                    `json:"score_change"`
}

type SimulationRequest struct {
	Target     *int                          `json:"target"`
	Components map[scoring.ComponentName]int `json:"components"`
}

type SimulationResponse struct {
	CustomerID string                 `json:"customer_id"`
	Simulation scoring.SimulationView `json:"simulation"`
}

// score evaluates the customer's visible rows. ok is false when there are none.
func (h *Handler) score(s *session.Session, customerID string) (scoring.Result, bool, error) {
	rows := h.store.CustomerRows(customerID, s.Principal())
	start := time.Now()
	res, err := scoring.Score(products(rows), h.store.Today())
	metrics.ScoreDuration.Observe(time.Since(start).Seconds())
	if errors.Is(err, scoring.ErrNoProducts) {
		return res, false, nil
	}
	return res, err == nil, err
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	res, found, err := h.score(s, id)
	if err != nil {
		utilities.WriteError(w, r, err)
		return
	}
	if !found {
		utilities.WriteJSON(w, http.StatusOK, ScoreResponse{CustomerID: id, NoData: true})
		return
	}
	history := s.History(id, h.store.Today().Time)
	h.logger.Debugw("score computed", "customer_id", id, "total", res.Total, "username", s.User.Username)
	utilities.WriteJSON(w, http.StatusOK, ScoreResponse{
		CustomerID:  id,
		Score:       &res,
		History:     history,
		ScoreChange: scoring.ScoreChange(history),
	})
}

// simulate loads the current components and runs fn on the session's
// simulation for the customer, writing the resulting view.
func (h *Handler) simulate(w http.ResponseWriter, r *http.Request, fn func(*scoring.Simulation) error) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	res, found, err := h.score(s, id)
	if err != nil {
		utilities.WriteError(w, r, err)
		return
	}
	if !found {
		utilities.WriteError(w, r, apperr.NotFound("No credit products for customer "+id))
		return
	}
	var view scoring.SimulationView
	err = s.WithSimulation(id, func(sim *scoring.Simulation) error {
		if err := fn(sim); err != nil {
			return err
		}
		view = sim.View(res.Components)
		return nil
	})
	if err != nil {
		utilities.WriteError(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, SimulationResponse{CustomerID: id, Simulation: view})
}

func (h *Handler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	h.simulate(w, r, func(*scoring.Simulation) error { return nil })
}

func (h *Handler) UpdateSimulation(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utilities.WriteError(w, r, apperr.Validation("Invalid payload", err.Error()))
		return
	}
	h.simulate(w, r, func(sim *scoring.Simulation) error {
		for name := range req.Components {
			if name.MaxPoints() == 0 {
				return apperr.Validation("Unknown score component", string(name))
			}
		}
		if req.Target != nil {
			sim.SetTarget(*req.Target)
		}
		for name, points := range req.Components {
			_ = sim.Set(name, points)
		}
		return nil
	})
}

// ResetSimulation sets every component back to its current points.
func (h *Handler) ResetSimulation(w http.ResponseWriter, r *http.Request) {
	h.simulate(w, r, func(sim *scoring.Simulation) error {
		sim.Reset()
		return nil
	})
}

// Plan ranks improvement actions toward ?target=, defaulting to the
// simulation's target.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	res, found, err := h.score(s, id)
	if err != nil {
		utilities.WriteError(w, r, err)
		return
	}
	if !found {
		utilities.WriteError(w, r, apperr.NotFound("No credit products for customer "+id))
		return
	}
	var target int
	if q := r.URL.Query().Get("target"); q != "" {
		target, err = strconv.Atoi(q)
		if err != nil || target < 0 || target > scoring.MaxScore {
			utilities.WriteError(w, r, apperr.Validation("Invalid target", q))
			return
		}
	} else {
		_ = s.WithSimulation(id, func(sim *scoring.Simulation) error {
			target = sim.Target()
			return nil
		})
	}
	utilities.WriteJSON(w, http.StatusOK, scoring.BuildPlan(res.Components, target))
}

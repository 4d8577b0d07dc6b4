// Package profile owns the in-memory table of credit products: lookup,
// row-level guarded mutation, linear undo/redo history, search and export.
package profile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/entity"
)

// DefaultSubscriberID is assigned to new rows when the actor has no subscribers.
const DefaultSubscriberID = "SUB001"

var ErrRowIndex = errors.New("invalid row index")

// Source loads the working table.
type Source interface {
	Load(ctx context.Context) (entity.Table, error)
}

// IndexedRow is a row with its position among the customer's rows.
type IndexedRow struct {
	Index int `json:"index"`
	entity.CreditProduct
}

// RowEdit replaces the customer's row at Index.
type RowEdit struct {
	Index int                  `json:"index"`
	Row   entity.CreditProduct `json:"row"`
}

// SkippedRow is an edit that was not applied.
type SkippedRow struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type UpdateResult struct {
	Applied []int        `json:"applied"`
	Skipped []SkippedRow `json:"skipped"`
}

// Depth reports the sizes of the undo and redo stacks.
type Depth struct {
	Undo int `json:"undo"`
	Redo int `json:"redo"`
}

// Store holds the working table and its history. Every mutation snapshots
// the whole table onto the undo stack and clears the redo stack.
//
// A nil actor means a trusted caller (CLI, tests) and skips permission checks.
type Store struct {
	mu        sync.Mutex
	table     entity.Table
	undo      []entity.Table
	redo      []entity.Table
	src       Source
	validator *Validator
	logger    *zap.SugaredLogger
	now       func() time.Time
}

type Option func(*Store)

func WithValidator(v *Validator) Option { return func(s *Store) { s.validator = v } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// NewStore loads the initial table from src.
func NewStore(ctx context.Context, src Source, logger *zap.SugaredLogger, opts ...Option) (*Store, error) {
	if src == nil {
		src = SampleSource{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	t, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	s := &Store{table: t, src: src, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Today is the calendar day used for new rows and day-count metrics.
func (s *Store) Today() entity.Date {
	return entity.NewDate(s.now())
}

// Table returns a copy of the full working table.
func (s *Store) Table() entity.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entity.CloneTable(s.table)
}

// View returns the part of the table p may see.
func (s *Store) View(p access.Principal) entity.Table {
	return access.View(s.Table(), p)
}

// AccessibleSubscribers lists the subscribers present in the table that p
// may see, in first-seen order.
func (s *Store) AccessibleSubscribers(p access.Principal) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return access.AccessibleSubscribers(s.table, p.SubscriberIDs, p.IsAdmin())
}

// CustomerIDs lists the distinct customer ids, sorted.
func (s *Store) CustomerIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return customerIDs(s.table.Rows)
}

// VisibleCustomerIDs lists the sorted customer ids p has at least one row for.
func (s *Store) VisibleCustomerIDs(p access.Principal) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := customerIDs(s.table.Rows)
	if p.IsAdmin() {
		return ids
	}
	return access.FilterCustomerIDs(ids, s.table, p.SubscriberIDs)
}

// SearchCustomers matches term case-insensitively as a substring of the
// visible customer ids. An empty term returns them all.
func (s *Store) SearchCustomers(term string, p access.Principal) []string {
	ids := s.VisibleCustomerIDs(p)
	term = strings.ToUpper(strings.TrimSpace(term))
	if term == "" {
		return ids
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.Contains(strings.ToUpper(id), term) {
			out = append(out, id)
		}
	}
	return out
}

// GetCustomerRows returns every row of the customer in table order.
// An unknown customer yields an empty slice.
func (s *Store) GetCustomerRows(customerID string) []IndexedRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []IndexedRow
	for _, r := range s.table.Rows {
		if r.CustomerID == customerID {
			out = append(out, IndexedRow{Index: len(out), CreditProduct: r})
		}
	}
	return out
}

// CustomerRows is GetCustomerRows restricted to what p may see. Indexes keep
// referring to the customer's full row list.
func (s *Store) CustomerRows(customerID string, p access.Principal) []IndexedRow {
	rows := s.GetCustomerRows(customerID)
	if p.IsAdmin() || !s.partitioned() {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		if p.CanAccess(r.SubscriberID) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) partitioned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.HasSubscriberColumn
}

// AddRow appends a placeholder row for the customer. An empty subscriberID
// falls back to the actor's first subscriber, then DefaultSubscriberID.
func (s *Store) AddRow(customerID, subscriberID string, actor *access.Principal) (entity.CreditProduct, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return entity.CreditProduct{}, apperr.Validation("Customer ID is required", "")
	}
	if subscriberID == "" {
		subscriberID = DefaultSubscriberID
		if actor != nil && len(actor.SubscriberIDs) > 0 {
			subscriberID = actor.SubscriberIDs[0]
		}
	}
	if actor != nil {
		if !actor.Capabilities().Edit {
			return entity.CreditProduct{}, apperr.PermissionDenied("You don't have permission to add records.")
		}
		if !actor.CanAccess(subscriberID) {
			return entity.CreditProduct{}, apperr.PermissionDenied(fmt.Sprintf("You don't have access to subscriber %s.", subscriberID))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushLocked()
	today := entity.NewDate(s.now())
	row := entity.CreditProduct{
		CustomerID:      customerID,
		ProductType:     entity.ProductNew,
		AccountNumber:   fmt.Sprintf("NEW%d", len(s.table.Rows)+1),
		OpeningDate:     today,
		LastPaymentDate: today,
		LoanTerm:        12,
		CurrentStatus:   entity.StatusActive,
		SubscriberID:    subscriberID,
	}
	s.table.Rows = append(s.table.Rows, row)
	s.logger.Infow("row added", "customer_id", customerID, "account_number", row.AccountNumber, "subscriber_id", subscriberID, "actor", actorName(actor))
	return row, nil
}

// UpdateRows replaces the customer's rows named by the edits. Rows the actor
// may not touch are skipped and reported; the rest are applied. The update
// is not atomic across rows. All edits are validated before anything changes.
func (s *Store) UpdateRows(customerID string, edits []RowEdit, actor *access.Principal) (UpdateResult, error) {
	if actor != nil && !actor.Capabilities().Edit {
		return UpdateResult{}, apperr.PermissionDenied("You don't have permission to edit records.")
	}
	if s.validator != nil {
		for _, e := range edits {
			row := e.Row
			row.CustomerID = customerID
			if err := s.validator.Validate(row); err != nil {
				return UpdateResult{}, err
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushLocked()

	positions := s.customerPositionsLocked(customerID)
	res := UpdateResult{Applied: []int{}, Skipped: []SkippedRow{}}
	for _, e := range edits {
		if e.Index < 0 || e.Index >= len(positions) {
			res.Skipped = append(res.Skipped, SkippedRow{Index: e.Index, Reason: fmt.Sprintf("Row %d does not exist.", e.Index+1)})
			continue
		}
		pos := positions[e.Index]
		current := s.table.Rows[pos]
		if actor != nil && !actor.IsAdmin() && s.table.HasSubscriberColumn &&
			(!actor.CanAccess(current.SubscriberID) || !actor.CanAccess(e.Row.SubscriberID)) {
			res.Skipped = append(res.Skipped, SkippedRow{Index: e.Index, Reason: fmt.Sprintf("You don't have permission to edit row %d.", e.Index+1)})
			s.logger.Warnw("row edit refused", "customer_id", customerID, "row", e.Index, "subscriber_id", current.SubscriberID, "actor", actorName(actor))
			continue
		}
		row := e.Row
		row.CustomerID = customerID
		s.table.Rows[pos] = row
		res.Applied = append(res.Applied, e.Index)
	}
	s.logger.Infow("rows updated", "customer_id", customerID, "applied", len(res.Applied), "skipped", len(res.Skipped), "actor", actorName(actor))
	return res, nil
}

// DeleteRow removes the customer's row at index. A row outside the actor's
// subscribers rejects the whole operation and leaves the table unchanged.
func (s *Store) DeleteRow(customerID string, index int, actor *access.Principal) error {
	if actor != nil && !actor.Capabilities().Delete {
		return apperr.PermissionDenied("You don't have permission to delete records.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	positions := s.customerPositionsLocked(customerID)
	if index < 0 || index >= len(positions) {
		return apperr.Validation("Invalid row index", fmt.Sprintf("customer %s has %d rows", customerID, len(positions))).Wrap(ErrRowIndex)
	}
	pos := positions[index]
	row := s.table.Rows[pos]
	if actor != nil && !actor.IsAdmin() && s.table.HasSubscriberColumn && !actor.CanAccess(row.SubscriberID) {
		s.logger.Warnw("row delete refused", "customer_id", customerID, "row", index, "subscriber_id", row.SubscriberID, "actor", actorName(actor))
		return apperr.PermissionDenied("You don't have permission to delete this record.")
	}

	s.pushLocked()
	s.table.Rows = slices.Delete(s.table.Rows, pos, pos+1)
	s.logger.Infow("row deleted", "customer_id", customerID, "account_number", row.AccountNumber, "actor", actorName(actor))
	return nil
}

// Reload replaces the table with a fresh load from the source. Undoable.
func (s *Store) Reload(ctx context.Context) error {
	t, err := s.src.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload profiles: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushLocked()
	s.table = t
	s.logger.Infow("profiles reloaded", "rows", len(t.Rows))
	return nil
}

// Undo restores the previous snapshot. It reports false when there is none.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undo) == 0 {
		return false
	}
	s.redo = append(s.redo, s.table)
	s.table = s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	return true
}

// Redo re-applies the last undone snapshot.
func (s *Store) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.redo) == 0 {
		return false
	}
	s.undo = append(s.undo, s.table)
	s.table = s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	return true
}

func (s *Store) Depth() Depth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Depth{Undo: len(s.undo), Redo: len(s.redo)}
}

// ClearHistory drops both stacks; the table itself is kept.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo = nil
	s.redo = nil
}

func (s *Store) pushLocked() {
	s.undo = append(s.undo, entity.CloneTable(s.table))
	s.redo = nil
}

func (s *Store) customerPositionsLocked(customerID string) []int {
	var out []int
	for i, r := range s.table.Rows {
		if r.CustomerID == customerID {
			out = append(out, i)
		}
	}
	return out
}

func customerIDs(rows []entity.CreditProduct) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, r := range rows {
		if _, ok := seen[r.CustomerID]; ok {
			continue
		}
		seen[r.CustomerID] = struct{}{}
		ids = append(ids, r.CustomerID)
	}
	slices.Sort(ids)
	return ids
}

func actorName(p *access.Principal) string {
	if p == nil {
		return "system"
	}
	return p.Username
}

package access

import "slices"

// Scoped is a row partitioned by subscriber and owned by a customer.
type Scoped interface {
	GetSubscriberID() string
	GetCustomerID() string
}

// Table is a row set as seen by the row-level security filter.
//
// HasSubscriberColumn is false when the source carried no subscriber_id column.
// In that case every filter below returns its input unchanged (fail-open).
type Table[T Scoped] struct {
	Rows                []T
	HasSubscriberColumn bool
}

// FilterRows keeps the rows whose subscriber is in allowed, preserving order.
func FilterRows[T Scoped](t Table[T], allowed []string) Table[T] {
	if !t.HasSubscriberColumn {
		return t
	}
	out := make([]T, 0, len(t.Rows))
	for _, r := range t.Rows {
		if slices.Contains(allowed, r.GetSubscriberID()) {
			out = append(out, r)
		}
	}
	return Table[T]{Rows: out, HasSubscriberColumn: true}
}

// FilterCustomerIDs keeps the ids that own at least one row under an allowed
// subscriber, preserving the order of ids.
func FilterCustomerIDs[T Scoped](ids []string, t Table[T], allowed []string) []string {
	if !t.HasSubscriberColumn {
		return ids
	}
	visible := make(map[string]struct{})
	for _, r := range t.Rows {
		if slices.Contains(allowed, r.GetSubscriberID()) {
			visible[r.GetCustomerID()] = struct{}{}
		}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := visible[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// CanAccess is the single-row gate: admins always pass, others need membership.
func CanAccess(subscriberID string, allowed []string, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	return slices.Contains(allowed, subscriberID)
}

// AccessibleSubscribers lists the distinct subscribers present in t that the
// caller may see, in first-seen order. Empty when t is unpartitioned.
func AccessibleSubscribers[T Scoped](t Table[T], allowed []string, isAdmin bool) []string {
	if !t.HasSubscriberColumn {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.Rows {
		id := r.GetSubscriberID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if CanAccess(id, allowed, isAdmin) {
			out = append(out, id)
		}
	}
	return out
}

// View is what a principal is allowed to see of t: everything for admins,
// the filtered table otherwise.
func View[T Scoped](t Table[T], p Principal) Table[T] {
	if p.IsAdmin() {
		return t
	}
	return FilterRows(t, p.SubscriberIDs)
}

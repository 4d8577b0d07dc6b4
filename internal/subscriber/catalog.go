// Package subscriber keeps the catalog of credit providers known to the service.
package subscriber

import (
	"context"
	"fmt"
	"slices"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/subscriber/entity"
)

// Lister is the read side of a subscriber source.
type Lister interface {
	List(ctx context.Context) ([]entity.Subscriber, error)
}

// Catalog is an ordered, read-only set of subscribers.
type Catalog struct {
	subs []entity.Subscriber
}

// DefaultCatalog is used when no database is configured.
func DefaultCatalog() *Catalog {
	return NewCatalog([]entity.Subscriber{
		{ID: "SUB001", Name: "Subscriber 001"},
		{ID: "SUB002", Name: "Subscriber 002"},
		{ID: "SUB003", Name: "Subscriber 003"},
		{ID: "SUB004", Name: "Subscriber 004"},
		{ID: "SUB005", Name: "Subscriber 005"},
	})
}

func NewCatalog(subs []entity.Subscriber) *Catalog {
	cp := slices.Clone(subs)
	slices.SortFunc(cp, func(a, b entity.Subscriber) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return &Catalog{subs: cp}
}

// LoadCatalog reads the catalog from src. An empty source is an error since no
// row could ever be assigned.
func LoadCatalog(ctx context.Context, src Lister) (*Catalog, error) {
	subs, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("load subscribers: no subscribers defined")
	}
	return NewCatalog(subs), nil
}

func (c *Catalog) All() []entity.Subscriber { return slices.Clone(c.subs) }

func (c *Catalog) IDs() []string {
	out := make([]string, len(c.subs))
	for i, s := range c.subs {
		out[i] = s.ID
	}
	return out
}

func (c *Catalog) Contains(id string) bool {
	return slices.ContainsFunc(c.subs, func(s entity.Subscriber) bool { return s.ID == id })
}

// Unknown returns the ids not present in the catalog.
func (c *Catalog) Unknown(ids []string) []string {
	var out []string
	for _, id := range ids {
		if !c.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

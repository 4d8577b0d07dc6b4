// Package access holds the role/capability table and the row-level security
// filter that gates reads and writes by subscriber.
package access

import (
	"fmt"
	"strings"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAnalyst Role = "analyst"
	RoleViewer  Role = "viewer"
)

// Roles lists every role, most privileged first.
var Roles = []Role{RoleAdmin, RoleManager, RoleAnalyst, RoleViewer}

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAnalyst, RoleViewer:
		return true
	}
	return false
}

// Capabilities is the typed permission set granted to a role.
type Capabilities struct {
	ViewAll     bool `json:"can_view_all"`
	Edit        bool `json:"can_edit"`
	Delete      bool `json:"can_delete"`
	AddUsers    bool `json:"can_add_users"`
	ManageUsers bool `json:"can_manage_users"`
	Export      bool `json:"can_export"`
	Simulate    bool `json:"can_simulate"`
}

// Capabilities returns the static permission set for r. Unknown roles get nothing.
func (r Role) Capabilities() Capabilities {
	switch r {
	case RoleAdmin:
		return Capabilities{ViewAll: true, Edit: true, Delete: true, AddUsers: true, ManageUsers: true, Export: true, Simulate: true}
	case RoleManager:
		return Capabilities{Edit: true, Delete: true, Export: true, Simulate: true}
	case RoleAnalyst:
		return Capabilities{Export: true, Simulate: true}
	case RoleViewer:
		return Capabilities{}
	}
	return Capabilities{}
}

// Capability names a single flag of Capabilities.
type Capability int

const (
	CapViewAll Capability = iota
	CapEdit
	CapDelete
	CapAddUsers
	CapManageUsers
	CapExport
	CapSimulate
)

func (c Capability) String() string {
	switch c {
	case CapViewAll:
		return "view-all"
	case CapEdit:
		return "edit"
	case CapDelete:
		return "delete"
	case CapAddUsers:
		return "add-users"
	case CapManageUsers:
		return "manage-users"
	case CapExport:
		return "export"
	case CapSimulate:
		return "simulate"
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// Has reports whether the flag for c is set.
func (c Capabilities) Has(cap Capability) bool {
	switch cap {
	case CapViewAll:
		return c.ViewAll
	case CapEdit:
		return c.Edit
	case CapDelete:
		return c.Delete
	case CapAddUsers:
		return c.AddUsers
	case CapManageUsers:
		return c.ManageUsers
	case CapExport:
		return c.Export
	case CapSimulate:
		return c.Simulate
	}
	return false
}

// Principal is the acting user as seen by permission checks.
type Principal struct {
	Username      string
	Role          Role
	SubscriberIDs []string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

func (p Principal) Capabilities() Capabilities { return p.Role.Capabilities() }

// CanAccess reports whether p may read or mutate rows of subscriberID.
func (p Principal) CanAccess(subscriberID string) bool {
	return CanAccess(subscriberID, p.SubscriberIDs, p.IsAdmin())
}

package domain

import "time"

// Role is the capability level of a user, resolved once per request from
// which profile row exists for the identity. A user holding both profiles
// resolves to manager.
type Role string

const (
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleNone     Role = "none"
)

// IsValid checks if the role is one of the assignable values.
func (r Role) IsValid() bool {
	return r == RoleManager || r == RoleEmployee
}

// User is an authenticated identity.
type User struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
}

// Identity is the acting user plus its resolved role, carried through the
// request context.
type Identity struct {
	User *User
	Role Role
}

// Actor returns the identity's username, or "Anonymous" when the identity
// is absent. Used for escalation payloads.
func (i *Identity) Actor() string {
	if i == nil || i.User == nil {
		return "Anonymous"
	}
	return i.User.Username
}

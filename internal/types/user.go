// Package types holds the entities shared by the engine, storage and server
// layers.
package types

// User is the identity of the caller, supplied by the upstream proxy.
type User struct {
	ID       int64
	Username string
	Admin    bool
}

// IsAdmin reports whether u is an administrator. Nil users are anonymous.
func (u *User) IsAdmin() bool {
	return u != nil && u.Admin
}

// Owner returns the owner view of u.
func (u *User) Owner() Owner {
	if u == nil {
		return Owner{}
	}
	return Owner{ID: u.ID, Username: u.Username}
}

// Owner is the author of a gen or list.
type Owner struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Is reports whether user is this owner.
func (o Owner) Is(user *User) bool {
	return user != nil && user.ID == o.ID
}

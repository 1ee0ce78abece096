package types

import (
	"strings"
	"time"

	apperrors "github.com/conneroisu/randomall/internal/errors"
)

// ListAccess controls who may reference or view a list.
type ListAccess int

const (
	ListPublic ListAccess = iota
	ListPrivate
)

// ListSlicers are the delimiters a list's content may be split by, indexed
// by ListEntity.Slicer.
var ListSlicers = [...]string{",", "\n", ".", ";"}

// ListEntity is a reusable word list.
type ListEntity struct {
	ID          int64      `json:"id"`
	User        Owner      `json:"user"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Access      ListAccess `json:"access"`
	Active      bool       `json:"active"`
	Content     string     `json:"content"`
	Slicer      int        `json:"slicer"`
	DateAdded   time.Time  `json:"date_added"`
	DateUpdated time.Time  `json:"date_updated"`
}

// IsOwner reports whether user authored the list.
func (l *ListEntity) IsOwner(user *User) bool {
	return l.User.Is(user)
}

// IsActive reports whether the list is visible at all.
func (l *ListEntity) IsActive() bool {
	return l.Active
}

// IsPublic reports whether anyone may use the list.
func (l *ListEntity) IsPublic() bool {
	return l.Access == ListPublic
}

// Variants splits the content by the list's slicer and trims each variant.
func (l *ListEntity) Variants() []string {
	slicer := ListSlicers[0]
	if l.Slicer >= 0 && l.Slicer < len(ListSlicers) {
		slicer = ListSlicers[l.Slicer]
	}
	parts := strings.Split(l.Content, slicer)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// CheckViewPermissions returns a not-found or forbidden error when user may
// not view the list.
func (l *ListEntity) CheckViewPermissions(user *User) error {
	if user.IsAdmin() {
		return nil
	}
	if !l.IsActive() {
		return apperrors.NewNotFoundError("LIST_NOT_FOUND", "list not found").WithContext("list_id", l.ID)
	}
	if !l.IsPublic() && !l.IsOwner(user) {
		return apperrors.NewForbiddenError("LIST_FORBIDDEN", "list is private").WithContext("list_id", l.ID)
	}
	return nil
}

// CheckEditPermissions returns an error when user may not edit the list.
func (l *ListEntity) CheckEditPermissions(user *User) error {
	if user.IsAdmin() {
		return nil
	}
	if !l.IsActive() {
		return apperrors.NewNotFoundError("LIST_NOT_FOUND", "list not found").WithContext("list_id", l.ID)
	}
	if !l.IsOwner(user) {
		return apperrors.NewForbiddenError("LIST_FORBIDDEN", "not the list owner").WithContext("list_id", l.ID)
	}
	return nil
}

package types

import (
	"encoding/json"
	"time"

	apperrors "github.com/conneroisu/randomall/internal/errors"
)

// GenAccess controls who may view a gen.
type GenAccess int

const (
	GenPublic GenAccess = iota
	GenPrivate
	// GenLink gens are visible to anyone holding the access key.
	GenLink
)

// Valid reports whether a is a known access level.
func (a GenAccess) Valid() bool {
	return a >= GenPublic && a <= GenLink
}

// Metadata is computed from a body on save.
type Metadata struct {
	Hash       string `json:"hash"`
	Variations int    `json:"variations"`
}

// GenEntity is a persisted generator.
type GenEntity struct {
	ID            int64           `json:"id"`
	User          Owner           `json:"user"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      *string         `json:"category"`
	Subcategories []string        `json:"subcategories"`
	Tags          []string        `json:"tags"`
	Access        GenAccess       `json:"access"`
	AccessKey     string          `json:"-"`
	Format        json.RawMessage `json:"format"`
	Body          json.RawMessage `json:"body"`
	Variations    int             `json:"variations"`
	Hash          string          `json:"hash"`
	Views         int             `json:"views"`
	DateAdded     time.Time       `json:"date_added"`
	DateUpdated   time.Time       `json:"date_updated"`
	Active        bool            `json:"active"`
	Copyright     bool            `json:"copyright"`
}

// IsOwner reports whether user authored the gen.
func (g *GenEntity) IsOwner(user *User) bool {
	return g.User.Is(user)
}

// IsActive reports whether the gen is visible to user. Admins see inactive gens.
func (g *GenEntity) IsActive(user *User) bool {
	return g.Active || user.IsAdmin()
}

func (g *GenEntity) accessible(user *User, secret string) bool {
	switch g.Access {
	case GenPublic:
		return true
	case GenPrivate:
		return g.IsOwner(user)
	case GenLink:
		return g.IsOwner(user) || (secret != "" && g.AccessKey == secret)
	default:
		return false
	}
}

// CheckViewPermissions returns a not-found, locked or forbidden error when
// user may not view the gen. secret is the access key from a shared link.
func (g *GenEntity) CheckViewPermissions(user *User, secret string) error {
	if user.IsAdmin() {
		return nil
	}
	if !g.IsActive(user) {
		return apperrors.NewNotFoundError("GEN_NOT_FOUND", "gen not found").WithContext("gen_id", g.ID)
	}
	if g.Copyright && !g.IsOwner(user) {
		return apperrors.NewLockedError("GEN_COPYRIGHT", "copyright").WithContext("gen_id", g.ID)
	}
	if !g.accessible(user, secret) {
		return apperrors.NewForbiddenError("GEN_FORBIDDEN", "gen is not accessible").WithContext("gen_id", g.ID)
	}
	return nil
}

// CheckEditPermissions returns an error when user may not edit the gen.
func (g *GenEntity) CheckEditPermissions(user *User) error {
	if user.IsAdmin() {
		return nil
	}
	if !g.IsActive(user) {
		return apperrors.NewNotFoundError("GEN_NOT_FOUND", "gen not found").WithContext("gen_id", g.ID)
	}
	if !g.IsOwner(user) {
		return apperrors.NewForbiddenError("GEN_FORBIDDEN", "not the gen owner").WithContext("gen_id", g.ID)
	}
	return nil
}

// GenDraft is a validated gen ready to be persisted.
type GenDraft struct {
	Owner         Owner
	Title         string
	Description   string
	Category      *string
	Subcategories []string
	Tags          []string
	Access        GenAccess
	Format        json.RawMessage
	Body          json.RawMessage
	Metadata      Metadata
}

package domain

import (
	"strings"
	"time"
)

// Role represents the user's permission level.
type Role string

const (
	// RoleAdmin grants access to the admin panel.
	RoleAdmin Role = "ADMIN"
	// RoleUser grants standard storefront access.
	RoleUser Role = "USUARIO"
)

// Toggled returns the opposite role.
func (r Role) Toggled() Role {
	if r == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}

// PrimaryAdminEmail identifies the distinguished administrator account.
// That account can never be deleted or demoted.
const PrimaryAdminEmail = "admin@librospequenos.com"

// registrationDateLayout is the date-only format of fechaRegistro.
const registrationDateLayout = "2006-01-02"

// User represents a storefront account.
//
// Passwords are stored and compared in plaintext. That is the documented
// behavior of this system, not an oversight; see the project non-goals.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"nombre" validate:"required,min=2"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	Role         Role   `json:"rol" validate:"required,oneof=ADMIN USUARIO"`
	RegisteredAt string `json:"fechaRegistro"`
	Active       bool   `json:"activo"`
}

// UserDraft is the input for creating a user.
type UserDraft struct {
	Name     string
	Email    string
	Password string
	Role     Role
	// Active defaults to true when nil.
	Active *bool
}

// NewUser constructs a user from a draft, applying defaults: role USUARIO,
// today's registration date, active true.
func NewUser(d UserDraft) User {
	u := User{
		Name:         strings.TrimSpace(d.Name),
		Email:        NormalizeEmail(d.Email),
		Password:     d.Password,
		Role:         d.Role,
		RegisteredAt: time.Now().Format(registrationDateLayout),
		Active:       true,
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if d.Active != nil {
		u.Active = *d.Active
	}
	return u
}

// NormalizeEmail lowercases and trims an email address. Emails are unique
// per user and compared in normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAdmin reports whether the user may use the admin panel.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsPrimaryAdmin reports whether this is the protected administrator account.
func (u *User) IsPrimaryAdmin() bool {
	return NormalizeEmail(u.Email) == PrimaryAdminEmail
}

// Sanitized returns a copy of the user with the password cleared.
// Anything persisted outside the store record (the current session, exports
// shared for debugging) must use the sanitized form.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}

// UserPatch describes a partial update of a user. Nil fields are left
// untouched.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	Role     *Role
	Active   *bool
}

// Apply merges the set fields of the patch onto the user.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Active != nil {
		u.Active = *p.Active
	}
}

// ChangesEmail reports whether the patch touches the uniqueness key.
func (p UserPatch) ChangesEmail() bool {
	return p.Email != nil
}

// ChangesRole reports whether the patch would assign a different role than
// the user currently has.
func (p UserPatch) ChangesRole(u *User) bool {
	return p.Role != nil && *p.Role != u.Role
}

// NextUserID returns the identifier the next added user receives:
// max(existing ids) + 1, or 1 for an empty collection.
func NextUserID(users []User) int64 {
	var maxID int64
	for i := range users {
		if users[i].ID > maxID {
			maxID = users[i].ID
		}
	}
	return maxID + 1
}

package models

import "time"

// Role is the authorization role attached to an Identity.
type Role string

const (
	RoleStandard Role = "user"
	RoleAdmin    Role = "admin"
	RoleViewer   Role = "viewer"
)

// Status is the approval state of an account.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
)

// Identity represents the authenticated principal as returned by GET /auth/me
type Identity struct {
	ID          int64      `json:"id" bson:"id"`
	Email       string     `json:"email" bson:"email"`
	DisplayName string     `json:"full_name" bson:"fullName"`
	Company     string     `json:"company,omitempty" bson:"company,omitempty"`
	Phone       string     `json:"phone,omitempty" bson:"phone,omitempty"`
	Role        Role       `json:"role" bson:"role"`
	Status      Status     `json:"status" bson:"status"`
	IsActive    bool       `json:"is_active" bson:"isActive"`
	CreatedAt   time.Time  `json:"created_at" bson:"createdAt"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" bson:"updatedAt,omitempty"`
	LastLogin   *time.Time `json:"last_login,omitempty" bson:"lastLogin,omitempty"`
}

// Approved reports whether the account may be treated as fully authorized.
func (i *Identity) Approved() bool {
	return i != nil && i.Status == StatusApproved && i.IsActive
}

// IsAdmin is true for approved admin accounts only.
func (i *Identity) IsAdmin() bool {
	return i.Approved() && i.Role == RoleAdmin
}

// Clone returns a deep copy (nil-safe).
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.UpdatedAt != nil {
		t := *i.UpdatedAt
		c.UpdatedAt = &t
	}
	if i.LastLogin != nil {
		t := *i.LastLogin
		c.LastLogin = &t
	}
	return &c
}

// RegistrationProfile is the payload of POST /auth/register
type RegistrationProfile struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Company  string `json:"company,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Message  string `json:"message,omitempty"` // note for the approving admin
}

// IdentityPatch carries a local-only profile update. Nil fields are left untouched.
// Role and status are deliberately absent: they only change via the server.
type IdentityPatch struct {
	DisplayName *string `json:"full_name,omitempty"`
	Company     *string `json:"company,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

// Apply merges the patch into id in place.
func (p IdentityPatch) Apply(id *Identity) {
	if id == nil {
		return
	}
	if p.DisplayName != nil {
		id.DisplayName = *p.DisplayName
	}
	if p.Company != nil {
		id.Company = *p.Company
	}
	if p.Phone != nil {
		id.Phone = *p.Phone
	}
}

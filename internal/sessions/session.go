package sessions

import "github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"

// Session is the client-side authentication state, persisted as one flat record.
type Session struct {
	AccessCredential  string           `bson:"accessCredential,omitempty" json:"accessCredential,omitempty"`
	RefreshCredential string           `bson:"refreshCredential,omitempty" json:"refreshCredential,omitempty"`
	Authenticated     bool             `bson:"authenticated" json:"authenticated"`
	Identity          *models.Identity `bson:"identity,omitempty" json:"identity,omitempty"`
}

// IsEmpty reports whether no field is set.
func (s Session) IsEmpty() bool {
	return s.AccessCredential == "" && s.RefreshCredential == "" && !s.Authenticated && s.Identity == nil
}

// isEmpty is IsEmpty for the pointer repositories receive; nil counts as empty.
func isEmpty(s *Session) bool {
	return s == nil || s.IsEmpty()
}

// Clone returns a deep copy so callers never share the store's Identity pointer.
func (s Session) Clone() Session {
	s.Identity = s.Identity.Clone()
	return s
}

// normalize enforces authenticated => access credential present.
func (s *Session) normalize() {
	if s.Authenticated && s.AccessCredential == "" {
		s.Authenticated = false
	}
}

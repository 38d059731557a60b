package db

import (
	"strings"
	"time"
)

// Profile is the cached /auth/me record of the logged-in user.
// It is informational only and never consulted for authorization.
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     string    `json:"roles"` // comma separated
	FetchedAt time.Time `json:"fetched_at"`
}

// RoleList splits the stored roles.
func (p *Profile) RoleList() []string {
	if p == nil || p.Roles == "" {
		return nil
	}
	parts := strings.Split(p.Roles, ",")
	roles := make([]string, 0, len(parts))
	for _, r := range parts {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// JoinRoles is the inverse of RoleList.
func JoinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

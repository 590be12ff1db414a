// Package auth describes the session identity issued by the identity provider.
package auth

// Roles
const (
	RoleStudent   = "student"
	RoleCounselor = "counselor"
)

var AllRoles = []string{RoleStudent, RoleCounselor}

// Identity is the authenticated caller. UID is the identity provider's subject and
// doubles as the Student ID.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (id Identity) IsAuthenticated() bool { return id.UID != "" }
func (id Identity) IsStudent() bool       { return id.Role == RoleStudent }
func (id Identity) IsCounselor() bool     { return id.Role == RoleCounselor }

func IsRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

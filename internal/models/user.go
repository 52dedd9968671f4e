package models

// Role is the access tier of a user.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// IsAdminTier reports whether the role bypasses email and subject restrictions.
func (r Role) IsAdminTier() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// PermissionGrant is what a user may search for.
// AllEmails is set when restrictions are off or the user is admin-tier.
type PermissionGrant struct {
	UserID             int64               `json:"user_id"`
	AllEmails          bool                `json:"all_emails"`
	Emails             []string            `json:"emails,omitempty"`
	SubjectsByPlatform map[string][]string `json:"subjects_by_platform,omitempty"`
}

// Platform is one catalog entry with its subject keywords.
type Platform struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Subjects []string `json:"subjects"`
}

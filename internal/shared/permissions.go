package shared

// Core platform permissions.
const (
	PermUsersView   = "users.view"
	PermUsersCreate = "users.create"
	PermUsersEdit   = "users.edit"

	// PermAdminUsers grants full administrative control over user accounts.
	PermAdminUsers = "admin.users"

	PermAuditView = "audit.view"
)

// CoreScopes lists all permissions related to user administration.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersCreate,
		PermUsersEdit,
		PermAdminUsers,
		PermAuditView,
	}
}

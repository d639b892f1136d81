package audit

// Action tags recorded in the audit log. These strings are part of the
// stored data contract; downstream reporting matches on them verbatim.
const (
	ActionUnauthorizedAccessAttempt = "unauthorized_access_attempt"
	ActionUsersListed               = "users_listed"

	ActionUnauthorizedUserLookup = "unauthorized_user_lookup"
	ActionUserLookedUp           = "user_looked_up"

	ActionUnauthorizedUserCreation = "unauthorized_user_creation"
	ActionUserCreated              = "user_created"

	ActionUnauthorizedUserUpdate = "unauthorized_user_update"
	ActionUserUpdated            = "user_updated"

	ActionUnauthorizedPasswordAdminOverride  = "unauthorized_password_admin_override"
	ActionUnauthorizedPasswordChange         = "unauthorized_password_change"
	ActionPasswordChangeWrongCurrentPassword = "password_change_wrong_current_password"
	ActionUserPasswordChanged                = "user_password_changed"

	ActionUnauthorizedPermissionsLookup = "unauthorized_permissions_lookup"
	ActionUserPermissionsLookedUp       = "user_permissions_looked_up"

	ActionUnauthorizedUserDeletion = "unauthorized_user_deletion"
	ActionUserSoftDeleted          = "user_soft_deleted"
	ActionUserHardDeleted          = "user_hard_deleted"

	ActionUnauthorizedPreferencesUpdate  = "unauthorized_preferences_update"
	ActionNotificationPreferencesUpdated = "notification_preferences_updated"

	ActionUnauthorizedUserSearch = "unauthorized_user_search"
	ActionUserSearchPerformed    = "user_search_performed"

	ActionUnauthorizedAuditLogAccess = "unauthorized_audit_log_access"
	ActionAuditLogAccessed           = "audit_log_accessed"

	ActionUnauthorizedSessionsLookup = "unauthorized_sessions_lookup"
	ActionUserSessionsLookedUp       = "user_sessions_looked_up"

	ActionUnauthorizedSessionTermination = "unauthorized_session_termination"
	ActionUserSessionsTerminated         = "user_sessions_terminated"

	// Authentication events.
	ActionUserLoggedIn    = "user_logged_in"
	ActionUserLoginFailed = "user_login_failed"
	ActionUserLoggedOut   = "user_logged_out"
)

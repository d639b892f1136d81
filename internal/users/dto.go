package users

import "time"

// Profile is the outward JSON projection of a user. It never carries the
// password hash or salt.
type Profile struct {
	ID                int64          `json:"id"`
	Username          string         `json:"username"`
	Email             string         `json:"email"`
	FirstName         string         `json:"first_name"`
	LastName          string         `json:"last_name"`
	RoleID            int64          `json:"role_id"`
	Status            Status         `json:"status"`
	LastLoginAt       *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	NotificationPrefs map[string]any `json:"notification_preferences,omitempty"`
}

// NewProfile projects a User for API responses.
func NewProfile(u User) Profile {
	return Profile{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		RoleID:            u.RoleID,
		Status:            u.Status,
		LastLoginAt:       u.LastLoginAt,
		CreatedAt:         u.CreatedAt,
		NotificationPrefs: u.NotificationPrefs,
	}
}

// NewProfiles projects a slice of users.
func NewProfiles(userList []User) []Profile {
	profiles := make([]Profile, len(userList))
	for i, u := range userList {
		profiles[i] = NewProfile(u)
	}
	return profiles
}

// CreateInput carries a user creation request.
type CreateInput struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	RoleID    int64  `json:"role_id" validate:"required,gt=0"`
}

// UpdateInput carries a partial user update. Nil fields are untouched.
type UpdateInput struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	RoleID    *int64  `json:"role_id,omitempty" validate:"omitempty,gt=0"`
	Status    *string `json:"status,omitempty"`
}

// Fields returns the names of the fields this update touches. The policy
// gate uses them to decide whether the change needs elevated permissions.
func (in UpdateInput) Fields() []string {
	var fields []string
	if in.Username != nil {
		fields = append(fields, "username")
	}
	if in.Email != nil {
		fields = append(fields, "email")
	}
	if in.FirstName != nil {
		fields = append(fields, "first_name")
	}
	if in.LastName != nil {
		fields = append(fields, "last_name")
	}
	if in.RoleID != nil {
		fields = append(fields, "role")
	}
	if in.Status != nil {
		fields = append(fields, "status")
	}
	return fields
}

// PasswordInput carries a password change request.
type PasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required"`
	AdminOverride   bool   `json:"admin_override"`
}

// SearchCriteria filters a user search. Zero values mean "no filter".
type SearchCriteria struct {
	Username string
	Email    string
	Name     string
	RoleID   int64
	Status   Status
	Limit    int
	Offset   int
}

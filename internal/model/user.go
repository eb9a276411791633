package model

import (
	"encoding/json"
	"time"
)

const (
	RoleResident = "resident"
	RoleAdmin    = "admin"
)

// ValidRole reports whether role is one of the two known roles. Callers
// lowercase before checking.
func ValidRole(role string) bool {
	return role == RoleResident || role == RoleAdmin
}

// User is an account keyed by email. PasswordHash is empty until the user
// registers or accepts an invitation.
type User struct {
	ID                 int64      `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	PhoneNumber        string     `json:"phoneNumber"`
	PasswordHash       string     `json:"-"` // Do not expose password hash in JSON responses
	Role               string     `json:"role"`
	Suspended          bool       `json:"suspended"`
	InvitationAccepted bool       `json:"invitationAccepted"`
	InvitationSentAt   *time.Time `json:"invitationSentAt,omitempty"`
	VoucherBalance     int64      `json:"voucherBalance"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// HasPassword reports whether the account can authenticate by password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	return json.Marshal(struct {
		alias
		InvitationSentAt *string `json:"invitationSentAt,omitempty"`
		CreatedAt        string  `json:"createdAt"`
		UpdatedAt        string  `json:"updatedAt"`
	}{
		alias:            alias(u),
		InvitationSentAt: formatTimePtr(u.InvitationSentAt),
		CreatedAt:        FormatTime(u.CreatedAt),
		UpdatedAt:        FormatTime(u.UpdatedAt),
	})
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phoneNumber"`
	Role        *string `json:"role"`
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.PhoneNumber == nil && u.Role == nil
}

// UserFilters narrows admin user listings.
type UserFilters struct {
	Search    *string // matches name, email or phone number
	Role      *string
	Suspended *bool
}

// CreateUserRequest is the admin manual-add payload.
type CreateUserRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Role        string `json:"role" binding:"required"`
}

package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleUser    = "ROLE_USER"
	RoleAdmin   = "ROLE_ADMIN"
	RoleManager = "ROLE_MANAGER"
)

var managerRoles = []string{RoleAdmin, RoleManager}

type User struct {
	ID       uuid.UUID                   `gorm:"type:uuid;primary_key;"`
	PublicID uuid.UUID                   `gorm:"type:uuid;uniqueIndex;not null"`
	Email    string                      `gorm:"type:varchar(64);uniqueIndex;not null"`
	Name     string                      `gorm:"type:varchar(64);not null"`
	Roles    datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) HasRole(role string) bool {
	return role == RoleUser || slices.Contains(u.Roles, role)
}

// CanManageTasks is true when the user holds at least one manager role.
func (u *User) CanManageTasks() bool {
	for _, role := range managerRoles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// MightBeAssignedToTask is true when at least one manager role is missing
// from the user's roles:
//
//	ADMIN  MANAGER  result
//	  no     no     true
//	 yes     no     true
//	  no    yes     true
//	 yes    yes     false
//
// A plain manager is therefore still assignable. The polarity is kept as the
// tracker has always applied it; see DESIGN.md before changing it.
func (u *User) MightBeAssignedToTask() bool {
	for _, role := range managerRoles {
		if !u.HasRole(role) {
			return true
		}
	}
	return false
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleMember  UserRole = "member"
	RoleViewer  UserRole = "viewer"
)

// UserRoles lists every valid role.
var UserRoles = []UserRole{RoleAdmin, RoleManager, RoleMember, RoleViewer}

func (r UserRole) IsValid() bool {
	for _, v := range UserRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User is the application profile. Accounts created through an OAuth provider
// carry Provider/ProviderAccountID and an empty password hash.
type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	Email             string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	AvatarURL         string    `gorm:"type:text" json:"avatar_url,omitempty"`
	Role              UserRole  `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	PasswordHash      string    `gorm:"type:varchar(255)" json:"-"`
	Provider          string    `gorm:"type:varchar(50)" json:"-"`
	ProviderAccountID string    `gorm:"type:varchar(255);index" json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Relations
	OwnedProjects []Project `gorm:"foreignKey:OwnerID" json:"-"`
	AssignedTasks []Task    `gorm:"foreignKey:AssigneeID" json:"-"`
	TimeEntries   []TimeEntry `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

package models

import "time"

// Roles known to the platform.
const (
	RoleSuperadmin = "superadmin"
	RoleOwner      = "owner"
	RoleWaiter     = "waiter"
	RoleGuest      = "guest"
)

type User struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Name           string      `gorm:"type:varchar(255);not null" json:"name"`
	Email          string      `gorm:"type:varchar(255);unique;not null" json:"email"`
	Password       string      `gorm:"type:varchar(255);not null" json:"-"`
	Role           string      `gorm:"type:varchar(20);not null;default:'guest'" json:"role"`
	Phone          string      `gorm:"type:varchar(20)" json:"phone,omitempty"`
	RestaurantID   *uint       `gorm:"index" json:"restaurant_id,omitempty"`
	Restaurant     *Restaurant `gorm:"foreignKey:RestaurantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	IsActiveWaiter bool        `gorm:"not null;default:false" json:"is_active_waiter"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (u *User) IsStaff() bool {
	return u.Role == RoleSuperadmin || u.Role == RoleOwner || u.Role == RoleWaiter
}

package models

import "time"

// OrderStatusHistory records one row per status transition.
type OrderStatusHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	Order       Order     `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Status      string    `gorm:"type:varchar(20);not null" json:"status"`
	ChangedByID *uint     `json:"changed_by_id,omitempty"`
	ChangedBy   *User     `gorm:"foreignKey:ChangedByID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Notes       string    `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

package models

import "time"

type MenuItem struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CategoryID  uint         `gorm:"not null;index" json:"category_id"`
	Category    MenuCategory `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Name        string       `gorm:"type:varchar(200);not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	// Price is the menu price; orders snapshot it per line item, so
	// editing it never changes historical totals.
	Price       float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	CookingTime *int      `json:"cooking_time,omitempty"` // minutes
	IsAvailable bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

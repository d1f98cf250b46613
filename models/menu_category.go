package models

import "time"

type MenuCategory struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID uint       `gorm:"not null;index:idx_category_name,unique" json:"restaurant_id"`
	Restaurant   Restaurant `gorm:"foreignKey:RestaurantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Name         string     `gorm:"type:varchar(100);not null;index:idx_category_name,unique" json:"name"`
	Description  string     `gorm:"type:text" json:"description"`
	Icon         string     `gorm:"type:varchar(50)" json:"icon"`
	SortOrder    int        `gorm:"not null;default:0" json:"sort_order"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

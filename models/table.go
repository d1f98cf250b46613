package models

import "time"

type Table struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID uint       `gorm:"not null;index:idx_table_number,unique" json:"restaurant_id"`
	Restaurant   Restaurant `gorm:"foreignKey:RestaurantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	// Number is the human readable label (A1, VIP-3), unique per restaurant.
	Number   string `gorm:"type:varchar(20);not null;index:idx_table_number,unique" json:"number"`
	Capacity int    `gorm:"not null;default:4" json:"capacity"`
	Zone     string `gorm:"type:varchar(100)" json:"zone"`

	// IsOccupied mirrors "an open session exists for this table" and is
	// only flipped inside the session open/close transactions.
	IsOccupied bool `gorm:"not null;default:false" json:"is_occupied"`
	IsActive   bool `gorm:"not null;default:true" json:"is_active"`

	QRURL  string `gorm:"type:varchar(500)" json:"qr_url"`
	QRPath string `gorm:"type:varchar(255)" json:"qr_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package models

import "time"

type OrderItem struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	OrderID uint  `gorm:"not null;index" json:"order_id"`
	Order   Order `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	// RESTRICT keeps order history intact: a menu item cannot be deleted
	// while order items still reference it.
	MenuItemID uint     `gorm:"not null;index" json:"menu_item_id"`
	MenuItem   MenuItem `gorm:"foreignKey:MenuItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"menu_item"`

	Quantity int `gorm:"not null;default:1" json:"quantity"`

	// Price is copied from the menu item when the order is created and
	// never touched again.
	Price float64 `gorm:"type:decimal(10,2);not null" json:"price"`

	SelectedOptions string `gorm:"type:text" json:"selected_options,omitempty"` // JSON payload
	Notes           string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (i *OrderItem) TotalPrice() float64 {
	return i.Price * float64(i.Quantity)
}

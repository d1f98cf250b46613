package models

import "time"

// Order fulfillment statuses. pending -> confirmed -> preparing ->
// ready -> delivered -> paid, with cancelled reachable from any
// non-terminal state except paid/delivered.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderDelivered = "delivered"
	OrderPaid      = "paid"
	OrderCancelled = "cancelled"
)

// Payment methods a guest can pick when ordering.
const (
	PaymentMethodCash = "cash"
	PaymentMethodQR   = "qr"
	PaymentMethodCard = "card"
)

type Order struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	TableSessionID uint         `gorm:"not null;index" json:"table_session_id"`
	TableSession   TableSession `gorm:"foreignKey:TableSessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	GuestSessionID *uint         `gorm:"index" json:"guest_session_id,omitempty"`
	GuestSession   *GuestSession `gorm:"foreignKey:GuestSessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	GuestName      string        `gorm:"type:varchar(100)" json:"guest_name"`

	WaiterID *uint `gorm:"index" json:"waiter_id,omitempty"`
	Waiter   *User `gorm:"foreignKey:WaiterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"waiter,omitempty"`

	Status        string `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentMethod string `gorm:"type:varchar(20);not null;default:'cash'" json:"payment_method"`

	Notes       string `gorm:"type:text" json:"notes"`
	WaiterNotes string `gorm:"type:text" json:"waiter_notes"`

	// One timestamp per status entry. Null until the status is reached,
	// immutable afterwards.
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

func (o *Order) IsTerminal() bool {
	return o.Status == OrderPaid || o.Status == OrderCancelled
}

// ItemsSubtotal sums line price x quantity over the loaded items.
// Subtotal itself lives on OrderTotals.
func (o *Order) ItemsSubtotal() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// ItemsCount is the total quantity across line items, not the row count.
func (o *Order) ItemsCount() int {
	var n int
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// OrderTotals carries the derived money fields. They are always
// recomputed from the current line items and the restaurant's current
// rates, never stored.
type OrderTotals struct {
	Subtotal            float64 `json:"subtotal"`
	TaxAmount           float64 `json:"tax_amount"`
	ServiceChargeAmount float64 `json:"service_charge_amount"`
	TotalAmount         float64 `json:"total_amount"`
}

func (o *Order) Totals(r *Restaurant) OrderTotals {
	sub := o.ItemsSubtotal()
	t := OrderTotals{Subtotal: sub}
	if r != nil {
		if r.TaxRate > 0 {
			t.TaxAmount = sub * r.TaxRate / 100
		}
		if r.ServiceCharge > 0 {
			t.ServiceChargeAmount = sub * r.ServiceCharge / 100
		}
	}
	t.TotalAmount = t.Subtotal + t.TaxAmount + t.ServiceChargeAmount
	return t
}

package models

import "time"

// Payment statuses. pending -> processing -> completed, pending ->
// failed, completed -> refunded. completed, failed, cancelled and
// refunded are terminal.
const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentCompleted  = "completed"
	PaymentFailed     = "failed"
	PaymentCancelled  = "cancelled"
	PaymentRefunded   = "refunded"
)

// Payment types.
const (
	PaymentTypeCash   = "cash"
	PaymentTypeQR     = "qr"
	PaymentTypeCard   = "card"
	PaymentTypeOnline = "online"
)

// Payment settles either one order or an entire table session's
// accumulated orders — exactly one of the two references is set.
type Payment struct {
	ID uint `gorm:"primaryKey" json:"id"`

	OrderID *uint  `gorm:"index" json:"order_id,omitempty"`
	Order   *Order `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	TableSessionID *uint         `gorm:"index" json:"table_session_id,omitempty"`
	TableSession   *TableSession `gorm:"foreignKey:TableSessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	PaymentID   string `gorm:"type:varchar(100);uniqueIndex;not null" json:"payment_id"`
	PaymentType string `gorm:"type:varchar(20);not null;default:'cash'" json:"payment_type"`
	Status      string `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	Amount   float64 `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency string  `gorm:"type:varchar(10);not null;default:'KGS'" json:"currency"`

	PayerName  string `gorm:"type:varchar(200)" json:"payer_name"`
	PayerPhone string `gorm:"type:varchar(20)" json:"payer_phone"`
	PayerEmail string `gorm:"type:varchar(255)" json:"payer_email"`

	ProcessedByID *uint `gorm:"index" json:"processed_by_id,omitempty"`
	ProcessedBy   *User `gorm:"foreignKey:ProcessedByID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`

	RefundAmount float64    `gorm:"type:decimal(10,2);not null;default:0" json:"refund_amount"`
	RefundReason string     `gorm:"type:text" json:"refund_reason"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`

	Notes string `gorm:"type:text" json:"notes"`

	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

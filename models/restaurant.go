package models

import (
	"regexp"
	"strings"
	"time"
)

type Restaurant struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(200);not null" json:"name"`
	// Slug is globally unique and never changes once assigned.
	Slug    string `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug"`
	OwnerID uint   `gorm:"not null;index" json:"owner_id"`
	Owner   User   `gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`

	Description string `gorm:"type:text" json:"description"`
	Phone       string `gorm:"type:varchar(20)" json:"phone"`
	Address     string `gorm:"type:varchar(300)" json:"address"`
	City        string `gorm:"type:varchar(100)" json:"city"`

	Currency      string  `gorm:"type:varchar(10);not null;default:'KGS'" json:"currency"`
	TaxRate       float64 `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	ServiceCharge float64 `gorm:"type:decimal(5,2);not null;default:0" json:"service_charge"`

	AllowCashPayment          bool `gorm:"not null;default:true" json:"allow_cash_payment"`
	AllowQRPayment            bool `gorm:"not null;default:true" json:"allow_qr_payment"`
	RequireWaiterConfirmation bool `gorm:"not null;default:true" json:"require_waiter_confirmation"`

	OpeningTime *string `gorm:"type:varchar(5)" json:"opening_time,omitempty"` // "HH:MM"
	ClosingTime *string `gorm:"type:varchar(5)" json:"closing_time,omitempty"`

	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOpenNow reports whether the restaurant accepts orders at t.
// Restaurants without configured hours are always open. Handles
// closing times past midnight (e.g. 18:00 - 02:00).
func (r *Restaurant) IsOpenNow(t time.Time) bool {
	if r.OpeningTime == nil || r.ClosingTime == nil {
		return true
	}
	now := t.Format("15:04")
	open, close := *r.OpeningTime, *r.ClosingTime
	if open <= close {
		return now >= open && now <= close
	}
	return now >= open || now <= close
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a restaurant name into a URL identifier.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugCleaner.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

package models

import "time"

// TableSession is one continuous occupancy of a table by a party of
// guests, from seating until the table is freed.
type TableSession struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	TableID uint  `gorm:"not null;index" json:"table_id"`
	Table   Table `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"table,omitempty"`

	// SessionCode is the short unique code guests use to join.
	SessionCode string `gorm:"type:varchar(50);uniqueIndex;not null" json:"session_code"`

	WaiterID *uint `gorm:"index" json:"waiter_id,omitempty"`
	Waiter   *User `gorm:"foreignKey:WaiterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"waiter,omitempty"`

	Notes string `gorm:"type:text" json:"notes"`

	StartedAt time.Time  `gorm:"not null" json:"started_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	Orders        []Order        `gorm:"foreignKey:TableSessionID" json:"orders,omitempty"`
	GuestSessions []GuestSession `gorm:"foreignKey:TableSessionID" json:"guest_sessions,omitempty"`
}

func (s *TableSession) IsActive() bool {
	return s.ClosedAt == nil
}

// GuestSession is one guest's connection within a table session.
// Several phones at one table each get their own guest session.
type GuestSession struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	SessionKey     string       `gorm:"type:varchar(100);uniqueIndex;not null" json:"session_key"`
	GuestName      string       `gorm:"type:varchar(100)" json:"guest_name"`
	TableSessionID uint         `gorm:"not null;index" json:"table_session_id"`
	TableSession   TableSession `gorm:"foreignKey:TableSessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
}

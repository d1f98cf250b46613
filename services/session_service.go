package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qrdine/qrdine/apperr"
	"github.com/qrdine/qrdine/events"
	"github.com/qrdine/qrdine/models"
	"github.com/qrdine/qrdine/utils"
)

// SessionService owns the table session lifecycle. A table has at most
// one open session; the occupancy flag is flipped in the same
// transaction that creates or closes the session.
type SessionService struct {
	DB     *gorm.DB
	Events events.Publisher
}

func NewSessionService(db *gorm.DB, pub events.Publisher) *SessionService {
	return &SessionService{DB: db, Events: pub}
}

func newSessionCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Open seats a new party at the table. Fails with Conflict if the table
// already has an open session.
func (s *SessionService) Open(tableID uint, waiterID *uint) (*models.TableSession, error) {
	var session models.TableSession
	var table models.Table

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&table, tableID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("table %d not found", tableID)
			}
			return err
		}
		if !table.IsActive {
			return apperr.Validation("table %s is not available for seating", table.Number)
		}

		var open int64
		if err := tx.Model(&models.TableSession{}).
			Where("table_id = ? AND closed_at IS NULL", table.ID).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 || table.IsOccupied {
			return apperr.Conflict("table %s already has an open session", table.Number)
		}

		session = models.TableSession{
			TableID:     table.ID,
			SessionCode: newSessionCode(),
			WaiterID:    waiterID,
			StartedAt:   time.Now(),
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		table.IsOccupied = true
		return tx.Save(&table).Error
	})
	if err != nil {
		return nil, err
	}

	session.Table = table
	utils.InfoLogger.Printf("Session %s opened for table %s", session.SessionCode, table.Number)

	s.Events.Publish(events.TableTopic(table.ID), events.Event{
		Event: events.EventTableOccupancy,
		Data:  map[string]interface{}{"table_id": table.ID, "is_occupied": true},
	})
	s.Events.Publish(events.RestaurantTopic(table.RestaurantID), events.Event{
		Event: events.EventSessionOpened,
		Data: map[string]interface{}{
			"session_id":   session.ID,
			"session_code": session.SessionCode,
			"table_number": table.Number,
		},
	})

	return &session, nil
}

// Close ends the session and frees the table. Open orders are left
// attached; the service only logs how many were still unsettled.
func (s *SessionService) Close(sessionID uint) (*models.TableSession, error) {
	var session models.TableSession
	var table models.Table
	var unsettled int64

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&session, sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("table session %d not found", sessionID)
			}
			return err
		}
		if session.ClosedAt != nil {
			return apperr.InvalidState("table session is already closed")
		}

		if err := tx.Model(&models.Order{}).
			Where("table_session_id = ? AND status NOT IN ?", session.ID,
				[]string{models.OrderPaid, models.OrderCancelled}).
			Count(&unsettled).Error; err != nil {
			return err
		}

		now := time.Now()
		session.ClosedAt = &now
		if err := tx.Save(&session).Error; err != nil {
			return err
		}

		if err := tx.First(&table, session.TableID).Error; err != nil {
			return err
		}
		table.IsOccupied = false
		return tx.Save(&table).Error
	})
	if err != nil {
		return nil, err
	}

	if unsettled > 0 {
		utils.ErrorLogger.Warnf("Session %s closed with %d unsettled orders", session.SessionCode, unsettled)
	}
	utils.InfoLogger.Printf("Session %s closed, table %s freed", session.SessionCode, table.Number)

	s.Events.Publish(events.TableTopic(table.ID), events.Event{
		Event: events.EventTableOccupancy,
		Data:  map[string]interface{}{"table_id": table.ID, "is_occupied": false},
	})
	s.Events.Publish(events.TableSessionTopic(session.ID), events.Event{
		Event: events.EventSessionClosed,
		Data:  map[string]interface{}{"session_id": session.ID, "closed_at": session.ClosedAt},
	})
	s.Events.Publish(events.RestaurantTopic(table.RestaurantID), events.Event{
		Event: events.EventSessionClosed,
		Data: map[string]interface{}{
			"session_id":   session.ID,
			"table_number": table.Number,
		},
	})

	session.Table = table
	return &session, nil
}

// SessionView is a session plus its running bill, recomputed on read.
type SessionView struct {
	models.TableSession
	TotalAmount       float64 `json:"total_amount"`
	GuestsCount       int     `json:"guests_count"`
	ActiveOrdersCount int     `json:"active_orders_count"`
}

// Current returns the open session for a table with its running totals.
func (s *SessionService) Current(tableID uint) (*SessionView, error) {
	var session models.TableSession
	err := s.DB.Preload("Table.Restaurant").Preload("GuestSessions").
		Preload("Orders.Items").
		Where("table_id = ? AND closed_at IS NULL", tableID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no open session for table %d", tableID)
		}
		return nil, err
	}

	view := &SessionView{TableSession: session, GuestsCount: len(session.GuestSessions)}
	for i := range session.Orders {
		o := &session.Orders[i]
		if o.Status == models.OrderCancelled {
			continue
		}
		view.TotalAmount += o.Totals(&session.Table.Restaurant).TotalAmount
		if !o.IsTerminal() {
			view.ActiveOrdersCount++
		}
	}
	return view, nil
}

// Join attaches a guest (one phone) to an open session by its code.
func (s *SessionService) Join(sessionCode, guestName string) (*models.GuestSession, error) {
	var session models.TableSession
	err := s.DB.Where("session_code = ?", sessionCode).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("unknown session code")
		}
		return nil, err
	}
	if session.ClosedAt != nil {
		return nil, apperr.InvalidState("table session is closed")
	}

	guest := models.GuestSession{
		SessionKey:     uuid.NewString(),
		GuestName:      guestName,
		TableSessionID: session.ID,
	}
	if err := s.DB.Create(&guest).Error; err != nil {
		return nil, err
	}

	s.Events.Publish(events.TableSessionTopic(session.ID), events.Event{
		Event: events.EventGuestJoined,
		Data: map[string]interface{}{
			"session_id": session.ID,
			"guest_name": guest.GuestName,
		},
	})

	return &guest, nil
}

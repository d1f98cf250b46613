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

// PaymentService records settlements against orders or whole table
// sessions. Confirming a payment that targets an order marks the order
// paid inside the same transaction, so the two either commit together
// or not at all.
type PaymentService struct {
	DB     *gorm.DB
	Events events.Publisher
}

func NewPaymentService(db *gorm.DB, pub events.Publisher) *PaymentService {
	return &PaymentService{DB: db, Events: pub}
}

func newPaymentID() string {
	return "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

type CreatePaymentInput struct {
	OrderID        *uint   `json:"order_id"`
	TableSessionID *uint   `json:"table_session_id"`
	PaymentType    string  `json:"payment_type" binding:"required"`
	Amount         float64 `json:"amount" binding:"required"`
	Currency       string  `json:"currency"`
	PayerName      string  `json:"payer_name"`
	PayerPhone     string  `json:"payer_phone"`
	PayerEmail     string  `json:"payer_email"`
	Notes          string  `json:"notes"`
}

// Create opens a pending payment against exactly one of order / session.
func (s *PaymentService) Create(in CreatePaymentInput) (*models.Payment, error) {
	if (in.OrderID == nil) == (in.TableSessionID == nil) {
		return nil, apperr.Validation("payment must reference exactly one of order or table session")
	}
	if in.Amount <= 0 {
		return nil, apperr.Validation("payment amount must be positive")
	}
	switch in.PaymentType {
	case models.PaymentTypeCash, models.PaymentTypeQR, models.PaymentTypeCard, models.PaymentTypeOnline:
	default:
		return nil, apperr.Validation("unknown payment type %q", in.PaymentType)
	}

	var payment models.Payment
	var restaurant models.Restaurant
	var waiterID *uint

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if in.OrderID != nil {
			var order models.Order
			if err := tx.Preload("TableSession.Table.Restaurant").First(&order, *in.OrderID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("order %d not found", *in.OrderID)
				}
				return err
			}
			restaurant = order.TableSession.Table.Restaurant
			waiterID = order.WaiterID
		} else {
			var session models.TableSession
			if err := tx.Preload("Table.Restaurant").First(&session, *in.TableSessionID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("table session %d not found", *in.TableSessionID)
				}
				return err
			}
			restaurant = session.Table.Restaurant
			waiterID = session.WaiterID
		}

		if in.PaymentType == models.PaymentTypeCash && !restaurant.AllowCashPayment {
			return apperr.Validation("restaurant does not accept cash payments")
		}
		if in.PaymentType == models.PaymentTypeQR && !restaurant.AllowQRPayment {
			return apperr.Validation("restaurant does not accept QR payments")
		}

		currency := in.Currency
		if currency == "" {
			currency = restaurant.Currency
		}

		payment = models.Payment{
			OrderID:        in.OrderID,
			TableSessionID: in.TableSessionID,
			PaymentID:      newPaymentID(),
			PaymentType:    in.PaymentType,
			Status:         models.PaymentPending,
			Amount:         in.Amount,
			Currency:       currency,
			PayerName:      in.PayerName,
			PayerPhone:     in.PayerPhone,
			PayerEmail:     in.PayerEmail,
			Notes:          in.Notes,
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Payment %s created (%.2f %s)", payment.PaymentID, payment.Amount, payment.Currency)

	data := map[string]interface{}{
		"payment_id": payment.PaymentID,
		"amount":     payment.Amount,
		"currency":   payment.Currency,
		"status":     payment.Status,
	}
	s.Events.Publish(events.RestaurantTopic(restaurant.ID), events.Event{Event: events.EventPaymentCreated, Data: data})
	if waiterID != nil {
		s.Events.Publish(events.WaiterTopic(*waiterID), events.Event{Event: events.EventPaymentCreated, Data: data})
	}

	return &payment, nil
}

// Get returns a payment by its numeric id.
func (s *PaymentService) Get(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.DB.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("payment %d not found", id)
		}
		return nil, err
	}
	return &payment, nil
}

// Confirm completes a pending payment. When the payment targets an
// order, the order's paid transition happens in the same transaction:
// if it fails, the payment stays pending.
func (s *PaymentService) Confirm(paymentID uint, staffID *uint) (*models.Payment, error) {
	var payment models.Payment
	var restaurantID uint
	var orderID *uint

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payment %d not found", paymentID)
			}
			return err
		}
		if payment.Status != models.PaymentPending {
			return apperr.InvalidState("payment has already been processed")
		}

		now := time.Now()
		payment.Status = models.PaymentCompleted
		payment.CompletedAt = &now
		payment.ProcessedByID = staffID
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		if payment.OrderID != nil {
			orderID = payment.OrderID
			var order models.Order
			if err := lockForUpdate(tx).First(&order, *payment.OrderID).Error; err != nil {
				return err
			}
			if err := markOrderPaid(&order); err != nil {
				return err
			}
			if err := tx.Save(&order).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.OrderStatusHistory{
				OrderID:     order.ID,
				Status:      order.Status,
				ChangedByID: staffID,
				Notes:       "paid via " + payment.PaymentID,
			}).Error; err != nil {
				return err
			}

			var session models.TableSession
			if err := tx.Preload("Table").First(&session, order.TableSessionID).Error; err != nil {
				return err
			}
			restaurantID = session.Table.RestaurantID
		} else {
			var session models.TableSession
			if err := tx.Preload("Table").First(&session, *payment.TableSessionID).Error; err != nil {
				return err
			}
			restaurantID = session.Table.RestaurantID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Payment %s completed", payment.PaymentID)

	data := map[string]interface{}{
		"payment_id": payment.PaymentID,
		"status":     payment.Status,
		"amount":     payment.Amount,
	}
	s.Events.Publish(events.RestaurantTopic(restaurantID), events.Event{Event: events.EventPaymentStatus, Data: data})
	if orderID != nil {
		s.Events.Publish(events.OrderTopic(*orderID), events.Event{Event: events.EventPaymentStatus, Data: data})

		// The paid transition fans out like any other.
		orders := &OrderService{DB: s.DB, Events: s.Events}
		if view, err := orders.Get(*orderID); err == nil {
			orders.publishStatus(view)
		}
	}

	return &payment, nil
}

// Reject fails a pending payment.
func (s *PaymentService) Reject(paymentID uint, reason string) (*models.Payment, error) {
	var payment models.Payment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payment %d not found", paymentID)
			}
			return err
		}
		if payment.Status != models.PaymentPending {
			return apperr.InvalidState("payment has already been processed")
		}
		payment.Status = models.PaymentFailed
		if reason != "" {
			payment.Notes = strings.TrimSpace(payment.Notes + "\nFailure: " + reason)
		}
		return tx.Save(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Refund returns money on a completed payment. Amount defaults to the
// full original and may not exceed it.
func (s *PaymentService) Refund(paymentID uint, amount *float64, reason string) (*models.Payment, error) {
	var payment models.Payment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payment %d not found", paymentID)
			}
			return err
		}
		if payment.Status != models.PaymentCompleted {
			return apperr.InvalidState("only completed payments can be refunded")
		}

		refund := payment.Amount
		if amount != nil {
			refund = *amount
		}
		if refund <= 0 {
			return apperr.Validation("refund amount must be positive")
		}
		if refund > payment.Amount {
			return apperr.Validation("refund amount %.2f exceeds original payment %.2f", refund, payment.Amount)
		}

		now := time.Now()
		payment.Status = models.PaymentRefunded
		payment.RefundAmount = refund
		payment.RefundReason = reason
		payment.RefundedAt = &now
		return tx.Save(&payment).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Payment %s refunded (%.2f)", payment.PaymentID, payment.RefundAmount)
	return &payment, nil
}

// Pending lists payments awaiting confirmation, optionally per restaurant.
func (s *PaymentService) Pending(restaurantSlug string) ([]models.Payment, error) {
	q := s.scopeByRestaurant(s.DB.Model(&models.Payment{}), restaurantSlug).
		Where("payments.status = ?", models.PaymentPending).
		Order("payments.created_at DESC")

	var payments []models.Payment
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

type PaymentTypeStat struct {
	PaymentType string  `json:"payment_type"`
	Count       int64   `json:"count"`
	Total       float64 `json:"total"`
}

type PaymentStatistics struct {
	TotalRevenue        float64           `json:"total_revenue"`
	TodayRevenue        float64           `json:"today_revenue"`
	PaymentTypes        []PaymentTypeStat `json:"payment_types"`
	TotalTransactions   int64             `json:"total_transactions"`
	PendingTransactions int64             `json:"pending_transactions"`
}

// Statistics aggregates the ledger read-side: completed revenue overall
// and for today, per-type counts/sums, and the pending backlog. A non-nil
// since bounds every aggregate to payments created after it.
func (s *PaymentService) Statistics(restaurantSlug string, since *time.Time) (*PaymentStatistics, error) {
	stats := &PaymentStatistics{}
	base := func() *gorm.DB {
		q := s.scopeByRestaurant(s.DB.Model(&models.Payment{}), restaurantSlug)
		if since != nil {
			q = q.Where("payments.created_at >= ?", *since)
		}
		return q
	}

	if err := base().Where("payments.status = ?", models.PaymentCompleted).
		Select("COALESCE(SUM(payments.amount), 0)").
		Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := base().Where("payments.status = ? AND payments.created_at >= ?", models.PaymentCompleted, midnight).
		Select("COALESCE(SUM(payments.amount), 0)").
		Scan(&stats.TodayRevenue).Error; err != nil {
		return nil, err
	}

	if err := base().
		Select("payments.payment_type AS payment_type, COUNT(payments.id) AS count, COALESCE(SUM(payments.amount), 0) AS total").
		Group("payments.payment_type").
		Scan(&stats.PaymentTypes).Error; err != nil {
		return nil, err
	}

	if err := base().Count(&stats.TotalTransactions).Error; err != nil {
		return nil, err
	}
	if err := base().Where("payments.status = ?", models.PaymentPending).
		Count(&stats.PendingTransactions).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// scopeByRestaurant narrows a payment query to one restaurant through
// either the order or the table-session reference.
func (s *PaymentService) scopeByRestaurant(q *gorm.DB, slug string) *gorm.DB {
	if slug == "" {
		return q
	}
	sessions := s.DB.Model(&models.TableSession{}).
		Select("table_sessions.id").
		Joins("JOIN tables ON tables.id = table_sessions.table_id").
		Joins("JOIN restaurants ON restaurants.id = tables.restaurant_id").
		Where("restaurants.slug = ?", slug)
	orders := s.DB.Model(&models.Order{}).
		Select("orders.id").
		Where("orders.table_session_id IN (?)", sessions)
	return q.Where("payments.order_id IN (?) OR payments.table_session_id IN (?)", orders, sessions)
}

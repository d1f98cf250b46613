package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qrdine/qrdine/apperr"
	"github.com/qrdine/qrdine/events"
	"github.com/qrdine/qrdine/models"
	"github.com/qrdine/qrdine/utils"
)

// OrderService drives orders through the fulfillment state machine.
// Every transition checks its precondition and writes the new state in
// one transaction, then fans the change out to the order, restaurant
// and (when assigned) waiter topics.
//
// Strict mode confines mark-delivered to orders that are ready and
// mark-preparing to confirmed orders. The default is permissive, which
// matches how staff actually correct or skip states on the floor.
type OrderService struct {
	DB     *gorm.DB
	Events events.Publisher
	Strict bool
}

func NewOrderService(db *gorm.DB, pub events.Publisher) *OrderService {
	return &OrderService{DB: db, Events: pub}
}

type OrderItemInput struct {
	MenuItemID      uint   `json:"menu_item_id" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required"`
	SelectedOptions string `json:"selected_options"`
	Notes           string `json:"notes"`
}

type CreateOrderInput struct {
	TableSessionID uint             `json:"table_session_id" binding:"required"`
	GuestSessionID *uint            `json:"guest_session_id"`
	GuestName      string           `json:"guest_name"`
	PaymentMethod  string           `json:"payment_method"`
	Notes          string           `json:"notes"`
	Items          []OrderItemInput `json:"items" binding:"required"`
}

// OrderView is what callers get back after any operation: the order
// plus its derived totals, freshly computed.
type OrderView struct {
	models.Order
	models.OrderTotals
	ItemsCount int `json:"items_count"`
}

// Create places a new order on an open table session, snapshotting each
// item's price from the menu.
func (s *OrderService) Create(in CreateOrderInput) (*OrderView, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, apperr.Validation("item quantity must be at least 1")
		}
	}
	method := in.PaymentMethod
	if method == "" {
		method = models.PaymentMethodCash
	}
	switch method {
	case models.PaymentMethodCash, models.PaymentMethodQR, models.PaymentMethodCard:
	default:
		return nil, apperr.Validation("unknown payment method %q", method)
	}

	var order models.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var session models.TableSession
		if err := tx.Preload("Table.Restaurant").First(&session, in.TableSessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("table session %d not found", in.TableSessionID)
			}
			return err
		}
		if session.ClosedAt != nil {
			return apperr.InvalidState("table session is closed, no new orders can be placed")
		}

		order = models.Order{
			TableSessionID: session.ID,
			GuestSessionID: in.GuestSessionID,
			GuestName:      in.GuestName,
			WaiterID:       session.WaiterID,
			Status:         models.OrderPending,
			PaymentMethod:  method,
			Notes:          in.Notes,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, it := range in.Items {
			var menuItem models.MenuItem
			if err := tx.First(&menuItem, it.MenuItemID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("menu item %d not found", it.MenuItemID)
				}
				return err
			}
			if !menuItem.IsAvailable {
				return apperr.Validation("menu item %q is not available", menuItem.Name)
			}

			item := models.OrderItem{
				OrderID:         order.ID,
				MenuItemID:      menuItem.ID,
				Quantity:        it.Quantity,
				Price:           menuItem.Price, // snapshot, never updated
				SelectedOptions: it.SelectedOptions,
				Notes:           it.Notes,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}

		return tx.Create(&models.OrderStatusHistory{
			OrderID: order.ID,
			Status:  models.OrderPending,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	view, err := s.Get(order.ID)
	if err != nil {
		return nil, err
	}

	restaurant := view.TableSession.Table.Restaurant
	utils.InfoLogger.Printf("Order #%d created on session %d (%d items)", view.ID, view.TableSessionID, view.ItemsCount)

	data := map[string]interface{}{
		"order_id":     view.ID,
		"table_number": view.TableSession.Table.Number,
		"items_count":  view.ItemsCount,
		"total_amount": view.TotalAmount,
	}
	s.Events.Publish(events.RestaurantTopic(restaurant.ID), events.Event{Event: events.EventNewOrder, Data: data})
	if view.WaiterID != nil {
		s.Events.Publish(events.WaiterTopic(*view.WaiterID), events.Event{Event: events.EventNewOrder, Data: data})
	}

	return view, nil
}

// Get loads an order with its items, session chain and derived totals.
func (s *OrderService) Get(orderID uint) (*OrderView, error) {
	var order models.Order
	err := s.DB.Preload("Items.MenuItem").
		Preload("TableSession.Table.Restaurant").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order %d not found", orderID)
		}
		return nil, err
	}
	return s.view(&order), nil
}

func (s *OrderService) view(order *models.Order) *OrderView {
	return &OrderView{
		Order:       *order,
		OrderTotals: order.Totals(&order.TableSession.Table.Restaurant),
		ItemsCount:  order.ItemsCount(),
	}
}

// transition applies fn to the order under a row lock, records the
// status change and republishes the derived state.
func (s *OrderService) transition(orderID uint, changedBy *uint, fn func(o *models.Order) error) (*OrderView, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := lockForUpdate(tx).First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("order %d not found", orderID)
			}
			return err
		}
		if err := fn(&order); err != nil {
			return err
		}
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:     order.ID,
			Status:      order.Status,
			ChangedByID: changedBy,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	view, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	s.publishStatus(view)
	return view, nil
}

func (s *OrderService) publishStatus(view *OrderView) {
	restaurant := view.TableSession.Table.Restaurant
	data := map[string]interface{}{
		"order_id":     view.ID,
		"status":       view.Status,
		"table_number": view.TableSession.Table.Number,
		"items_count":  view.ItemsCount,
		"total_amount": view.TotalAmount,
	}
	ev := events.Event{Event: events.EventOrderStatus, Data: data}

	s.Events.Publish(events.OrderTopic(view.ID), ev)
	s.Events.Publish(events.RestaurantTopic(restaurant.ID), ev)
	if view.WaiterID != nil {
		s.Events.Publish(events.WaiterTopic(*view.WaiterID), ev)
	}

	if view.Status == models.OrderReady {
		s.Events.Publish(events.RestaurantTopic(restaurant.ID), events.Event{
			Event: events.EventOrderReady,
			Data: map[string]interface{}{
				"order_id":     view.ID,
				"table_number": view.TableSession.Table.Number,
			},
		})
	}
}

// Confirm assigns the waiter and moves a pending order to confirmed.
// Confirming twice fails.
func (s *OrderService) Confirm(orderID, waiterID uint) (*OrderView, error) {
	return s.transition(orderID, &waiterID, func(o *models.Order) error {
		if o.Status != models.OrderPending {
			return apperr.InvalidState("order has already been confirmed")
		}
		now := time.Now()
		o.Status = models.OrderConfirmed
		o.WaiterID = &waiterID
		o.ConfirmedAt = &now
		return nil
	})
}

// MarkPreparing moves an order into the kitchen.
func (s *OrderService) MarkPreparing(orderID uint, changedBy *uint) (*OrderView, error) {
	return s.transition(orderID, changedBy, func(o *models.Order) error {
		if o.IsTerminal() {
			return apperr.InvalidState("order is already %s", o.Status)
		}
		if s.Strict && o.Status != models.OrderConfirmed {
			return apperr.InvalidState("only confirmed orders can start preparing")
		}
		o.Status = models.OrderPreparing
		return nil
	})
}

// MarkReady flags the order as ready to serve.
func (s *OrderService) MarkReady(orderID uint, changedBy *uint) (*OrderView, error) {
	return s.transition(orderID, changedBy, func(o *models.Order) error {
		switch o.Status {
		case models.OrderPending, models.OrderConfirmed, models.OrderPreparing:
		default:
			return apperr.InvalidState("order cannot be marked ready from status %s", o.Status)
		}
		now := time.Now()
		o.Status = models.OrderReady
		o.ReadyAt = &now
		return nil
	})
}

// MarkDelivered records that the order reached the table. Permissive by
// default; strict mode requires the order to be ready first.
func (s *OrderService) MarkDelivered(orderID uint, changedBy *uint) (*OrderView, error) {
	return s.transition(orderID, changedBy, func(o *models.Order) error {
		if o.IsTerminal() {
			return apperr.InvalidState("order is already %s", o.Status)
		}
		if s.Strict && o.Status != models.OrderReady {
			return apperr.InvalidState("only ready orders can be delivered")
		}
		now := time.Now()
		o.Status = models.OrderDelivered
		o.DeliveredAt = &now
		return nil
	})
}

// MarkPaid settles the order. Normally driven by the payment ledger.
func (s *OrderService) MarkPaid(orderID uint, changedBy *uint) (*OrderView, error) {
	return s.transition(orderID, changedBy, func(o *models.Order) error {
		return markOrderPaid(o)
	})
}

// markOrderPaid is shared with the payment service, which applies it
// inside its own confirmation transaction.
func markOrderPaid(o *models.Order) error {
	if o.IsTerminal() {
		return apperr.InvalidState("order is already %s", o.Status)
	}
	now := time.Now()
	o.Status = models.OrderPaid
	o.PaidAt = &now
	return nil
}

// Cancel voids a non-terminal order. Paid and delivered orders cannot
// be cancelled.
func (s *OrderService) Cancel(orderID uint, changedBy *uint, reason string) (*OrderView, error) {
	return s.transition(orderID, changedBy, func(o *models.Order) error {
		switch o.Status {
		case models.OrderPaid, models.OrderDelivered, models.OrderCancelled:
			return apperr.InvalidState("order with status %s cannot be cancelled", o.Status)
		}
		now := time.Now()
		o.Status = models.OrderCancelled
		o.CancelledAt = &now
		if reason != "" {
			o.WaiterNotes = strings.TrimSpace(o.WaiterNotes + "\nCancellation reason: " + reason)
		}
		return nil
	})
}

// OrderFilter narrows List. Statuses carries the parsed comma-separated
// set (OR semantics).
type OrderFilter struct {
	RestaurantSlug string
	TableSessionID *uint
	Statuses       []string
	ActiveOnly     bool
}

// List returns order views newest first.
func (s *OrderService) List(f OrderFilter) ([]OrderView, error) {
	q := s.DB.Preload("Items.MenuItem").
		Preload("TableSession.Table.Restaurant").
		Order("orders.created_at DESC")

	if f.RestaurantSlug != "" {
		q = q.Joins("JOIN table_sessions ON table_sessions.id = orders.table_session_id").
			Joins("JOIN tables ON tables.id = table_sessions.table_id").
			Joins("JOIN restaurants ON restaurants.id = tables.restaurant_id").
			Where("restaurants.slug = ?", f.RestaurantSlug)
	}
	if f.TableSessionID != nil {
		q = q.Where("orders.table_session_id = ?", *f.TableSessionID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("orders.status IN ?", f.Statuses)
	}
	if f.ActiveOnly {
		q = q.Where("orders.status NOT IN ?", []string{models.OrderPaid, models.OrderCancelled})
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, *s.view(&orders[i]))
	}
	return views, nil
}

// ParseStatusFilter splits a comma-separated status list, dropping
// blanks and unknown values.
func ParseStatusFilter(raw string) []string {
	known := map[string]bool{
		models.OrderPending: true, models.OrderConfirmed: true,
		models.OrderPreparing: true, models.OrderReady: true,
		models.OrderDelivered: true, models.OrderPaid: true,
		models.OrderCancelled: true,
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		st := strings.TrimSpace(part)
		if known[st] {
			out = append(out, st)
		}
	}
	return out
}

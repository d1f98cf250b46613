package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qrdine/qrdine/apperr"
	"github.com/qrdine/qrdine/events"
	"github.com/qrdine/qrdine/models"
)

func TestCreatePaymentReferencesExactlyOneTarget(t *testing.T) {
	db := setupTestDB(t)
	fx := seedRestaurant(t, db)
	pub := &recordingPublisher{}
	svc := NewPaymentService(db, pub)
	session := openSession(t, db, pub, fx)

	order, err := NewOrderService(db, pub).Create(CreateOrderInput{
		TableSessionID: session.ID,
		Items:          []OrderItemInput{{MenuItemID: fx.Burger.ID, Quantity: 1}},
	})
	assert.NoError(t, err)

	// Neither target.
	_, err = svc.Create(CreatePaymentInput{PaymentType: models.PaymentTypeCash, Amount: 100})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// Both targets.
	_, err = svc.Create(CreatePaymentInput{
		OrderID: &order.ID, TableSessionID: &session.ID,
		PaymentType: models.PaymentTypeCash, Amount: 100,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// Exactly one is fine; currency defaults from the restaurant.
	payment, err := svc.Create(CreatePaymentInput{
		OrderID: &order.ID, PaymentType: models.PaymentTypeCash, Amount: 115,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, "KGS", payment.Currency)
	assert.Regexp(t, `^PAY-[0-9A-F]{12}$`, payment.PaymentID)
	assert.Len(t, pub.byEvent(events.EventPaymentCreated), 2) // restaurant + waiter
}

func TestCreatePaymentHonorsRestaurantMethods(t *testing.T) {
	db := setupTestDB(t)
	fx := seedRestaurant(t, db)
	pub := &recordingPublisher{}
	svc := NewPaymentService(db, pub)
	session := openSession(t, db, pub, fx)

	db.Model(&models.Restaurant{}).Where("id = ?", fx.Restaurant.ID).
		Update("allow_qr_payment", false)

	_, err := svc.Create(CreatePaymentInput{
		TableSessionID: &session.ID, PaymentType: models.PaymentTypeQR, Amount: 50,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(CreatePaymentInput{
		TableSessionID: &session.ID, PaymentType: models.PaymentTypeCash, Amount: 0,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestConfirmPaymentMarksOrderPaidAtomically(t *testing.T) {
	db := setupTestDB(t)
	fx := seedRestaurant(t, db)
	pub := &recordingPublisher{}
	payments := NewPaymentService(db, pub)
	orders := NewOrderService(db, pub)
	session := openSession(t, db, pub, fx)

	order, err := orders.Create(CreateOrderInput{
		TableSessionID: session.ID,
		Items:          []OrderItemInput{{MenuItemID: fx.Burger.ID, Quantity: 1}},
	})
	assert.NoError(t, err)

	payment, err := payments.Create(CreatePaymentInput{
		OrderID: &order.ID, PaymentType: models.PaymentTypeCash, Amount: order.TotalAmount,
	})
	assert.NoError(t, err)

	confirmed, err := payments.Confirm(payment.ID, &fx.Waiter.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, confirmed.Status)
	assert.NotNil(t, confirmed.CompletedAt)
	assert.Equal(t, fx.Waiter.ID, *confirmed.ProcessedByID)

	settled, err := orders.Get(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderPaid, settled.Status)

	// The order's own status change fanned out to all three topics.
	statuses := pub.byEvent(events.EventOrderStatus)
	assert.Len(t, statuses, 3)
	topics := make([]string, 0, len(statuses))
	for _, e := range statuses {
		topics = append(topics, e.Topic)
		assert.Equal(t, models.OrderPaid, e.Event.Data.(map[string]interface{})["status"])
	}
	assert.Contains(t, topics, events.OrderTopic(order.ID))
	assert.Contains(t, topics, events.RestaurantTopic(fx.Restaurant.ID))
	assert.Contains(t, topics, events.WaiterTopic(fx.Waiter.ID))

	// The ledger noted the payment on the order's history.
	var hist models.OrderStatusHistory
	db.Where("order_id = ? AND status = ?", order.ID, models.OrderPaid).First(&hist)
	assert.Contains(t, hist.Notes, payment.PaymentID)

	// Confirming again fails.
	_, err = payments.Confirm(payment.ID, &fx.Waiter.ID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestConfirmPaymentRollsBackWhenOrderIsTerminal(t *testing.T) {
	db := setupTestDB(t)
	fx := seedRestaurant(t, db)
	pub := &recordingPublisher{}
	payments := NewPaymentService(db, pub)
	orders := NewOrderService(db, pub)
	session := openSession(t, db, pub, fx)

	order, err := orders.Create(CreateOrderInput{
		TableSessionID: session.ID,
		Items:          []OrderItemInput{{MenuItemID: fx.Burger.ID, Quantity: 1}},
	})
	assert.NoError(t, err)

	payment, err := payments.Create(CreatePaymentInput{
		OrderID: &order.ID, PaymentType: models.PaymentTypeCash, Amount: order.TotalAmount,
	})
	assert.NoError(t, err)

	// The order gets cancelled before the cashier confirms.
	_, err = orders.Cancel(order.ID, nil, "kitchen out of stock")
	assert.NoError(t, err)

	_, err = payments.Confirm(payment.ID, &fx.Waiter.ID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	// The whole transaction rolled back: the payment is still pending.
	reloaded, err := payments.Get(payment.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPending, reloaded.Status)
	assert.Nil(t, reloaded.CompletedAt)
}

func TestConfirmAndRejectRequirePendingStatus(t *testing.T) {
	db := setupTestDB(t)
	fx := seedRestaurant(t, db)
	pub := &recordingPublisher{}
	svc := NewPaymentService(db, pub)
	session := openSession(t, db, pub, fx)

	payment, err := svc.Create(CreatePaymentInput{
		TableSessionID: &session.ID, PaymentType: models.PaymentTypeCash, Amount: 100,
	})
	assert.NoError(t, err)

	db.Model(&models.Payment{}).Where("id = ?", payment.ID).
		Update("status", models.PaymentProcessing)

	_, err = svc.Confirm(payment.ID, nil)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	_, err = svc.Reject(payment.ID, "")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestRejectPayment(t *testing.T) {
	db := setupTestDB(t)
	fx := seedRestaurant(t, db)
	pub := &recordingPublisher{}
	svc := NewPaymentService(db, pub)
	session := openSession(t, db, pub, fx)

	payment, err := svc.Create(CreatePaymentInput{
		TableSessionID: &session.ID, PaymentType: models.PaymentTypeCash, Amount: 100,
	})
	assert.NoError(t, err)

	rejected, err := svc.Reject(payment.ID, "guest walked out")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, rejected.Status)
	assert.Contains(t, rejected.Notes, "guest walked out")

	_, err = svc.Reject(payment.ID, "")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestRefundBounds(t *testing.T) {
	db := setupTestDB(t)
	fx := seedRestaurant(t, db)
	pub := &recordingPublisher{}
	svc := NewPaymentService(db, pub)
	session := openSession(t, db, pub, fx)

	payment, err := svc.Create(CreatePaymentInput{
		TableSessionID: &session.ID, PaymentType: models.PaymentTypeCard, Amount: 200,
	})
	assert.NoError(t, err)

	// Only completed payments refund.
	_, err = svc.Refund(payment.ID, nil, "")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	_, err = svc.Confirm(payment.ID, nil)
	assert.NoError(t, err)

	over := 250.0
	_, err = svc.Refund(payment.ID, &over, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	negative := -5.0
	_, err = svc.Refund(payment.ID, &negative, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// Defaults to the full amount.
	refunded, err := svc.Refund(payment.ID, nil, "double charge")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.Status)
	assert.Equal(t, 200.0, refunded.RefundAmount)
	assert.Equal(t, "double charge", refunded.RefundReason)
	assert.NotNil(t, refunded.RefundedAt)
}

func TestPendingAndStatistics(t *testing.T) {
	db := setupTestDB(t)
	fx := seedRestaurant(t, db)
	pub := &recordingPublisher{}
	svc := NewPaymentService(db, pub)
	session := openSession(t, db, pub, fx)

	cash, err := svc.Create(CreatePaymentInput{
		TableSessionID: &session.ID, PaymentType: models.PaymentTypeCash, Amount: 100,
	})
	assert.NoError(t, err)
	_, err = svc.Create(CreatePaymentInput{
		TableSessionID: &session.ID, PaymentType: models.PaymentTypeQR, Amount: 60,
	})
	assert.NoError(t, err)

	_, err = svc.Confirm(cash.ID, nil)
	assert.NoError(t, err)

	pending, err := svc.Pending(fx.Restaurant.Slug)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)

	stats, err := svc.Statistics(fx.Restaurant.Slug, nil)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, stats.TotalRevenue)
	assert.Equal(t, 100.0, stats.TodayRevenue)
	assert.EqualValues(t, 2, stats.TotalTransactions)
	assert.EqualValues(t, 1, stats.PendingTransactions)
	assert.Len(t, stats.PaymentTypes, 2)

	// A future since bound excludes everything.
	future := time.Now().Add(time.Hour)
	bounded, err := svc.Statistics(fx.Restaurant.Slug, &future)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, bounded.TotalRevenue)
	assert.EqualValues(t, 0, bounded.TotalTransactions)

	// Another restaurant's slug sees an empty ledger.
	empty, err := svc.Statistics("somewhere-else", nil)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, empty.TotalRevenue)
	assert.EqualValues(t, 0, empty.TotalTransactions)
}

func TestStatisticsTodayRevenueExcludesEarlierDays(t *testing.T) {
	db := setupTestDB(t)
	fx := seedRestaurant(t, db)
	pub := &recordingPublisher{}
	svc := NewPaymentService(db, pub)
	session := openSession(t, db, pub, fx)

	payment, err := svc.Create(CreatePaymentInput{
		TableSessionID: &session.ID, PaymentType: models.PaymentTypeCash, Amount: 100,
	})
	assert.NoError(t, err)
	_, err = svc.Confirm(payment.ID, nil)
	assert.NoError(t, err)

	// Backdate it two days; the total keeps it, today drops it.
	db.Model(&models.Payment{}).Where("id = ?", payment.ID).
		Update("created_at", time.Now().AddDate(0, 0, -2))

	stats, err := svc.Statistics(fx.Restaurant.Slug, nil)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, stats.TotalRevenue)
	assert.Equal(t, 0.0, stats.TodayRevenue)
}

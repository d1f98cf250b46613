package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrdine/qrdine/apperr"
	"github.com/qrdine/qrdine/middlewares"
	"github.com/qrdine/qrdine/models"
	"github.com/qrdine/qrdine/services"
	"github.com/qrdine/qrdine/utils"
)

type PaymentController struct {
	DB       *gorm.DB
	Payments *services.PaymentService
}

func NewPaymentController(db *gorm.DB, payments *services.PaymentService) *PaymentController {
	return &PaymentController{DB: db, Payments: payments}
}

// CreatePayment is public: guests open their own pending payment when
// they ask for the bill. Validation happens in the service.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	var input services.CreatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	payment, err := pc.Payments.Create(input)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Payment created", payment)
}

func (pc *PaymentController) restaurantIDForPayment(payment *models.Payment) (uint, error) {
	if payment.OrderID != nil {
		return restaurantIDForOrder(pc.DB, *payment.OrderID)
	}
	var session models.TableSession
	if err := pc.DB.Preload("Table").First(&session, *payment.TableSessionID).Error; err != nil {
		return 0, err
	}
	return session.Table.RestaurantID, nil
}

func (pc *PaymentController) authorizedPayment(c *gin.Context) (*models.Payment, bool) {
	id, ok := paramUint(c, "payment_id")
	if !ok {
		utils.RespondAppError(c, apperr.Validation("invalid payment id"))
		return nil, false
	}

	payment, err := pc.Payments.Get(id)
	if err != nil {
		utils.RespondAppError(c, err)
		return nil, false
	}

	restaurantID, err := pc.restaurantIDForPayment(payment)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return nil, false
	}

	actor := middlewares.ActorFromContext(c)
	if !middlewares.Allow(actor, middlewares.ActionManagePayments, restaurantID) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return nil, false
	}
	return payment, true
}

// ConfirmPayment settles the payment and, for order payments, marks the
// order paid atomically.
func (pc *PaymentController) ConfirmPayment(c *gin.Context) {
	payment, ok := pc.authorizedPayment(c)
	if !ok {
		return
	}

	actor := middlewares.ActorFromContext(c)
	confirmed, err := pc.Payments.Confirm(payment.ID, &actor.UserID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment confirmed", confirmed)
}

func (pc *PaymentController) RejectPayment(c *gin.Context) {
	payment, ok := pc.authorizedPayment(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	rejected, err := pc.Payments.Reject(payment.ID, req.Reason)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment rejected", rejected)
}

func (pc *PaymentController) RefundPayment(c *gin.Context) {
	payment, ok := pc.authorizedPayment(c)
	if !ok {
		return
	}

	var req struct {
		Amount *float64 `json:"amount"`
		Reason string   `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	refunded, err := pc.Payments.Refund(payment.ID, req.Amount, req.Reason)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment refunded", refunded)
}

func (pc *PaymentController) authorizeBySlug(c *gin.Context, action string) (string, bool) {
	slug := c.Param("slug")

	var restaurantID uint
	if err := pc.DB.Table("restaurants").Select("id").
		Where("slug = ?", slug).Scan(&restaurantID).Error; err != nil || restaurantID == 0 {
		utils.RespondAppError(c, apperr.NotFound("restaurant %q not found", slug))
		return "", false
	}

	actor := middlewares.ActorFromContext(c)
	if !middlewares.Allow(actor, action, restaurantID) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return "", false
	}
	return slug, true
}

// GetPendingPayments lists the cashier backlog for a restaurant.
func (pc *PaymentController) GetPendingPayments(c *gin.Context) {
	slug, ok := pc.authorizeBySlug(c, middlewares.ActionManagePayments)
	if !ok {
		return
	}

	payments, err := pc.Payments.Pending(slug)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Pending payments", payments)
}

// GetPaymentStatistics is the owner's revenue dashboard. An optional
// ?since=RFC3339 bound narrows the window.
func (pc *PaymentController) GetPaymentStatistics(c *gin.Context) {
	slug, ok := pc.authorizeBySlug(c, middlewares.ActionViewStatistics)
	if !ok {
		return
	}

	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.RespondAppError(c, apperr.Validation("since must be RFC3339"))
			return
		}
		since = &parsed
	}

	stats, err := pc.Payments.Statistics(slug, since)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment statistics", stats)
}

package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrdine/qrdine/apperr"
	"github.com/qrdine/qrdine/middlewares"
	"github.com/qrdine/qrdine/services"
	"github.com/qrdine/qrdine/utils"
)

type OrderController struct {
	DB     *gorm.DB
	Orders *services.OrderService
}

func NewOrderController(db *gorm.DB, orders *services.OrderService) *OrderController {
	return &OrderController{DB: db, Orders: orders}
}

// CreateOrder is the guest entry point: no auth, just an open session.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var input services.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	view, err := oc.Orders.Create(input)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", view)
}

// GetOrder returns an order with its derived totals. Public: guests
// poll their own order by id, staff use the same endpoint.
func (oc *OrderController) GetOrder(c *gin.Context) {
	id, ok := paramUint(c, "order_id")
	if !ok {
		utils.RespondAppError(c, apperr.Validation("invalid order id"))
		return
	}

	view, err := oc.Orders.Get(id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", view)
}

// GetOrders lists a restaurant's orders for staff, filterable by a
// comma-separated status set, session id, or active-only.
func (oc *OrderController) GetOrders(c *gin.Context) {
	slug := c.Param("slug")

	var restaurantID uint
	if err := oc.DB.Table("restaurants").Select("id").
		Where("slug = ?", slug).Scan(&restaurantID).Error; err != nil || restaurantID == 0 {
		utils.RespondAppError(c, apperr.NotFound("restaurant %q not found", slug))
		return
	}

	actor := middlewares.ActorFromContext(c)
	if !middlewares.Allow(actor, middlewares.ActionViewOrders, restaurantID) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	filter := services.OrderFilter{
		RestaurantSlug: slug,
		Statuses:       services.ParseStatusFilter(c.Query("status")),
		ActiveOnly:     c.Query("active") == "true",
	}
	if raw := c.Query("table_session_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			sid := uint(id)
			filter.TableSessionID = &sid
		}
	}

	views, err := oc.Orders.List(filter)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", views)
}

// transitionHandler wraps the shared policy check around one state change.
func (oc *OrderController) transitionHandler(c *gin.Context, apply func(orderID uint, actor middlewares.Actor) (*services.OrderView, error), message string) {
	id, ok := paramUint(c, "order_id")
	if !ok {
		utils.RespondAppError(c, apperr.Validation("invalid order id"))
		return
	}

	restaurantID, err := restaurantIDForOrder(oc.DB, id)
	if err != nil {
		utils.RespondAppError(c, apperr.NotFound("order %d not found", id))
		return
	}

	actor := middlewares.ActorFromContext(c)
	if !middlewares.Allow(actor, middlewares.ActionTransitionOrders, restaurantID) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	view, err := apply(id, actor)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, message, view)
}

func (oc *OrderController) ConfirmOrder(c *gin.Context) {
	oc.transitionHandler(c, func(orderID uint, actor middlewares.Actor) (*services.OrderView, error) {
		return oc.Orders.Confirm(orderID, actor.UserID)
	}, "Order confirmed")
}

func (oc *OrderController) MarkPreparing(c *gin.Context) {
	oc.transitionHandler(c, func(orderID uint, actor middlewares.Actor) (*services.OrderView, error) {
		return oc.Orders.MarkPreparing(orderID, &actor.UserID)
	}, "Order is being prepared")
}

func (oc *OrderController) MarkReady(c *gin.Context) {
	oc.transitionHandler(c, func(orderID uint, actor middlewares.Actor) (*services.OrderView, error) {
		return oc.Orders.MarkReady(orderID, &actor.UserID)
	}, "Order is ready")
}

func (oc *OrderController) MarkDelivered(c *gin.Context) {
	oc.transitionHandler(c, func(orderID uint, actor middlewares.Actor) (*services.OrderView, error) {
		return oc.Orders.MarkDelivered(orderID, &actor.UserID)
	}, "Order delivered")
}

func (oc *OrderController) MarkPaid(c *gin.Context) {
	oc.transitionHandler(c, func(orderID uint, actor middlewares.Actor) (*services.OrderView, error) {
		return oc.Orders.MarkPaid(orderID, &actor.UserID)
	}, "Order paid")
}

func (oc *OrderController) CancelOrder(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional for cancellation.
	_ = c.ShouldBindJSON(&req)

	oc.transitionHandler(c, func(orderID uint, actor middlewares.Actor) (*services.OrderView, error) {
		return oc.Orders.Cancel(orderID, &actor.UserID, req.Reason)
	}, "Order cancelled")
}

package Controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/qrdine/qrdine/controllers"
	"github.com/qrdine/qrdine/events"
	"github.com/qrdine/qrdine/models"
	"github.com/qrdine/qrdine/services"
)

func setupOrderRouter(db *gorm.DB, user models.User) (*gin.Engine, *services.SessionService) {
	hub := events.NewHub()
	sessions := services.NewSessionService(db, hub)
	orders := services.NewOrderService(db, hub)
	orderCtrl := controllers.NewOrderController(db, orders)

	router := gin.Default()
	router.POST("/orders", orderCtrl.CreateOrder)
	router.GET("/orders/:order_id", orderCtrl.GetOrder)

	auth := router.Group("/admin")
	auth.Use(asUser(user))
	auth.GET("/restaurants/:slug/orders", orderCtrl.GetOrders)
	auth.POST("/orders/:order_id/confirm", orderCtrl.ConfirmOrder)
	auth.POST("/orders/:order_id/cancel", orderCtrl.CancelOrder)
	return router, sessions
}

func TestCreateAndGetOrder(t *testing.T) {
	db := setupTestDB(t)
	fx := seedVenue(t, db)
	router, sessions := setupOrderRouter(db, fx.Waiter)

	session, err := sessions.Open(fx.Table.ID, nil)
	assert.NoError(t, err)

	w := doJSON(t, router, "POST", "/orders", map[string]interface{}{
		"table_session_id": session.ID,
		"guest_name":       "Dana",
		"items": []map[string]interface{}{
			{"menu_item_id": fx.Burger.ID, "quantity": 2},
		},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	resp := decodeBody(t, w)
	assert.Equal(t, "Order created", resp["message"])
	data := resp["data"].(map[string]interface{})
	orderID := int(data["id"].(float64))
	assert.Equal(t, "pending", data["status"])
	// 200 subtotal + 10% tax + 5% service.
	assert.Equal(t, 230.0, data["total_amount"])

	w = doJSON(t, router, "GET", fmt.Sprintf("/orders/%d", orderID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	getData := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(orderID), getData["id"])
}

func TestOrderWorkflowOverHTTP(t *testing.T) {
	db := setupTestDB(t)
	fx := seedVenue(t, db)
	router, sessions := setupOrderRouter(db, fx.Waiter)

	session, err := sessions.Open(fx.Table.ID, nil)
	assert.NoError(t, err)

	w := doJSON(t, router, "POST", "/orders", map[string]interface{}{
		"table_session_id": session.ID,
		"items": []map[string]interface{}{
			{"menu_item_id": fx.Burger.ID, "quantity": 1},
		},
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	orderID := int(decodeBody(t, w)["data"].(map[string]interface{})["id"].(float64))

	// Confirm assigns the waiter.
	w = doJSON(t, router, "POST", fmt.Sprintf("/admin/orders/%d/confirm", orderID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "confirmed", data["status"])
	assert.Equal(t, float64(fx.Waiter.ID), data["waiter_id"])

	// Confirming twice is an invalid state, not a crash.
	w = doJSON(t, router, "POST", fmt.Sprintf("/admin/orders/%d/confirm", orderID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Cancellation with a reason.
	w = doJSON(t, router, "POST", fmt.Sprintf("/admin/orders/%d/cancel", orderID), map[string]interface{}{
		"reason": "out of stock",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "cancelled", data["status"])

	// The staff list shows it under the cancelled filter.
	w = doJSON(t, router, "GET", "/admin/restaurants/test-bistro/orders?status=cancelled", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	list := decodeBody(t, w)["data"].([]interface{})
	assert.Len(t, list, 1)
}

func TestOrderOnMissingSession(t *testing.T) {
	db := setupTestDB(t)
	fx := seedVenue(t, db)
	router, _ := setupOrderRouter(db, fx.Waiter)

	w := doJSON(t, router, "POST", "/orders", map[string]interface{}{
		"table_session_id": 12345,
		"items": []map[string]interface{}{
			{"menu_item_id": fx.Burger.ID, "quantity": 1},
		},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

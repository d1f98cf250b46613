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

func setupMenuRouter(db *gorm.DB, user models.User) *gin.Engine {
	menuCtrl := controllers.NewMenuController(db)

	router := gin.Default()
	auth := router.Group("/admin")
	auth.Use(asUser(user))
	auth.POST("/categories", menuCtrl.CreateCategory)
	auth.POST("/menu-items", menuCtrl.CreateMenuItem)
	auth.PATCH("/menu-items/:item_id", menuCtrl.UpdateMenuItem)
	auth.DELETE("/menu-items/:item_id", menuCtrl.DeleteMenuItem)
	return router
}

func ownerOf(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	var owner models.User
	if err := db.Where("role = ?", models.RoleOwner).First(&owner).Error; err != nil {
		t.Fatalf("seed owner missing: %v", err)
	}
	return owner
}

func TestMenuManagement(t *testing.T) {
	db := setupTestDB(t)
	fx := seedVenue(t, db)
	router := setupMenuRouter(db, ownerOf(t, db))

	// Duplicate category name within the restaurant conflicts.
	w := doJSON(t, router, "POST", "/admin/categories", map[string]interface{}{
		"restaurant_id": fx.Restaurant.ID,
		"name":          "Mains",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, "POST", "/admin/categories", map[string]interface{}{
		"restaurant_id": fx.Restaurant.ID,
		"name":          "Drinks",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	categoryID := int(decodeBody(t, w)["data"].(map[string]interface{})["id"].(float64))

	w = doJSON(t, router, "POST", "/admin/menu-items", map[string]interface{}{
		"category_id": categoryID,
		"name":        "Kompot",
		"price":       30,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Price must be positive.
	w = doJSON(t, router, "POST", "/admin/menu-items", map[string]interface{}{
		"category_id": categoryID,
		"name":        "Freebie",
		"price":       -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteMenuItemGuardedByOrderReferences(t *testing.T) {
	db := setupTestDB(t)
	fx := seedVenue(t, db)
	router := setupMenuRouter(db, ownerOf(t, db))

	hub := events.NewHub()
	session, err := services.NewSessionService(db, hub).Open(fx.Table.ID, nil)
	assert.NoError(t, err)
	_, err = services.NewOrderService(db, hub).Create(services.CreateOrderInput{
		TableSessionID: session.ID,
		Items:          []services.OrderItemInput{{MenuItemID: fx.Burger.ID, Quantity: 1}},
	})
	assert.NoError(t, err)

	// Referenced by an order item: deletion conflicts.
	w := doJSON(t, router, "DELETE", fmt.Sprintf("/admin/menu-items/%d", fx.Burger.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Marking it unavailable is the supported path.
	w = doJSON(t, router, "PATCH", fmt.Sprintf("/admin/menu-items/%d", fx.Burger.ID), map[string]interface{}{
		"is_available": false,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["is_available"])

	// An unreferenced dish deletes fine.
	var category models.MenuCategory
	db.Where("restaurant_id = ?", fx.Restaurant.ID).First(&category)
	orphan := models.MenuItem{CategoryID: category.ID, Name: "Orphan", Price: 10, IsAvailable: true}
	db.Create(&orphan)

	w = doJSON(t, router, "DELETE", fmt.Sprintf("/admin/menu-items/%d", orphan.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

package Controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/qrdine/qrdine/models"
	"github.com/qrdine/qrdine/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.Table{},
		&models.TableSession{},
		&models.GuestSession{},
		&models.MenuCategory{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.Payment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

type seed struct {
	Restaurant models.Restaurant
	Table      models.Table
	Waiter     models.User
	Burger     models.MenuItem
}

func seedVenue(t *testing.T, db *gorm.DB) seed {
	t.Helper()

	owner := models.User{Name: "Owner", Email: "owner@test.local", Password: "x", Role: models.RoleOwner}
	db.Create(&owner)

	restaurant := models.Restaurant{
		Name: "Test Bistro", Slug: "test-bistro", OwnerID: owner.ID,
		Currency: "KGS", TaxRate: 10, ServiceCharge: 5,
		AllowCashPayment: true, AllowQRPayment: true, IsActive: true,
	}
	db.Create(&restaurant)
	db.Model(&owner).Update("restaurant_id", restaurant.ID)

	waiter := models.User{
		Name: "Waiter", Email: "waiter@test.local", Password: "x",
		Role: models.RoleWaiter, RestaurantID: &restaurant.ID,
	}
	db.Create(&waiter)

	table := models.Table{RestaurantID: restaurant.ID, Number: "A1", Capacity: 4, IsActive: true}
	db.Create(&table)

	category := models.MenuCategory{RestaurantID: restaurant.ID, Name: "Mains", IsActive: true}
	db.Create(&category)

	burger := models.MenuItem{CategoryID: category.ID, Name: "Burger", Price: 100, IsAvailable: true}
	db.Create(&burger)

	return seed{Restaurant: restaurant, Table: table, Waiter: waiter, Burger: burger}
}

// asUser fakes the auth middleware by stuffing the actor into the
// context, so controller tests exercise the policy without JWTs.
func asUser(user models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", user.ID)
		c.Set("role", user.Role)
		if user.RestaurantID != nil {
			c.Set("restaurant_id", *user.RestaurantID)
		}
		c.Next()
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

package services

import (
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/qrdine/qrdine/events"
	"github.com/qrdine/qrdine/models"
	"github.com/qrdine/qrdine/utils"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Topic string
	Event events.Event
}

func (p *recordingPublisher) Publish(topic string, ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Topic: topic, Event: ev})
}

func (p *recordingPublisher) byEvent(name string) []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []recordedEvent
	for _, e := range p.events {
		if e.Event.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

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

type fixture struct {
	Restaurant models.Restaurant
	Table      models.Table
	Waiter     models.User
	Burger     models.MenuItem
	Fries      models.MenuItem
}

// seedRestaurant creates a venue with 10% tax, 5% service charge and a
// two-item menu.
func seedRestaurant(t *testing.T, db *gorm.DB) fixture {
	t.Helper()

	owner := models.User{Name: "Owner", Email: "owner@test.local", Password: "x", Role: models.RoleOwner}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("seed owner: %v", err)
	}

	restaurant := models.Restaurant{
		Name:             "Test Bistro",
		Slug:             "test-bistro",
		OwnerID:          owner.ID,
		Currency:         "KGS",
		TaxRate:          10,
		ServiceCharge:    5,
		AllowCashPayment: true,
		AllowQRPayment:   true,
		IsActive:         true,
	}
	if err := db.Create(&restaurant).Error; err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}

	waiter := models.User{
		Name: "Waiter", Email: "waiter@test.local", Password: "x",
		Role: models.RoleWaiter, RestaurantID: &restaurant.ID,
	}
	if err := db.Create(&waiter).Error; err != nil {
		t.Fatalf("seed waiter: %v", err)
	}

	table := models.Table{RestaurantID: restaurant.ID, Number: "A1", Capacity: 4, IsActive: true}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("seed table: %v", err)
	}

	category := models.MenuCategory{RestaurantID: restaurant.ID, Name: "Mains", IsActive: true}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	burger := models.MenuItem{CategoryID: category.ID, Name: "Burger", Price: 100, IsAvailable: true}
	fries := models.MenuItem{CategoryID: category.ID, Name: "Fries", Price: 50, IsAvailable: true}
	if err := db.Create(&burger).Error; err != nil {
		t.Fatalf("seed burger: %v", err)
	}
	if err := db.Create(&fries).Error; err != nil {
		t.Fatalf("seed fries: %v", err)
	}

	return fixture{Restaurant: restaurant, Table: table, Waiter: waiter, Burger: burger, Fries: fries}
}

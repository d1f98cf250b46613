package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/qrdine/qrdine/config"
	"github.com/qrdine/qrdine/events"
	"github.com/qrdine/qrdine/models"
	"github.com/qrdine/qrdine/router"
	"github.com/qrdine/qrdine/services"
	"github.com/qrdine/qrdine/utils"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}
	utils.InitLogger()
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	hub := events.NewHub()
	if rdb := config.InitRedis(); rdb != nil {
		hub.SetMirror(events.NewRedisMirror(rdb))
		utils.InfoLogger.Println("Redis event mirror enabled")
	}

	sessionService := services.NewSessionService(db, hub)
	orderService := services.NewOrderService(db, hub)
	orderService.Strict = os.Getenv("ORDER_STRICT_TRANSITIONS") == "true"
	paymentService := services.NewPaymentService(db, hub)

	r := router.SetupRouter(db, hub, orderService, sessionService, paymentService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
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
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}

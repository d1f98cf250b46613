package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrdine/qrdine/controllers"
	"github.com/qrdine/qrdine/events"
	"github.com/qrdine/qrdine/middlewares"
	"github.com/qrdine/qrdine/services"
)

func SetupRouter(db *gorm.DB, hub *events.Hub, orders *services.OrderService, sessions *services.SessionService, payments *services.PaymentService) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())

	// Generated table QR codes.
	r.Static("/uploads", "./public/uploads")

	userCtrl := controllers.NewUserController(db)
	restaurantCtrl := controllers.NewRestaurantController(db)
	menuCtrl := controllers.NewMenuController(db)
	tableCtrl := controllers.NewTableController(db, sessions)
	orderCtrl := controllers.NewOrderController(db, orders)
	paymentCtrl := controllers.NewPaymentController(db, payments)
	wsCtrl := controllers.NewWSController(hub)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// Guest flow: scan QR -> restaurant page -> session -> order -> pay.
	r.GET("/restaurants/:slug", restaurantCtrl.GetRestaurantBySlug)
	r.GET("/tables/:table_id/session", tableCtrl.CurrentSession)
	r.POST("/sessions/join", tableCtrl.JoinSession)
	r.POST("/orders", orderCtrl.CreateOrder)
	r.GET("/orders/:order_id", orderCtrl.GetOrder)
	r.POST("/payments", paymentCtrl.CreatePayment)

	// Live updates.
	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware())
	{
		ws.GET("", wsCtrl.Subscribe)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())

	auth.GET("/profile", userCtrl.GetProfile)

	// RESTAURANTS
	auth.GET("/restaurants", restaurantCtrl.GetRestaurants)
	auth.POST("/restaurants", restaurantCtrl.CreateRestaurant)
	auth.PATCH("/restaurants/:slug", restaurantCtrl.UpdateRestaurant)

	// MENU
	auth.POST("/categories", menuCtrl.CreateCategory)
	auth.PATCH("/categories/:category_id", menuCtrl.UpdateCategory)
	auth.POST("/menu-items", menuCtrl.CreateMenuItem)
	auth.PATCH("/menu-items/:item_id", menuCtrl.UpdateMenuItem)
	auth.DELETE("/menu-items/:item_id", menuCtrl.DeleteMenuItem)

	// TABLES & SESSIONS
	auth.GET("/restaurants/:slug/tables", tableCtrl.GetTables)
	auth.POST("/tables", tableCtrl.CreateTable)
	auth.PATCH("/tables/:table_id", tableCtrl.UpdateTable)
	auth.POST("/tables/:table_id/sessions", tableCtrl.OpenSession)
	auth.POST("/sessions/:session_id/close", tableCtrl.CloseSession)

	// ORDERS
	auth.GET("/restaurants/:slug/orders", orderCtrl.GetOrders)
	auth.POST("/orders/:order_id/confirm", orderCtrl.ConfirmOrder)
	auth.POST("/orders/:order_id/preparing", orderCtrl.MarkPreparing)
	auth.POST("/orders/:order_id/ready", orderCtrl.MarkReady)
	auth.POST("/orders/:order_id/delivered", orderCtrl.MarkDelivered)
	auth.POST("/orders/:order_id/paid", orderCtrl.MarkPaid)
	auth.POST("/orders/:order_id/cancel", orderCtrl.CancelOrder)

	// PAYMENTS
	auth.POST("/payments/:payment_id/confirm", paymentCtrl.ConfirmPayment)
	auth.POST("/payments/:payment_id/reject", paymentCtrl.RejectPayment)
	auth.POST("/payments/:payment_id/refund", paymentCtrl.RefundPayment)
	auth.GET("/restaurants/:slug/payments/pending", paymentCtrl.GetPendingPayments)
	auth.GET("/restaurants/:slug/payments/statistics", paymentCtrl.GetPaymentStatistics)

	return r
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrdine/qrdine/apperr"
	"github.com/qrdine/qrdine/middlewares"
	"github.com/qrdine/qrdine/models"
	"github.com/qrdine/qrdine/utils"
)

type RestaurantController struct {
	DB *gorm.DB
}

func NewRestaurantController(db *gorm.DB) *RestaurantController {
	return &RestaurantController{DB: db}
}

// CreateRestaurant -> register a new venue for the calling owner
func (rc *RestaurantController) CreateRestaurant(c *gin.Context) {
	actor := middlewares.ActorFromContext(c)
	if actor.Role != models.RoleOwner && actor.Role != models.RoleSuperadmin {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var req struct {
		Name          string  `json:"name" binding:"required"`
		Slug          string  `json:"slug"`
		Description   string  `json:"description"`
		Phone         string  `json:"phone"`
		Address       string  `json:"address"`
		City          string  `json:"city"`
		Currency      string  `json:"currency"`
		TaxRate       float64 `json:"tax_rate"`
		ServiceCharge float64 `json:"service_charge"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.TaxRate < 0 || req.ServiceCharge < 0 {
		utils.RespondAppError(c, apperr.Validation("tax rate and service charge must not be negative"))
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = models.Slugify(req.Name)
	}
	currency := req.Currency
	if currency == "" {
		currency = "KGS"
	}

	restaurant := models.Restaurant{
		Name:             req.Name,
		Slug:             slug,
		OwnerID:          actor.UserID,
		Description:      req.Description,
		Phone:            req.Phone,
		Address:          req.Address,
		City:             req.City,
		Currency:         currency,
		TaxRate:          req.TaxRate,
		ServiceCharge:    req.ServiceCharge,
		AllowCashPayment: true,
		AllowQRPayment:   true,
		IsActive:         true,
	}

	if err := rc.DB.Create(&restaurant).Error; err != nil {
		utils.RespondAppError(c, apperr.Conflict("slug %q is already taken", slug))
		return
	}

	// Bind the owner to their restaurant for future policy checks.
	rc.DB.Model(&models.User{}).Where("id = ?", actor.UserID).
		Update("restaurant_id", restaurant.ID)

	utils.InfoLogger.Printf("Restaurant %q created (slug=%s)", restaurant.Name, restaurant.Slug)
	utils.RespondJSON(c, http.StatusCreated, "Restaurant created", restaurant)
}

// GetRestaurants -> superadmin sees all, owner/waiter their own
func (rc *RestaurantController) GetRestaurants(c *gin.Context) {
	actor := middlewares.ActorFromContext(c)

	q := rc.DB.Model(&models.Restaurant{})
	if actor.Role != models.RoleSuperadmin {
		if actor.RestaurantID == nil {
			utils.RespondJSON(c, http.StatusOK, "List of restaurants", []models.Restaurant{})
			return
		}
		q = q.Where("id = ?", *actor.RestaurantID)
	}

	var restaurants []models.Restaurant
	if err := q.Find(&restaurants).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of restaurants", restaurants)
}

// GetRestaurantBySlug -> public venue page (menu included)
func (rc *RestaurantController) GetRestaurantBySlug(c *gin.Context) {
	slug := c.Param("slug")

	var restaurant models.Restaurant
	if err := rc.DB.Where("slug = ? AND is_active = ?", slug, true).First(&restaurant).Error; err != nil {
		utils.RespondAppError(c, apperr.NotFound("restaurant %q not found", slug))
		return
	}

	var categories []models.MenuCategory
	rc.DB.Where("restaurant_id = ? AND is_active = ?", restaurant.ID, true).
		Order("sort_order asc, name asc").
		Find(&categories)

	type categoryView struct {
		models.MenuCategory
		Items []models.MenuItem `json:"items"`
	}
	menu := make([]categoryView, 0, len(categories))
	for _, cat := range categories {
		var items []models.MenuItem
		rc.DB.Where("category_id = ? AND is_available = ?", cat.ID, true).Find(&items)
		menu = append(menu, categoryView{MenuCategory: cat, Items: items})
	}

	utils.RespondJSON(c, http.StatusOK, "Restaurant detail", gin.H{
		"restaurant":  restaurant,
		"menu":        menu,
		"is_open_now": restaurant.IsOpenNow(timeNow()),
	})
}

// UpdateRestaurant -> settings update; the slug is immutable and is how
// the restaurant is addressed
func (rc *RestaurantController) UpdateRestaurant(c *gin.Context) {
	slug := c.Param("slug")

	var restaurant models.Restaurant
	if err := rc.DB.Where("slug = ?", slug).First(&restaurant).Error; err != nil {
		utils.RespondAppError(c, apperr.NotFound("restaurant %q not found", slug))
		return
	}

	actor := middlewares.ActorFromContext(c)
	if !middlewares.Allow(actor, middlewares.ActionManageRestaurant, restaurant.ID) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var req struct {
		Name                      *string  `json:"name"`
		Description               *string  `json:"description"`
		Phone                     *string  `json:"phone"`
		TaxRate                   *float64 `json:"tax_rate"`
		ServiceCharge             *float64 `json:"service_charge"`
		AllowCashPayment          *bool    `json:"allow_cash_payment"`
		AllowQRPayment            *bool    `json:"allow_qr_payment"`
		RequireWaiterConfirmation *bool    `json:"require_waiter_confirmation"`
		OpeningTime               *string  `json:"opening_time"`
		ClosingTime               *string  `json:"closing_time"`
		IsActive                  *bool    `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if req.TaxRate != nil {
		if *req.TaxRate < 0 {
			utils.RespondAppError(c, apperr.Validation("tax rate must not be negative"))
			return
		}
		restaurant.TaxRate = *req.TaxRate
	}
	if req.ServiceCharge != nil {
		if *req.ServiceCharge < 0 {
			utils.RespondAppError(c, apperr.Validation("service charge must not be negative"))
			return
		}
		restaurant.ServiceCharge = *req.ServiceCharge
	}
	if req.Name != nil {
		restaurant.Name = *req.Name
	}
	if req.Description != nil {
		restaurant.Description = *req.Description
	}
	if req.Phone != nil {
		restaurant.Phone = *req.Phone
	}
	if req.AllowCashPayment != nil {
		restaurant.AllowCashPayment = *req.AllowCashPayment
	}
	if req.AllowQRPayment != nil {
		restaurant.AllowQRPayment = *req.AllowQRPayment
	}
	if req.RequireWaiterConfirmation != nil {
		restaurant.RequireWaiterConfirmation = *req.RequireWaiterConfirmation
	}
	if req.OpeningTime != nil {
		restaurant.OpeningTime = req.OpeningTime
	}
	if req.ClosingTime != nil {
		restaurant.ClosingTime = req.ClosingTime
	}
	if req.IsActive != nil {
		restaurant.IsActive = *req.IsActive
	}

	if err := rc.DB.Save(&restaurant).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Restaurant updated", restaurant)
}

var ErrNoPermission = &CustomError{"You do not have permission"}

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

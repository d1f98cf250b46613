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

type MenuController struct {
	DB *gorm.DB
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{DB: db}
}

func (mc *MenuController) authorizeMenu(c *gin.Context, restaurantID uint) bool {
	actor := middlewares.ActorFromContext(c)
	if !middlewares.Allow(actor, middlewares.ActionManageMenu, restaurantID) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return false
	}
	return true
}

func (mc *MenuController) CreateCategory(c *gin.Context) {
	var req struct {
		RestaurantID uint   `json:"restaurant_id" binding:"required"`
		Name         string `json:"name" binding:"required"`
		Description  string `json:"description"`
		SortOrder    int    `json:"sort_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !mc.authorizeMenu(c, req.RestaurantID) {
		return
	}

	category := models.MenuCategory{
		RestaurantID: req.RestaurantID,
		Name:         req.Name,
		Description:  req.Description,
		SortOrder:    req.SortOrder,
		IsActive:     true,
	}
	if err := mc.DB.Create(&category).Error; err != nil {
		utils.RespondAppError(c, apperr.Conflict("category %q already exists in this restaurant", req.Name))
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

func (mc *MenuController) UpdateCategory(c *gin.Context) {
	id, ok := paramUint(c, "category_id")
	if !ok {
		utils.RespondAppError(c, apperr.Validation("invalid category id"))
		return
	}

	var category models.MenuCategory
	if err := mc.DB.First(&category, id).Error; err != nil {
		utils.RespondAppError(c, apperr.NotFound("category %d not found", id))
		return
	}
	if !mc.authorizeMenu(c, category.RestaurantID) {
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		SortOrder   *int    `json:"sort_order"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if err := mc.DB.Save(&category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category updated", category)
}

func (mc *MenuController) CreateMenuItem(c *gin.Context) {
	var req struct {
		CategoryID  uint    `json:"category_id" binding:"required"`
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		Price       float64 `json:"price" binding:"required"`
		CookingTime *int    `json:"cooking_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Price <= 0 {
		utils.RespondAppError(c, apperr.Validation("price must be positive"))
		return
	}

	var category models.MenuCategory
	if err := mc.DB.First(&category, req.CategoryID).Error; err != nil {
		utils.RespondAppError(c, apperr.NotFound("category %d not found", req.CategoryID))
		return
	}
	if !mc.authorizeMenu(c, category.RestaurantID) {
		return
	}

	item := models.MenuItem{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CookingTime: req.CookingTime,
		IsAvailable: true,
	}
	if err := mc.DB.Create(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

func (mc *MenuController) UpdateMenuItem(c *gin.Context) {
	id, ok := paramUint(c, "item_id")
	if !ok {
		utils.RespondAppError(c, apperr.Validation("invalid item id"))
		return
	}

	var item models.MenuItem
	if err := mc.DB.Preload("Category").First(&item, id).Error; err != nil {
		utils.RespondAppError(c, apperr.NotFound("menu item %d not found", id))
		return
	}
	if !mc.authorizeMenu(c, item.Category.RestaurantID) {
		return
	}

	var req struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		Price       *float64 `json:"price"`
		CookingTime *int     `json:"cooking_time"`
		IsAvailable *bool    `json:"is_available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			utils.RespondAppError(c, apperr.Validation("price must be positive"))
			return
		}
		// Existing order items keep the price they were sold at.
		item.Price = *req.Price
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.CookingTime != nil {
		item.CookingTime = req.CookingTime
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	if err := mc.DB.Save(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}

// DeleteMenuItem refuses while any order item still references the dish.
func (mc *MenuController) DeleteMenuItem(c *gin.Context) {
	id, ok := paramUint(c, "item_id")
	if !ok {
		utils.RespondAppError(c, apperr.Validation("invalid item id"))
		return
	}

	var item models.MenuItem
	if err := mc.DB.Preload("Category").First(&item, id).Error; err != nil {
		utils.RespondAppError(c, apperr.NotFound("menu item %d not found", id))
		return
	}
	if !mc.authorizeMenu(c, item.Category.RestaurantID) {
		return
	}

	var refs int64
	mc.DB.Model(&models.OrderItem{}).Where("menu_item_id = ?", id).Count(&refs)
	if refs > 0 {
		utils.RespondAppError(c, apperr.Conflict("menu item is referenced by %d order item(s); mark it unavailable instead", refs))
		return
	}

	if err := mc.DB.Delete(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", nil)
}

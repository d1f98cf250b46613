package controllers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrdine/qrdine/apperr"
	"github.com/qrdine/qrdine/middlewares"
	"github.com/qrdine/qrdine/models"
	"github.com/qrdine/qrdine/services"
	"github.com/qrdine/qrdine/utils"
)

type TableController struct {
	DB       *gorm.DB
	Sessions *services.SessionService
}

func NewTableController(db *gorm.DB, sessions *services.SessionService) *TableController {
	return &TableController{DB: db, Sessions: sessions}
}

func (tc *TableController) authorizeTables(c *gin.Context, restaurantID uint) bool {
	actor := middlewares.ActorFromContext(c)
	if !middlewares.Allow(actor, middlewares.ActionManageTables, restaurantID) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return false
	}
	return true
}

// CreateTable registers a table and renders its QR code.
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		RestaurantID uint   `json:"restaurant_id" binding:"required"`
		Number       string `json:"number" binding:"required"`
		Capacity     int    `json:"capacity"`
		Zone         string `json:"zone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !tc.authorizeTables(c, req.RestaurantID) {
		return
	}

	var restaurant models.Restaurant
	if err := tc.DB.First(&restaurant, req.RestaurantID).Error; err != nil {
		utils.RespondAppError(c, apperr.NotFound("restaurant %d not found", req.RestaurantID))
		return
	}

	capacity := req.Capacity
	if capacity <= 0 {
		capacity = 4
	}

	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	qrURL := utils.TableQRURL(baseURL, restaurant.Slug, req.Number)

	table := models.Table{
		RestaurantID: req.RestaurantID,
		Number:       req.Number,
		Capacity:     capacity,
		Zone:         req.Zone,
		IsActive:     true,
		QRURL:        qrURL,
	}

	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondAppError(c, apperr.Conflict("table %s already exists in this restaurant", req.Number))
		return
	}

	if path, err := utils.GenerateTableQR(qrURL, restaurant.Slug, req.Number); err != nil {
		utils.ErrorLogger.Warnf("QR generation for table %s failed: %v", req.Number, err)
	} else {
		table.QRPath = path
		tc.DB.Model(&table).Update("qr_path", path)
	}

	utils.RespondJSON(c, http.StatusCreated, "Table created", table)
}

// GetTables lists a restaurant's tables, optionally filtered by occupancy.
func (tc *TableController) GetTables(c *gin.Context) {
	slug := c.Param("slug")

	var restaurant models.Restaurant
	if err := tc.DB.Where("slug = ?", slug).First(&restaurant).Error; err != nil {
		utils.RespondAppError(c, apperr.NotFound("restaurant %q not found", slug))
		return
	}
	if !tc.authorizeTables(c, restaurant.ID) {
		return
	}

	q := tc.DB.Where("restaurant_id = ?", restaurant.ID)
	switch c.Query("state") {
	case "available":
		q = q.Where("is_occupied = ? AND is_active = ?", false, true)
	case "occupied":
		q = q.Where("is_occupied = ?", true)
	}

	var tables []models.Table
	if err := q.Order("number asc").Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) UpdateTable(c *gin.Context) {
	id, ok := paramUint(c, "table_id")
	if !ok {
		utils.RespondAppError(c, apperr.Validation("invalid table id"))
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, id).Error; err != nil {
		utils.RespondAppError(c, apperr.NotFound("table %d not found", id))
		return
	}
	if !tc.authorizeTables(c, table.RestaurantID) {
		return
	}

	var req struct {
		Capacity *int    `json:"capacity"`
		Zone     *string `json:"zone"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Capacity != nil {
		table.Capacity = *req.Capacity
	}
	if req.Zone != nil {
		table.Zone = *req.Zone
	}
	if req.IsActive != nil {
		table.IsActive = *req.IsActive
	}

	if err := tc.DB.Save(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// OpenSession seats a party at the table.
func (tc *TableController) OpenSession(c *gin.Context) {
	id, ok := paramUint(c, "table_id")
	if !ok {
		utils.RespondAppError(c, apperr.Validation("invalid table id"))
		return
	}

	restaurantID, err := restaurantIDForTable(tc.DB, id)
	if err != nil {
		utils.RespondAppError(c, apperr.NotFound("table %d not found", id))
		return
	}
	if !tc.authorizeTables(c, restaurantID) {
		return
	}

	actor := middlewares.ActorFromContext(c)
	var waiterID *uint
	if actor.Role == models.RoleWaiter {
		waiterID = &actor.UserID
	}

	session, err := tc.Sessions.Open(id, waiterID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Session opened", session)
}

// CloseSession frees the table.
func (tc *TableController) CloseSession(c *gin.Context) {
	id, ok := paramUint(c, "session_id")
	if !ok {
		utils.RespondAppError(c, apperr.Validation("invalid session id"))
		return
	}

	var session models.TableSession
	if err := tc.DB.Preload("Table").First(&session, id).Error; err != nil {
		utils.RespondAppError(c, apperr.NotFound("table session %d not found", id))
		return
	}
	if !tc.authorizeTables(c, session.Table.RestaurantID) {
		return
	}

	closed, err := tc.Sessions.Close(id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session closed", closed)
}

// CurrentSession returns the open session for a table (public; the
// guest just scanned the QR and needs the session code to join).
func (tc *TableController) CurrentSession(c *gin.Context) {
	id, ok := paramUint(c, "table_id")
	if !ok {
		utils.RespondAppError(c, apperr.Validation("invalid table id"))
		return
	}

	session, err := tc.Sessions.Current(id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Current session", session)
}

// JoinSession attaches a guest device to an open session by code.
func (tc *TableController) JoinSession(c *gin.Context) {
	var req struct {
		SessionCode string `json:"session_code" binding:"required"`
		GuestName   string `json:"guest_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	guest, err := tc.Sessions.Join(req.SessionCode, req.GuestName)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Joined session", guest)
}

package controllers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrdine/qrdine/models"
)

// timeNow is swappable in tests that pin the clock.
var timeNow = time.Now

func paramUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}

// restaurantIDForOrder walks order -> session -> table to find the
// owning restaurant, for policy checks on transition endpoints.
func restaurantIDForOrder(db *gorm.DB, orderID uint) (uint, error) {
	var order models.Order
	if err := db.Preload("TableSession.Table").First(&order, orderID).Error; err != nil {
		return 0, err
	}
	return order.TableSession.Table.RestaurantID, nil
}

func restaurantIDForTable(db *gorm.DB, tableID uint) (uint, error) {
	var table models.Table
	if err := db.First(&table, tableID).Error; err != nil {
		return 0, err
	}
	return table.RestaurantID, nil
}

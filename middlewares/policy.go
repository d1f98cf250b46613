package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/qrdine/qrdine/models"
)

// Actions the policy knows about.
const (
	ActionManageRestaurant = "restaurant.manage"
	ActionManageTables     = "tables.manage"
	ActionManageMenu       = "menu.manage"
	ActionViewOrders       = "orders.view"
	ActionTransitionOrders = "orders.transition"
	ActionManagePayments   = "payments.manage"
	ActionViewStatistics   = "statistics.view"
)

// Actor is the pre-authenticated identity a request acts as.
type Actor struct {
	UserID       uint
	Role         string
	RestaurantID *uint
}

// ActorFromContext rebuilds the actor the auth middleware stored.
func ActorFromContext(c *gin.Context) Actor {
	actor := Actor{Role: models.RoleGuest}
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			actor.UserID = id
		}
	}
	if v, ok := c.Get("role"); ok {
		if role, ok := v.(string); ok {
			actor.Role = role
		}
	}
	if v, ok := c.Get("restaurant_id"); ok {
		if id, ok := v.(uint); ok {
			actor.RestaurantID = &id
		}
	}
	return actor
}

// Allow is the single authorization decision point: can actor perform
// action against the given restaurant? Superadmins can do anything;
// owners and waiters are scoped to their own restaurant; guests get
// nothing here (guest-facing endpoints skip the policy entirely).
// restaurantID 0 means "not scoped to one restaurant" and is only
// allowed for superadmins.
func Allow(actor Actor, action string, restaurantID uint) bool {
	if actor.Role == models.RoleSuperadmin {
		return true
	}

	sameRestaurant := actor.RestaurantID != nil && restaurantID != 0 && *actor.RestaurantID == restaurantID

	switch actor.Role {
	case models.RoleOwner:
		return sameRestaurant
	case models.RoleWaiter:
		switch action {
		case ActionViewOrders, ActionTransitionOrders, ActionManagePayments, ActionManageTables:
			return sameRestaurant
		}
		return false
	default:
		return false
	}
}

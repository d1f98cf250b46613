package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/qrdine/qrdine/models"
	"github.com/qrdine/qrdine/utils"
)

// WebSocketAuthMiddleware reads the token from the query string since
// browsers cannot set headers on websocket upgrades. Connections
// without a token are treated as guests; whether a topic is allowed for
// guests is checked at subscribe time.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.Set("role", models.RoleGuest)
			c.Next()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set("role", claims.Role)
		c.Set("user_id", claims.UserID)
		if claims.RestaurantID != nil {
			c.Set("restaurant_id", *claims.RestaurantID)
		}
		c.Next()
	}
}

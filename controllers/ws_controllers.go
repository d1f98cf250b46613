package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qrdine/qrdine/events"
	"github.com/qrdine/qrdine/middlewares"
	"github.com/qrdine/qrdine/models"
	"github.com/qrdine/qrdine/utils"
)

type WSController struct {
	Hub *events.Hub
}

func NewWSController(hub *events.Hub) *WSController {
	return &WSController{Hub: hub}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy handled by the CORS middleware
	},
}

// staffOnly topics carry restaurant-wide data; guests may only follow
// their own order, table and session topics.
func staffOnly(topic string) bool {
	return strings.HasPrefix(topic, "restaurant:") || strings.HasPrefix(topic, "waiter:")
}

func isStaffRole(role string) bool {
	return role == models.RoleSuperadmin || role == models.RoleOwner || role == models.RoleWaiter
}

// Subscribe upgrades the connection and parses ?topics=order:12,table:3.
// The connection is held open until the client goes away; events are
// pushed by the hub, the read loop only detects disconnects.
func (wc *WSController) Subscribe(c *gin.Context) {
	raw := c.Query("topics")
	if raw == "" {
		utils.RespondError(c, http.StatusBadRequest, ErrNoTopics)
		return
	}

	actor := middlewares.ActorFromContext(c)
	var topics []string
	for _, part := range strings.Split(raw, ",") {
		t := strings.TrimSpace(part)
		if t == "" {
			continue
		}
		if staffOnly(t) && !isStaffRole(actor.Role) {
			utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
			return
		}
		topics = append(topics, t)
	}
	if len(topics) == 0 {
		utils.RespondError(c, http.StatusBadRequest, ErrNoTopics)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("websocket upgrade failed: %v", err)
		return
	}

	wc.Hub.Subscribe(conn, topics)
	utils.InfoLogger.Printf("WS listener attached to %v", topics)

	defer wc.Hub.Unsubscribe(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

var ErrNoTopics = &CustomError{"at least one topic is required"}

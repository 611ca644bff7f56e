package handlers

import (
	"github.com/tsukiblade/SimpleTaskManager/internal/events"

	"github.com/gin-gonic/gin"
)

// Events godoc
// @Summary      Stream task changes over a websocket
// @Description  Each message is a JSON object with event (task_created, task_updated, task_completed or task_deleted), task_id and, except for deletes, task.
// @Tags         tasks
// @Success      101
// @Router       /ws [get]
func Events(hub *events.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	}
}

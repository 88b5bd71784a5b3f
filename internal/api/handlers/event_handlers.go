package handlers

import (
	"io"
	"net/http"

	"facesplit/internal/sse"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// EventHandler streamt Analyse-Ereignisse per Server-Sent Events
type EventHandler struct {
	hub *sse.Hub
}

// NewEventHandler erstellt einen neuen Event-Handler
func NewEventHandler(hub *sse.Hub) *EventHandler {
	return &EventHandler{hub: hub}
}

// RegisterRoutes registriert den SSE-Endpunkt
func (h *EventHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/events", h.handleSSE)
}

// handleSSE hält die Verbindung offen und leitet Hub-Nachrichten weiter
func (h *EventHandler) handleSSE(c *gin.Context) {
	client := make(sse.Client, 10)
	if !h.hub.Register(client) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream is shut down"})
		return
	}
	defer h.hub.Unregister(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	log.Debugf("SSE client connected from %s", c.ClientIP())

	// Kommentarzeile, damit der Client die Verbindung sofort sieht
	c.Writer.WriteString(": connected\n\n")
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, string(msg.Data))
			return true
		case <-ctx.Done():
			return false
		}
	})

	log.Debugf("SSE client %s disconnected", c.ClientIP())
}

package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rural-voice-be/services"
)

// StreamController relays the broker's per-village event stream to
// clients over server-sent events.
type StreamController struct {
	broker *services.Broker
}

func NewStreamController(broker *services.Broker) *StreamController {
	return &StreamController{broker: broker}
}

// Subscribe joins the caller to a village room and streams its events
// until the client disconnects. Delivery is live-only: events published
// before the join are gone.
func (sc *StreamController) Subscribe(c *gin.Context) {
	villageHex := c.Param("villageId")
	if _, err := primitive.ObjectIDFromHex(villageHex); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid village ID"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming unsupported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	sub := services.NewSubscriber(16)
	sc.broker.Join(sub, villageHex)
	defer sc.broker.Leave(sub)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case ev := <-sub.C():
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Name, data)
			flusher.Flush()
		}
	}
}

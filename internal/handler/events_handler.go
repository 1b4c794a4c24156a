package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"fieldserve/pkg/broker"

	pbCore "github.com/pocketbase/pocketbase/core"
)

type EventsHandler struct {
	broker *broker.SegmentedBroker
}

func NewEventsHandler(b *broker.SegmentedBroker) *EventsHandler {
	return &EventsHandler{broker: b}
}

// StreamAdmin handles GET /api/admin/events
// SSE feed carrying every booking, review and service event.
func (h *EventsHandler) StreamAdmin(e *pbCore.RequestEvent) error {
	return h.stream(e, broker.ChannelAdmin, "")
}

// StreamUser handles GET /api/events
// SSE feed scoped to the authenticated customer or technician.
func (h *EventsHandler) StreamUser(e *pbCore.RequestEvent) error {
	if e.Auth == nil {
		return e.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
	}
	return h.stream(e, broker.ChannelUser, e.Auth.Id)
}

func (h *EventsHandler) stream(e *pbCore.RequestEvent, channel broker.Channel, id string) error {
	e.Response.Header().Set("Content-Type", "text/event-stream")
	e.Response.Header().Set("Cache-Control", "no-cache")
	e.Response.Header().Set("Connection", "keep-alive")

	eventChan := h.broker.Subscribe(channel, id)
	defer h.broker.Unsubscribe(channel, id, eventChan)

	sendSSEMessage(e, "connected", map[string]interface{}{
		"timestamp": time.Now().Unix(),
	})

	// Heartbeat keeps proxies from killing the idle connection.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return nil
			}
			sendSSEMessage(e, event.Type, event)

		case <-ticker.C:
			sendSSEMessage(e, "heartbeat", map[string]interface{}{
				"timestamp": time.Now().Unix(),
			})

		case <-e.Request.Context().Done():
			return nil
		}
	}
}

// sendSSEMessage writes one SSE frame and flushes it.
func sendSSEMessage(e *pbCore.RequestEvent, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Failed to marshal event data: %v", err)
		return
	}

	message := fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, jsonData)
	if _, err := e.Response.Write([]byte(message)); err != nil {
		return
	}
	if flusher, ok := e.Response.(interface{ Flush() }); ok {
		flusher.Flush()
	}
}

package monitor

import (
	"fmt"

	"github.com/macman10536/Adsb-alert/internal/websocket"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// WebSocketHandler handles selection messages sent by displays
type WebSocketHandler struct {
	service *Service
	logger  *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket message handler
func NewWebSocketHandler(service *Service, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		logger:  log.Named("monitor-ws"),
	}
}

// HandleMessage handles incoming WebSocket messages
func (h *WebSocketHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	switch messageType {
	case websocket.MessageTypeSelect:
		hex, _ := data["hex"].(string)
		ac, err := h.service.Select(hex)
		if err != nil {
			return err
		}
		reply(client, websocket.MessageTypeSelect, map[string]any{"selected": ac})
		return nil

	case websocket.MessageTypeClearSelection:
		h.service.ClearSelection()
		reply(client, websocket.MessageTypeClearSelection, map[string]any{})
		return nil

	default:
		h.logger.Debug("Unhandled message type", logger.String("type", messageType))
		return fmt.Errorf("unsupported message type %q", messageType)
	}
}

func reply(client *websocket.Client, messageType string, data map[string]any) {
	if client == nil {
		return
	}
	client.SendMessage(&websocket.Message{Type: messageType, Data: data})
}

package handlers

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/zapdesk/zapdesk/internal/auth"
	"github.com/zapdesk/zapdesk/internal/broadcast"
)

// WSHandler bridges operator websocket connections to the broadcast hub.
// Clients authenticate with a token query parameter, then send
// {"action":"subscribe"|"unsubscribe","ticket_id":"..."} frames to manage
// room membership. Events flow the other way as JSON.
type WSHandler struct {
	hub    *broadcast.Hub
	tokens *auth.TokenManager
	logger *zap.Logger
}

// NewWSHandler constructs the handler.
func NewWSHandler(hub *broadcast.Hub, tokens *auth.TokenManager, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, tokens: tokens, logger: logger}
}

type roomCommand struct {
	Action   string `json:"action"`
	TicketID string `json:"ticket_id"`
}

// UpgradeGuard rejects non-websocket requests before the upgrade.
func (h *WSHandler) UpgradeGuard(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	claims, err := h.tokens.ParseToken(c.Query("token"))
	if err != nil {
		return fiber.ErrUnauthorized
	}
	c.Locals("technician_id", claims.TechnicianID)
	return c.Next()
}

// Serve returns the websocket connection handler.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		technicianID, _ := conn.Locals("technician_id").(string)
		// Subscriber ids stay unique per connection; the same technician
		// may hold several.
		sub := broadcast.NewSubscriber("")
		h.hub.Register(sub)
		h.logger.Info("operator connected",
			zap.String("technician_id", technicianID),
			zap.String("subscriber", sub.ID))
		defer h.hub.Unregister(sub)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for event := range sub.Events() {
				if err := conn.WriteJSON(event); err != nil {
					return
				}
			}
		}()

		for {
			var cmd roomCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				break
			}
			switch strings.ToLower(cmd.Action) {
			case "subscribe":
				h.hub.Join(sub, cmd.TicketID)
			case "unsubscribe":
				h.hub.Leave(sub, cmd.TicketID)
			default:
				h.logger.Debug("unknown ws action", zap.String("action", cmd.Action))
			}
		}

		h.hub.Unregister(sub)
		<-done
	})
}

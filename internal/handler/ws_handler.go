package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/swipehq/interview-backend/internal/bus"
	"github.com/swipehq/interview-backend/internal/metrics"
	ws "github.com/swipehq/interview-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams session lifecycle broadcasts to reviewer clients.
type WSHandler struct {
	bus      bus.Bus
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(b bus.Bus, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		bus:      b,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// DashboardStream godoc
// WS /ws/v1/dashboard
// Upgrades to WebSocket and relays every bus broadcast to the client
// until it disconnects.
func (h *WSHandler) DashboardStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.WSClients.Inc()
	defer metrics.WSClients.Dec()

	// Writes come from the bus goroutine; the read loop below only
	// consumes pings, so a single writer guards the connection.
	frames := make(chan ws.BroadcastFrame, 16)
	unsubscribe, err := h.bus.Subscribe(func(msg bus.Message) {
		select {
		case frames <- ws.BroadcastFrame{
			Event:   ws.EventBroadcast,
			Type:    msg.Type,
			Payload: msg.Payload,
			TS:      msg.TS,
		}:
		default:
			// Slow client; drop rather than block the bus.
		}
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Bus subscribe failed")
		ws.WriteError(conn, "subscription failed")
		return
	}
	defer unsubscribe()

	pongs := make(chan struct{}, 4)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			var req ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &req); err != nil {
				return
			}
			if req.Action == ws.ActionPing {
				select {
				case pongs <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-pongs:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case frame := <-frames:
			if err := ws.WriteTyped(conn, frame); err != nil {
				return
			}
		}
	}
}

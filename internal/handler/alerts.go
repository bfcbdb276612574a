package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourorg/tillpoint/internal/domain"
)

// AlertEvent is one message on the alerts feed
type AlertEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AlertHub fans store events out to connected websocket clients. It
// implements service.AlertNotifier so the services never see the transport.
type AlertHub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan AlertEvent
}

// NewAlertHub creates a new alert hub
func NewAlertHub(logger *slog.Logger) *AlertHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertHub{
		logger:  logger,
		clients: map[*websocket.Conn]chan AlertEvent{},
	}
}

// LowStock broadcasts a low-stock warning for a product
func (h *AlertHub) LowStock(product *domain.Product) {
	h.broadcast(AlertEvent{
		Type:      "low_stock",
		Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"productId":   product.ID,
			"productName": product.Name,
			"stock":       product.Stock,
			"minStock":    product.MinStock,
		},
	})
}

// SaleRecorded broadcasts a completed sale
func (h *AlertHub) SaleRecorded(sale *domain.Sale) {
	h.broadcast(AlertEvent{
		Type:      "sale_recorded",
		Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"saleId":        sale.ID,
			"cashier":       sale.CashierName,
			"total":         sale.TotalAmount,
			"paymentMethod": sale.PaymentMethod,
		},
	})
}

// broadcast queues the event for every client, dropping it for clients whose
// send buffer is full rather than blocking a service call on a slow socket.
func (h *AlertHub) broadcast(event AlertEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *AlertHub) add(ws *websocket.Conn) chan AlertEvent {
	ch := make(chan AlertEvent, 32)
	h.mu.Lock()
	h.clients[ws] = ch
	h.mu.Unlock()
	return ch
}

func (h *AlertHub) remove(ws *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[ws]; ok {
		delete(h.clients, ws)
		close(ch)
	}
	h.mu.Unlock()
}

// ClientCount reports connected clients
func (h *AlertHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// AlertsHandler handles WebSocket connections for the store alerts feed
type AlertsHandler struct {
	hub            *AlertHub
	logger         *slog.Logger
	allowedOrigins []string
}

// NewAlertsHandler creates a new alerts handler
func NewAlertsHandler(hub *AlertHub, logger *slog.Logger, allowedOrigins []string) *AlertsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertsHandler{
		hub:            hub,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *AlertsHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/alerts
func (h *AlertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	events := h.hub.add(ws)
	defer h.hub.remove(ws)
	h.logger.Debug("alerts client connected", slog.String("remote", r.RemoteAddr))

	// Drain reads so close frames are processed.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Debug("alerts websocket closed", slog.String("remote", r.RemoteAddr))
				}
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/controller/middleware"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
)

const (
	streamBuffer = 16
	writeWait    = 10 * time.Second
)

// checkOrigin пускает клиентов без Origin (CLI, сервисы), свой хост
// и источники из WithAllowedOrigins. Cookie-сессия с чужого сайта отклоняется.
func (h *Handlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	_, ok := h.origins[strings.ToLower(strings.TrimRight(origin, "/"))]
	return ok
}

type broadcastRequest struct {
	ScholiumID int64  `json:"scholiumId" binding:"required,gt=0"`
	EventType  string `json:"eventType" binding:"required"`
}

// subscribeStream подписывает поток на группу. Переполненный буфер
// теряет событие: клиент всё равно перечитывает данные целиком.
func (h *Handlers) subscribeStream(scholiumID int64) (<-chan model.ChangeEvent, func()) {
	events := make(chan model.ChangeEvent, streamBuffer)
	unsubscribe := h.notifier.Subscribe(scholiumID, func(ev model.ChangeEvent) {
		select {
		case events <- ev:
		default:
		}
	})
	return events, unsubscribe
}

// Events GET /api/realtime/events?scholiumId= (SSE)
func (h *Handlers) Events(c *gin.Context) {
	scholiumID, ok := queryID(c, "scholiumId")
	if !ok || !h.requireMember(c, scholiumID) {
		return
	}
	logger := h.logger.With(
		zap.Int64("scholium_id", scholiumID),
		zap.String("user_id", middleware.UserID(c).String()))

	events, unsubscribe := h.subscribeStream(scholiumID)
	defer unsubscribe()

	w := c.Writer
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := sse.Encode(w, sse.Event{Data: string(notifier.EncodeConnected(scholiumID))}); err != nil {
		return
	}
	w.Flush()
	logger.Debug("Event stream opened")

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Event stream closed")
			return
		case ev := <-events:
			frame, err := notifier.EncodeEvent(ev)
			if err != nil {
				logger.Warn("Failed to encode event", zap.Error(err))
				continue
			}
			if err := sse.Encode(w, sse.Event{Data: string(frame)}); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return
			}
		}
		w.Flush()
	}
}

// Socket GET /api/realtime/ws?scholiumId= (те же кадры поверх WebSocket)
func (h *Handlers) Socket(c *gin.Context) {
	scholiumID, ok := queryID(c, "scholiumId")
	if !ok || !h.requireMember(c, scholiumID) {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection to WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.subscribeStream(scholiumID)
	defer unsubscribe()

	closed := make(chan struct{})
	go readPump(conn, closed)

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, notifier.EncodeConnected(scholiumID)); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case ev := <-events:
			frame, err := notifier.EncodeEvent(ev)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump читает до закрытия соединения; входящие сообщения игнорируются
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast POST /api/realtime/broadcast
func (h *Handlers) Broadcast(c *gin.Context) {
	var req broadcastRequest
	if !bindJSON(c, &req) {
		return
	}
	kind := model.ChangeKind(req.EventType)
	if !kind.Publishable() {
		badRequest(c, "unknown eventType", FieldError{Field: "eventType", Error: "eventType is not a known change kind"})
		return
	}
	if !h.requireMember(c, req.ScholiumID) {
		return
	}

	h.publisher.Publish(c.Request.Context(), req.ScholiumID, kind)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Health GET /healthz
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

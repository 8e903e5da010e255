package handlers

import (
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/notifier"
	"github.com/xuanlam2007/scholium/internal/service"
)

// DefaultKeepalive интервал ": ping" в SSE и ping-кадров в WebSocket
const DefaultKeepalive = 30 * time.Second

// Handlers содержит все зависимости для обработки запросов
type Handlers struct {
	scholiums *service.ScholiumService
	members   *service.MemberService
	timeSlots *service.TimeSlotService
	homework  *service.HomeworkService
	subjects  *service.SubjectService

	// notifier источник событий для потоков
	notifier notifier.Notifier
	// publisher получатель явных публикаций из /api/realtime/broadcast
	publisher notifier.Notifier

	keepalive time.Duration
	upgrader  websocket.Upgrader
	// origins разрешённые Origin для WebSocket помимо своего хоста
	origins map[string]struct{}
	now     func() time.Time
	logger  *zap.Logger
}

// Option дополнительная настройка обработчиков
type Option func(*Handlers)

// WithAllowedOrigins разрешает WebSocket с других источников ("https://app.example.com")
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Handlers) {
		for _, o := range origins {
			if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
				h.origins[strings.ToLower(o)] = struct{}{}
			}
		}
	}
}

// NewHandlers создаёт обработчики. publisher может быть nil, тогда
// явные публикации идут в notifier.
func NewHandlers(
	services *service.Services,
	n notifier.Notifier,
	publisher notifier.Notifier,
	keepalive time.Duration,
	logger *zap.Logger,
	opts ...Option,
) *Handlers {
	if publisher == nil {
		publisher = n
	}
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	h := &Handlers{
		scholiums: services.Scholiums,
		members:   services.Members,
		timeSlots: services.TimeSlots,
		homework:  services.Homework,
		subjects:  services.Subjects,
		notifier:  n,
		publisher: publisher,
		keepalive: keepalive,
		origins:   make(map[string]struct{}),
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

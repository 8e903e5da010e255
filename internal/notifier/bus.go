package notifier

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/model"
)

// DefaultMailboxSize сколько недоставленных событий держит одна подписка
const DefaultMailboxSize = 16

type subscription struct {
	id      uuid.UUID
	handler Handler
	mailbox chan model.ChangeEvent
	done    chan struct{}
	stopped atomic.Bool
	once    sync.Once
}

func (s *subscription) loop() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.mailbox:
			if s.stopped.Load() {
				return
			}
			s.handler(ev)
		}
	}
}

// Bus реестр подписчиков по группам внутри процесса
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int64]map[uuid.UUID]*subscription // scholiumID -> подписки
	mailboxSize int
	logger      *zap.Logger
}

// NewBus создаёт новую шину
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subscribers: make(map[int64]map[uuid.UUID]*subscription),
		mailboxSize: DefaultMailboxSize,
		logger:      logger,
	}
}

// Publish раскладывает событие по ящикам подписчиков группы.
// Переполненный ящик означает, что подписчик и так перечитает состояние,
// поэтому событие отбрасывается.
func (b *Bus) Publish(_ context.Context, scholiumID int64, kind model.ChangeKind) {
	b.Deliver(model.NewChangeEvent(scholiumID, kind))
}

// Deliver публикует уже готовое событие (например, пришедшее из Postgres или Redis)
func (b *Bus) Deliver(ev model.ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers[ev.ScholiumID] {
		select {
		case sub.mailbox <- ev:
		default:
			b.logger.Debug("Mailbox full, event coalesced",
				zap.Int64("scholium_id", ev.ScholiumID),
				zap.String("kind", string(ev.Kind)),
				zap.String("subscription_id", sub.id.String()))
		}
	}
}

// Resync отправляет refresh каждой группе, у которой есть подписчики.
// Нужен после разрыва источника: пропущенные события не восстановить.
func (b *Bus) Resync() {
	b.mu.RLock()
	ids := make([]int64, 0, len(b.subscribers))
	for id := range b.subscribers {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	for _, id := range ids {
		b.Deliver(model.NewChangeEvent(id, model.ChangeRefresh))
	}
}

// Subscribe регистрирует обработчик для группы
func (b *Bus) Subscribe(scholiumID int64, handler Handler) func() {
	sub := &subscription{
		id:      uuid.New(),
		handler: handler,
		mailbox: make(chan model.ChangeEvent, b.mailboxSize),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if _, exists := b.subscribers[scholiumID]; !exists {
		b.subscribers[scholiumID] = make(map[uuid.UUID]*subscription)
	}
	b.subscribers[scholiumID][sub.id] = sub
	b.mu.Unlock()

	go sub.loop()

	return func() {
		sub.once.Do(func() {
			sub.stopped.Store(true)
			close(sub.done)

			b.mu.Lock()
			delete(b.subscribers[scholiumID], sub.id)
			if len(b.subscribers[scholiumID]) == 0 {
				delete(b.subscribers, scholiumID)
			}
			b.mu.Unlock()
		})
	}
}

// SubscriberCount количество подписок группы
func (b *Bus) SubscriberCount(scholiumID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[scholiumID])
}

// Stats возвращает число групп с подписчиками и общее число подписок
func (b *Bus) Stats() (scholiums, subscriptions int) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, subs := range b.subscribers {
		scholiums++
		subscriptions += len(subs)
	}
	return scholiums, subscriptions
}

var _ Notifier = (*Bus)(nil)

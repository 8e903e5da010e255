package notifier

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/model"
)

// RedisChannel канал pub/sub для межпроцессной рассылки
const RedisChannel = "scholium:changes"

// RedisNotifier рассылает события всем экземплярам сервера через Redis
type RedisNotifier struct {
	client  *redis.Client
	bus     *Bus
	backoff Backoff
	logger  *zap.Logger
}

// NewRedisNotifier создаёт notifier поверх существующего клиента
func NewRedisNotifier(client *redis.Client, bus *Bus, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		bus:     bus,
		backoff: DefaultBackoff(),
		logger:  logger,
	}
}

// Publish отправляет событие в Redis. При ошибке доставляет хотя бы локальным подписчикам.
func (n *RedisNotifier) Publish(ctx context.Context, scholiumID int64, kind model.ChangeKind) {
	ev := model.NewChangeEvent(scholiumID, kind)
	payload, err := EncodeEvent(ev)
	if err == nil {
		err = n.client.Publish(ctx, RedisChannel, payload).Err()
	}
	if err != nil {
		n.logger.Warn("Redis publish failed, delivering locally",
			zap.Int64("scholium_id", scholiumID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		n.bus.Deliver(ev)
	}
}

func (n *RedisNotifier) Subscribe(scholiumID int64, handler Handler) func() {
	return n.bus.Subscribe(scholiumID, handler)
}

// Run ретранслирует сообщения канала в локальную шину
func (n *RedisNotifier) Run(ctx context.Context) error {
	return runWithReconnect(ctx, n.backoff, n.logger.With(zap.String("notifier", "redis")), n.relay, n.bus.Resync)
}

func (n *RedisNotifier) relay(ctx context.Context, connected func()) error {
	pubsub := n.client.Subscribe(ctx, RedisChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", RedisChannel, err)
	}
	connected()
	n.logger.Info("Relaying redis channel", zap.String("channel", RedisChannel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("redis channel closed")
			}
			n.deliver(msg.Payload)
		}
	}
}

// deliver раздаёт кадр из канала локальным подписчикам
func (n *RedisNotifier) deliver(payload string) {
	ev, ok, err := DecodeFrame([]byte(payload))
	if err != nil {
		n.logger.Warn("Skipping malformed redis message", zap.Error(err))
		return
	}
	if ok {
		n.bus.Deliver(ev)
	}
}

var _ Notifier = (*RedisNotifier)(nil)
var _ Runner = (*RedisNotifier)(nil)

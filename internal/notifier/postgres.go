package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/model"
)

// PostgresChannel канал pg_notify, в который пишут триггеры миграции 00002
const PostgresChannel = "scholium_changes"

// rowChange полезная нагрузка триггера notify_scholium_change
type rowChange struct {
	Table        string `json:"table"`
	Op           string `json:"op"`
	ScholiumID   int64  `json:"scholium_id"`
	SlotsChanged bool   `json:"slots_changed"`
}

// kindForRowChange сопоставляет изменение строки типу события
func kindForRowChange(rc rowChange) (model.ChangeKind, bool) {
	switch rc.Table {
	case "scholium_members":
		if rc.Op == "UPDATE" {
			return model.ChangePermissions, true
		}
		return model.ChangeMember, true
	case "homework":
		return model.ChangeHomework, true
	case "subjects":
		return model.ChangeSubject, true
	case "homework_completion":
		return model.ChangeCompletion, true
	case "scholiums":
		switch rc.Op {
		case "DELETE":
			return model.ChangeDeleted, true
		case "UPDATE":
			if rc.SlotsChanged {
				return model.ChangeTimeSlots, true
			}
			return model.ChangeScholium, true
		}
	}
	return "", false
}

func parseNotification(payload string) (model.ChangeEvent, bool, error) {
	var rc rowChange
	if err := json.Unmarshal([]byte(payload), &rc); err != nil {
		return model.ChangeEvent{}, false, fmt.Errorf("decode notification: %w", err)
	}
	kind, ok := kindForRowChange(rc)
	if !ok || rc.ScholiumID == 0 {
		return model.ChangeEvent{}, false, nil
	}
	return model.NewChangeEvent(rc.ScholiumID, kind), true, nil
}

// PostgresNotifier подписка на изменения базы. Запись публикуется триггерами,
// поэтому Publish ничего не делает, а Run слушает канал и раздаёт события в Bus.
type PostgresNotifier struct {
	pool    *pgxpool.Pool
	bus     *Bus
	backoff Backoff
	logger  *zap.Logger
}

// NewPostgresNotifier создаёт слушателя LISTEN/NOTIFY
func NewPostgresNotifier(pool *pgxpool.Pool, bus *Bus, logger *zap.Logger) *PostgresNotifier {
	return &PostgresNotifier{
		pool:    pool,
		bus:     bus,
		backoff: DefaultBackoff(),
		logger:  logger,
	}
}

func (n *PostgresNotifier) Publish(context.Context, int64, model.ChangeKind) {}

func (n *PostgresNotifier) Subscribe(scholiumID int64, handler Handler) func() {
	return n.bus.Subscribe(scholiumID, handler)
}

// Run слушает канал до отмены контекста, переподключаясь с паузой
func (n *PostgresNotifier) Run(ctx context.Context) error {
	return runWithReconnect(ctx, n.backoff, n.logger.With(zap.String("notifier", "postgres")), n.listen, n.bus.Resync)
}

func (n *PostgresNotifier) listen(ctx context.Context, connected func()) error {
	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+PostgresChannel); err != nil {
		return fmt.Errorf("listen %s: %w", PostgresChannel, err)
	}
	connected()
	n.logger.Info("Listening for database changes", zap.String("channel", PostgresChannel))

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		ev, ok, err := parseNotification(notification.Payload)
		if err != nil {
			n.logger.Warn("Skipping malformed notification",
				zap.String("payload", notification.Payload),
				zap.Error(err))
			continue
		}
		if ok {
			n.bus.Deliver(ev)
		}
	}
}

var _ Notifier = (*PostgresNotifier)(nil)
var _ Runner = (*PostgresNotifier)(nil)

// Backoff пауза между попытками переподключения
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff 1s, удваивается до 30s
func DefaultBackoff() Backoff {
	return Backoff{Initial: time.Second, Max: 30 * time.Second}
}

// Next следующая пауза после current
func (b Backoff) Next(current time.Duration) time.Duration {
	if current <= 0 {
		return b.Initial
	}
	next := current * 2
	if next > b.Max {
		return b.Max
	}
	return next
}

// runWithReconnect крутит attempt до отмены ctx. connected сбрасывает паузу.
// Уведомления за время разрыва потеряны, поэтому каждое подключение после
// первой попытки вызывает resync.
func runWithReconnect(ctx context.Context, backoff Backoff, logger *zap.Logger,
	attempt func(ctx context.Context, connected func()) error, resync func()) error {

	var (
		delay    time.Duration
		attempts int
	)
	for {
		resume := attempts > 0
		err := attempt(ctx, func() {
			delay = 0
			if resume && resync != nil {
				logger.Info("Notifier reconnected, resyncing subscribers")
				resync()
			}
		})
		attempts++
		if ctx.Err() != nil {
			return nil
		}
		delay = backoff.Next(delay)
		logger.Warn("Notifier connection lost, reconnecting",
			zap.Duration("retry_in", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

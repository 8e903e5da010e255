// Package notifier рассылает события изменений группы подписчикам.
//
// Все стратегии (шина в процессе, LISTEN/NOTIFY Postgres, pub/sub Redis)
// реализуют Notifier и в итоге доставляют события через Bus.
package notifier

import (
	"context"

	"github.com/xuanlam2007/scholium/internal/model"
)

// Handler вызывается на каждое событие подписанной группы
type Handler func(model.ChangeEvent)

// Notifier единый контракт для всех стратегий доставки
type Notifier interface {
	// Publish не блокируется на обработке подписчиками и никогда не возвращает ошибку
	Publish(ctx context.Context, scholiumID int64, kind model.ChangeKind)
	// Subscribe возвращает идемпотентную функцию отписки
	Subscribe(scholiumID int64, handler Handler) (unsubscribe func())
}

// Runner фоновый цикл доставки (listener, relay)
type Runner interface {
	Run(ctx context.Context) error
}

package client

import (
	"context"
	"sync"
)

// Optimistic локальное значение с оптимистичными правками.
// Apply сразу показывает правку, затем принимает ответ сервера или
// откатывается к последнему подтверждённому значению. Ответ на правку,
// которую уже перекрыла более новая, не трогает текущее значение.
// Подтверждённое значение только движется вперёд по версиям.
type Optimistic[T any] struct {
	mu        sync.Mutex
	value     T
	confirmed T
	version   uint64
	// версия, от которой получено confirmed
	confirmedVersion uint64
}

func NewOptimistic[T any](initial T) *Optimistic[T] {
	return &Optimistic[T]{value: initial, confirmed: initial}
}

func (o *Optimistic[T]) Value() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Set принимает авторитетное значение (например после refresh)
func (o *Optimistic[T]) Set(value T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.version++
	o.value = value
	o.confirmed = value
	o.confirmedVersion = o.version
}

// Apply показывает local и ждёт commit. Возвращает значение после сверки.
func (o *Optimistic[T]) Apply(ctx context.Context, local T, commit func(ctx context.Context) (T, error)) (T, error) {
	o.mu.Lock()
	o.version++
	mine := o.version
	o.value = local
	o.mu.Unlock()

	result, err := commit(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()

	latest := mine == o.version
	if err != nil {
		if latest {
			o.value = o.confirmed
		}
		return o.value, err
	}
	if mine > o.confirmedVersion {
		o.confirmed = result
		o.confirmedVersion = mine
	}
	if latest {
		o.value = result
	}
	return o.value, nil
}

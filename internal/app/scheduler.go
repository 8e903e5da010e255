package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/notifier"
)

// Scheduler управляет фоновыми задачами: долгими циклами доставки
// событий и периодическими задачами по таймеру
type Scheduler struct {
	runners  []namedRunner
	periodic []periodicTask
	backoff  notifier.Backoff
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type namedRunner struct {
	name   string
	runner notifier.Runner
}

type periodicTask struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context)
}

// NewScheduler создаёт новый планировщик
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		backoff:  notifier.DefaultBackoff(),
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// AddRunner регистрирует долгий цикл. Если он завершился с ошибкой
// до остановки, он перезапускается с паузой.
func (s *Scheduler) AddRunner(name string, runner notifier.Runner) {
	s.runners = append(s.runners, namedRunner{name: name, runner: runner})
}

// Every регистрирует задачу, которая выполняется раз в interval
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context)) {
	s.periodic = append(s.periodic, periodicTask{name: name, interval: interval, fn: fn})
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Int("runners", len(s.runners)),
		zap.Int("periodic", len(s.periodic)))

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.stopChan:
		case <-ctx.Done():
		}
		cancel()
	}()

	for _, r := range s.runners {
		s.wg.Add(1)
		go s.supervise(ctx, r)
	}
	for _, task := range s.periodic {
		s.wg.Add(1)
		go s.runPeriodic(ctx, task)
	}
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) supervise(ctx context.Context, r namedRunner) {
	defer s.wg.Done()
	logger := s.logger.With(zap.String("task", r.name))

	var delay time.Duration
	for {
		err := r.runner.Run(ctx)
		if ctx.Err() != nil {
			logger.Info("Background task stopped")
			return
		}

		delay = s.backoff.Next(delay)
		logger.Error("Background task exited, restarting",
			zap.Duration("retry_in", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Scheduler) runPeriodic(ctx context.Context, task periodicTask) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			task.fn(ctx)
		case <-ctx.Done():
			s.logger.Info("Periodic task stopped", zap.String("task", task.name))
			return
		}
	}
}

// LogBusStats периодическая строка с числом подписок
func LogBusStats(bus *notifier.Bus, logger *zap.Logger) func(ctx context.Context) {
	return func(context.Context) {
		scholiums, subscriptions := bus.Stats()
		logger.Info("Realtime subscriptions",
			zap.Int("scholiums", scholiums),
			zap.Int("subscriptions", subscriptions))
	}
}

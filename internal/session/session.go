// Package session клиентская сессия просмотра группы: подписка на события,
// проверка членства и обновление данных. Все реакции выполняются в одной горутине.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/guard"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
)

var (
	ErrAlreadyMounted = errors.New("session already mounted")
	ErrClosed         = errors.New("session closed")
)

// Source откуда приходят события: шина, SSE-поток или поллер
type Source interface {
	Subscribe(scholiumID int64, handler notifier.Handler) (unsubscribe func())
}

// Options параметры сессии
type Options struct {
	ScholiumID int64
	UserID     uuid.UUID
	Source     Source
	Checker    guard.Checker

	// OnRefresh получает набор изменившихся частей за одну пачку событий
	OnRefresh func(ctx context.Context, kinds []model.ChangeKind)
	// OnEvict вызывается один раз; после него сессия закрыта
	OnEvict func(reason guard.Reason)

	Logger *zap.Logger
}

type Session struct {
	opts  Options
	guard *guard.Guard

	mu          sync.Mutex
	mounted     bool
	closed      bool
	pending     map[model.ChangeKind]struct{}
	order       []model.ChangeKind
	unsubscribe func()
	cancel      context.CancelFunc

	wake chan struct{}
	done chan struct{}
}

// New создаёт сессию; работа начинается с Mount
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.OnRefresh == nil {
		opts.OnRefresh = func(context.Context, []model.ChangeKind) {}
	}
	s := &Session{
		opts:    opts,
		pending: make(map[model.ChangeKind]struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.guard = guard.New(opts.ScholiumID, opts.UserID, opts.Checker, s.evicted, opts.Logger)
	return s
}

// Mount подписывается на группу и запускает цикл обработки.
// Первым шагом цикла идёт начальная проверка членства.
func (s *Session) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.mounted {
		s.mu.Unlock()
		return ErrAlreadyMounted
	}
	s.mounted = true
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	unsubscribe := s.opts.Source.Subscribe(s.opts.ScholiumID, s.enqueue)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		cancel()
		close(s.done)
		return nil
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	go s.loop(loopCtx)
	return nil
}

// Unmount отписывается и останавливает цикл. Повторный вызов ничего не делает.
func (s *Session) Unmount() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe, cancel := s.unsubscribe, s.cancel
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	if !s.isMounted() {
		close(s.done)
	}
}

func (s *Session) isMounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// Done закрывается, когда сессия окончательно остановлена
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Evicted() bool {
	return s.guard.Evicted()
}

func (s *Session) State() guard.State {
	return s.guard.State()
}

// enqueue вызывается источником; события одного типа схлопываются
func (s *Session) enqueue(ev model.ChangeEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, exists := s.pending[ev.Kind]; !exists {
		s.pending[ev.Kind] = struct{}{}
		s.order = append(s.order, ev.Kind)
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) drain() []model.ChangeKind {
	s.mu.Lock()
	defer s.mu.Unlock()

	kinds := s.order
	s.order = nil
	s.pending = make(map[model.ChangeKind]struct{})
	return kinds
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)

	_, _ = s.guard.Check(ctx)

	for {
		if s.guard.Evicted() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			kinds := s.drain()
			if len(kinds) == 0 {
				continue
			}
			s.process(ctx, kinds)
		}
	}
}

func (s *Session) process(ctx context.Context, kinds []model.ChangeKind) {
	recheck := false
	for _, kind := range kinds {
		if kind == model.ChangeDeleted {
			s.guard.Evict(guard.ReasonDeleted)
			return
		}
		if kind.AffectsMembership() {
			recheck = true
		}
	}
	if recheck {
		if _, err := s.guard.Check(ctx); err == nil && s.guard.Evicted() {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	s.opts.OnRefresh(ctx, kinds)
}

// evicted колбэк guard: закрыть сессию и сообщить наружу
func (s *Session) evicted(reason guard.Reason) {
	s.mu.Lock()
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if s.opts.OnEvict != nil {
		s.opts.OnEvict(reason)
	}
}

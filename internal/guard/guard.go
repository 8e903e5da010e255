// Package guard следит, что пользователь всё ещё состоит в группе,
// и один раз выселяет его из сессии, если это не так.
package guard

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/model"
)

type State int32

const (
	StateMember State = iota
	StateEvicted
)

func (s State) String() string {
	if s == StateEvicted {
		return "evicted"
	}
	return "member"
}

// Reason почему пользователь выселен
type Reason string

const (
	ReasonRemoved Reason = "removed"
	ReasonDeleted Reason = "scholium_deleted"
)

// Checker разовая проверка членства без побочных эффектов
type Checker interface {
	CheckMembership(ctx context.Context, scholiumID int64, userID uuid.UUID) (bool, error)
}

// CheckerFunc адаптер функции к Checker
type CheckerFunc func(ctx context.Context, scholiumID int64, userID uuid.UUID) (bool, error)

func (f CheckerFunc) CheckMembership(ctx context.Context, scholiumID int64, userID uuid.UUID) (bool, error) {
	return f(ctx, scholiumID, userID)
}

// Guard автомат member -> evicted для пары (группа, пользователь).
// Выселение окончательное, onEvict вызывается ровно один раз.
type Guard struct {
	scholiumID int64
	userID     uuid.UUID
	checker    Checker
	onEvict    func(Reason)
	state      atomic.Int32
	logger     *zap.Logger
}

func New(scholiumID int64, userID uuid.UUID, checker Checker, onEvict func(Reason), logger *zap.Logger) *Guard {
	if onEvict == nil {
		onEvict = func(Reason) {}
	}
	return &Guard{
		scholiumID: scholiumID,
		userID:     userID,
		checker:    checker,
		onEvict:    onEvict,
		logger:     logger,
	}
}

func (g *Guard) State() State {
	return State(g.state.Load())
}

func (g *Guard) Evicted() bool {
	return g.State() == StateEvicted
}

// Check перепроверяет членство. Ошибка проверки не выселяет:
// состояние остаётся member до следующего события.
func (g *Guard) Check(ctx context.Context) (State, error) {
	if g.Evicted() {
		return StateEvicted, nil
	}

	ok, err := g.checker.CheckMembership(ctx, g.scholiumID, g.userID)
	if err != nil {
		g.logger.Warn("Membership check failed",
			zap.Int64("scholium_id", g.scholiumID),
			zap.String("user_id", g.userID.String()),
			zap.Error(err))
		return g.State(), err
	}
	if !ok {
		g.Evict(ReasonRemoved)
	}
	return g.State(), nil
}

// Evict переводит в evicted. Возвращает false, если уже выселен.
func (g *Guard) Evict(reason Reason) bool {
	if !g.state.CompareAndSwap(int32(StateMember), int32(StateEvicted)) {
		return false
	}
	g.logger.Info("Member evicted",
		zap.Int64("scholium_id", g.scholiumID),
		zap.String("user_id", g.userID.String()),
		zap.String("reason", string(reason)))
	g.onEvict(reason)
	return true
}

// HandleEvent реакция на событие группы
func (g *Guard) HandleEvent(ctx context.Context, ev model.ChangeEvent) {
	switch {
	case ev.Kind == model.ChangeDeleted:
		g.Evict(ReasonDeleted)
	case ev.Kind.AffectsMembership():
		_, _ = g.Check(ctx)
	}
}

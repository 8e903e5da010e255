package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/access"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
	"github.com/xuanlam2007/scholium/internal/timeslot"
)

// TimeSlotService сетка учебных интервалов группы. Менять её может только хост.
type TimeSlotService struct {
	scholiums ScholiumRepository
	access    *access.Resolver
	notifier  notifier.Notifier
	logger    *zap.Logger
}

func NewTimeSlotService(scholiums ScholiumRepository, resolver *access.Resolver, n notifier.Notifier, logger *zap.Logger) *TimeSlotService {
	return &TimeSlotService{
		scholiums: scholiums,
		access:    resolver,
		notifier:  n,
		logger:    logger,
	}
}

// GetSlots сохранённая сетка или сетка по умолчанию. Никогда не возвращает ошибку.
func (s *TimeSlotService) GetSlots(ctx context.Context, scholiumID int64) []model.TimeSlot {
	scholium, err := s.scholiums.GetByID(ctx, scholiumID)
	if err != nil {
		s.logger.Warn("Failed to load time slots, using defaults",
			zap.Int64("scholium_id", scholiumID),
			zap.Error(err))
		return timeslot.Defaults()
	}
	if scholium == nil {
		return timeslot.Defaults()
	}

	slots, ok := timeslot.Decode(scholium.TimeSlots)
	if !ok && scholium.TimeSlots != nil {
		s.logger.Warn("Stored time slots are malformed, using defaults",
			zap.Int64("scholium_id", scholiumID))
	}
	return slots
}

// ReplaceSlots заменяет всю сетку
func (s *TimeSlotService) ReplaceSlots(ctx context.Context, scholiumID int64, slots []model.TimeSlot, actor uuid.UUID) ([]model.TimeSlot, error) {
	return s.mutate(ctx, scholiumID, actor, "replace", func([]model.TimeSlot) ([]model.TimeSlot, bool, error) {
		if err := timeslot.Validate(slots); err != nil {
			return nil, false, err
		}
		return timeslot.Clone(slots), true, nil
	})
}

// EditSlot меняет начало или конец одного слота
func (s *TimeSlotService) EditSlot(ctx context.Context, scholiumID int64, index int, field timeslot.Field, value string, actor uuid.UUID) ([]model.TimeSlot, error) {
	return s.mutate(ctx, scholiumID, actor, "edit", func(current []model.TimeSlot) ([]model.TimeSlot, bool, error) {
		next, err := timeslot.ApplyEdit(current, index, field, value)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	})
}

// AddSlot добавляет слот в конец; на полной сетке ничего не делает
func (s *TimeSlotService) AddSlot(ctx context.Context, scholiumID int64, actor uuid.UUID) ([]model.TimeSlot, error) {
	return s.mutate(ctx, scholiumID, actor, "add", timeslot.Append)
}

// RemoveSlot удаляет слот, если останется не меньше четырёх
func (s *TimeSlotService) RemoveSlot(ctx context.Context, scholiumID int64, index int, actor uuid.UUID) ([]model.TimeSlot, error) {
	return s.mutate(ctx, scholiumID, actor, "remove", func(current []model.TimeSlot) ([]model.TimeSlot, bool, error) {
		next, err := timeslot.Remove(current, index)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	})
}

type slotOp func(current []model.TimeSlot) (next []model.TimeSlot, changed bool, err error)

// mutate проверяет права и выполняет op под блокировкой строки.
// Роль перечитывается внутри блокировки: смена хоста, начатая после
// проверки, ждёт записи или видна проверке. Событие публикуется только
// после успешной записи.
func (s *TimeSlotService) mutate(ctx context.Context, scholiumID int64, actor uuid.UUID, name string, op slotOp) ([]model.TimeSlot, error) {
	if _, err := s.access.Require(ctx, scholiumID, actor, access.Role.CanEditTimeSlots); err != nil {
		return nil, err
	}

	var result []model.TimeSlot
	changed := false
	err := s.scholiums.UpdateTimeSlots(ctx, scholiumID, func(raw []byte) ([]byte, error) {
		if _, err := s.access.Require(ctx, scholiumID, actor, access.Role.CanEditTimeSlots); err != nil {
			return nil, err
		}
		current, _ := timeslot.Decode(raw)
		next, ok, err := op(current)
		if err != nil {
			return nil, err
		}
		if !ok {
			result = current
			return nil, nil
		}
		encoded, err := timeslot.Encode(next)
		if err != nil {
			return nil, err
		}
		result, changed = next, true
		return encoded, nil
	})
	if err != nil {
		if timeslot.IsValidationError(err) || errors.Is(err, ErrPermissionDenied) {
			return nil, err
		}
		if mapped := storeErr(err); mapped == ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s time slots: %w", name, err)
	}

	if changed {
		s.logger.Info("Time slots updated",
			zap.Int64("scholium_id", scholiumID),
			zap.String("op", name),
			zap.Int("count", len(result)),
			zap.String("actor", actor.String()))
		s.notifier.Publish(ctx, scholiumID, model.ChangeTimeSlots)
	}
	return result, nil
}

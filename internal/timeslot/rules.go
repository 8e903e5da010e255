// Package timeslot правила сетки учебных интервалов группы.
// Используется и сервером, и клиентским редактором.
package timeslot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xuanlam2007/scholium/internal/model"
)

const (
	MinSlots = 4
	MaxSlots = 10

	// параметры автодобавления слота
	addGapMinutes      = 15
	addDurationMinutes = 45
	firstSlotStart     = 7 * 60
	minutesPerDay      = 24 * 60
)

var (
	ErrInvalidSlotCount  = errors.New("time slots must be between 4 and 10")
	ErrInvalidTimeFormat = errors.New("time must be in HH:MM format")
	ErrInvalidTimeRange  = errors.New("end time must be after start time")
	ErrInvalidOrdering   = errors.New("time slot overlaps a neighbouring slot")
	ErrSlotNotFound      = errors.New("time slot not found")
)

// Field редактируемая граница слота
type Field string

const (
	FieldStart Field = "start"
	FieldEnd   Field = "end"
)

// Defaults стандартная сетка из 6 пар
func Defaults() []model.TimeSlot {
	return []model.TimeSlot{
		{Start: "07:00", End: "08:30"},
		{Start: "08:45", End: "10:15"},
		{Start: "10:30", End: "12:00"},
		{Start: "13:00", End: "14:30"},
		{Start: "14:45", End: "16:15"},
		{Start: "16:30", End: "18:00"},
	}
}

// Decode разбирает сохранённое значение. Пустое, повреждённое или не
// прошедшее Validate значение заменяется сеткой по умолчанию, ok=false.
func Decode(raw []byte) (slots []model.TimeSlot, ok bool) {
	if len(raw) == 0 {
		return Defaults(), false
	}
	if err := json.Unmarshal(raw, &slots); err != nil {
		return Defaults(), false
	}
	if err := Validate(slots); err != nil {
		return Defaults(), false
	}
	return slots, true
}

// Encode сериализует сетку для хранения
func Encode(slots []model.TimeSlot) ([]byte, error) {
	raw, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("encode time slots: %w", err)
	}
	return raw, nil
}

// ValidateCount проверяет допустимое количество слотов
func ValidateCount(n int) error {
	if n < MinSlots || n > MaxSlots {
		return ErrInvalidSlotCount
	}
	return nil
}

// Validate проверяет всю сетку: количество, формат, интервалы и порядок
func Validate(slots []model.TimeSlot) error {
	if err := ValidateCount(len(slots)); err != nil {
		return err
	}
	prevEnd := -1
	for _, s := range slots {
		start, end, err := s.Minutes()
		if err != nil {
			return ErrInvalidTimeFormat
		}
		if end <= start {
			return ErrInvalidTimeRange
		}
		if start < prevEnd {
			return ErrInvalidOrdering
		}
		prevEnd = end
	}
	return nil
}

// ApplyEdit меняет одну границу слота и возвращает новую сетку.
// Проверки в порядке: формат, интервал, предыдущий сосед, следующий сосед.
// Исходный срез не изменяется.
func ApplyEdit(slots []model.TimeSlot, index int, field Field, value string) ([]model.TimeSlot, error) {
	if index < 0 || index >= len(slots) {
		return nil, ErrSlotNotFound
	}
	if field != FieldStart && field != FieldEnd {
		return nil, fmt.Errorf("unknown field %q: %w", field, ErrInvalidTimeFormat)
	}
	if _, err := model.ParseClock(value); err != nil {
		return nil, ErrInvalidTimeFormat
	}

	next := Clone(slots)
	if field == FieldStart {
		next[index].Start = value
	} else {
		next[index].End = value
	}

	start, end, err := next[index].Minutes()
	if err != nil {
		return nil, ErrInvalidTimeFormat
	}
	if end <= start {
		return nil, ErrInvalidTimeRange
	}
	if index > 0 {
		if _, prevEnd, err := next[index-1].Minutes(); err == nil && start < prevEnd {
			return nil, ErrInvalidOrdering
		}
	}
	if index < len(next)-1 {
		if nextStart, _, err := next[index+1].Minutes(); err == nil && end > nextStart {
			return nil, ErrInvalidOrdering
		}
	}
	return next, nil
}

// Append добавляет слот через 15 минут после последнего, длиной 45 минут.
// На пустой сетке первый слот 07:00–07:45. added=false, если сетка уже полная.
func Append(slots []model.TimeSlot) (result []model.TimeSlot, added bool, err error) {
	if len(slots) >= MaxSlots {
		return slots, false, nil
	}

	start := firstSlotStart
	if len(slots) > 0 {
		_, lastEnd, err := slots[len(slots)-1].Minutes()
		if err != nil {
			return nil, false, ErrInvalidTimeFormat
		}
		start = lastEnd + addGapMinutes
	}
	end := start + addDurationMinutes
	if end >= minutesPerDay {
		return nil, false, ErrInvalidTimeRange
	}

	result = append(Clone(slots), model.TimeSlot{
		Start: model.FormatClock(start),
		End:   model.FormatClock(end),
	})
	return result, true, nil
}

// Remove удаляет слот по индексу, не опускаясь ниже MinSlots
func Remove(slots []model.TimeSlot, index int) ([]model.TimeSlot, error) {
	if index < 0 || index >= len(slots) {
		return nil, ErrSlotNotFound
	}
	if len(slots)-1 < MinSlots {
		return nil, ErrInvalidSlotCount
	}
	result := make([]model.TimeSlot, 0, len(slots)-1)
	result = append(result, slots[:index]...)
	return append(result, slots[index+1:]...), nil
}

// Clone копирует сетку
func Clone(slots []model.TimeSlot) []model.TimeSlot {
	if slots == nil {
		return nil
	}
	out := make([]model.TimeSlot, len(slots))
	copy(out, slots)
	return out
}

// IsValidationError относится ли ошибка к правилам сетки
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidSlotCount) ||
		errors.Is(err, ErrInvalidTimeFormat) ||
		errors.Is(err, ErrInvalidTimeRange) ||
		errors.Is(err, ErrInvalidOrdering)
}

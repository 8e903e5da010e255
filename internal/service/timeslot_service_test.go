package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/access"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/service"
	"github.com/xuanlam2007/scholium/internal/timeslot"
)

func TestGetSlotsDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, timeslot.Defaults(), f.slots.GetSlots(ctx, 12345), "unknown scholium")

	sc, _, _ := f.group(t)
	require.NoError(t, f.store.Scholiums().UpdateTimeSlots(ctx, sc.ID, func([]byte) ([]byte, error) {
		return []byte(`{"broken":true}`), nil
	}))
	assert.Equal(t, timeslot.Defaults(), f.slots.GetSlots(ctx, sc.ID), "malformed value")

	require.NoError(t, f.store.Scholiums().UpdateTimeSlots(ctx, sc.ID, func([]byte) ([]byte, error) {
		return []byte(`[{"start":"09:00","end":"08:00"},{"start":"07:00","end":"07:30"}]`), nil
	}))
	assert.Equal(t, timeslot.Defaults(), f.slots.GetSlots(ctx, sc.ID), "stored value breaks slot rules")
}

func TestReplaceSlotsRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, _ := f.group(t)

	valid := []model.TimeSlot{
		{Start: "08:00", End: "08:45"},
		{Start: "09:00", End: "09:45"},
		{Start: "10:00", End: "10:45"},
		{Start: "11:00", End: "11:45"},
		{Start: "12:00", End: "12:45"},
	}
	_, err := f.slots.ReplaceSlots(ctx, sc.ID, valid, host)
	require.NoError(t, err)
	assert.Equal(t, valid, f.slots.GetSlots(ctx, sc.ID))
	assert.Equal(t, []model.ChangeKind{model.ChangeTimeSlots}, f.events.kinds())
}

func TestReplaceSlotsRejectsCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, _ := f.group(t)

	for _, n := range []int{0, 3, 11} {
		slots := make([]model.TimeSlot, 0, n)
		for i := 0; i < n; i++ {
			slots = append(slots, model.TimeSlot{Start: model.FormatClock(i * 60), End: model.FormatClock(i*60 + 30)})
		}
		_, err := f.slots.ReplaceSlots(ctx, sc.ID, slots, host)
		assert.ErrorIs(t, err, service.ErrInvalidSlotCount, "n=%d", n)
	}
	assert.Equal(t, timeslot.Defaults(), f.slots.GetSlots(ctx, sc.ID))
	assert.Empty(t, f.events.kinds())
}

func TestEditSlotValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, _ := f.group(t)

	_, err := f.slots.EditSlot(ctx, sc.ID, 0, timeslot.FieldEnd, "07:00", host)
	assert.ErrorIs(t, err, service.ErrInvalidTimeRange)

	_, err = f.slots.EditSlot(ctx, sc.ID, 1, timeslot.FieldStart, "08:00", host)
	assert.ErrorIs(t, err, service.ErrInvalidOrdering)

	_, err = f.slots.EditSlot(ctx, sc.ID, 1, timeslot.FieldStart, "8am", host)
	assert.ErrorIs(t, err, service.ErrInvalidTimeFormat)

	_, err = f.slots.EditSlot(ctx, sc.ID, 42, timeslot.FieldStart, "08:00", host)
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.Equal(t, timeslot.Defaults(), f.slots.GetSlots(ctx, sc.ID))
	assert.Empty(t, f.events.kinds())
}

func TestMathClubEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, _ := f.group(t)

	assert.Equal(t, timeslot.Defaults(), f.slots.GetSlots(ctx, sc.ID))

	_, err := f.slots.EditSlot(ctx, sc.ID, 0, timeslot.FieldEnd, "08:15", host)
	require.NoError(t, err)
	got := f.slots.GetSlots(ctx, sc.ID)
	assert.Equal(t, model.TimeSlot{Start: "07:00", End: "08:15"}, got[0])

	_, err = f.slots.EditSlot(ctx, sc.ID, 1, timeslot.FieldStart, "08:20", host)
	require.NoError(t, err, "slot 1 is checked against the new 08:15 end")

	_, err = f.slots.EditSlot(ctx, sc.ID, 1, timeslot.FieldStart, "08:10", host)
	assert.ErrorIs(t, err, service.ErrInvalidOrdering)
}

func TestAddSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, _ := f.group(t)

	require.NoError(t, f.store.Scholiums().UpdateTimeSlots(ctx, sc.ID, func([]byte) ([]byte, error) {
		return []byte(`[{"start":"09:00","end":"09:45"}]`), nil
	}))

	got, err := f.slots.AddSlot(ctx, sc.ID, host)
	require.NoError(t, err)
	assert.Equal(t, []model.TimeSlot{{Start: "09:00", End: "09:45"}, {Start: "10:00", End: "10:45"}}, got)
	assert.Equal(t, []model.ChangeKind{model.ChangeTimeSlots}, f.events.kinds())
}

func TestAddSlotAtCapacityIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, _ := f.group(t)

	for i := 0; i < 4; i++ {
		_, err := f.slots.AddSlot(ctx, sc.ID, host)
		require.NoError(t, err)
	}
	require.Len(t, f.slots.GetSlots(ctx, sc.ID), timeslot.MaxSlots)
	f.events.reset()

	got, err := f.slots.AddSlot(ctx, sc.ID, host)
	require.NoError(t, err)
	assert.Len(t, got, timeslot.MaxSlots)
	assert.Empty(t, f.events.kinds())
}

func TestRemoveSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, _ := f.group(t)

	_, err := f.slots.ReplaceSlots(ctx, sc.ID, timeslot.Defaults()[:5], host)
	require.NoError(t, err)

	got, err := f.slots.RemoveSlot(ctx, sc.ID, 4, host)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	f.events.reset()
	_, err = f.slots.RemoveSlot(ctx, sc.ID, 0, host)
	assert.ErrorIs(t, err, service.ErrInvalidSlotCount)
	assert.Len(t, f.slots.GetSlots(ctx, sc.ID), 4)
	assert.Empty(t, f.events.kinds())
}

func TestNonHostCannotMutateSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, _, member := f.group(t)

	_, err := f.slots.RemoveSlot(ctx, sc.ID, 0, member)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
	_, err = f.slots.AddSlot(ctx, sc.ID, member)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
	_, err = f.slots.EditSlot(ctx, sc.ID, 0, timeslot.FieldEnd, "08:00", member)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
	_, err = f.slots.ReplaceSlots(ctx, sc.ID, timeslot.Defaults(), uuid.New())
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	assert.Equal(t, timeslot.Defaults(), f.slots.GetSlots(ctx, sc.ID))
	assert.Empty(t, f.events.kinds())
}

// transferOnWrite передаёт хост прямо перед записью сетки, после первой проверки прав
type transferOnWrite struct {
	service.ScholiumRepository
	transfer func()
}

func (r *transferOnWrite) UpdateTimeSlots(ctx context.Context, id int64, fn service.SlotMutator) error {
	if r.transfer != nil {
		r.transfer()
		r.transfer = nil
	}
	return r.ScholiumRepository.UpdateTimeSlots(ctx, id, fn)
}

func TestEditSlotRechecksRoleInsideWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, member := f.group(t)

	repo := &transferOnWrite{ScholiumRepository: f.store.Scholiums()}
	repo.transfer = func() {
		require.NoError(t, f.members.TransferHost(ctx, sc.ID, host, member))
	}
	slots := service.NewTimeSlotService(repo, access.NewResolver(f.store.Members()), f.events, zap.NewNop())
	f.events.reset()

	_, err := slots.AddSlot(ctx, sc.ID, host)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
	assert.Equal(t, timeslot.Defaults(), f.slots.GetSlots(ctx, sc.ID))
	assert.NotContains(t, f.events.kinds(), model.ChangeTimeSlots)

	_, err = slots.AddSlot(ctx, sc.ID, member)
	require.NoError(t, err)
	assert.Len(t, f.slots.GetSlots(ctx, sc.ID), 7)
}

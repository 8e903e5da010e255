package timeslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuanlam2007/scholium/internal/model"
)

func slots(pairs ...string) []model.TimeSlot {
	out := make([]model.TimeSlot, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.TimeSlot{Start: pairs[i], End: pairs[i+1]})
	}
	return out
}

func TestDefaultsAreValid(t *testing.T) {
	d := Defaults()
	assert.Len(t, d, 6)
	assert.NoError(t, Validate(d))
	assert.Equal(t, model.TimeSlot{Start: "07:00", End: "08:30"}, d[0])
	assert.Equal(t, model.TimeSlot{Start: "16:30", End: "18:00"}, d[5])
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		wantOK bool
		want   int
	}{
		{"empty", "", false, 6},
		{"null", "null", false, 6},
		{"not json", "{oops", false, 6},
		{"empty list", "[]", false, 6},
		{"bad clock", `[{"start":"7am","end":"08:00"}]`, false, 6},
		{"too few", `[{"start":"09:00","end":"09:45"},{"start":"10:00","end":"10:45"}]`, false, 6},
		{"unordered", `[{"start":"09:00","end":"09:45"},{"start":"07:00","end":"07:30"},{"start":"11:00","end":"11:45"},{"start":"12:00","end":"12:45"}]`, false, 6},
		{"end before start", `[{"start":"09:00","end":"08:00"},{"start":"10:00","end":"10:45"},{"start":"11:00","end":"11:45"},{"start":"12:00","end":"12:45"}]`, false, 6},
		{"overlapping", `[{"start":"09:00","end":"10:15"},{"start":"10:00","end":"10:45"},{"start":"11:00","end":"11:45"},{"start":"12:00","end":"12:45"}]`, false, 6},
		{"valid", `[{"start":"09:00","end":"09:45"},{"start":"10:00","end":"10:45"},{"start":"11:00","end":"11:45"},{"start":"12:00","end":"12:45"}]`, true, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode([]byte(tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestValidate(t *testing.T) {
	four := slots("07:00", "08:00", "08:00", "09:00", "09:15", "10:00", "10:00", "11:00")
	assert.NoError(t, Validate(four), "touching slots are allowed")

	assert.ErrorIs(t, Validate(four[:3]), ErrInvalidSlotCount)
	eleven := append(Defaults(), Defaults()...)
	assert.ErrorIs(t, Validate(eleven[:11]), ErrInvalidSlotCount)

	badFormat := Clone(four)
	badFormat[1].Start = "8:00"
	assert.ErrorIs(t, Validate(badFormat), ErrInvalidTimeFormat)

	badRange := Clone(four)
	badRange[2].End = "09:15"
	assert.ErrorIs(t, Validate(badRange), ErrInvalidTimeRange)

	overlap := Clone(four)
	overlap[1].Start = "07:30"
	assert.ErrorIs(t, Validate(overlap), ErrInvalidOrdering)
}

func TestApplyEdit(t *testing.T) {
	base := Defaults()

	t.Run("valid start change", func(t *testing.T) {
		got, err := ApplyEdit(base, 1, FieldStart, "08:30")
		require.NoError(t, err)
		assert.Equal(t, "08:30", got[1].Start)
		assert.Equal(t, "08:45", base[1].Start, "input must not change")
	})

	t.Run("format", func(t *testing.T) {
		for _, v := range []string{"9:00", "24:00", "12:60", "ab:cd", ""} {
			_, err := ApplyEdit(base, 0, FieldEnd, v)
			assert.ErrorIs(t, err, ErrInvalidTimeFormat, v)
		}
	})

	t.Run("end not after start", func(t *testing.T) {
		_, err := ApplyEdit(base, 0, FieldEnd, "07:00")
		assert.ErrorIs(t, err, ErrInvalidTimeRange)
		_, err = ApplyEdit(base, 0, FieldEnd, "06:59")
		assert.ErrorIs(t, err, ErrInvalidTimeRange)
	})

	t.Run("start before previous end", func(t *testing.T) {
		_, err := ApplyEdit(base, 1, FieldStart, "08:15")
		assert.ErrorIs(t, err, ErrInvalidOrdering)
	})

	t.Run("end after next start", func(t *testing.T) {
		_, err := ApplyEdit(base, 0, FieldEnd, "08:50")
		assert.ErrorIs(t, err, ErrInvalidOrdering)
	})

	t.Run("range checked before ordering", func(t *testing.T) {
		_, err := ApplyEdit(base, 1, FieldStart, "10:30")
		assert.ErrorIs(t, err, ErrInvalidTimeRange)
	})

	t.Run("only neighbours checked", func(t *testing.T) {
		got, err := ApplyEdit(base, 0, FieldEnd, "08:45")
		require.NoError(t, err)
		assert.Equal(t, "08:45", got[0].End)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := ApplyEdit(base, 6, FieldStart, "19:00")
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})
}

func TestAppend(t *testing.T) {
	got, added, err := Append(nil)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, slots("07:00", "07:45"), got)

	got, added, err = Append(slots("09:00", "09:45"))
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, model.TimeSlot{Start: "10:00", End: "10:45"}, got[1])

	full := append(Defaults(), slots("18:15", "19:00", "19:15", "20:00", "20:15", "21:00", "21:15", "22:00")...)
	require.Len(t, full, MaxSlots)
	got, added, err = Append(full)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, got, MaxSlots)

	_, _, err = Append(slots("22:30", "23:15"))
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestRemove(t *testing.T) {
	four := Defaults()[:4]
	_, err := Remove(four, 0)
	assert.ErrorIs(t, err, ErrInvalidSlotCount)

	five := Defaults()[:5]
	got, err := Remove(five, 2)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, "13:00", got[2].Start)
	assert.Len(t, five, 5)

	_, err = Remove(five, 9)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestEncodeRoundTrip(t *testing.T) {
	raw, err := Encode(Defaults())
	require.NoError(t, err)
	got, ok := Decode(raw)
	assert.True(t, ok)
	assert.Equal(t, Defaults(), got)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	m, err := ParseClock("07:45")
	require.NoError(t, err)
	assert.Equal(t, 465, m)

	m, err = ParseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 1439, m)

	for _, bad := range []string{"7:45", "24:00", "07:60", "07:45:00", " 07:45"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "10:05", FormatClock(605))
}

func TestChangeKind(t *testing.T) {
	assert.True(t, ChangeMember.AffectsMembership())
	assert.True(t, ChangePermissions.AffectsMembership())
	assert.False(t, ChangeHomework.AffectsMembership())
	assert.False(t, ChangeRefresh.Publishable())
	assert.True(t, ChangeDeleted.Publishable())
}

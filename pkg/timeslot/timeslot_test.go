package timeslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinutes(t *testing.T) {
	m, err := Minutes("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)

	m, err = Minutes("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, m)

	m, err = Minutes("23:59")
	require.NoError(t, err)
	assert.Equal(t, 1439, m)

	_, err = Minutes("24:00")
	assert.Error(t, err)
	_, err = Minutes("9am")
	assert.Error(t, err)
	_, err = Minutes("10:60")
	assert.Error(t, err)
}

func TestOverlapsAdjacentRangesDoNotOverlap(t *testing.T) {
	assert.False(t, Overlaps("09:00", "10:00", "10:00", "11:00"))
	assert.False(t, Overlaps("10:00", "11:00", "09:00", "10:00"))
}

func TestOverlapsGenuineIntersection(t *testing.T) {
	assert.True(t, Overlaps("09:00", "11:00", "10:00", "12:00"))
	assert.True(t, Overlaps("09:00", "12:00", "10:00", "11:00"))
	assert.True(t, Overlaps("10:00", "11:00", "10:00", "11:00"))
}

func TestOverlapsDisjointRanges(t *testing.T) {
	assert.False(t, Overlaps("08:00", "09:00", "14:00", "15:00"))
}

func TestOverlapsIsSymmetric(t *testing.T) {
	cases := [][4]string{
		{"09:00", "10:00", "10:00", "11:00"},
		{"09:00", "11:00", "10:00", "12:00"},
		{"08:00", "09:00", "14:00", "15:00"},
		{"10:00", "11:00", "10:30", "10:45"},
		{"00:00", "23:59", "12:00", "12:30"},
	}
	for _, c := range cases {
		assert.Equal(t, Overlaps(c[0], c[1], c[2], c[3]), Overlaps(c[2], c[3], c[0], c[1]),
			"overlaps(%s,%s,%s,%s) should be symmetric", c[0], c[1], c[2], c[3])
	}
}

func TestCovers(t *testing.T) {
	assert.True(t, Covers("09:00", "12:00", "10:00", "11:00"))
	assert.True(t, Covers("09:00", "12:00", "09:00", "12:00"))
	assert.False(t, Covers("09:00", "12:00", "08:30", "10:00"))
	assert.False(t, Covers("09:00", "12:00", "11:00", "12:30"))
}

func TestDuration(t *testing.T) {
	d, err := Duration("09:00", "10:30")
	require.NoError(t, err)
	assert.Equal(t, 90, d)

	_, err = Duration("10:00", "10:00")
	assert.Error(t, err)
	_, err = Duration("11:00", "10:00")
	assert.Error(t, err)
}

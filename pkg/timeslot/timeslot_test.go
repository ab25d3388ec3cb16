package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	valid := []string{"00:00", "09:30", "23:59"}
	for _, v := range valid {
		assert.True(t, IsValid(v), v)
	}

	invalid := []string{"", "9:30", "09:60", "24:00", "0930", "09-30", "ab:cd", "09:3"}
	for _, v := range invalid {
		assert.False(t, IsValid(v), v)
	}
}

func TestMinutes(t *testing.T) {
	assert.Equal(t, 0, Minutes("00:00"))
	assert.Equal(t, 570, Minutes("09:30"))
	assert.Equal(t, 1439, Minutes("23:59"))
	assert.Equal(t, 0, Minutes("junk"))
}

func TestOverlapsHalfOpen(t *testing.T) {
	assert.True(t, Overlaps("09:00", "10:00", "09:30", "10:30"))
	assert.True(t, Overlaps("09:00", "10:00", "09:00", "10:00"))
	assert.True(t, Overlaps("09:00", "12:00", "10:00", "11:00"))

	// Shared boundaries do not count as overlap.
	assert.False(t, Overlaps("09:00", "10:00", "10:00", "11:00"))
	assert.False(t, Overlaps("10:00", "11:00", "09:00", "10:00"))
	assert.False(t, Overlaps("09:00", "10:00", "11:00", "12:00"))
}

func TestOverlapsIsSymmetric(t *testing.T) {
	assert.Equal(t,
		Overlaps("09:00", "10:00", "09:30", "10:30"),
		Overlaps("09:30", "10:30", "09:00", "10:00"))
}

func TestParseDay(t *testing.T) {
	day, ok := ParseDay(" monday ")
	assert.True(t, ok)
	assert.Equal(t, Monday, day)

	_, ok = ParseDay("SOMEDAY")
	assert.False(t, ok)
}

func TestDayFor(t *testing.T) {
	// 2024-01-01 was a Monday.
	for i, want := range []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday} {
		date := time.Date(2024, time.January, 1+i, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, want, DayFor(date))
	}
}

func TestOrder(t *testing.T) {
	assert.Equal(t, 1, Order(Monday))
	assert.Equal(t, 7, Order(Sunday))
	assert.Greater(t, Order(Day("SOMEDAY")), Order(Sunday))
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationLifecycle(t *testing.T) {
	t0 := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	reg := NewRegistration("reg-1", 7, "course-1", t0)
	assert.Equal(t, StateActive, StateOf(reg))
	assert.False(t, reg.Reactivate(t0), "active row cannot be reactivated")

	t1 := t0.Add(time.Hour)
	require.True(t, reg.Cancel(t1))
	assert.Equal(t, StateUnregistered, StateOf(reg))
	require.NotNil(t, reg.CancelledAt)
	assert.Equal(t, t1, *reg.CancelledAt)
	assert.False(t, reg.Cancel(t1.Add(time.Minute)), "second cancel is rejected")
	assert.Equal(t, t1, *reg.CancelledAt)

	t2 := t1.Add(time.Hour)
	require.True(t, reg.Reactivate(t2))
	assert.Equal(t, "reg-1", reg.ID)
	assert.True(t, reg.Active)
	assert.Nil(t, reg.CancelledAt)
	assert.Equal(t, t2, reg.RegisteredAt)
}

func TestStateOfMissingRow(t *testing.T) {
	assert.Equal(t, StateUnregistered, StateOf(nil))
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, "42:abc", PairKey(42, "abc"))
}

func TestParseWeekday(t *testing.T) {
	day, err := ParseWeekday(" Monday ")
	require.NoError(t, err)
	assert.Equal(t, Monday, day)
	assert.Equal(t, 0, day.Index())
	assert.Equal(t, 5, Saturday.Index())

	_, err = ParseWeekday("sunday")
	assert.Error(t, err)
	assert.Equal(t, -1, Weekday("sunday").Index())
}

func TestWeekdayScan(t *testing.T) {
	var d Weekday
	require.NoError(t, d.Scan([]byte("friday")))
	assert.Equal(t, Friday, d)
	assert.Error(t, d.Scan("funday"))
	assert.Error(t, d.Scan(12))

	_, err := Weekday("funday").Value()
	assert.Error(t, err)
	v, err := Tuesday.Value()
	require.NoError(t, err)
	assert.Equal(t, "tuesday", v)
}

func TestCourseTimeSlot(t *testing.T) {
	c := Course{StartTime: "18:30", EndTime: "20:00"}
	assert.Equal(t, "18:30-20:00", c.TimeSlot())
}

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(9*3600+30*60), tod)
	assert.Equal(t, "09:30", tod.String())

	tod, err = ParseTimeOfDay("17:00:15")
	require.NoError(t, err)
	assert.Equal(t, "17:00:15", tod.String())

	for _, bad := range []string{"", "9:30", "24:00", "12:60", "aa:bb", "12:00:00:00"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOfDayScanAndValue(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.Scan([]byte("08:15:00")))
	assert.Equal(t, "08:15", tod.String())

	require.NoError(t, tod.Scan(time.Date(0, 1, 1, 22, 5, 0, 0, time.UTC)))
	assert.Equal(t, "22:05", tod.String())

	v, err := MustTimeOfDay("07:00").Value()
	require.NoError(t, err)
	assert.Equal(t, "07:00:00", v)
}

func TestTimeOfDayJSON(t *testing.T) {
	payload := struct {
		Start TimeOfDay `json:"start"`
	}{}
	require.NoError(t, json.Unmarshal([]byte(`{"start":"06:45"}`), &payload))
	assert.Equal(t, MustTimeOfDay("06:45"), payload.Start)

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"06:45"}`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`{"start":645}`), &payload))
}

func TestTimeOfDayOn(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	got := MustTimeOfDay("09:00").On(day, loc)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, loc), got)
}

func TestLeaveCoversInclusiveRange(t *testing.T) {
	leave := LeaveRequest{
		DateFrom: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC),
	}
	loc := time.FixedZone("WIB", 7*3600)
	assert.False(t, leave.Covers(time.Date(2024, 5, 1, 23, 0, 0, 0, loc)))
	assert.True(t, leave.Covers(time.Date(2024, 5, 2, 0, 30, 0, 0, loc)))
	assert.True(t, leave.Covers(time.Date(2024, 5, 4, 23, 59, 0, 0, loc)))
	assert.False(t, leave.Covers(time.Date(2024, 5, 5, 0, 0, 0, 0, loc)))
}

func TestOpenSince(t *testing.T) {
	in := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	open := AttendanceSession{ClockIn: &in, IsOpen: true}
	assert.Equal(t, &in, open.OpenSince())

	out := in.Add(8 * time.Hour)
	closed := AttendanceSession{ClockIn: &in, ClockOut: &out}
	assert.Nil(t, closed.OpenSince())
}

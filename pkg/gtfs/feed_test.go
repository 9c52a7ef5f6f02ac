package gtfs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekdayService(id string, start, end time.Time) Service {
	s := Service{ID: id, Start: start, End: end}
	for d := time.Monday; d <= time.Friday; d++ {
		s.Weekdays[d] = true
	}
	return s
}

func TestServiceActiveOn(t *testing.T) {
	f := NewFeed("f")
	svc := weekdayService("wd", date(2024, 3, 4), date(2024, 3, 10))
	svc.Removed = map[string]struct{}{"20240305": {}}
	svc.Added = map[string]struct{}{"20240309": {}}
	f.AddService(svc)
	s := f.Services["wd"]

	assert.True(t, s.ActiveOn(date(2024, 3, 4)))
	assert.False(t, s.ActiveOn(date(2024, 3, 5)), "removed date")
	assert.True(t, s.ActiveOn(date(2024, 3, 6)))
	assert.True(t, s.ActiveOn(date(2024, 3, 9)), "added saturday")
	assert.False(t, s.ActiveOn(date(2024, 3, 10)), "sunday")
	assert.False(t, s.ActiveOn(date(2024, 3, 11)), "after end")
}

func TestFinalize(t *testing.T) {
	f := NewFeed("f")
	f.AddAgency(Agency{ID: "a", Timezone: time.UTC})
	f.AddService(weekdayService("wd", date(2024, 3, 4), date(2024, 3, 8)))
	f.AddService(Service{ID: "extra", Added: map[string]struct{}{"20240315": {}}})
	f.AddTrip(Trip{ID: "t1", RouteID: "r", ServiceID: "wd"},
		StopTime{StopID: "b", StopSequence: 2, ArrivalTime: 100, DepartureTime: 100},
		StopTime{StopID: "a", StopSequence: 1, ArrivalTime: 0, DepartureTime: 0},
	)

	require.NoError(t, f.Finalize())
	assert.Equal(t, date(2024, 3, 4), f.StartDate)
	assert.Equal(t, date(2024, 3, 15), f.EndDate)
	assert.Equal(t, 12, f.NumDays())
	assert.Equal(t, "a", f.StopTimes["t1"][0].StopID)

	st, ok := f.StopTime("t1", 2)
	require.True(t, ok)
	assert.Equal(t, "b", st.StopID)
	assert.Equal(t, "t1", st.TripID)
	_, ok = f.StopTime("t1", 3)
	assert.False(t, ok)
}

func TestFinalizeWithoutAgency(t *testing.T) {
	f := NewFeed("f")
	err := f.Finalize()
	assert.True(t, errors.Is(err, ErrMalformedSchedule))
}

func TestTimezones(t *testing.T) {
	jkt, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	f := NewFeed("f")
	f.AddAgency(Agency{ID: "a", Timezone: jkt})
	f.AddAgency(Agency{ID: "b", Timezone: time.UTC})
	f.AddRoute(Route{ID: "r", AgencyID: "b"})

	assert.Equal(t, jkt, f.Timezone())
	assert.Equal(t, time.UTC, f.RouteTimezone("r"))
	assert.Equal(t, jkt, f.RouteTimezone("missing"))
}

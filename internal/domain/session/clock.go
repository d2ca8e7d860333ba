package session

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time counted in seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// NewTimeOfDay builds a TimeOfDay from its clock components.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// ParseTimeOfDay accepts "15:04" and "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)%3600/60, int(t)%60)
}

// Value stores the time as a postgres TIME literal.
func (t TimeOfDay) Value() (driver.Value, error) {
	if t < 0 || t >= secondsPerDay {
		return nil, fmt.Errorf("time of day out of range: %d", int(t))
	}
	return t.String(), nil
}

// Scan reads TIME columns, which lib/pq hands back as text.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return t.parseInto(string(v))
	case string:
		return t.parseInto(v)
	case time.Time:
		*t = NewTimeOfDay(v.Hour(), v.Minute(), v.Second())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

func (t *TimeOfDay) parseInto(s string) error {
	// postgres may append fractional seconds
	if len(s) > 8 {
		s = s[:8]
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	return t.parseInto(string(b))
}

// Window is an inclusive [Start, End] time-of-day interval.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether at falls inside the window, both ends included.
func (w Window) Contains(at TimeOfDay) bool {
	return at >= w.Start && at <= w.End
}

// Moment is "now" split the way sessions are keyed.
type Moment struct {
	Date    time.Time // midnight UTC of the local calendar date
	Time    TimeOfDay
	Weekday time.Weekday
}

// MomentOf converts now into loc and splits it into date, time of day and weekday.
func MomentOf(now time.Time, loc *time.Location) Moment {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return Moment{
		Date:    DateOf(local),
		Time:    NewTimeOfDay(local.Hour(), local.Minute(), local.Second()),
		Weekday: local.Weekday(),
	}
}

// DateOf truncates t to its calendar date, expressed as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Sunday that opens the week containing date.
func WeekStart(date time.Time) time.Time {
	return DateOf(date).AddDate(0, 0, -int(date.Weekday()))
}

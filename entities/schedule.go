package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// WeekdaySet is a set of ISO weekday codes, 1=Monday .. 7=Sunday. In the
// database it is serialized to the legacy comma-joined form ("1,3,5") so
// schedules written by the previous backend keep working; over JSON it is
// an array of integers.
type WeekdaySet map[int]struct{}

// ParseWeekdaySet parses the comma-joined form. An empty string yields an
// empty set.
func ParseWeekdaySet(s string) (WeekdaySet, error) {
	set := WeekdaySet{}
	if strings.TrimSpace(s) == "" {
		return set, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		day, err := strconv.Atoi(part)
		if err != nil || day < 1 || day > 7 {
			return nil, fmt.Errorf("invalid weekday %q: must be 1..7", part)
		}
		set[day] = struct{}{}
	}
	return set, nil
}

// NewWeekdaySet builds a set from weekday codes, validating each.
func NewWeekdaySet(days ...int) (WeekdaySet, error) {
	set := WeekdaySet{}
	for _, day := range days {
		if day < 1 || day > 7 {
			return nil, fmt.Errorf("invalid weekday %d: must be 1..7", day)
		}
		set[day] = struct{}{}
	}
	return set, nil
}

// ContainsTime reports whether t's weekday is in the set. time.Weekday
// counts Sunday as 0; the stored codes use Monday=1 .. Sunday=7.
func (s WeekdaySet) ContainsTime(t time.Time) bool {
	day := int(t.Weekday())
	if day == 0 {
		day = 7
	}
	_, ok := s[day]
	return ok
}

func (s WeekdaySet) sorted() []int {
	days := make([]int, 0, len(s))
	for day := range s {
		days = append(days, day)
	}
	sort.Ints(days)
	return days
}

func (s WeekdaySet) String() string {
	parts := make([]string, 0, len(s))
	for _, day := range s.sorted() {
		parts = append(parts, strconv.Itoa(day))
	}
	return strings.Join(parts, ",")
}

func (s WeekdaySet) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "", nil
	}
	return s.String(), nil
}

func (s *WeekdaySet) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = WeekdaySet{}
		return nil
	case string:
		parsed, err := ParseWeekdaySet(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	case []byte:
		parsed, err := ParseWeekdaySet(string(v))
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into WeekdaySet", value)
	}
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.sorted())
}

func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var days []int
	if err := json.Unmarshal(data, &days); err != nil {
		return err
	}
	parsed, err := NewWeekdaySet(days...)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TimeOfDay is a wall-clock time without a date, stored as "HH:MM". The
// zero value is "not set".
type TimeOfDay struct {
	Minutes int // minutes since midnight
	Valid   bool
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS" (seconds ignored, matching
// the previous backend's TimeField serialization).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeOfDay{}, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Minutes: hour*60 + minute, Valid: true}, nil
}

// Reached reports whether now's local time of day is at or past t.
func (t TimeOfDay) Reached(now time.Time) bool {
	if !t.Valid {
		return false
	}
	return now.Hour()*60+now.Minute() >= t.Minutes
}

func (t TimeOfDay) String() string {
	if !t.Valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", t.Minutes/60, t.Minutes%60)
}

func (t TimeOfDay) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.String(), nil
}

func (t *TimeOfDay) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = TimeOfDay{}
		return nil
	case string:
		parsed, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case []byte:
		parsed, err := ParseTimeOfDay(string(v))
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case time.Time:
		*t = TimeOfDay{Minutes: v.Hour()*60 + v.Minute(), Valid: true}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", value)
	}
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = TimeOfDay{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

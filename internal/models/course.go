package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Weekday is the closed set of teaching days on the timetable.
type Weekday string

// Teaching days, Monday through Saturday.
const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
)

// Weekdays lists the teaching days in timetable order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// ParseWeekday accepts a day name in any case.
func ParseWeekday(raw string) (Weekday, error) {
	day := Weekday(strings.ToLower(strings.TrimSpace(raw)))
	if !day.Valid() {
		return "", fmt.Errorf("invalid weekday %q", raw)
	}
	return day, nil
}

// Valid reports whether d is one of the six teaching days.
func (d Weekday) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday:
		return true
	}
	return false
}

// Index returns the timetable position of d, or -1.
func (d Weekday) Index() int {
	switch d {
	case Monday:
		return 0
	case Tuesday:
		return 1
	case Wednesday:
		return 2
	case Thursday:
		return 3
	case Friday:
		return 4
	case Saturday:
		return 5
	}
	return -1
}

// Scan implements sql.Scanner.
func (d *Weekday) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*d = ""
		return nil
	default:
		return fmt.Errorf("scan weekday: unsupported type %T", src)
	}
	day, err := ParseWeekday(raw)
	if err != nil {
		return err
	}
	*d = day
	return nil
}

// Value implements driver.Valuer.
func (d Weekday) Value() (driver.Value, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %q", string(d))
	}
	return string(d), nil
}

// Course is one scheduled section on the weekly timetable.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Professor string    `db:"professor" json:"professor"`
	Assistant string    `db:"assistant" json:"assistant"`
	Day       Weekday   `db:"day" json:"day"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Active    bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TimeSlot renders the section time as start-end.
func (c Course) TimeSlot() string {
	return c.StartTime + "-" + c.EndTime
}

// CourseFilter narrows the active timetable listing.
type CourseFilter struct {
	Day Weekday
}

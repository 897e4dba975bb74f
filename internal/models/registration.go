package models

import (
	"strconv"
	"time"
)

// Registration links one user to one course. A pair owns a single row for
// its whole life: cancelling flips it inactive and registering again
// reactivates the same row.
type Registration struct {
	ID           string     `db:"id" json:"id"`
	UserID       int64      `db:"user_id" json:"user_id"`
	CourseID     string     `db:"course_id" json:"course_id"`
	Active       bool       `db:"is_active" json:"is_active"`
	RegisteredAt time.Time  `db:"registered_at" json:"registered_at"`
	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// PairKey identifies the (user, course) pair a registration belongs to.
func PairKey(userID int64, courseID string) string {
	return strconv.FormatInt(userID, 10) + ":" + courseID
}

// RegistrationState is the lifecycle state of a (user, course) pair.
type RegistrationState string

const (
	StateUnregistered RegistrationState = "UNREGISTERED"
	StateActive       RegistrationState = "ACTIVE"
)

// StateOf derives the pair state from its row, which may be nil.
func StateOf(r *Registration) RegistrationState {
	if r != nil && r.Active {
		return StateActive
	}
	return StateUnregistered
}

// NewRegistration builds the first row for a pair.
func NewRegistration(id string, userID int64, courseID string, now time.Time) *Registration {
	return &Registration{ID: id, UserID: userID, CourseID: courseID, Active: true, RegisteredAt: now}
}

// Reactivate turns a cancelled row active again. It returns false when the
// row is already active.
func (r *Registration) Reactivate(now time.Time) bool {
	if r.Active {
		return false
	}
	r.Active = true
	r.RegisteredAt = now
	r.CancelledAt = nil
	return true
}

// Cancel deactivates an active row. It returns false when the row is
// already inactive.
func (r *Registration) Cancel(now time.Time) bool {
	if !r.Active {
		return false
	}
	ts := now
	r.Active = false
	r.CancelledAt = &ts
	return true
}

// EnrollmentDetail is the read projection joining a registration with its
// user and course.
type EnrollmentDetail struct {
	RegistrationID   string     `db:"registration_id" json:"registration_id"`
	RegisteredAt     time.Time  `db:"registered_at" json:"registered_at"`
	CancelledAt      *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	Active           bool       `db:"is_active" json:"is_active"`
	UserID           int64      `db:"user_id" json:"user_id"`
	StudentID        string     `db:"student_id" json:"student_id"`
	UserName         string     `db:"user_name" json:"user_name"`
	Phone            string     `db:"phone" json:"phone"`
	PhoneUnavailable bool       `db:"-" json:"phone_unavailable,omitempty"`
	CourseID         string     `db:"course_id" json:"course_id"`
	CourseCode       string     `db:"course_code" json:"course_code"`
	CourseName       string     `db:"course_name" json:"course_name"`
	Professor        string     `db:"professor" json:"professor"`
	Assistant        string     `db:"assistant" json:"assistant"`
	Day              Weekday    `db:"day" json:"day"`
	StartTime        string     `db:"start_time" json:"-"`
	EndTime          string     `db:"end_time" json:"-"`
	TimeSlot         string     `db:"-" json:"time_slot"`
}

// HistoryFilter narrows the registration history view.
type HistoryFilter struct {
	CourseCode string
	UserID     int64
}

package models

import "time"

// User is a student or administrator account.
type User struct {
	ID           int64     `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Name         string    `db:"name" json:"name"`
	Batch        string    `db:"batch" json:"batch"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	Phone        string    `db:"phone" json:"-"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserProfile is a user as shown to callers, with the phone decrypted.
type UserProfile struct {
	ID               int64  `json:"id"`
	StudentID        string `json:"student_id"`
	Name             string `json:"name"`
	Batch            string `json:"batch"`
	IsAdmin          bool   `json:"is_admin"`
	Phone            string `json:"phone"`
	PhoneUnavailable bool   `json:"phone_unavailable,omitempty"`
}

// PhoneRecord is the slice of a user row touched by the phone migration.
type PhoneRecord struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Phone string `db:"phone"`
}

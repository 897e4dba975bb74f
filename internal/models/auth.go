package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and the session it encodes.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Session     Session   `json:"session"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Session identifies the caller of a request. It is passed explicitly to
// handlers and services instead of living in shared state.
type Session struct {
	UserID    int64  `json:"user_id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"is_admin"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Session
	jwt.RegisteredClaims
}

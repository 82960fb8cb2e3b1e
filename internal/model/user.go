// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. Email is the login key and is unique.
//
// PasswordHash carries the json:"-" tag so a User can be written straight to
// a response (GET /users, GET /users/me) without leaking the bcrypt digest.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

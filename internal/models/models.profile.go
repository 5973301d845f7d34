package models

// Profile is the public part of a user account
type Profile struct {
	ID       string `json:"id" db:"id"`
	FullName string `json:"full_name" db:"full_name"`
}

package model

import "time"

// UserCredential is a third-party API key stored for a user. The key itself
// is only ever held encrypted.
type UserCredential struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	EncryptedAPIKey string    `json:"-"`
	KeyLastFour     string    `json:"key_last_four"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

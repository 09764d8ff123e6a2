package store

import (
	"context"
	"errors"

	"github.com/evergreen-ci/sage-sub002/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// UserCredentialStore defines the contract for per-user API key storage.
// Emails are matched case-insensitively.
type UserCredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*model.UserCredential, error)
	Upsert(ctx context.Context, cred *model.UserCredential) error
	DeleteByEmail(ctx context.Context, email string) error
}

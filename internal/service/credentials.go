package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evergreen-ci/sage-sub002/common/id"
	"github.com/evergreen-ci/sage-sub002/internal/model"
	"github.com/evergreen-ci/sage-sub002/internal/store"
)

var (
	ErrCredentialNotFound = errors.New("no API key found")
	ErrAPIKeyRequired     = errors.New("apiKey is required")
	ErrUserRequired       = errors.New("user email is required")
)

// Sealer encrypts secrets at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}

type CredentialStatus struct {
	HasKey      bool
	KeyLastFour string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CredentialService manages the Cursor API key each user stores for the PR bot.
type CredentialService interface {
	Status(ctx context.Context, email string) (*CredentialStatus, error)
	Upsert(ctx context.Context, email, apiKey string) (*CredentialStatus, error)
	Delete(ctx context.Context, email string) error
	APIKey(ctx context.Context, email string) (string, error)
}

type credentialService struct {
	creds  store.UserCredentialStore
	sealer Sealer
	logger *slog.Logger
}

func NewCredentialService(creds store.UserCredentialStore, sealer Sealer, logger *slog.Logger) CredentialService {
	if logger == nil {
		logger = slog.Default()
	}
	return &credentialService{
		creds:  creds,
		sealer: sealer,
		logger: logger,
	}
}

func (s *credentialService) Status(ctx context.Context, email string) (*CredentialStatus, error) {
	email, err := normalizeUser(email)
	if err != nil {
		return nil, err
	}

	cred, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &CredentialStatus{HasKey: false}, nil
		}
		return nil, fmt.Errorf("fetching credential: %w", err)
	}
	return toStatus(cred), nil
}

func (s *credentialService) Upsert(ctx context.Context, email, apiKey string) (*CredentialStatus, error) {
	email, err := normalizeUser(email)
	if err != nil {
		return nil, err
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	sealed, err := s.sealer.Seal(apiKey)
	if err != nil {
		return nil, fmt.Errorf("encrypting api key: %w", err)
	}

	cred := &model.UserCredential{
		ID:              id.New(),
		Email:           email,
		EncryptedAPIKey: sealed,
		KeyLastFour:     lastFour(apiKey),
	}
	if err := s.creds.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}

	s.logger.InfoContext(ctx, "stored api key", "key_last_four", cred.KeyLastFour)
	return toStatus(cred), nil
}

func (s *credentialService) Delete(ctx context.Context, email string) error {
	email, err := normalizeUser(email)
	if err != nil {
		return err
	}

	if err := s.creds.DeleteByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCredentialNotFound
		}
		return fmt.Errorf("deleting credential: %w", err)
	}

	s.logger.InfoContext(ctx, "deleted api key")
	return nil
}

// APIKey returns the decrypted key for callers that act on the user's behalf.
func (s *credentialService) APIKey(ctx context.Context, email string) (string, error) {
	email, err := normalizeUser(email)
	if err != nil {
		return "", err
	}

	cred, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrCredentialNotFound
		}
		return "", fmt.Errorf("fetching credential: %w", err)
	}

	key, err := s.sealer.Open(cred.EncryptedAPIKey)
	if err != nil {
		return "", fmt.Errorf("decrypting api key: %w", err)
	}
	return key, nil
}

func toStatus(cred *model.UserCredential) *CredentialStatus {
	return &CredentialStatus{
		HasKey:      true,
		KeyLastFour: cred.KeyLastFour,
		CreatedAt:   cred.CreatedAt,
		UpdatedAt:   cred.UpdatedAt,
	}
}

func normalizeUser(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrUserRequired
	}
	return email, nil
}

func lastFour(key string) string {
	runes := []rune(key)
	if len(runes) <= 4 {
		return string(runes)
	}
	return string(runes[len(runes)-4:])
}

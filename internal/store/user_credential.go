package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/evergreen-ci/sage-sub002/core/db"
	"github.com/evergreen-ci/sage-sub002/internal/model"
)

type userCredentialStore struct {
	queries db.Querier
}

func newUserCredentialStore(queries db.Querier) UserCredentialStore {
	return &userCredentialStore{queries: queries}
}

const userCredentialColumns = `id, email, encrypted_api_key, key_last_four, created_at, updated_at`

func (s *userCredentialStore) GetByEmail(ctx context.Context, email string) (*model.UserCredential, error) {
	row := s.queries.QueryRow(ctx,
		`SELECT `+userCredentialColumns+` FROM user_credentials WHERE email = $1`,
		normalizeEmail(email))

	cred, err := scanUserCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cred, nil
}

// Upsert inserts the credential or replaces the key of the existing row for
// the same email. ID and timestamps are filled from the stored row.
func (s *userCredentialStore) Upsert(ctx context.Context, cred *model.UserCredential) error {
	row := s.queries.QueryRow(ctx, `
		INSERT INTO user_credentials (id, email, encrypted_api_key, key_last_four)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET encrypted_api_key = EXCLUDED.encrypted_api_key,
		    key_last_four     = EXCLUDED.key_last_four,
		    updated_at        = now()
		RETURNING `+userCredentialColumns,
		cred.ID, normalizeEmail(cred.Email), cred.EncryptedAPIKey, cred.KeyLastFour)

	stored, err := scanUserCredential(row)
	if err != nil {
		return err
	}
	*cred = *stored
	return nil
}

func (s *userCredentialStore) DeleteByEmail(ctx context.Context, email string) error {
	tag, err := s.queries.Exec(ctx,
		`DELETE FROM user_credentials WHERE email = $1`, normalizeEmail(email))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUserCredential(row pgx.Row) (*model.UserCredential, error) {
	var cred model.UserCredential
	if err := row.Scan(
		&cred.ID,
		&cred.Email,
		&cred.EncryptedAPIKey,
		&cred.KeyLastFour,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cred, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

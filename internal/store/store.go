package store

import (
	"github.com/evergreen-ci/sage-sub002/core/db"
)

// Stores hands out typed stores over one querier (pool or transaction).
type Stores struct {
	queries db.Querier
}

func NewStores(queries db.Querier) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) UserCredentials() UserCredentialStore {
	return newUserCredentialStore(s.queries)
}

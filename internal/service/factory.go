package service

import (
	"log/slog"

	"github.com/evergreen-ci/sage-sub002/common/llm"
	"github.com/evergreen-ci/sage-sub002/internal/queue"
	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
	"github.com/evergreen-ci/sage-sub002/internal/store"
)

type Services struct {
	stores       *store.Stores
	sealer       Sealer
	issues       queue.IssueQueue
	releaseNotes ReleaseNotesService
	logger       *slog.Logger
}

// NewServices builds the long-lived services. The release notes service is
// created once so every caller shares its concurrency limit.
func NewServices(stores *store.Stores, sealer Sealer, issues queue.IssueQueue, client llm.Client, rnCfg ReleaseNotesConfig, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	return &Services{
		stores:       stores,
		sealer:       sealer,
		issues:       issues,
		releaseNotes: NewReleaseNotesService(client, releasenotes.DefaultClassification, rnCfg, logger),
		logger:       logger,
	}
}

func (s *Services) ReleaseNotes() ReleaseNotesService {
	return s.releaseNotes
}

func (s *Services) Credentials() CredentialService {
	return NewCredentialService(s.stores.UserCredentials(), s.sealer, s.logger)
}

func (s *Services) JiraIssues() queue.IssueQueue {
	return s.issues
}

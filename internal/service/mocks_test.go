package service_test

import (
	"context"
	"strings"
	"sync"

	"github.com/evergreen-ci/sage-sub002/common/llm"
	"github.com/evergreen-ci/sage-sub002/internal/model"
	"github.com/evergreen-ci/sage-sub002/internal/store"
)

type mockCredentialStore struct {
	getByEmailFn    func(ctx context.Context, email string) (*model.UserCredential, error)
	upsertFn        func(ctx context.Context, cred *model.UserCredential) error
	deleteByEmailFn func(ctx context.Context, email string) error
}

func (m *mockCredentialStore) GetByEmail(ctx context.Context, email string) (*model.UserCredential, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, store.ErrNotFound
}

func (m *mockCredentialStore) Upsert(ctx context.Context, cred *model.UserCredential) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, cred)
	}
	return nil
}

func (m *mockCredentialStore) DeleteByEmail(ctx context.Context, email string) error {
	if m.deleteByEmailFn != nil {
		return m.deleteByEmailFn(ctx, email)
	}
	return nil
}

// reverseSealer is a reversible stand-in for the age sealer.
type reverseSealer struct {
	sealErr error
}

func (s *reverseSealer) Seal(plaintext string) (string, error) {
	if s.sealErr != nil {
		return "", s.sealErr
	}
	return "sealed:" + reverse(plaintext), nil
}

func (s *reverseSealer) Open(ciphertext string) (string, error) {
	return reverse(strings.TrimPrefix(ciphertext, "sealed:")), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

type mockLLMClient struct {
	mu       sync.Mutex
	chatFn   func(ctx context.Context, req llm.Request, call int) (*llm.Response, error)
	requests []llm.Request
}

func (m *mockLLMClient) Chat(ctx context.Context, req llm.Request, _ any) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	call := len(m.requests)
	m.mu.Unlock()

	if m.chatFn != nil {
		return m.chatFn(ctx, req, call)
	}
	return &llm.Response{Content: `{"sections":[]}`}, nil
}

func (m *mockLLMClient) Model() string {
	return "mock-model"
}

func (m *mockLLMClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockLLMClient) request(i int) llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

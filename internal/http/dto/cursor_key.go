package dto

import (
	"time"

	"github.com/evergreen-ci/sage-sub002/internal/service"
)

type CursorKeyStatusResponse struct {
	HasKey      bool       `json:"hasKey"`
	KeyLastFour *string    `json:"keyLastFour,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func ToCursorKeyStatusResponse(s *service.CredentialStatus) CursorKeyStatusResponse {
	if s == nil || !s.HasKey {
		return CursorKeyStatusResponse{HasKey: false}
	}
	resp := CursorKeyStatusResponse{
		HasKey:      true,
		KeyLastFour: &s.KeyLastFour,
	}
	if !s.CreatedAt.IsZero() {
		resp.CreatedAt = &s.CreatedAt
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = &s.UpdatedAt
	}
	return resp
}

type UpsertCursorKeyRequest struct {
	APIKey string `json:"apiKey" binding:"required"`
}

type UpsertCursorKeyResponse struct {
	Success     bool   `json:"success"`
	KeyLastFour string `json:"keyLastFour"`
}

type DeleteCursorKeyResponse struct {
	Success bool `json:"success"`
}

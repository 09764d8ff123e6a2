package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"github.com/evergreen-ci/sage-sub002/common/llm"
	"github.com/evergreen-ci/sage-sub002/common/logger"
	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
)

const releaseNotesSchemaName = "release_notes"

type ReleaseNotesConfig struct {
	MaxTokens     int
	Temperature   float64
	MaxConcurrent int64
	// MaxAttempts bounds model calls when the output is rejected.
	MaxAttempts int
	// RetryDelay is waited before the single retry after a transient provider error.
	RetryDelay time.Duration
}

func (c ReleaseNotesConfig) withDefaults() ReleaseNotesConfig {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}

type GenerateResult struct {
	Output           *releasenotes.Output
	Plan             releasenotes.PlanResult
	Attempts         int
	PromptTokens     int
	CompletionTokens int
}

type ReleaseNotesService interface {
	Plan(ctx context.Context, input releasenotes.Input) releasenotes.PlanResult
	Generate(ctx context.Context, input releasenotes.Input) (*GenerateResult, error)
}

type releaseNotesService struct {
	llm            llm.Client
	classification releasenotes.Classification
	schema         any
	cfg            ReleaseNotesConfig
	slots          *semaphore.Weighted
	logger         *slog.Logger
}

func NewReleaseNotesService(client llm.Client, classification releasenotes.Classification, cfg ReleaseNotesConfig, logger *slog.Logger) ReleaseNotesService {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &releaseNotesService{
		llm:            client,
		classification: classification,
		schema:         llm.GenerateRecursiveSchema[releasenotes.Output](),
		cfg:            cfg,
		slots:          semaphore.NewWeighted(cfg.MaxConcurrent),
		logger:         logger,
	}
}

func (s *releaseNotesService) Plan(ctx context.Context, input releasenotes.Input) releasenotes.PlanResult {
	plan := releasenotes.BuildPlan(input, s.classification)
	s.logger.DebugContext(ctx, "built release notes plan",
		"issue_count", len(plan.Issues),
		"section_count", len(plan.Sections),
		"has_security_issues", plan.HasSecurityIssues)
	return plan
}

// Generate plans the input, asks the model for release notes and validates
// the answer. Rejected output is retried with stricter instructions up to
// MaxAttempts; a transient provider failure is retried once after RetryDelay.
func (s *releaseNotesService) Generate(ctx context.Context, input releasenotes.Input) (*GenerateResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Product:   input.Product,
		Component: "sage.service.release_notes",
	})

	sc := logger.StartSpan(ctx, "release_notes.generate")
	defer sc.End()
	ctx = sc.Context()

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for generation slot: %w", err)
	}
	defer s.slots.Release(1)

	plan := s.Plan(ctx, input)
	prompt := releasenotes.FormatPrompt(input, plan)
	sc.SetAttributes(
		attribute.Int("release_notes.issue_count", len(plan.Issues)),
		attribute.Int("release_notes.section_count", len(plan.Sections)),
		attribute.Bool("release_notes.has_security_issues", plan.HasSecurityIssues),
		attribute.Int("release_notes.prompt_length", len(prompt)),
	)

	result, err := s.generate(ctx, prompt, plan)
	if err != nil && !isOutputError(err) && llm.IsRetryable(ctx, err) {
		s.logger.WarnContext(ctx, "release notes generation failed, retrying", "error", err, "delay", s.cfg.RetryDelay)
		select {
		case <-time.After(s.cfg.RetryDelay):
		case <-ctx.Done():
			sc.RecordError(ctx.Err())
			return nil, ctx.Err()
		}
		result, err = s.generate(ctx, prompt, plan)
	}
	if err != nil {
		sc.RecordError(err)
		s.logger.ErrorContext(ctx, "release notes generation failed", "error", err)
		return nil, err
	}

	sc.SetAttributes(
		attribute.Int("release_notes.attempts", result.Attempts),
		attribute.Int("release_notes.output_items", result.Output.ItemCount()),
	)
	s.logger.InfoContext(ctx, "generated release notes",
		"attempts", result.Attempts,
		"sections", len(result.Output.Sections),
		"items", result.Output.ItemCount(),
		"prompt_tokens", result.PromptTokens,
		"completion_tokens", result.CompletionTokens)

	return result, nil
}

func (s *releaseNotesService) generate(ctx context.Context, prompt string, plan releasenotes.PlanResult) (*GenerateResult, error) {
	result := &GenerateResult{Plan: plan}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		actx := logger.WithLogFields(ctx, logger.LogFields{Attempt: logger.Ptr(attempt)})

		userPrompt := prompt
		if attempt > 1 {
			userPrompt = releasenotes.RetryPrompt(prompt)
		}

		result.Attempts = attempt
		out, err := s.generateOnce(actx, userPrompt, plan, result)
		if err == nil {
			result.Output = out
			return result, nil
		}

		lastErr = err
		if !isOutputError(err) {
			return nil, err
		}
		s.logger.WarnContext(actx, "release notes output rejected",
			"error", err,
			"max_attempts", s.cfg.MaxAttempts)
	}

	return nil, lastErr
}

func (s *releaseNotesService) generateOnce(ctx context.Context, prompt string, plan releasenotes.PlanResult, result *GenerateResult) (*releasenotes.Output, error) {
	resp, err := s.llm.Chat(ctx, llm.Request{
		SystemPrompt: releasenotes.SystemPrompt,
		UserPrompt:   prompt,
		SchemaName:   releaseNotesSchemaName,
		Schema:       s.schema,
		MaxTokens:    s.cfg.MaxTokens,
		Temperature:  llm.Temp(s.cfg.Temperature),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", s.llm.Model(), err)
	}
	result.PromptTokens += resp.PromptTokens
	result.CompletionTokens += resp.CompletionTokens

	content := resp.Content
	if extracted, ok := llm.ExtractJSON(content); ok {
		content = extracted
	}

	out, ok := releasenotes.NormalizeOutput([]byte(content))
	if !ok {
		s.logger.DebugContext(ctx, "unusable release notes output", "raw", logger.Truncate(resp.Content, 500))
		return nil, fmt.Errorf("model output has no usable sections: %w", releasenotes.ErrSchemaMismatch)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	if err := releasenotes.ValidateCitations(out, plan.IssueKeys()); err != nil {
		return nil, err
	}
	return out, nil
}

func isOutputError(err error) bool {
	return errors.Is(err, releasenotes.ErrSchemaMismatch) || errors.Is(err, releasenotes.ErrUnknownCitation)
}

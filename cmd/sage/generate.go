package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/evergreen-ci/sage-sub002/common/llm"
	"github.com/evergreen-ci/sage-sub002/core/config"
	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
	"github.com/evergreen-ci/sage-sub002/internal/service"
)

var generateCmd = &cobra.Command{
	Use:   "generate [file]",
	Short: "Generate release notes with the configured model",
	Long: `Run the full generation for a request and print the validated release notes.
Uses LLM_PROVIDER, LLM_API_KEY and LLM_MODEL from the environment or .env.cli.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := loadInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		cfg, err := config.Load(config.ServiceTypeCLI)
		if err != nil {
			return err
		}
		if !cfg.LLM.Enabled() {
			return fmt.Errorf("LLM_API_KEY is required and LLM_PROVIDER must be openai or anthropic")
		}

		client, err := llm.New(llm.Config{
			Provider: cfg.LLM.Provider,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
		})
		if err != nil {
			return err
		}

		svc := service.NewReleaseNotesService(client, releasenotes.DefaultClassification, service.ReleaseNotesConfig{
			MaxTokens:     cfg.LLM.MaxTokens,
			Temperature:   cfg.LLM.Temperature,
			MaxConcurrent: 1,
			RetryDelay:    time.Second,
		}, slog.Default())

		result, err := svc.Generate(cmd.Context(), input)
		if err != nil {
			return err
		}

		slog.InfoContext(cmd.Context(), "generation finished",
			"model", client.Model(),
			"attempts", result.Attempts,
			"prompt_tokens", result.PromptTokens,
			"completion_tokens", result.CompletionTokens)
		return writeJSON(cmd.OutOrStdout(), result.Output)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/evergreen-ci/sage-sub002/core/config"
	"github.com/evergreen-ci/sage-sub002/internal/queue"
)

var popTimeout time.Duration

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the Jira issue queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var queueLenCmd = &cobra.Command{
	Use:   "len",
	Short: "Print the number of queued issue keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		issues, err := openIssueQueue()
		if err != nil {
			return err
		}
		defer issues.Close()

		n, err := issues.Len(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
		return err
	},
}

var queuePopCmd = &cobra.Command{
	Use:   "pop",
	Short: "Remove and print the oldest queued issue key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		issues, err := openIssueQueue()
		if err != nil {
			return err
		}
		defer issues.Close()

		key, err := issues.Dequeue(cmd.Context(), popTimeout)
		if errors.Is(err, queue.ErrQueueEmpty) {
			fmt.Fprintln(cmd.ErrOrStderr(), "queue is empty")
			return nil
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
		return err
	},
}

func init() {
	queuePopCmd.Flags().DurationVar(&popTimeout, "timeout", 5*time.Second, "How long to wait for a key")
	queueCmd.AddCommand(queueLenCmd, queuePopCmd)
	rootCmd.AddCommand(queueCmd)
}

func openIssueQueue() (queue.IssueQueue, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, err
	}
	client, err := queue.NewRedisClient(cfg.Redis.URL, time.Duration(cfg.Redis.ClientTimeout)*time.Second)
	if err != nil {
		return nil, err
	}
	return queue.NewRedisIssueQueue(client, cfg.Redis.JiraQueueKey, slog.Default())
}

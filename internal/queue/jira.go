package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrEmptyValue = errors.New("cannot enqueue an empty value")
	ErrQueueEmpty = errors.New("queue is empty")
)

// IssueQueue is a FIFO of Jira issue keys awaiting downstream processing.
type IssueQueue interface {
	Enqueue(ctx context.Context, issueKey string) error
	// Dequeue blocks up to timeout for the oldest key. Returns ErrQueueEmpty on timeout.
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)
	Len(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// listClient is the subset of *redis.Client used by the queue.
type listClient interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

type redisIssueQueue struct {
	client listClient
	key    string
	logger *slog.Logger
}

// NewRedisIssueQueue pushes to the head of the list at key and pops from its
// tail, so keys are processed in arrival order.
func NewRedisIssueQueue(client listClient, key string, logger *slog.Logger) (IssueQueue, error) {
	if key == "" {
		return nil, fmt.Errorf("queue key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &redisIssueQueue{
		client: client,
		key:    key,
		logger: logger,
	}, nil
}

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(url string, timeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if timeout > 0 {
		opts.DialTimeout = timeout
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	}
	return redis.NewClient(opts), nil
}

func (q *redisIssueQueue) Enqueue(ctx context.Context, issueKey string) error {
	issueKey = strings.TrimSpace(issueKey)
	if issueKey == "" {
		return ErrEmptyValue
	}

	if err := q.client.LPush(ctx, q.key, issueKey).Err(); err != nil {
		return fmt.Errorf("enqueue issue key: %w", err)
	}

	q.logger.DebugContext(ctx, "enqueued jira issue key", "queue", q.key, "issue_key", issueKey)
	return nil
}

func (q *redisIssueQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrQueueEmpty
		}
		return "", fmt.Errorf("dequeue issue key: %w", err)
	}
	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return "", fmt.Errorf("dequeue issue key: unexpected reply %v", res)
	}
	return res[1], nil
}

func (q *redisIssueQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

func (q *redisIssueQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *redisIssueQueue) Close() error {
	return q.client.Close()
}

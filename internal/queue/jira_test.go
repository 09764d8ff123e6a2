package queue_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evergreen-ci/sage-sub002/internal/queue"
)

var _ = Describe("RedisIssueQueue", func() {
	var (
		ctx  context.Context
		list *queue.FakeList
		q    queue.IssueQueue
	)

	BeforeEach(func() {
		ctx = context.Background()
		list = queue.NewFakeList()
		var err error
		q, err = queue.NewRedisIssueQueue(list, "sage:jira:issues", nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a queue key", func() {
		_, err := queue.NewRedisIssueQueue(list, "", nil)
		Expect(err).To(MatchError(ContainSubstring("queue key is required")))
	})

	It("trims keys before pushing", func() {
		Expect(q.Enqueue(ctx, "  DEVPROD-1 ")).To(Succeed())
		Expect(list.Items["sage:jira:issues"]).To(Equal([]string{"DEVPROD-1"}))
	})

	It("rejects blank keys", func() {
		Expect(q.Enqueue(ctx, "   ")).To(MatchError(queue.ErrEmptyValue))
		Expect(list.Items).To(BeEmpty())
	})

	It("dequeues in arrival order", func() {
		Expect(q.Enqueue(ctx, "A-1")).To(Succeed())
		Expect(q.Enqueue(ctx, "A-2")).To(Succeed())

		n, err := q.Len(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))

		first, err := q.Dequeue(ctx, time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(Equal("A-1"))

		second, err := q.Dequeue(ctx, time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal("A-2"))
	})

	It("reports an empty queue", func() {
		_, err := q.Dequeue(ctx, time.Millisecond)
		Expect(err).To(MatchError(queue.ErrQueueEmpty))
	})

	It("wraps redis failures", func() {
		list.Err = errors.New("connection refused")

		Expect(q.Enqueue(ctx, "A-1")).To(MatchError(ContainSubstring("enqueue issue key: connection refused")))
		_, err := q.Len(ctx)
		Expect(err).To(MatchError(ContainSubstring("queue length")))
		Expect(q.Ping(ctx)).To(HaveOccurred())
	})

	It("closes the client", func() {
		Expect(q.Close()).To(Succeed())
		Expect(list.Closed).To(BeTrue())
	})
})

var _ = Describe("NewRedisClient", func() {
	It("rejects malformed URLs", func() {
		_, err := queue.NewRedisClient("http://nope", time.Second)
		Expect(err).To(MatchError(ContainSubstring("parsing redis url")))
	})

	It("builds a client from a redis URL", func() {
		client, err := queue.NewRedisClient("redis://localhost:6379/2", 2*time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Options().DB).To(Equal(2))
		Expect(client.Options().ReadTimeout).To(Equal(2 * time.Second))
		Expect(client.Close()).To(Succeed())
	})
})

package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evergreen-ci/sage-sub002/common/llm"
	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
	"github.com/evergreen-ci/sage-sub002/internal/service"
)

const validNotes = `{"sections":[
	{"title":"Improvements","items":[{"text":"Faster sync","citations":["DEVPROD-1"]}]},
	{"title":"Bug Fixes","items":[{"text":"Fixed crash","citations":["DEVPROD-2"]}]}
]}`

func releaseNotesInput() releasenotes.Input {
	product := "Evergreen"
	return releasenotes.Input{
		Product: &product,
		JiraIssues: []releasenotes.Issue{
			{Key: "DEVPROD-1", IssueType: "IMPROVEMENT", Summary: "Speed up sync"},
			{Key: "DEVPROD-2", IssueType: "BUG", Summary: "Crash on save"},
		},
	}
}

var _ = Describe("ReleaseNotesService", func() {
	var (
		ctx    context.Context
		client *mockLLMClient
		svc    service.ReleaseNotesService
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockLLMClient{}
		svc = service.NewReleaseNotesService(client, releasenotes.DefaultClassification, service.ReleaseNotesConfig{
			MaxTokens:   1000,
			Temperature: 0.3,
		}, nil)
	})

	Describe("Plan", func() {
		It("groups issues into the default sections", func() {
			plan := svc.Plan(ctx, releaseNotesInput())

			Expect(plan.Sections).To(HaveLen(2))
			Expect(plan.Sections[0].Title).To(Equal("Improvements"))
			Expect(plan.Sections[0].IssueKeys).To(Equal([]string{"DEVPROD-1"}))
			Expect(plan.Sections[1].Title).To(Equal("Bug Fixes"))
			Expect(plan.Sections[1].IssueKeys).To(Equal([]string{"DEVPROD-2"}))
			Expect(plan.HasSecurityIssues).To(BeFalse())
		})
	})

	Describe("Generate", func() {
		It("returns validated output from the first good answer", func() {
			client.chatFn = func(context.Context, llm.Request, int) (*llm.Response, error) {
				return &llm.Response{Content: validNotes, PromptTokens: 100, CompletionTokens: 40}, nil
			}

			result, err := svc.Generate(ctx, releaseNotesInput())

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Attempts).To(Equal(1))
			Expect(result.Output.Sections).To(HaveLen(2))
			Expect(result.Output.ItemCount()).To(Equal(2))
			Expect(result.PromptTokens).To(Equal(100))
			Expect(result.CompletionTokens).To(Equal(40))
			Expect(result.Plan.Sections).To(HaveLen(2))

			req := client.request(0)
			Expect(req.SystemPrompt).To(Equal(releasenotes.SystemPrompt))
			Expect(req.SchemaName).To(Equal("release_notes"))
			Expect(req.Schema).NotTo(BeNil())
			Expect(req.MaxTokens).To(Equal(1000))
			Expect(*req.Temperature).To(Equal(0.3))
			Expect(req.UserPrompt).To(ContainSubstring("Product: Evergreen"))
			Expect(req.UserPrompt).To(ContainSubstring("# Section Planner"))
		})

		It("accepts loosely shaped answers", func() {
			client.chatFn = func(context.Context, llm.Request, int) (*llm.Response, error) {
				return &llm.Response{Content: "```json\n" + `{"sections":{"Improvements":[{"summary":"Faster sync","issues":"DEVPROD-1"}]}}` + "\n```"}, nil
			}

			result, err := svc.Generate(ctx, releaseNotesInput())

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Output.Sections).To(HaveLen(1))
			Expect(result.Output.Sections[0].Items[0].Citations).To(Equal([]string{"DEVPROD-1"}))
		})

		It("retries with stricter instructions when the answer is unusable", func() {
			client.chatFn = func(_ context.Context, _ llm.Request, call int) (*llm.Response, error) {
				if call == 1 {
					return &llm.Response{Content: "I cannot help with that.", PromptTokens: 10}, nil
				}
				return &llm.Response{Content: validNotes, PromptTokens: 12}, nil
			}

			result, err := svc.Generate(ctx, releaseNotesInput())

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Attempts).To(Equal(2))
			Expect(result.PromptTokens).To(Equal(22))
			Expect(client.calls()).To(Equal(2))
			Expect(client.request(0).UserPrompt).NotTo(HavePrefix(releasenotes.RetryInstructions))
			Expect(client.request(1).UserPrompt).To(HavePrefix(releasenotes.RetryInstructions))
			Expect(client.request(1).UserPrompt).To(HaveSuffix(client.request(0).UserPrompt))
		})

		It("gives up after three answers that cite unknown issues", func() {
			client.chatFn = func(context.Context, llm.Request, int) (*llm.Response, error) {
				return &llm.Response{Content: `{"sections":[{"title":"Improvements","items":[{"text":"Ghost","citations":["NOPE-1"]}]}]}`}, nil
			}

			_, err := svc.Generate(ctx, releaseNotesInput())

			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, releasenotes.ErrUnknownCitation)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("NOPE-1"))
			Expect(client.calls()).To(Equal(3))
		})

		It("treats answers left empty after cleanup as a schema mismatch", func() {
			client.chatFn = func(_ context.Context, _ llm.Request, call int) (*llm.Response, error) {
				if call < 3 {
					return &llm.Response{Content: `{"sections":[{"title":"Improvements","items":[{"text":"  "}]}]}`}, nil
				}
				return &llm.Response{Content: validNotes}, nil
			}

			result, err := svc.Generate(ctx, releaseNotesInput())

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Attempts).To(Equal(3))
		})

		It("retries the whole generation once after a transient provider error", func() {
			client.chatFn = func(_ context.Context, _ llm.Request, call int) (*llm.Response, error) {
				if call == 1 {
					return nil, errors.New("connection reset by peer")
				}
				return &llm.Response{Content: validNotes}, nil
			}

			result, err := svc.Generate(ctx, releaseNotesInput())

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Attempts).To(Equal(1))
			Expect(client.calls()).To(Equal(2))
		})

		It("stops after the second transient failure", func() {
			client.chatFn = func(context.Context, llm.Request, int) (*llm.Response, error) {
				return nil, errors.New("connection reset by peer")
			}

			_, err := svc.Generate(ctx, releaseNotesInput())

			Expect(err).To(MatchError(ContainSubstring("connection reset by peer")))
			Expect(client.calls()).To(Equal(2))
		})

		It("does not retry an empty provider response", func() {
			client.chatFn = func(context.Context, llm.Request, int) (*llm.Response, error) {
				return nil, llm.ErrEmptyResponse
			}

			_, err := svc.Generate(ctx, releaseNotesInput())

			Expect(err).To(MatchError(llm.ErrEmptyResponse))
			Expect(client.calls()).To(Equal(1))
		})

		It("fails fast without a configured provider", func() {
			unconfigured := service.NewReleaseNotesService(llm.NewUnconfigured("gpt-4.1"), releasenotes.DefaultClassification, service.ReleaseNotesConfig{
				RetryDelay: time.Hour,
			}, nil)

			_, err := unconfigured.Generate(ctx, releaseNotesInput())

			Expect(err).To(MatchError(llm.ErrNotConfigured))
			Expect(unconfigured.Plan(ctx, releaseNotesInput()).Sections).To(HaveLen(2))
		})

		It("does not retry once the caller has gone away", func() {
			cctx, cancel := context.WithCancel(ctx)
			client.chatFn = func(context.Context, llm.Request, int) (*llm.Response, error) {
				cancel()
				return nil, context.Canceled
			}

			_, err := svc.Generate(cctx, releaseNotesInput())

			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(client.calls()).To(Equal(1))
		})

		It("bounds concurrent generations", func() {
			var inFlight, peak atomic.Int32
			release := make(chan struct{})
			client.chatFn = func(context.Context, llm.Request, int) (*llm.Response, error) {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				<-release
				inFlight.Add(-1)
				return &llm.Response{Content: validNotes}, nil
			}
			svc = service.NewReleaseNotesService(client, releasenotes.DefaultClassification, service.ReleaseNotesConfig{
				MaxConcurrent: 2,
			}, nil)

			var wg sync.WaitGroup
			errs := make(chan error, 5)
			for range 5 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Generate(ctx, releaseNotesInput())
					errs <- err
				}()
			}

			Eventually(client.calls).Should(Equal(2))
			Consistently(client.calls, "50ms").Should(Equal(2))
			close(release)
			wg.Wait()
			close(errs)

			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(peak.Load()).To(BeNumerically("<=", 2))
			Expect(client.calls()).To(Equal(5))
		})

		It("flags security issues without planning an unconfigured section", func() {
			input := releaseNotesInput()
			input.JiraIssues = append(input.JiraIssues, releasenotes.Issue{
				Key: "SEC-7", IssueType: "VULNERABILITY", Summary: "Patch TLS",
			})
			client.chatFn = func(context.Context, llm.Request, int) (*llm.Response, error) {
				return &llm.Response{Content: validNotes}, nil
			}

			result, err := svc.Generate(ctx, input)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Plan.HasSecurityIssues).To(BeTrue())
			Expect(result.Plan.Sections).To(HaveLen(2))
			prompt := client.request(0).UserPrompt
			Expect(strings.Contains(prompt, "SEC-7")).To(BeTrue())
		})
	})
})

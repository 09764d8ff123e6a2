package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evergreen-ci/sage-sub002/internal/http/handler"
	"github.com/evergreen-ci/sage-sub002/internal/http/middleware"
	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
	"github.com/evergreen-ci/sage-sub002/internal/service"
)

const validRequest = `{
	"product": "Evergreen",
	"sections": [" Improvements ", "Bug Fixes"],
	"jiraIssues": [
		{"key": " DEVPROD-1 ", "issueType": "IMPROVEMENT", "summary": "Speed up sync",
		 "additionalMetadata": {"release_notes": "Sync is faster.", "team": "DevProd", "points": 3},
		 "pullRequests": [{"title": "Faster sync", "description": "Batches writes"}]},
		{"key": "DEVPROD-2", "issueType": "BUG", "summary": ""}
	]
}`

var _ = Describe("ReleaseNotesHandler", func() {
	var (
		router       *gin.Engine
		svc          *mockReleaseNotesService
		isProduction bool
	)

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		return resp
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		svc = &mockReleaseNotesService{}
		isProduction = false
	})

	JustBeforeEach(func() {
		router = gin.New()
		h := handler.NewReleaseNotesHandler(svc, isProduction)
		group := router.Group("/completions/release-notes", middleware.BodyLimit(1024))
		group.POST("/generate", h.Generate)
		group.POST("/plan", h.Plan)
	})

	Describe("Generate", func() {
		It("returns the generated release notes", func() {
			svc.generateFn = func(_ context.Context, _ releasenotes.Input) (*service.GenerateResult, error) {
				return &service.GenerateResult{Output: &releasenotes.Output{Sections: []releasenotes.OutputSection{{
					Title: "Improvements",
					Items: []releasenotes.Item{{Text: "Faster sync", Citations: []string{"DEVPROD-1"}}},
				}}}}, nil
			}

			w := post("/completions/release-notes/generate", validRequest)

			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			sections := resp["sections"].([]any)
			Expect(sections).To(HaveLen(1))
			Expect(sections[0].(map[string]any)["title"]).To(Equal("Improvements"))
		})

		It("passes trimmed input to the service", func() {
			w := post("/completions/release-notes/generate", validRequest)
			Expect(w.Code).To(Equal(http.StatusOK))

			input := svc.lastInput
			Expect(input).NotTo(BeNil())
			Expect(input.Sections).To(Equal([]string{"Improvements", "Bug Fixes"}))
			Expect(*input.Product).To(Equal("Evergreen"))
			Expect(input.JiraIssues).To(HaveLen(2))
			Expect(input.JiraIssues[0].Key).To(Equal("DEVPROD-1"))
			Expect(input.JiraIssues[0].PullRequests).To(HaveLen(1))
			Expect(input.JiraIssues[0].AdditionalMetadata["points"].String()).To(Equal("3"))
			Expect(input.JiraIssues[1].Summary).To(BeEmpty())
		})

		It("leaves sections unset when the field is absent", func() {
			w := post("/completions/release-notes/generate", `{"jiraIssues": []}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(svc.lastInput.Sections).To(BeNil())
		})

		Context("in production", func() {
			BeforeEach(func() {
				isProduction = true
			})

			It("hides failure details", func() {
				svc.generateFn = func(context.Context, releasenotes.Input) (*service.GenerateResult, error) {
					return nil, errors.New("provider exploded")
				}

				w := post("/completions/release-notes/generate", validRequest)

				Expect(w.Code).To(Equal(http.StatusInternalServerError))
				resp := decode(w)
				Expect(resp["message"]).To(Equal("Failed to generate release notes"))
				Expect(resp).NotTo(HaveKey("details"))
			})
		})

		It("includes failure details outside production", func() {
			svc.generateFn = func(context.Context, releasenotes.Input) (*service.GenerateResult, error) {
				return nil, errors.New("provider exploded")
			}

			w := post("/completions/release-notes/generate", validRequest)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(decode(w)["details"]).To(Equal("provider exploded"))
		})

		It("rejects bodies over the limit", func() {
			body := `{"jiraIssues": [], "customGuidelines": "` + strings.Repeat("x", 2048) + `"}`

			w := post("/completions/release-notes/generate", body)

			Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
			Expect(svc.lastInput).To(BeNil())
		})
	})

	DescribeTable("rejects invalid input before the planner runs",
		func(body, field string) {
			w := post("/completions/release-notes/generate", body)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			resp := decode(w)
			Expect(resp["message"]).To(Equal("Invalid request body"))
			Expect(resp["errors"]).To(ContainElement(HaveKeyWithValue("field", field)))
			Expect(svc.lastInput).To(BeNil())
		},
		Entry("malformed JSON", `{`, "body"),
		Entry("missing jiraIssues", `{}`, "jiraIssues"),
		Entry("missing key", `{"jiraIssues":[{"issueType":"BUG","summary":"s"}]}`, "jiraIssues[0].key"),
		Entry("blank key", `{"jiraIssues":[{"key":"  ","issueType":"BUG","summary":"s"}]}`, "jiraIssues[0].key"),
		Entry("missing issueType", `{"jiraIssues":[{"key":"A-1","summary":"s"}]}`, "jiraIssues[0].issueType"),
		Entry("missing summary", `{"jiraIssues":[{"key":"A-1","issueType":"BUG"}]}`, "jiraIssues[0].summary"),
		Entry("empty sections", `{"jiraIssues":[],"sections":[]}`, "sections"),
		Entry("blank section title", `{"jiraIssues":[],"sections":["Improvements","   "]}`, "sections[1]"),
		Entry("nested metadata", `{"jiraIssues":[{"key":"A-1","issueType":"BUG","summary":"s","additionalMetadata":{"a":{"b":1}}}]}`, "body"),
	)

	Describe("Plan", func() {
		It("returns the section plan", func() {
			w := post("/completions/release-notes/plan", validRequest)

			Expect(w.Code).To(Equal(http.StatusOK))
			var plan releasenotes.PlanResult
			Expect(json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&plan)).To(Succeed())
			Expect(plan.Sections).To(HaveLen(2))
			Expect(plan.Sections[0].IssueKeys).To(Equal([]string{"DEVPROD-1"}))
			Expect(plan.Issues[0].CuratedCopy).NotTo(BeNil())
			Expect(*plan.Issues[0].CuratedCopy).To(Equal("Sync is faster."))
			Expect(plan.Issues[0].Metadata).To(Equal(map[string]string{"points": "3", "team": "DevProd"}))
		})
	})
})

package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

type GenerateReleaseNotesRequest struct {
	JiraIssues       []JiraIssueRequest `json:"jiraIssues" binding:"required,dive"`
	Sections         []string           `json:"sections,omitempty" binding:"omitempty,min=1"`
	CustomGuidelines *string            `json:"customGuidelines,omitempty"`
	Product          *string            `json:"product,omitempty"`
}

type JiraIssueRequest struct {
	Key                string                                `json:"key" binding:"required"`
	IssueType          string                                `json:"issueType" binding:"required"`
	Summary            *string                               `json:"summary" binding:"required"`
	Description        *string                               `json:"description,omitempty"`
	AdditionalMetadata map[string]releasenotes.MetadataValue `json:"additionalMetadata,omitempty"`
	PullRequests       []PullRequestRequest                  `json:"pullRequests,omitempty" binding:"omitempty,dive"`
}

type PullRequestRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Check reports semantic problems that struct tags cannot express. Keys,
// issue types and section titles must not be blank once trimmed.
func (r *GenerateReleaseNotesRequest) Check() []FieldError {
	var errs []FieldError
	for i, issue := range r.JiraIssues {
		if strings.TrimSpace(issue.Key) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("jiraIssues[%d].key", i), Message: "must not be blank"})
		}
		if strings.TrimSpace(issue.IssueType) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("jiraIssues[%d].issueType", i), Message: "must not be blank"})
		}
	}
	for i, title := range r.Sections {
		if strings.TrimSpace(title) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("sections[%d]", i), Message: "must not be blank"})
		}
	}
	return errs
}

// ToInput converts a checked request into planner input.
func (r *GenerateReleaseNotesRequest) ToInput() releasenotes.Input {
	input := releasenotes.Input{
		JiraIssues:       make([]releasenotes.Issue, 0, len(r.JiraIssues)),
		CustomGuidelines: r.CustomGuidelines,
		Product:          r.Product,
	}

	if r.Sections != nil {
		input.Sections = make([]string, 0, len(r.Sections))
		for _, title := range r.Sections {
			input.Sections = append(input.Sections, strings.TrimSpace(title))
		}
	}

	for _, issue := range r.JiraIssues {
		converted := releasenotes.Issue{
			Key:                strings.TrimSpace(issue.Key),
			IssueType:          strings.TrimSpace(issue.IssueType),
			Summary:            *issue.Summary,
			Description:        issue.Description,
			AdditionalMetadata: issue.AdditionalMetadata,
		}
		for _, pr := range issue.PullRequests {
			converted.PullRequests = append(converted.PullRequests, releasenotes.PullRequest{
				Title:       pr.Title,
				Description: pr.Description,
			})
		}
		input.JiraIssues = append(input.JiraIssues, converted)
	}

	return input
}

// BindingErrors turns a ShouldBindJSON error into field errors.
func BindingErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   trimRoot(fe.Namespace()),
			Message: describeTag(fe),
		})
	}
	return out
}

func trimRoot(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

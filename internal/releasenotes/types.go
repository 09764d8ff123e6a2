// Package releasenotes turns a flat list of Jira issues into a section plan,
// formats that plan into a generation prompt, and validates the structured
// release notes a model returns.
package releasenotes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DefaultSectionTitles is used when the caller does not configure sections.
var DefaultSectionTitles = []string{"Improvements", "Bug Fixes"}

type Input struct {
	JiraIssues       []Issue  `json:"jiraIssues"`
	Sections         []string `json:"sections,omitempty"`
	CustomGuidelines *string  `json:"customGuidelines,omitempty"`
	Product          *string  `json:"product,omitempty"`
}

type Issue struct {
	Key                string                   `json:"key"`
	IssueType          string                   `json:"issueType"`
	Summary            string                   `json:"summary"`
	Description        *string                  `json:"description,omitempty"`
	AdditionalMetadata map[string]MetadataValue `json:"additionalMetadata,omitempty"`
	PullRequests       []PullRequest            `json:"pullRequests,omitempty"`
}

type PullRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// SectionPlan is a configured section that received at least one issue.
type SectionPlan struct {
	Title     string   `json:"title"`
	Focus     string   `json:"focus"`
	IssueKeys []string `json:"issueKeys"`
}

type EnrichedIssue struct {
	Key          string                `json:"key"`
	CuratedCopy  *string               `json:"curatedCopy,omitempty"`
	Description  *string               `json:"description,omitempty"`
	Metadata     map[string]string     `json:"metadata,omitempty"`
	PullRequests []EnrichedPullRequest `json:"pullRequests"`
}

type EnrichedPullRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

type PlanResult struct {
	Sections          []SectionPlan   `json:"sections"`
	Issues            []EnrichedIssue `json:"issues"`
	HasSecurityIssues bool            `json:"hasSecurityIssues"`
}

type MetadataKind int

const (
	MetadataNull MetadataKind = iota
	MetadataString
	MetadataNumber
	MetadataBool
)

// MetadataValue is a scalar metadata value: string, number, boolean or null.
type MetadataValue struct {
	kind MetadataKind
	str  string
	num  json.Number
	b    bool
}

func StringValue(s string) MetadataValue      { return MetadataValue{kind: MetadataString, str: s} }
func NumberValue(n json.Number) MetadataValue { return MetadataValue{kind: MetadataNumber, num: n} }
func BoolValue(b bool) MetadataValue          { return MetadataValue{kind: MetadataBool, b: b} }
func NullValue() MetadataValue                { return MetadataValue{} }

func (v MetadataValue) Kind() MetadataKind { return v.kind }

// String renders the value for cleaning. Numbers keep their JSON literal; null is empty.
func (v MetadataValue) String() string {
	switch v.kind {
	case MetadataString:
		return v.str
	case MetadataNumber:
		return v.num.String()
	case MetadataBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

func (v MetadataValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case MetadataString:
		return json.Marshal(v.str)
	case MetadataNumber:
		return []byte(v.num.String()), nil
	case MetadataBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts scalars only. Objects and arrays are rejected.
func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch val := raw.(type) {
	case nil:
		*v = NullValue()
	case string:
		*v = StringValue(val)
	case json.Number:
		*v = NumberValue(val)
	case bool:
		*v = BoolValue(val)
	default:
		return fmt.Errorf("metadata values must be string, number, boolean or null, got %T", raw)
	}
	return nil
}

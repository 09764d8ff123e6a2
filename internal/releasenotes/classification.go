package releasenotes

import (
	"maps"
	"strings"
)

// Classification maps Jira issue types to section titles. It is immutable
// once built and safe to share across goroutines.
type Classification struct {
	sections       map[string]string
	securityType   string
	curatedCopyKey string
}

func NewClassification(sections map[string]string, securityType, curatedCopyKey string) Classification {
	return Classification{
		sections:       maps.Clone(sections),
		securityType:   securityType,
		curatedCopyKey: curatedCopyKey,
	}
}

// DefaultClassification is the table used by the service and the CLI.
var DefaultClassification = NewClassification(
	map[string]string{
		"IMPROVEMENT":   "Improvements",
		"NEW FEATURE":   "Improvements",
		"BUG":           "Bug Fixes",
		"VULNERABILITY": "Security",
	},
	"VULNERABILITY",
	"release_notes",
)

// SectionFor returns the section for an issue type. Matching is case-sensitive.
func (c Classification) SectionFor(issueType string) (string, bool) {
	title, ok := c.sections[issueType]
	return title, ok
}

func (c Classification) IsSecurity(issueType string) bool {
	return c.securityType != "" && issueType == c.securityType
}

func (c Classification) CuratedCopyKey() string {
	return c.curatedCopyKey
}

// SectionFocus describes what belongs in a section, based on keywords in its title.
func SectionFocus(title string) string {
	normalized := strings.ToLower(title)

	switch {
	case containsAny(normalized, "improv", "enhanc", "feature", "new", "upgrade"):
		return "Enhancements and new capabilities that improve the product experience."
	case containsAny(normalized, "bug", "fix", "stability", "quality", "reliab"):
		return "Resolved defects and quality fixes that restore expected behavior."
	case containsAny(normalized, "security", "vulner", "cve", "compliance", "hardening"):
		return "Security and vulnerability remediation items."
	default:
		return "Key updates related to " + title + "."
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

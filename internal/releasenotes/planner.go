package releasenotes

import (
	"maps"
	"slices"
	"strings"
)

// BuildPlan groups issues into the configured sections and cleans each issue
// for the prompt. It never fails: unknown issue types are left out of every
// section but still appear in Issues.
func BuildPlan(input Input, c Classification) PlanResult {
	titles := SectionTitles(input)

	assigned := make(map[string][]string, len(titles))
	for _, title := range titles {
		assigned[title] = nil
	}
	for _, issue := range input.JiraIssues {
		title, ok := c.SectionFor(issue.IssueType)
		if !ok {
			continue
		}
		if _, configured := assigned[title]; !configured {
			continue
		}
		assigned[title] = append(assigned[title], issue.Key)
	}

	sections := make([]SectionPlan, 0, len(titles))
	for _, title := range titles {
		keys := assigned[title]
		if len(keys) == 0 {
			continue
		}
		sections = append(sections, SectionPlan{
			Title:     title,
			Focus:     SectionFocus(title),
			IssueKeys: keys,
		})
	}

	issues := make([]EnrichedIssue, 0, len(input.JiraIssues))
	hasSecurity := false
	for _, issue := range input.JiraIssues {
		issues = append(issues, enrichIssue(issue, c.CuratedCopyKey()))
		if c.IsSecurity(issue.IssueType) {
			hasSecurity = true
		}
	}

	return PlanResult{
		Sections:          sections,
		Issues:            issues,
		HasSecurityIssues: hasSecurity,
	}
}

// SectionTitles returns the configured titles, or the defaults when none are
// configured. Repeated titles keep their first position.
func SectionTitles(input Input) []string {
	if input.Sections == nil {
		return slices.Clone(DefaultSectionTitles)
	}
	titles := make([]string, 0, len(input.Sections))
	for _, title := range input.Sections {
		if !slices.Contains(titles, title) {
			titles = append(titles, title)
		}
	}
	return titles
}

func enrichIssue(issue Issue, curatedKey string) EnrichedIssue {
	curated, metadata := cleanMetadata(issue.AdditionalMetadata, curatedKey)

	prs := make([]EnrichedPullRequest, 0, len(issue.PullRequests))
	for _, pr := range issue.PullRequests {
		prs = append(prs, EnrichedPullRequest{
			Title:       strings.TrimSpace(pr.Title),
			Description: trimmedOrNil(pr.Description),
		})
	}

	return EnrichedIssue{
		Key:          issue.Key,
		CuratedCopy:  curated,
		Description:  trimmedOrNil(issue.Description),
		Metadata:     metadata,
		PullRequests: prs,
	}
}

// cleanMetadata splits out the curated copy and returns the remaining
// trimmed, non-empty entries. Curated copy is read only from the exact
// curatedKey and only when it holds a non-blank string; once taken, every
// entry whose trimmed key equals curatedKey is left out of the metadata.
// Keys are visited in sorted order so that when two raw keys trim to the
// same key the first non-empty value wins. The returned map is nil when
// nothing survives.
func cleanMetadata(raw map[string]MetadataValue, curatedKey string) (*string, map[string]string) {
	if len(raw) == 0 {
		return nil, nil
	}

	var curated *string
	if v, ok := raw[curatedKey]; ok && v.Kind() == MetadataString {
		if copyText := strings.TrimSpace(v.String()); copyText != "" {
			curated = &copyText
		}
	}

	var cleaned map[string]string
	for _, rawKey := range slices.Sorted(maps.Keys(raw)) {
		key := strings.TrimSpace(rawKey)
		value := strings.TrimSpace(raw[rawKey].String())

		if curated != nil && key == curatedKey {
			continue
		}
		if key == "" || value == "" {
			continue
		}
		if _, seen := cleaned[key]; seen {
			continue
		}
		if cleaned == nil {
			cleaned = make(map[string]string)
		}
		cleaned[key] = value
	}

	return curated, cleaned
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

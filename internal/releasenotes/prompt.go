package releasenotes

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// SystemPrompt is the standing instruction for the release notes model.
const SystemPrompt = `You produce structured release notes.

Inputs include Jira issues, optional pull requests, curated metadata, and formatting guidance.

Return ONLY a JSON object matching the provided schema:
{
  "sections": [
    {
      "title": string,
      "items": [
        {
          "text": string,
          "citations"?: string[],
          "subitems"?: [{ ... }],
          "links"?: [{ "text": string, "url": string }]
        }
      ]
    }
  ]
}

Rules:
- Use the section titles surfaced in the Section Planner.
- Every bullet focuses on user-facing impact using the supplied metadata.
- Wrap any literal token a user might copy (versions, package names, CLI commands, file paths, environment variables) in single backticks. Do not emit multiline code fences.
- Only include a citations array when at least one Jira issue applies to that bullet.
- Never include markdown fences or explanatory prose around the JSON.`

// RetryInstructions are prepended to the prompt after an attempt returned
// output that did not match the schema.
const RetryInstructions = `CRITICAL: Return ONLY valid JSON matching this exact schema.
Do not include any fields outside of "sections".
Each section must have "title" and "items".
Each item MUST use "text" (NOT "title") for the item content.
Only sections use "title" - items always use "text".
Each item must have "text" and optionally "citations" (non-empty array if present), "subitems", and "links".
NEVER include "citations": [] - if there are no citations, omit the citations field entirely.
Cite only the Jira keys listed under Issue Summaries.
Remove any top-level fields other than "sections".`

const securityNote = "\nSecurity-related issues are present. Consider grouping CVE fixes under a parent bullet such as \"Fixes the following CVEs:\" with one sub-bullet per vulnerability."

var outputRequirements = []string{
	"Return valid JSON that exactly matches the schema provided in your system prompt.",
	`CRITICAL: Use "text" (NOT "title") for all items and subitems. Only sections use "title" - items always use "text".`,
	"Use the section titles surfaced in the Section Planner. Add new sections only when the data strongly suggests a distinct category.",
	"Assign each issue to the section that best matches its change; if no section is a perfect fit, choose the closest match and make the rationale clear in the bullet text.",
	"Summarize each bullet in one or two sentences that highlight user-facing impact.",
	"Prefer curated copy when present; otherwise synthesize text from summaries, descriptions, and metadata.",
	"Do not invent details beyond what appears in the planner.",
	"Use subitems for supporting context such as grouped vulnerabilities, follow-on tasks, or pull request details.",
	"Wrap tokens that a user might copy verbatim (versions, package names, CLI commands, file paths, environment variables) in single backticks; avoid multiline code fences.",
	`When hyperlink guidance is available (for example in metadata or guidelines), populate the links array with { "text", "url" } objects instead of embedding inline markup.`,
	"Keep bullet text plain prose (no markdown, Jira formatting, or decorative prefixes).",
	"Include a citations array only when at least one Jira issue applies to that bullet. NEVER include an empty citations array ([]).",
	"Omit the citations property on subitems only when they inherit the citation from their parent bullet.",
	"If a section plan instructs you to group vulnerabilities, use a parent bullet with subitems for the individual CVEs.",
	"For pull requests listed under an issue, prefer subitems that briefly describe the change and cite the parent issue.",
}

// FormatSectionPlanner renders the plan for the model. input must be the
// input the plan was built from; issue type and summary are read from it.
func FormatSectionPlanner(input Input, plan PlanResult) string {
	var b strings.Builder

	planned := make(map[string]SectionPlan, len(plan.Sections))
	for _, s := range plan.Sections {
		planned[s.Title] = s
	}

	b.WriteString("## Section Titles\n")
	for _, title := range SectionTitles(input) {
		fmt.Fprintf(&b, "- %s: %s", title, SectionFocus(title))
		if s, ok := planned[title]; ok {
			fmt.Fprintf(&b, " Suggested issues: %s.", strings.Join(s.IssueKeys, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Issue Summaries")
	for i, issue := range plan.Issues {
		var source Issue
		if i < len(input.JiraIssues) {
			source = input.JiraIssues[i]
		}

		fmt.Fprintf(&b, "\n### %s (%s)", issue.Key, source.IssueType)
		fmt.Fprintf(&b, "\nSummary: %s", source.Summary)
		if issue.CuratedCopy != nil {
			fmt.Fprintf(&b, "\nCurated Copy: %s", *issue.CuratedCopy)
		}
		if issue.Description != nil {
			fmt.Fprintf(&b, "\nDescription: %s", *issue.Description)
		}
		if len(issue.Metadata) > 0 {
			b.WriteString("\nMetadata:")
			for _, key := range slices.Sorted(maps.Keys(issue.Metadata)) {
				fmt.Fprintf(&b, "\n- %s: %s", key, issue.Metadata[key])
			}
		}
		if len(issue.PullRequests) > 0 {
			b.WriteString("\nPull Requests:")
			for _, pr := range issue.PullRequests {
				if pr.Description != nil {
					fmt.Fprintf(&b, "\n- %s :: %s", pr.Title, *pr.Description)
				} else {
					fmt.Fprintf(&b, "\n- %s", pr.Title)
				}
			}
		}
	}

	if plan.HasSecurityIssues {
		b.WriteString("\n")
		b.WriteString(securityNote)
	}

	return b.String()
}

// FormatPrompt builds the full user prompt: source data, section planner and
// output requirements.
func FormatPrompt(input Input, plan PlanResult) string {
	source := []string{"# Release Notes Source Data"}
	if input.Product != nil && strings.TrimSpace(*input.Product) != "" {
		source = append(source, "Product: "+strings.TrimSpace(*input.Product))
	}
	if input.CustomGuidelines != nil && strings.TrimSpace(*input.CustomGuidelines) != "" {
		source = append(source, "Custom guidelines:", strings.TrimSpace(*input.CustomGuidelines))
	}

	requirements := make([]string, len(outputRequirements))
	for i, r := range outputRequirements {
		requirements[i] = "- " + r
	}

	return strings.Join([]string{
		strings.Join(source, "\n"),
		"# Section Planner",
		FormatSectionPlanner(input, plan),
		"# Output Requirements",
		strings.Join(requirements, "\n"),
	}, "\n\n")
}

// RetryPrompt prepends RetryInstructions to prompt.
func RetryPrompt(prompt string) string {
	return RetryInstructions + "\n\n---\n\n" + prompt
}

package releasenotes_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
)

var _ = Describe("NormalizeOutput", func() {
	It("repairs common schema deviations", func() {
		raw := `{
			"sections": [
				{
					"title": "  Improvements ",
					"items": [
						{
							"summary": "Adds a new metrics dashboard for ops teams.",
							"citations": "DEVPROD-1, DEVPROD-2",
							"links": [
								{"label": "Metrics Dashboard", "href": "https://example.com/docs"},
								{"text": "", "url": ""}
							],
							"subitems": [
								{"text": "Follow-on task to expand datasets.", "citations": ["DEVPROD-2", ""]},
								{"text": "  "}
							]
						},
						{"text": "   ", "citations": ["DEVPROD-3"]}
					]
				},
				{
					"name": "Bug Fixes",
					"entries": [
						{
							"title": "Resolves crash when parsing configs.",
							"citation": "DEVPROD-9",
							"links": {"text": "Crash Fix", "url": "https://example.com/fix"}
						}
					]
				}
			]
		}`

		out, ok := releasenotes.NormalizeOutput([]byte(raw))
		Expect(ok).To(BeTrue())
		Expect(out.Validate()).To(Succeed())

		Expect(out.Sections).To(HaveLen(2))
		improvements, bugFixes := out.Sections[0], out.Sections[1]

		Expect(improvements.Title).To(Equal("Improvements"))
		Expect(improvements.Items).To(HaveLen(1))
		Expect(improvements.Items[0].Text).To(Equal("Adds a new metrics dashboard for ops teams."))
		Expect(improvements.Items[0].Citations).To(Equal([]string{"DEVPROD-1", "DEVPROD-2"}))
		Expect(improvements.Items[0].Links).To(Equal([]releasenotes.Link{
			{Text: "Metrics Dashboard", URL: "https://example.com/docs"},
		}))
		Expect(improvements.Items[0].Subitems).To(HaveLen(1))
		Expect(improvements.Items[0].Subitems[0].Citations).To(Equal([]string{"DEVPROD-2"}))

		Expect(bugFixes.Title).To(Equal("Bug Fixes"))
		Expect(bugFixes.Items).To(HaveLen(1))
		Expect(bugFixes.Items[0].Text).To(Equal("Resolves crash when parsing configs."))
		Expect(bugFixes.Items[0].Citations).To(Equal([]string{"DEVPROD-9"}))
		Expect(bugFixes.Items[0].Links).To(HaveLen(1))
	})

	It("extracts sections from keyed object structures", func() {
		raw := `{
			"sections": {
				"Improvements": [{"text": "Supports automatic sharding.", "issues": ["DEVPROD-10"]}],
				"Bug Fixes": [{"text": "Fixes rollout regression.", "issues": "DEVPROD-11"}]
			}
		}`

		out, ok := releasenotes.NormalizeOutput([]byte(raw))
		Expect(ok).To(BeTrue())
		Expect(out.Validate()).To(Succeed())
		Expect(out.Sections).To(HaveLen(2))
		Expect(out.Sections[0].Title).To(Equal("Improvements"))
		Expect(out.Sections[0].Items[0].Citations).To(Equal([]string{"DEVPROD-10"}))
		Expect(out.Sections[1].Title).To(Equal("Bug Fixes"))
		Expect(out.Sections[1].Items[0].Citations).To(Equal([]string{"DEVPROD-11"}))
	})

	It("accepts keyed sections holding item objects", func() {
		raw := `{"sections":{"Security":{"items":["Patches CVE-2024-1."]}}}`

		out, ok := releasenotes.NormalizeOutput([]byte(raw))
		Expect(ok).To(BeTrue())
		Expect(out.Sections[0].Title).To(Equal("Security"))
		Expect(out.Sections[0].Items[0].Text).To(Equal("Patches CVE-2024-1."))
	})

	It("accepts a bare array of sections", func() {
		out, ok := releasenotes.NormalizeOutput([]byte(`[{"title":"A","items":[{"text":"x"}]}]`))
		Expect(ok).To(BeTrue())
		Expect(out.Sections).To(HaveLen(1))
	})

	It("drops citations that are blank", func() {
		out, ok := releasenotes.NormalizeOutput([]byte(`{"sections":[{"title":"A","items":[{"text":"x","citations":[" ",""]}]}]}`))
		Expect(ok).To(BeTrue())
		Expect(out.Sections[0].Items[0].Citations).To(BeNil())
		Expect(out.Validate()).To(Succeed())
	})

	DescribeTable("reports nothing usable",
		func(raw string) {
			_, ok := releasenotes.NormalizeOutput([]byte(raw))
			Expect(ok).To(BeFalse())
		},
		Entry("invalid json", `{"sections":`),
		Entry("no sections", `{"notes":[]}`),
		Entry("only blank items", `{"sections":[{"title":"A","items":[{"text":" "}]}]}`),
		Entry("untitled section", `{"sections":[{"items":[{"text":"x"}]}]}`),
	)
})

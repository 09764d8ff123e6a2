package releasenotes_test

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
)

func decodeOutput(raw string) *releasenotes.Output {
	var out releasenotes.Output
	Expect(json.Unmarshal([]byte(raw), &out)).To(Succeed())
	return &out
}

var _ = Describe("Output.Validate", func() {
	It("accepts well-formed output", func() {
		out := decodeOutput(`{"sections":[{"title":"Improvements","items":[
			{"text":"Adds a widget.","citations":["IMP-1"],
			 "links":[{"text":"widget","url":"https://example.com/widget"}],
			 "subitems":[{"text":"Supports dark mode."}]}
		]}]}`)

		Expect(out.Validate()).To(Succeed())
		Expect(out.ItemCount()).To(Equal(1))
	})

	DescribeTable("rejects schema violations",
		func(raw, fragment string) {
			err := decodeOutput(raw).Validate()
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, releasenotes.ErrSchemaMismatch)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(fragment))
		},
		Entry("no sections", `{"sections":[]}`, "sections"),
		Entry("missing title", `{"sections":[{"title":"","items":[{"text":"x"}]}]}`, "title"),
		Entry("no items", `{"sections":[{"title":"A","items":[]}]}`, "items"),
		Entry("blank text", `{"sections":[{"title":"A","items":[{"text":""}]}]}`, "text"),
		Entry("empty citations", `{"sections":[{"title":"A","items":[{"text":"x","citations":[]}]}]}`, "sections[0].items[0].citations"),
		Entry("empty nested citations", `{"sections":[{"title":"A","items":[{"text":"x","subitems":[{"text":"y","citations":[]}]}]}]}`, "sections[0].items[0].subitems[0].citations"),
		Entry("blank citation", `{"sections":[{"title":"A","items":[{"text":"x","citations":[""]}]}]}`, "citations"),
		Entry("bad link url", `{"sections":[{"title":"A","items":[{"text":"x","links":[{"text":"x","url":"not a url"}]}]}]}`, "url"),
		Entry("blank link text", `{"sections":[{"title":"A","items":[{"text":"x","links":[{"text":"","url":"https://example.com"}]}]}]}`, "text"),
		Entry("blank subitem", `{"sections":[{"title":"A","items":[{"text":"x","subitems":[{"text":""}]}]}]}`, "text"),
	)

	It("rejects a nil output", func() {
		var out *releasenotes.Output
		Expect(errors.Is(out.Validate(), releasenotes.ErrSchemaMismatch)).To(BeTrue())
	})
})

var _ = Describe("ValidateCitations", func() {
	It("accepts citations of known issues", func() {
		out := decodeOutput(`{"sections":[{"title":"A","items":[{"text":"x","citations":["A-1"],"subitems":[{"text":"y","citations":["A-2"]}]}]}]}`)
		Expect(releasenotes.ValidateCitations(out, []string{"A-1", "A-2"})).To(Succeed())
	})

	It("reports unknown citations once each", func() {
		out := decodeOutput(`{"sections":[{"title":"A","items":[
			{"text":"x","citations":["A-1","Z-9"]},
			{"text":"y","citations":["Z-9"],"subitems":[{"text":"z","citations":["Q-1"]}]}
		]}]}`)

		err := releasenotes.ValidateCitations(out, []string{"A-1"})
		Expect(errors.Is(err, releasenotes.ErrUnknownCitation)).To(BeTrue())
		Expect(err.Error()).To(HavePrefix("Z-9, Q-1"))
		Expect(errors.GetAllDetails(err)).To(ContainElement("known issue keys: A-1"))
	})
})

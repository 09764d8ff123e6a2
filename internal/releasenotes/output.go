package releasenotes

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrSchemaMismatch marks model output that does not match the expected schema.
	ErrSchemaMismatch = errors.New("release notes output does not match the expected schema")
	// ErrUnknownCitation marks output that cites issues missing from the input.
	ErrUnknownCitation = errors.New("release notes cite unknown issues")
)

type Output struct {
	Sections []OutputSection `json:"sections" validate:"min=1,dive" jsonschema:"minItems=1,description=Structured release notes grouped into sections with items"`
}

type OutputSection struct {
	Title string `json:"title" validate:"required" jsonschema:"minLength=1,description=Section heading (e.g. Improvements)"`
	Items []Item `json:"items" validate:"min=1,dive" jsonschema:"minItems=1,description=Bullet items that belong to this section"`
}

type Item struct {
	Text      string   `json:"text" validate:"required" jsonschema:"minLength=1,description=Bullet text for this item"`
	Citations []string `json:"citations,omitempty" validate:"omitempty,dive,required" jsonschema:"minItems=1,description=Supporting Jira issue keys for this item"`
	Subitems  []Item   `json:"subitems,omitempty" validate:"omitempty,dive" jsonschema:"description=Nested bullet points under this item"`
	Links     []Link   `json:"links,omitempty" validate:"omitempty,dive" jsonschema:"description=Specific substrings within the bullet text that should be hyperlinked"`
}

type Link struct {
	Text string `json:"text" validate:"required" jsonschema:"minLength=1,description=Exact substring within the bullet text to hyperlink"`
	URL  string `json:"url" validate:"required,url" jsonschema:"format=uri,description=Destination URL for the hyperlink"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the output against the release notes schema. Errors wrap
// ErrSchemaMismatch.
func (o *Output) Validate() error {
	if o == nil {
		return errors.Wrap(ErrSchemaMismatch, "output is empty")
	}

	if err := validate.Struct(o); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return errors.Wrap(err, "validating release notes output")
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", trimNamespace(fe.Namespace()), fe.Tag()))
		}
		return errors.Wrap(ErrSchemaMismatch, strings.Join(msgs, "; "))
	}

	// validator treats an empty slice like a missing one; the schema does not.
	for i, section := range o.Sections {
		if path, ok := findEmptyCitations(section.Items, fmt.Sprintf("sections[%d].items", i)); ok {
			return errors.Wrapf(ErrSchemaMismatch, "%s.citations: must not be an empty array", path)
		}
	}
	return nil
}

func findEmptyCitations(items []Item, prefix string) (string, bool) {
	for j, item := range items {
		path := fmt.Sprintf("%s[%d]", prefix, j)
		if item.Citations != nil && len(item.Citations) == 0 {
			return path, true
		}
		if sub, ok := findEmptyCitations(item.Subitems, path+".subitems"); ok {
			return sub, true
		}
	}
	return "", false
}

func trimNamespace(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	return rest
}

// ValidateCitations checks that every citation refers to one of issueKeys.
// Errors wrap ErrUnknownCitation and carry the unknown keys as detail.
func ValidateCitations(o *Output, issueKeys []string) error {
	known := make(map[string]struct{}, len(issueKeys))
	for _, k := range issueKeys {
		known[k] = struct{}{}
	}

	var unknown []string
	var walk func(items []Item)
	walk = func(items []Item) {
		for _, item := range items {
			for _, c := range item.Citations {
				if _, ok := known[c]; !ok && !slices.Contains(unknown, c) {
					unknown = append(unknown, c)
				}
			}
			walk(item.Subitems)
		}
	}
	for _, section := range o.Sections {
		walk(section.Items)
	}

	if len(unknown) == 0 {
		return nil
	}
	err := errors.Wrapf(ErrUnknownCitation, "%s", strings.Join(unknown, ", "))
	return errors.WithDetailf(err, "known issue keys: %s", strings.Join(issueKeys, ", "))
}

// IssueKeys returns the keys of the plan's issues in input order.
func (p PlanResult) IssueKeys() []string {
	keys := make([]string, len(p.Issues))
	for i, issue := range p.Issues {
		keys[i] = issue.Key
	}
	return keys
}

// ItemCount counts top-level items across sections.
func (o *Output) ItemCount() int {
	n := 0
	for _, s := range o.Sections {
		n += len(s.Items)
	}
	return n
}

package releasenotes

import (
	"strings"

	"github.com/tidwall/gjson"
)

// NormalizeOutput repairs the structural deviations models commonly make
// before the output is validated:
//   - sections given as an object keyed by title, or as the root array
//   - "name" for section titles and "entries" for items
//   - "summary" or "title" for item text
//   - citations as a comma separated string, or under "citation"/"issues"
//   - links as a single object, or with "label"/"href"
//
// Blank items, links and citations are dropped, then sections left without
// items. ok is false when raw is not JSON or nothing usable remains.
func NormalizeOutput(raw []byte) (*Output, bool) {
	if !gjson.ValidBytes(raw) {
		return nil, false
	}

	root := gjson.ParseBytes(raw)
	sections := root.Get("sections")
	if !sections.Exists() && root.IsArray() {
		sections = root
	}

	out := &Output{}
	switch {
	case sections.IsArray():
		for _, s := range sections.Array() {
			title := firstString(s, "title", "name", "heading")
			if section, ok := normalizeSection(title, firstExisting(s, "items", "entries", "bullets")); ok {
				out.Sections = append(out.Sections, section)
			}
		}
	case sections.IsObject():
		sections.ForEach(func(key, value gjson.Result) bool {
			title := key.String()
			items := value
			if value.IsObject() {
				if t := firstString(value, "title", "name"); t != "" {
					title = t
				}
				items = firstExisting(value, "items", "entries", "bullets")
			}
			if section, ok := normalizeSection(title, items); ok {
				out.Sections = append(out.Sections, section)
			}
			return true
		})
	}

	return out, len(out.Sections) > 0
}

func normalizeSection(title string, items gjson.Result) (OutputSection, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return OutputSection{}, false
	}
	normalized := normalizeItems(items)
	if len(normalized) == 0 {
		return OutputSection{}, false
	}
	return OutputSection{Title: title, Items: normalized}, true
}

func normalizeItems(items gjson.Result) []Item {
	if !items.IsArray() {
		return nil
	}
	var result []Item
	for _, v := range items.Array() {
		if item, ok := normalizeItem(v); ok {
			result = append(result, item)
		}
	}
	return result
}

func normalizeItem(v gjson.Result) (Item, bool) {
	if v.Type == gjson.String {
		text := strings.TrimSpace(v.String())
		return Item{Text: text}, text != ""
	}
	if !v.IsObject() {
		return Item{}, false
	}

	text := strings.TrimSpace(firstString(v, "text", "summary", "title", "description"))
	if text == "" {
		return Item{}, false
	}

	return Item{
		Text:      text,
		Citations: normalizeCitations(firstExisting(v, "citations", "citation", "issues", "issueKeys")),
		Subitems:  normalizeItems(firstExisting(v, "subitems", "children")),
		Links:     normalizeLinks(firstExisting(v, "links", "link")),
	}, true
}

func normalizeCitations(v gjson.Result) []string {
	var parts []string
	switch {
	case v.Type == gjson.String:
		parts = strings.Split(v.String(), ",")
	case v.IsArray():
		for _, c := range v.Array() {
			parts = append(parts, c.String())
		}
	default:
		return nil
	}

	var citations []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			citations = append(citations, p)
		}
	}
	return citations
}

func normalizeLinks(v gjson.Result) []Link {
	var candidates []gjson.Result
	switch {
	case v.IsObject():
		candidates = []gjson.Result{v}
	case v.IsArray():
		candidates = v.Array()
	default:
		return nil
	}

	var links []Link
	for _, c := range candidates {
		text := strings.TrimSpace(firstString(c, "text", "label", "title"))
		url := strings.TrimSpace(firstString(c, "url", "href"))
		if text == "" || url == "" {
			continue
		}
		links = append(links, Link{Text: text, URL: url})
	}
	return links
}

func firstExisting(v gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := v.Get(p); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

func firstString(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if r := v.Get(p); r.Type == gjson.String && strings.TrimSpace(r.String()) != "" {
			return r.String()
		}
	}
	return ""
}

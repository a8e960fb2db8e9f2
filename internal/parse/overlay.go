package parse

import "github.com/tedgoddard/Stanford/internal/nlp"

// TagOverrides are caller-supplied tags aligned by position with the
// tokens of a sentence. An empty string leaves the baseline tag in place.
type TagOverrides []string

// Active reports whether any override is non-empty.
func (o TagOverrides) Active() bool {
	for _, tag := range o {
		if tag != "" {
			return true
		}
	}
	return false
}

// ApplyOverrides returns a copy of baseline with the overrides applied.
// Overrides past the end of baseline are ignored. When no override was
// applied it returns (nil, false) and the caller must skip overlay
// strategies. baseline is never modified.
func ApplyOverrides(baseline []nlp.TaggedToken, overrides TagOverrides) ([]nlp.TaggedToken, bool) {
	var merged []nlp.TaggedToken
	for i, tag := range overrides {
		if i >= len(baseline) {
			break
		}
		if tag == "" {
			continue
		}
		if merged == nil {
			merged = append([]nlp.TaggedToken(nil), baseline...)
		}
		merged[i] = nlp.TaggedToken{Token: baseline[i].Token, Tag: tag}
	}
	return merged, merged != nil
}

package parse

import "github.com/tedgoddard/Stanford/internal/config"

// Assemble builds the response from the candidates and the canonical
// selection. Tags follow policy: TagPolicyCanonical takes them from the
// canonical tree candidate when it has any, TagPolicyFirst from the first
// tag-bearing candidate. Both fall back to the first tag-bearing candidate.
func Assemble(candidates []Candidate, canonical Canonical, policy string) *Response {
	resp := &Response{
		Tree:         canonical.Tree,
		Dependencies: canonical.Dependencies,
		Strategy:     canonical.Strategy,
		Tags:         []string{},
		Alternates:   append([]Candidate(nil), candidates...),
	}

	if policy == config.TagPolicyCanonical && canonical.TreeIndex < len(candidates) {
		if tags := candidates[canonical.TreeIndex].Tags; len(tags) > 0 {
			resp.Tags = tags
			return resp
		}
	}
	for _, c := range candidates {
		if len(c.Tags) > 0 {
			resp.Tags = c.Tags
			break
		}
	}
	return resp
}

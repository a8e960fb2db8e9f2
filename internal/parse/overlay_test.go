package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tedgoddard/Stanford/internal/nlp"
)

func baseline() []nlp.TaggedToken {
	return []nlp.TaggedToken{
		{Token: nlp.Token{Index: 0, Word: "The"}, Tag: "DT"},
		{Token: nlp.Token{Index: 1, Word: "dog"}, Tag: "NN"},
		{Token: nlp.Token{Index: 2, Word: "runs"}, Tag: "VBZ"},
		{Token: nlp.Token{Index: 3, Word: "."}, Tag: "."},
	}
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides TagOverrides
		applied   bool
		want      []string
	}{
		{"nil", nil, false, nil},
		{"all empty", TagOverrides{"", "", "", ""}, false, nil},
		{"only out of range", TagOverrides{"", "", "", "", "NN", "VB"}, false, nil},
		{"single", TagOverrides{"", "VB"}, true, []string{"The/DT", "dog/VB", "runs/VBZ", "./."}},
		{"full with trailing empty", TagOverrides{"DT", "NN", "VBZ", ""}, true, []string{"The/DT", "dog/NN", "runs/VBZ", "./."}},
		{"longer than tokens", TagOverrides{"", "", "NNS", "", "JJ"}, true, []string{"The/DT", "dog/NN", "runs/NNS", "./."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := baseline()
			merged, applied := ApplyOverrides(base, tt.overrides)

			assert.Equal(t, tt.applied, applied)
			if !tt.applied {
				assert.Nil(t, merged)
			} else {
				assert.Equal(t, tt.want, nlp.TagStrings(merged))
			}
			assert.Equal(t, baseline(), base, "baseline must not be modified")
		})
	}
}

func TestApplyOverridesKeepsSurfaceAndIndex(t *testing.T) {
	merged, applied := ApplyOverrides(baseline(), TagOverrides{"", "", "NNS"})
	assert.True(t, applied)
	assert.Equal(t, nlp.Token{Index: 2, Word: "runs"}, merged[2].Token)
}

func TestApplyOverridesEmptyBaseline(t *testing.T) {
	merged, applied := ApplyOverrides(nil, TagOverrides{"NN"})
	assert.False(t, applied)
	assert.Nil(t, merged)
}

func TestTagOverridesActive(t *testing.T) {
	assert.False(t, TagOverrides(nil).Active())
	assert.False(t, TagOverrides{"", ""}.Active())
	assert.True(t, TagOverrides{"", "NN"}.Active())
}

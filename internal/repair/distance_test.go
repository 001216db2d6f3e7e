package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want int
	}{
		{
			name: "both empty",
			a:    nil,
			b:    nil,
			want: 0,
		},
		{
			name: "identical",
			a:    []string{"move", "mine", "craft"},
			b:    []string{"move", "mine", "craft"},
			want: 0,
		},
		{
			name: "empty against full",
			a:    nil,
			b:    []string{"move", "mine"},
			want: 2,
		},
		{
			name: "single substitution",
			a:    []string{"move", "mine", "craft"},
			b:    []string{"move", "forage", "craft"},
			want: 1,
		},
		{
			name: "single insertion",
			a:    []string{"move", "craft"},
			b:    []string{"move", "mine", "craft"},
			want: 1,
		},
		{
			name: "single deletion",
			a:    []string{"move", "mine", "craft"},
			b:    []string{"move", "craft"},
			want: 1,
		},
		{
			name: "disjoint sequences",
			a:    []string{"eat", "sleep"},
			b:    []string{"run", "hide", "wait"},
			want: 3,
		},
		{
			name: "shifted by one",
			a:    []string{"a", "b", "c", "d"},
			b:    []string{"b", "c", "d", "e"},
			want: 2,
		},
		{
			name: "repeat against expansion",
			a:    []string{"leap"},
			b:    []string{"inch", "inch", "inch", "inch"},
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EditDistance(tt.a, tt.b))
		})
	}
}

func TestEditDistance_MetricProperties(t *testing.T) {
	corpus := [][]string{
		nil,
		{"move"},
		{"move", "mine"},
		{"move", "mine", "craft"},
		{"forage", "mine", "craft"},
		{"craft", "move", "mine"},
		{"eat", "eat", "eat"},
	}

	for i, a := range corpus {
		assert.Zero(t, EditDistance(a, a), "identity failed for corpus[%d]", i)
		for j, b := range corpus {
			dab := EditDistance(a, b)
			assert.Equal(t, dab, EditDistance(b, a), "symmetry failed for (%d,%d)", i, j)
			if i != j {
				assert.Positive(t, dab, "distinct sequences (%d,%d) must have positive distance", i, j)
			}
			for k, c := range corpus {
				assert.LessOrEqual(t, EditDistance(a, c), dab+EditDistance(b, c),
					"triangle inequality failed for (%d,%d,%d)", i, j, k)
			}
		}
	}
}

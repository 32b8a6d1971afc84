package dedup

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "abc", 1},
		{"abc", "", 0},
		{"abc", "xyz", 0},
		{"abcd", "bcde", 0.75},
		{"ab", "ba", 0.5},
		{"кастинг", "кастинги", 14.0 / 15.0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, Similarity(tc.a, tc.b), 1e-9, "%q vs %q", tc.a, tc.b)
	}
}

func TestSimilarityProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("symmetric", prop.ForAll(
		func(a, b string) bool { return Similarity(a, b) == Similarity(b, a) },
		gen.AlphaString(), gen.AlphaString(),
	))
	properties.Property("bounded", prop.ForAll(
		func(a, b string) bool {
			s := Similarity(a, b)
			return s >= 0 && s <= 1
		},
		gen.AnyString(), gen.AnyString(),
	))
	properties.Property("identity", prop.ForAll(
		func(a string) bool { return Similarity(a, a) == 1 },
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

package textnorm

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lower and trim", "  Кастинг  ФИЛЬМ ", "кастинг фильм"},
		{"mentions", "пишите @Casting_Bot срочно", "пишите срочно"},
		{"punctuation", "Актриса, 20-25 лет!", "актриса 0 лет"},
		{"digit runs", "тел: +7 701 123 45 67", "тел 0 0 0 0 0"},
		{"separators join digits", "12.34", "0"},
		{"whitespace runs", "a\t\n\n b", "a b"},
		{"placeholder survives", "0 5", "0 0"},
		{"hashtag stripped", "#Кастинг #актриса", "кастинг актриса"},
		{"hash between digits", "12#34", "0"},
		{"only symbols", "!!! ??? ...", ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeRepostsCollide(t *testing.T) {
	t.Parallel()

	a := "Кастинг! Актриса 20-25 лет, Алматы. Тел: +7 701 111 22 33 @agent_one"
	b := "кастинг актриса 21-26 лет алматы тел +7 702 999 88 77 @other"
	assert.Equal(t, Normalize(a), Normalize(b))
}

func TestNormalizeHashtagRepostsMatch(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Normalize("кастинг актриса"), Normalize("#кастинг актриса"))
	assert.Equal(t, Normalize("Съёмки 12 мая"), Normalize("#съёмки #12 мая"))
}

func TestNormalizeIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalize(normalize(x)) == normalize(x)", prop.ForAll(
		func(s string) bool {
			once := Normalize(s)
			return Normalize(once) == once
		},
		gen.AnyString(),
	))
	properties.Property("idempotent on casting-like text", prop.ForAll(
		func(words []string) bool {
			s := ""
			for _, w := range words {
				s += w + " "
			}
			once := Normalize(s)
			return Normalize(once) == once
		},
		gen.SliceOf(gen.OneConstOf("Кастинг", "@bot_1", "20-25", "#", "лет,", "\t", "Алматы!", "+7 (701)", "ROLE", "²")),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

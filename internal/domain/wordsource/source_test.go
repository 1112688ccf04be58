package wordsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource_SetText(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantText  string
		wantWords []string
	}{
		{
			name:      "simple sentence",
			raw:       "the quick brown fox",
			wantText:  "the quick brown fox",
			wantWords: []string{"the", "quick", "brown", "fox"},
		},
		{
			name:      "surrounding whitespace is trimmed",
			raw:       "  \n\thello world\n\n",
			wantText:  "hello world",
			wantWords: []string{"hello", "world"},
		},
		{
			name:      "runs of mixed whitespace",
			raw:       "one \t two\n\nthree\r\nfour",
			wantText:  "one \t two\n\nthree\r\nfour",
			wantWords: []string{"one", "two", "three", "four"},
		},
		{
			name:      "punctuation stays attached",
			raw:       "Hello, world! (really)",
			wantText:  "Hello, world! (really)",
			wantWords: []string{"Hello,", "world!", "(really)"},
		},
		{
			name:      "unicode whitespace",
			raw:       "alpha\u00a0beta\u2003gamma",
			wantText:  "alpha\u00a0beta\u2003gamma",
			wantWords: []string{"alpha", "beta", "gamma"},
		},
		{
			name:      "empty",
			raw:       "",
			wantText:  "",
			wantWords: []string{},
		},
		{
			name:      "whitespace only",
			raw:       " \n\t ",
			wantText:  "",
			wantWords: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.SetText(tt.raw)

			assert.Equal(t, tt.wantText, s.Text())
			assert.Equal(t, tt.wantWords, s.Words())
			assert.Equal(t, len(tt.wantWords), s.Len())
			assert.Equal(t, len(tt.wantWords) == 0, s.IsEmpty())
		})
	}
}

func TestSource_ReplaceText(t *testing.T) {
	s := New()
	s.SetText("first text here")
	s.SetText("second")

	assert.Equal(t, []string{"second"}, s.Words())
}

func TestSource_WordsReturnsCopy(t *testing.T) {
	s := New()
	s.SetText("a b c")

	words := s.Words()
	words[0] = "mutated"

	assert.Equal(t, []string{"a", "b", "c"}, s.Words())
}

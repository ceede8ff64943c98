package readingtime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountWords(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"only spaces", " \n\t ", 0},
		{"latin", "one two three", 3},
		{"padded", "  hello   world  ", 2},
		{"newlines", "line one\nline two\r\n", 4},
		{"cjk", "你好世界", 4},
		{"cjk punctuation eaten", "你好，世界。", 4},
		{"latin then cjk", "hello世界", 3},
		{"hiragana", "これは", 3},
		{"single char", "a", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CountWords(tc.in))
		})
	}
}

func TestCountWords_CustomBound(t *testing.T) {
	bound := func(r rune) bool { return r == ',' || IsASCIIWordBound(r) }
	require.Equal(t, 1, CountWords("a,b"))
	require.Equal(t, 2, CountWords("a,b", WithWordBound(bound)))
}

func TestEstimate_Rounding(t *testing.T) {
	cases := []struct {
		words   int
		minutes int
		ms      int64
	}{
		{0, 0, 0},
		{1, 1, 300},
		{200, 1, 60000},
		{201, 1, 60300},
		{250, 2, 75000},
		{400, 2, 120000},
	}
	for _, tc := range cases {
		text := strings.Repeat("word ", tc.words)
		got := Estimate(text)
		require.Equal(t, tc.words, got.Words, "words for %d", tc.words)
		require.Equal(t, tc.minutes, got.Minutes, "minutes for %d words", tc.words)
		require.Equal(t, tc.ms, got.Milliseconds, "ms for %d words", tc.words)
	}
}

func TestEstimate_WordsPerMinute(t *testing.T) {
	got := Estimate(strings.Repeat("x ", 100), WithWordsPerMinute(100))
	require.Equal(t, 1, got.Minutes)
	require.Equal(t, int64(60000), got.Milliseconds)

	// Non-positive speeds fall back to the default.
	got = Estimate(strings.Repeat("x ", 200), WithWordsPerMinute(0))
	require.Equal(t, 1, got.Minutes)
}

func TestFromWords(t *testing.T) {
	got := FromWords(600)
	require.Equal(t, 3, got.Minutes)
	require.InDelta(t, 3.0, got.Exact, 1e-9)
}

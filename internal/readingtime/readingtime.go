// Package readingtime estimates how long a text takes to read.
//
// Word counting treats every CJK character as a word of its own and any run of
// non-boundary characters followed by a boundary (or a CJK character) as one
// word. Minutes are rounded to two decimals before taking the ceiling, so a
// text of 201 words at 200 wpm still reads in one minute.
package readingtime

import (
	"math"
	"strconv"
)

// DefaultWordsPerMinute is used when no WithWordsPerMinute option is given.
const DefaultWordsPerMinute = 200

// Result is the reading-time estimate for a text.
type Result struct {
	Words        int     `json:"words"`
	Minutes      int     `json:"minutes"`
	Milliseconds int64   `json:"time"`
	Exact        float64 `json:"-"`
}

// WordBound reports whether r separates words.
type WordBound func(r rune) bool

type options struct {
	wpm   int
	bound WordBound
}

// Option configures Estimate and CountWords.
type Option func(*options)

// WithWordsPerMinute overrides the reading speed. Non-positive values are ignored.
func WithWordsPerMinute(wpm int) Option {
	return func(o *options) {
		if wpm > 0 {
			o.wpm = wpm
		}
	}
}

// WithWordBound overrides the word-boundary predicate.
func WithWordBound(fn WordBound) Option {
	return func(o *options) {
		if fn != nil {
			o.bound = fn
		}
	}
}

func newOptions(opts []Option) options {
	o := options{wpm: DefaultWordsPerMinute, bound: IsASCIIWordBound}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Estimate counts the words in text and converts the count to reading time.
func Estimate(text string, opts ...Option) Result {
	o := newOptions(opts)
	return FromWords(countWords([]rune(text), o.bound), opts...)
}

// FromWords converts a precomputed word count to reading time.
func FromWords(words int, opts ...Option) Result {
	o := newOptions(opts)
	minutes := float64(words) / float64(o.wpm)
	return Result{
		Words:        words,
		Minutes:      int(math.Ceil(round2(minutes))),
		Milliseconds: int64(math.Round(minutes * 60 * 1000)),
		Exact:        minutes,
	}
}

// CountWords returns the number of words in text.
func CountWords(text string, opts ...Option) int {
	o := newOptions(opts)
	return countWords([]rune(text), o.bound)
}

func countWords(text []rune, isBound WordBound) int {
	start, end := 0, len(text)-1
	for start < len(text) && isBound(text[start]) {
		start++
	}
	for end >= 0 && isBound(text[end]) {
		end--
	}

	// A trailing boundary lets every lookahead below stay in range.
	padded := append(text[:len(text):len(text)], '\n')

	words := 0
	for i := start; i <= end; i++ {
		c, next := padded[i], padded[i+1]
		if IsCJK(c) || (!isBound(c) && (isBound(next) || IsCJK(next))) {
			words++
		}
		if IsCJK(c) {
			for i <= end && (IsPunctuation(padded[i+1]) || isBound(padded[i+1])) {
				i++
			}
		}
	}
	return words
}

// round2 rounds to two decimals the way a decimal string formatter would,
// then parses the result back.
func round2(f float64) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	if err != nil {
		return f
	}
	return v
}

type runeRange struct{ lo, hi rune }

var (
	cjkRanges = []runeRange{
		{0x3040, 0x309f},   // Hiragana
		{0x4e00, 0x9fff},   // CJK unified ideographs
		{0xac00, 0xd7a3},   // Hangul
		{0x20000, 0x2ebe0}, // CJK extensions
	}
	punctuationRanges = []runeRange{
		{0x21, 0x2f},
		{0x3a, 0x40},
		{0x5b, 0x60},
		{0x7b, 0x7e},
		{0x3000, 0x303f}, // CJK symbols and punctuation
		{0xff00, 0xffef}, // full-width ASCII variants
	}
)

func inRanges(r rune, ranges []runeRange) bool {
	for _, rr := range ranges {
		if rr.lo <= r && r <= rr.hi {
			return true
		}
	}
	return false
}

// IsCJK reports whether r counts as a standalone word.
func IsCJK(r rune) bool { return inRanges(r, cjkRanges) }

// IsPunctuation reports whether r is ASCII, CJK or full-width punctuation.
func IsPunctuation(r rune) bool { return inRanges(r, punctuationRanges) }

// IsASCIIWordBound is the default boundary predicate: space, tab, CR and LF.
func IsASCIIWordBound(r rune) bool {
	switch r {
	case ' ', '\n', '\r', '\t':
		return true
	}
	return false
}

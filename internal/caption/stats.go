package caption

import (
	"strings"
	"unicode/utf8"
)

// Band is an inclusive word-count range considered ideal for training.
type Band struct {
	Min int
	Max int
}

// RangeStat holds average/min/max over one measured dimension.
type RangeStat struct {
	Avg float64
	Min int
	Max int
}

// Stats summarizes a caption column.
type Stats struct {
	Count        int
	Chars        RangeStat
	Words        RangeStat
	IdealCount   int
	IdealPct     float64
	Duplicates   int
	DuplicatePct float64
}

// WordCount returns the number of whitespace-separated words in a caption.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Compute measures character lengths, word counts, the share of captions
// inside the ideal band, and duplicate captions. Duplicates count every
// occurrence after the first, matching how a data frame reports them.
func Compute(captions []string, band Band) Stats {
	st := Stats{Count: len(captions)}
	if st.Count == 0 {
		return st
	}

	var charSum, wordSum int
	seen := make(map[string]struct{}, len(captions))

	for i, c := range captions {
		chars := utf8.RuneCountInString(c)
		words := WordCount(c)

		charSum += chars
		wordSum += words

		if i == 0 {
			st.Chars.Min, st.Chars.Max = chars, chars
			st.Words.Min, st.Words.Max = words, words
		} else {
			if chars < st.Chars.Min {
				st.Chars.Min = chars
			}
			if chars > st.Chars.Max {
				st.Chars.Max = chars
			}
			if words < st.Words.Min {
				st.Words.Min = words
			}
			if words > st.Words.Max {
				st.Words.Max = words
			}
		}

		if words >= band.Min && words <= band.Max {
			st.IdealCount++
		}

		if _, dup := seen[c]; dup {
			st.Duplicates++
		} else {
			seen[c] = struct{}{}
		}
	}

	st.Chars.Avg = float64(charSum) / float64(st.Count)
	st.Words.Avg = float64(wordSum) / float64(st.Count)
	st.IdealPct = float64(st.IdealCount) / float64(st.Count) * 100
	st.DuplicatePct = float64(st.Duplicates) / float64(st.Count) * 100

	return st
}

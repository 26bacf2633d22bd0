package index

import "strings"

// Stem applies the Porter stemming algorithm (Porter, 1980) to a single
// lowercase token. Ported as a small set of plain functions rather than
// vendoring a library, since no example repo imports a stemmer.
func Stem(word string) string {
	if len(word) <= 2 {
		return word
	}

	w := word
	w = step1a(w)
	w = step1b(w)
	w = step1c(w)
	w = step2(w)
	w = step3(w)
	w = step4(w)
	w = step5a(w)
	w = step5b(w)
	return w
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}

// consonant reports whether w[i] is a consonant, treating 'y' as a
// consonant only when it is not preceded by another consonant.
func consonant(w string, i int) bool {
	c := w[i]
	if isVowel(c) {
		return false
	}
	if c != 'y' {
		return true
	}
	if i == 0 {
		return true
	}
	return !consonant(w, i-1)
}

// measure computes Porter's "m": the number of consonant-vowel sequences
// in w.
func measure(w string) int {
	n := len(w)
	i := 0
	for i < n && consonant(w, i) {
		i++
	}
	m := 0
	for i < n {
		for i < n && !consonant(w, i) {
			i++
		}
		if i >= n {
			break
		}
		for i < n && consonant(w, i) {
			i++
		}
		m++
	}
	return m
}

func containsVowel(w string) bool {
	for i := range w {
		if !consonant(w, i) {
			return true
		}
	}
	return false
}

func endsDoubleConsonant(w string) bool {
	n := len(w)
	if n < 2 {
		return false
	}
	return w[n-1] == w[n-2] && consonant(w, n-1)
}

// endsCVC reports whether w ends consonant-vowel-consonant, where the
// final consonant is not w, x, or y.
func endsCVC(w string) bool {
	n := len(w)
	if n < 3 {
		return false
	}
	if !consonant(w, n-3) || consonant(w, n-2) || !consonant(w, n-1) {
		return false
	}
	switch w[n-1] {
	case 'w', 'x', 'y':
		return false
	}
	return true
}

func replaceSuffix(w, suffix, replacement string, minMeasure int) (string, bool) {
	if !strings.HasSuffix(w, suffix) {
		return w, false
	}
	stem := strings.TrimSuffix(w, suffix)
	if measure(stem) < minMeasure {
		return w, false
	}
	return stem + replacement, true
}

func step1a(w string) string {
	switch {
	case strings.HasSuffix(w, "sses"):
		return strings.TrimSuffix(w, "sses") + "ss"
	case strings.HasSuffix(w, "ies"):
		return strings.TrimSuffix(w, "ies") + "i"
	case strings.HasSuffix(w, "ss"):
		return w
	case strings.HasSuffix(w, "s"):
		return strings.TrimSuffix(w, "s")
	}
	return w
}

func step1b(w string) string {
	switch {
	case strings.HasSuffix(w, "eed"):
		stem := strings.TrimSuffix(w, "eed")
		if measure(stem) > 0 {
			return stem + "ee"
		}
		return w
	case strings.HasSuffix(w, "ed"):
		stem := strings.TrimSuffix(w, "ed")
		if containsVowel(stem) {
			return step1bClean(stem)
		}
		return w
	case strings.HasSuffix(w, "ing"):
		stem := strings.TrimSuffix(w, "ing")
		if containsVowel(stem) {
			return step1bClean(stem)
		}
		return w
	}
	return w
}

func step1bClean(stem string) string {
	switch {
	case strings.HasSuffix(stem, "at"), strings.HasSuffix(stem, "bl"), strings.HasSuffix(stem, "iz"):
		return stem + "e"
	case endsDoubleConsonant(stem) && !strings.HasSuffix(stem, "l") && !strings.HasSuffix(stem, "s") && !strings.HasSuffix(stem, "z"):
		return stem[:len(stem)-1]
	case measure(stem) == 1 && endsCVC(stem):
		return stem + "e"
	}
	return stem
}

func step1c(w string) string {
	if strings.HasSuffix(w, "y") && len(w) > 1 {
		stem := strings.TrimSuffix(w, "y")
		if containsVowel(stem) {
			return stem + "i"
		}
	}
	return w
}

var step2Suffixes = []struct{ suffix, replacement string }{
	{"ational", "ate"}, {"tional", "tion"}, {"enci", "ence"}, {"anci", "ance"},
	{"izer", "ize"}, {"abli", "able"}, {"alli", "al"}, {"entli", "ent"},
	{"eli", "e"}, {"ousli", "ous"}, {"ization", "ize"}, {"ation", "ate"},
	{"ator", "ate"}, {"alism", "al"}, {"iveness", "ive"}, {"fulness", "ful"},
	{"ousness", "ous"}, {"aliti", "al"}, {"iviti", "ive"}, {"biliti", "ble"},
}

func step2(w string) string {
	for _, s := range step2Suffixes {
		if out, ok := replaceSuffix(w, s.suffix, s.replacement, 1); ok {
			return out
		}
	}
	return w
}

var step3Suffixes = []struct{ suffix, replacement string }{
	{"icate", "ic"}, {"ative", ""}, {"alize", "al"}, {"iciti", "ic"},
	{"ical", "ic"}, {"ful", ""}, {"ness", ""},
}

func step3(w string) string {
	for _, s := range step3Suffixes {
		if out, ok := replaceSuffix(w, s.suffix, s.replacement, 1); ok {
			return out
		}
	}
	return w
}

var step4Suffixes = []string{
	"al", "ance", "ence", "er", "ic", "able", "ible", "ant", "ement",
	"ment", "ent", "ou", "ism", "ate", "iti", "ous", "ive", "ize",
}

func step4(w string) string {
	for _, suffix := range step4Suffixes {
		if !strings.HasSuffix(w, suffix) {
			continue
		}
		stem := strings.TrimSuffix(w, suffix)
		if suffix == "ion" {
			if len(stem) > 0 && (stem[len(stem)-1] == 's' || stem[len(stem)-1] == 't') && measure(stem) > 1 {
				return stem
			}
			continue
		}
		if measure(stem) > 1 {
			return stem
		}
	}
	if strings.HasSuffix(w, "sion") || strings.HasSuffix(w, "tion") {
		stem := strings.TrimSuffix(w, "ion")
		if measure(stem) > 1 {
			return stem
		}
	}
	return w
}

func step5a(w string) string {
	if strings.HasSuffix(w, "e") {
		stem := strings.TrimSuffix(w, "e")
		m := measure(stem)
		if m > 1 {
			return stem
		}
		if m == 1 && !endsCVC(stem) {
			return stem
		}
	}
	return w
}

func step5b(w string) string {
	if measure(w) > 1 && endsDoubleConsonant(w) && strings.HasSuffix(w, "l") {
		return w[:len(w)-1]
	}
	return w
}

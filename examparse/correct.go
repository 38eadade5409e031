package examparse

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// recognitionFixes is applied in order to recognized text.
var recognitionFixes = []struct{ from, to string }{
	{"⑴", "(1)"}, {"⑵", "(2)"}, {"⑶", "(3)"}, {"⑷", "(4)"}, {"⑸", "(5)"},
	{"⑹", "(6)"}, {"⑺", "(7)"}, {"⑻", "(8)"}, {"⑼", "(9)"}, {"⑽", "(10)"},
	{"①", "(1)"}, {"②", "(2)"}, {"③", "(3)"}, {"④", "(4)"}, {"⑤", "(5)"},
	{"⑥", "(6)"}, {"⑦", "(7)"}, {"⑧", "(8)"}, {"⑨", "(9)"}, {"⑩", "(10)"},
	{"O ", "0 "},
	{" l ", " 1 "},
}

// fullWidthAlnum is U+FF10..U+FF19, U+FF21..U+FF3A and U+FF41..U+FF5A.
// Full-width punctuation is outside it and keeps its form.
var fullWidthAlnum = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0xFF10, Hi: 0xFF19, Stride: 1},
		{Lo: 0xFF21, Hi: 0xFF3A, Stride: 1},
		{Lo: 0xFF41, Hi: 0xFF5A, Stride: 1},
	},
}

// narrowAlnum folds full-width digits and Latin letters to ASCII.
func narrowAlnum(s string) string {
	out, _, err := transform.String(runes.If(runes.In(fullWidthAlnum), width.Narrow, nil), s)
	if err != nil {
		return s
	}
	return out
}

// CorrectRecognized fixes common recognition artifacts: enclosed numerals,
// letter/digit confusions and full-width digits or letters.
func CorrectRecognized(s string) string {
	for _, f := range recognitionFixes {
		s = strings.ReplaceAll(s, f.from, f.to)
	}
	return narrowAlnum(s)
}

var digitLookalikes = strings.NewReplacer("O", "0", "o", "0", "l", "1", "I", "1")

// normalizeNumber folds look-alike letters in a recognized question number
// and drops leading zeros.
func normalizeNumber(n string) string {
	n = digitLookalikes.Replace(narrowAlnum(n))
	if t := strings.TrimLeft(n, "0"); t != "" {
		return t
	}
	return n
}

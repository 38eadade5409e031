// CLAUDE:SUMMARY Per-page text quality scoring: decides whether a page's native text layer is usable or must be recognized.
// CLAUDE:EXPORTS QualitySignal, Assess, NeedsRecognition, StructureKeywords
package docpipe

import (
	"strings"
	"unicode"
)

// StructureKeywords are the exam-structure words whose presence earns the
// structure bonus.
var StructureKeywords = []string{"卷", "题", "选择", "填空", "应用", "设计", "简答", "计算"}

// QualitySignal is the quality assessment of one page of text.
type QualitySignal struct {
	CharCount           int     `json:"char_count"`
	CJKCount            int     `json:"cjk_count"`
	CJKRatio            float64 `json:"cjk_ratio"`
	HasStructureKeyword bool    `json:"has_structure_keyword"`
	Score               float64 `json:"score"`

	// PrintableRatio is diagnostic only and does not enter Score.
	PrintableRatio float64 `json:"printable_ratio"`
}

// Assess scores text in [0, 1]:
//
//	min(cjk/500, 0.4) + cjk_ratio*0.3 + (0.3 if a structure keyword occurs)
//
// Empty text yields the zero signal.
func Assess(text string) QualitySignal {
	if text == "" {
		return QualitySignal{}
	}

	var total, cjk int
	for _, r := range text {
		total++
		if isCJK(r) {
			cjk++
		}
	}

	sig := QualitySignal{
		CharCount:      total,
		CJKCount:       cjk,
		CJKRatio:       float64(cjk) / float64(total),
		PrintableRatio: computePrintableRatio(text),
	}
	for _, kw := range StructureKeywords {
		if strings.Contains(text, kw) {
			sig.HasStructureKeyword = true
			break
		}
	}

	score := min(float64(cjk)/500, 0.4) + sig.CJKRatio*0.3
	if sig.HasStructureKeyword {
		score += 0.3
	}
	sig.Score = min(score, 1.0)
	return sig
}

// NeedsRecognition reports whether a page must go through recognition.
func NeedsRecognition(sig QualitySignal, threshold float64, minChars int) bool {
	return sig.Score < threshold || sig.CharCount < minChars
}

// isCJK covers the CJK Unified Ideographs block only.
func isCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// computePrintableRatio returns the ratio of printable characters in text.
// Excludes PUA U+E000-U+F8FF, control chars < U+0020 (except \n\r\t), U+FFFD.
func computePrintableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total := 0
	printable := 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	// Private Use Area: CID fonts without ToUnicode.
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	return r < 0x0020 && r != '\n' && r != '\r' && r != '\t'
}

package docpipe

import (
	"math"
	"strings"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAssess_Empty(t *testing.T) {
	// WHAT: empty text scores zero and is flagged.
	// WHY: image-only pages have no text layer at all.
	sig := Assess("")
	if sig != (QualitySignal{}) {
		t.Fatalf("Assess(\"\") = %+v, want zero", sig)
	}
	if !NeedsRecognition(sig, 0.5, 50) {
		t.Fatal("empty page must need recognition")
	}
}

func TestAssess_PureCJKNoKeyword(t *testing.T) {
	// WHAT: 100 CJK runes, no structure keyword: 100/500 + 1.0*0.3 = 0.5.
	// WHY: pins the formula.
	sig := Assess(strings.Repeat("数", 100))
	if sig.CJKCount != 100 || sig.CharCount != 100 {
		t.Fatalf("counts = %d/%d", sig.CJKCount, sig.CharCount)
	}
	if !approx(sig.Score, 0.5) {
		t.Fatalf("score = %v, want 0.5", sig.Score)
	}
	if sig.HasStructureKeyword {
		t.Fatal("unexpected structure keyword")
	}
	if NeedsRecognition(sig, 0.5, 50) {
		t.Fatal("score equal to threshold must not need recognition")
	}
}

func TestAssess_CJKCountCapped(t *testing.T) {
	// WHAT: the volume term saturates at 0.4; a full page with a keyword reaches 1.0.
	sig := Assess(strings.Repeat("题", 900))
	if !approx(sig.Score, 1.0) {
		t.Fatalf("score = %v, want 1.0", sig.Score)
	}
}

func TestAssess_KeywordShortPage(t *testing.T) {
	// WHAT: a lone keyword scores 0.602 but is still flagged for being short.
	// WHY: the character floor applies independently of the score.
	sig := Assess("题")
	if !approx(sig.Score, 1.0/500+0.3+0.3) {
		t.Fatalf("score = %v", sig.Score)
	}
	if !NeedsRecognition(sig, 0.5, 50) {
		t.Fatal("short page must need recognition")
	}
}

func TestAssess_LatinGarbage(t *testing.T) {
	// WHAT: a long Latin-only page scores zero.
	// WHY: broken CID extraction of a Chinese paper often yields ASCII soup.
	sig := Assess(strings.Repeat("x1 ", 100))
	if sig.Score != 0 || sig.CJKCount != 0 {
		t.Fatalf("score = %v, cjk = %d", sig.Score, sig.CJKCount)
	}
	if !NeedsRecognition(sig, 0.5, 50) {
		t.Fatal("zero score must need recognition")
	}
}

func TestAssess_MixedRatio(t *testing.T) {
	// WHAT: the ratio denominator includes spaces and ASCII.
	sig := Assess("选择 ab")
	if sig.CharCount != 5 || sig.CJKCount != 2 {
		t.Fatalf("counts = %d/%d", sig.CharCount, sig.CJKCount)
	}
	want := 2.0/500 + (2.0/5)*0.3 + 0.3
	if !approx(sig.Score, want) {
		t.Fatalf("score = %v, want %v", sig.Score, want)
	}
}

func TestPrintableRatio_Garbage(t *testing.T) {
	// WHAT: PUA and control chars produce low printable ratio.
	// WHY: the ratio is logged next to the score to explain garbled pages.
	garbage := "abcdefghi\x01\x02\x03\x04\x05"
	if ratio := computePrintableRatio(garbage); ratio >= 0.85 {
		t.Errorf("printable ratio = %f, want < 0.85", ratio)
	}
	if ratio := Assess("一、选择题").PrintableRatio; !approx(ratio, 1.0) {
		t.Errorf("clean CJK printable ratio = %f", ratio)
	}
}

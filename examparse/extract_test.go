package examparse

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hazyhaar/exametl/docpipe"
)

func section(prov docpipe.Provenance, lines ...string) Section {
	return Section{PaperID: "卷一", QuestionType: "选择", Lines: lines, Provenance: prov}
}

func TestExtract_StemWithoutOptions(t *testing.T) {
	ex := NewExtractor(DefaultPatterns(), 10, 800)
	got := ex.Extract(section(docpipe.ProvenanceNative,
		"1. 下列关于栈的说法正确的是", "A. 先进先出", "B. 后进先出"))
	if len(got) != 1 {
		t.Fatalf("records = %d: %+v", len(got), got)
	}
	q := got[0]
	if q.Number != "1" || q.Content != "下列关于栈的说法正确的是" {
		t.Fatalf("record = %+v", q)
	}
	if q.PaperID != "卷一" || q.QuestionType != "选择" || q.Provenance != docpipe.ProvenanceNative {
		t.Fatalf("record labels = %+v", q)
	}
}

func TestExtract_ContinuationLinesCollapsed(t *testing.T) {
	ex := NewExtractor(DefaultPatterns(), 10, 800)
	got := ex.Extract(section(docpipe.ProvenanceNative,
		"1. 阅读下面的程序", "并写出   运行结果", "2. 设计一个算法求二叉树的高度"))
	if len(got) != 2 {
		t.Fatalf("records = %d: %+v", len(got), got)
	}
	if got[0].Content != "阅读下面的程序 并写出 运行结果" {
		t.Errorf("content = %q", got[0].Content)
	}
	if got[1].Number != "2" {
		t.Errorf("second number = %q", got[1].Number)
	}
}

func TestExtract_Filtering(t *testing.T) {
	// WHAT: short candidates are dropped, junk is dropped, long content is
	// truncated to exactly the maximum.
	long := strings.Repeat("长", 50)
	ex := NewExtractor(DefaultPatterns(), 10, 20)
	got := ex.Extract(section(docpipe.ProvenanceNative,
		"1. 太短了",
		"2. A B C D 1 2 3",
		"3. "+long,
	))
	if len(got) != 1 {
		t.Fatalf("records = %d: %+v", len(got), got)
	}
	if got[0].Number != "3" || utf8.RuneCountInString(got[0].Content) != 20 {
		t.Fatalf("record = %+v (%d runes)", got[0], utf8.RuneCountInString(got[0].Content))
	}
}

func TestExtract_NoMatch(t *testing.T) {
	ex := NewExtractor(DefaultPatterns(), 10, 800)
	if got := ex.Extract(section(docpipe.ProvenanceNative, "这里没有任何编号的题目内容")); len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func customExtractor(t *testing.T) *Extractor {
	t.Helper()
	p, err := PatternSpec{Questions: []string{
		`(?m)^Q(\d+):\s*(.+)$`,
		`(?m)^(\d+)\.\s*(.+)$`,
	}}.Compile()
	if err != nil {
		t.Fatal(err)
	}
	return NewExtractor(p, 10, 800)
}

func TestExtract_FirstMatchWins(t *testing.T) {
	// WHAT: once pattern 1 yields a record, pattern 2's records are ignored.
	ex := customExtractor(t)
	got := ex.Extract(section(docpipe.ProvenanceNative,
		"Q1: 第一种格式的题目内容足够长", "2. 第二种格式的题目内容也足够长"))
	if len(got) != 1 || got[0].Number != "1" {
		t.Fatalf("got %+v", got)
	}
}

func TestExtract_FallsThroughWhenAllRejected(t *testing.T) {
	// WHAT: a pattern whose matches are all filtered out does not win.
	ex := customExtractor(t)
	got := ex.Extract(section(docpipe.ProvenanceNative,
		"Q1: 短", "2. 第二种格式的题目内容也足够长"))
	if len(got) != 1 || got[0].Number != "2" {
		t.Fatalf("got %+v", got)
	}
}

func TestExtract_RecognizedCorrections(t *testing.T) {
	// WHAT: recognized content has circled numerals rewritten before filtering.
	ex := NewExtractor(DefaultPatterns(), 10, 800)
	got := ex.Extract(section(docpipe.ProvenanceRecognized, "5. ①解释遗传算法②分析复杂度"))
	if len(got) != 1 {
		t.Fatalf("records = %d", len(got))
	}
	if !strings.Contains(got[0].Content, "(1)解释遗传算法(2)分析复杂度") {
		t.Fatalf("content = %q", got[0].Content)
	}

	// The same text from the native layer is left alone.
	native := ex.Extract(section(docpipe.ProvenanceNative, "5. ①解释遗传算法②分析复杂度"))
	if len(native) != 1 || !strings.Contains(native[0].Content, "①") {
		t.Fatalf("native content = %+v", native)
	}
}

func TestExtract_RecognizedNumberAndWidth(t *testing.T) {
	// WHAT: misread question numbers and full-width digits or letters are folded.
	ex := NewExtractor(DefaultPatterns(), 10, 800)
	got := ex.Extract(section(docpipe.ProvenanceRecognized,
		"l、设Ｘ＝１２３，求下列表达式的值",
		"O2：结果为 O 或者为其他值请说明"))
	if len(got) != 2 {
		t.Fatalf("records = %d: %+v", len(got), got)
	}
	if got[0].Number != "1" || !strings.Contains(got[0].Content, "X＝123，") {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Number != "2" || !strings.Contains(got[1].Content, "结果为 0 或者") {
		t.Errorf("second = %+v", got[1])
	}
}

func TestExtract_RecognizedKeepsPunctuation(t *testing.T) {
	// WHAT: full-width Chinese punctuation and characters outside the fix
	// table come through recognition unchanged.
	// WHY: one paper mixes native and recognized pages in the same CSV.
	ex := NewExtractor(DefaultPatterns(), 10, 800)
	line := "1. 下列说法中，正确的是：（\u3000）。⑪第十一个"
	want := "下列说法中，正确的是：（\u3000）。⑪第十一个"

	rec := ex.Extract(section(docpipe.ProvenanceRecognized, line))
	nat := ex.Extract(section(docpipe.ProvenanceNative, line))
	if len(rec) != 1 || len(nat) != 1 {
		t.Fatalf("records = %d recognized, %d native", len(rec), len(nat))
	}
	if rec[0].Content != want || nat[0].Content != want {
		t.Fatalf("recognized %q, native %q, want %q", rec[0].Content, nat[0].Content, want)
	}
}

func TestExtract_SubItemsStayInQuestion(t *testing.T) {
	// WHAT: bracketed sub-items belong to the question above them whatever
	// the provenance.
	ex := NewExtractor(DefaultPatterns(), 10, 800)
	lines := []string{"1. 回答下列关于图的问题", "(1) 画出该图的邻接矩阵表示", "(2) 写出深度优先遍历序列"}

	nat := ex.Extract(section(docpipe.ProvenanceNative, lines...))
	rec := ex.Extract(section(docpipe.ProvenanceRecognized, lines...))
	if len(nat) != 1 || len(rec) != 1 {
		t.Fatalf("records = %d native, %d recognized: %+v", len(nat), len(rec), rec)
	}
	if rec[0].Number != "1" || rec[0].Content != nat[0].Content {
		t.Fatalf("recognized %+v, native %+v", rec[0], nat[0])
	}
	if !strings.Contains(rec[0].Content, "(2) 写出深度优先遍历序列") {
		t.Fatalf("content = %q", rec[0].Content)
	}
}

func TestExtract_LoneNumberLine(t *testing.T) {
	// WHAT: a number with nothing after it on its line does not swallow
	// the next question.
	ex := NewExtractor(DefaultPatterns(), 10, 800)
	for _, prov := range []docpipe.Provenance{docpipe.ProvenanceNative, docpipe.ProvenanceRecognized} {
		got := ex.Extract(section(prov, "1.", "2. 这是第二道题目的内容很长"))
		if len(got) != 1 || got[0].Number != "2" || got[0].Content != "这是第二道题目的内容很长" {
			t.Errorf("%s: got %+v", prov, got)
		}
	}
}

func TestExtract_FallbackUsesStandardPatterns(t *testing.T) {
	// WHAT: recognized_fallback sections are treated like native text.
	ex := NewExtractor(DefaultPatterns(), 10, 800)
	got := ex.Extract(section(docpipe.ProvenanceFallback, "l、这一行只有识别模式才能匹配上"))
	if len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestExtractAll_Order(t *testing.T) {
	ex := NewExtractor(DefaultPatterns(), 10, 800)
	secs := []Section{
		{PaperID: "卷一", QuestionType: "选择", Lines: []string{"1. 第一卷的第一道题目内容"}},
		{PaperID: "卷二", QuestionType: "填空", Lines: []string{"1. 第二卷的第一道题目内容", "2. 第二卷的第二道题目内容"}},
	}
	got := ex.ExtractAll(secs)
	if len(got) != 3 || got[0].PaperID != "卷一" || got[2].Number != "2" {
		t.Fatalf("got %+v", got)
	}
}

func TestPatternSpec_Compile(t *testing.T) {
	if _, err := (PatternSpec{Questions: []string{`(\d+)\.`}}).Compile(); err == nil {
		t.Error("single-group question pattern accepted")
	}
	if _, err := (PatternSpec{Type: `(`}).Compile(); err == nil {
		t.Error("invalid regexp accepted")
	}
	p, err := (PatternSpec{OCRQuestions: []string{}}).Compile()
	if err != nil {
		t.Fatal(err)
	}
	if len(p.OCRQuestions) != 0 || len(p.Questions) != len(DefaultQuestionPatterns) {
		t.Errorf("compiled = %d ocr, %d standard", len(p.OCRQuestions), len(p.Questions))
	}
}

func TestCorrectRecognized(t *testing.T) {
	cases := []struct{ in, want string }{
		{"⑴⑵⑽", "(1)(2)(10)"},
		{"O 个", "0 个"},
		{"共 l 个", "共 1 个"},
		{"ＡＢＣ１２", "ABC12"},
		{"ａｂ，：（\u3000）", "ab，：（\u3000）"},
		{"⑪＝", "⑪＝"},
	}
	for _, c := range cases {
		if got := CorrectRecognized(c.in); got != c.want {
			t.Errorf("CorrectRecognized(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

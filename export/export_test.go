package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/exametl/docpipe"
	"github.com/hazyhaar/exametl/examparse"
	"github.com/hazyhaar/exametl/tagger"
)

func tq(paper, qtype, num, content, difficulty string, prov docpipe.Provenance, tags ...string) tagger.Tagged {
	return tagger.Tagged{
		Question: examparse.Question{
			PaperID: paper, QuestionType: qtype, Number: num, Content: content, Provenance: prov,
		},
		Tags:       tags,
		Difficulty: difficulty,
	}
}

func sample() []tagger.Tagged {
	return []tagger.Tagged{
		tq("卷一", "选择", "1", "单链表删除结点, \"说明\"", "Simple", docpipe.ProvenanceNative, "线性表", "算法分析"),
		tq("卷一", "选择", "2", "循环队列判满条件", "Simple", docpipe.ProvenanceNative, "栈和队列"),
		tq("卷二", "应用", "1", "画出二叉树的先序遍历序列", "Medium", docpipe.ProvenanceRecognized, "树和二叉树"),
		tq("卷二", "设计", "1", "设计一个算法", "Hard", docpipe.ProvenanceRecognized, "Other"),
	}
}

func TestWriteCSV(t *testing.T) {
	// WHAT: output starts with a BOM, then the fixed header and one row per question.
	// WHY: spreadsheet tools only detect UTF-8 with the BOM.
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample()); err != nil {
		t.Fatal(err)
	}
	data := buf.String()
	if !strings.HasPrefix(data, "\ufeff") {
		t.Fatal("missing BOM")
	}
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(data, "\ufeff"))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 5 {
		t.Fatalf("records = %d", len(records))
	}
	if strings.Join(records[0], ",") != "Paper_ID,Question_Type,Question_Number,Content,Tag,Difficulty" {
		t.Fatalf("header = %v", records[0])
	}
	if records[1][3] != "单链表删除结点, \"说明\"" {
		t.Errorf("content not round-tripped: %q", records[1][3])
	}
	if records[1][4] != "线性表, 算法分析" {
		t.Errorf("tags = %q", records[1][4])
	}
}

func TestSaveCSV_CreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "q.csv")
	if err := SaveCSV(path, sample()[:1]); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
}

func TestBuildStats(t *testing.T) {
	s := BuildStats(sample())
	if s.Questions != 4 {
		t.Fatalf("questions = %d", s.Questions)
	}
	// Five tag occurrences across four questions.
	if got := s.TagDifficulty.Total(); got != 5 {
		t.Errorf("tag total = %d", got)
	}
	if got := s.TagDifficulty.Get("线性表", "Simple"); got != 1 {
		t.Errorf("线性表/Simple = %d", got)
	}
	if got := s.TagDifficulty.ColTotal("Simple"); got != 3 {
		t.Errorf("Simple col = %d", got)
	}
	if len(s.Papers) != 2 || s.Papers[0].Key != "卷一" || s.Papers[0].N != 2 {
		t.Errorf("papers = %+v", s.Papers)
	}
	if s.Difficulty[0].Key != "Simple" || s.Difficulty[0].N != 2 {
		t.Errorf("difficulty = %+v", s.Difficulty)
	}
	// Ties are ordered by name.
	if s.Difficulty[1].Key != "Hard" || s.Difficulty[2].Key != "Medium" {
		t.Errorf("difficulty tie order = %+v", s.Difficulty)
	}
	if s.Types[0].Key != "选择" {
		t.Errorf("types = %+v", s.Types)
	}
	if got := s.PaperTags.Get("卷二", "Other"); got != 1 {
		t.Errorf("paper tags 卷二/Other = %d", got)
	}
	if len(s.Provenance) != 2 {
		t.Errorf("provenance = %+v", s.Provenance)
	}
}

func TestBuildStats_TypesCapped(t *testing.T) {
	var qs []tagger.Tagged
	for i := 0; i < TopTypes+5; i++ {
		qs = append(qs, tq("卷一", string(rune('a'+i))+"题型", "1", "x", "Medium", docpipe.ProvenanceNative))
	}
	s := BuildStats(qs)
	if len(s.Types) != TopTypes {
		t.Fatalf("types = %d", len(s.Types))
	}
	if got := s.TagDifficulty.Get(tagger.OtherTag, "Medium"); got != len(qs) {
		t.Errorf("untagged counted as %d Other", got)
	}
}

func TestWriteText_AlignsCJK(t *testing.T) {
	// WHAT: count columns line up even when labels mix CJK and ASCII.
	r := &Report{Title: "统计分析报告", Subject: "数据结构", Stats: BuildStats(sample())}
	var buf bytes.Buffer
	if err := WriteText(&buf, r); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"统计分析报告", "【难度分布】", "Subject: 数据结构", "All"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "卷一      2\n") {
		t.Errorf("paper row not aligned:\n%s", out)
	}
}

func TestWriteHTML_Escapes(t *testing.T) {
	qs := []tagger.Tagged{tq("<卷>", "选择", "1", "x", "Simple", docpipe.ProvenanceNative, "T")}
	var buf bytes.Buffer
	if err := WriteHTML(&buf, &Report{Title: "r", Stats: BuildStats(qs)}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "<卷>") {
		t.Fatal("paper id not escaped")
	}
	if !strings.Contains(buf.String(), "<table>") {
		t.Fatal("no table rendered")
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, &Report{Title: "统计分析报告", Stats: BuildStats(sample())}); err != nil {
		t.Fatal(err)
	}
	md := buf.String()
	if !strings.Contains(md, "# 统计分析报告") {
		t.Errorf("missing heading:\n%s", md)
	}
	if !strings.Contains(md, "|") || !strings.Contains(md, "Difficulty") {
		t.Errorf("missing table:\n%s", md)
	}
}

func TestSaveReports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	paths, err := SaveReports(dir, "stats", &Report{Title: "r", Stats: BuildStats(sample())})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %v", paths)
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("%s: %v", p, err)
		}
	}
}

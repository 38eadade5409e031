package tagger

import (
	"strings"
	"testing"

	"github.com/hazyhaar/exametl/examparse"
)

var dsRules = []TagRule{
	{Tag: "栈和队列", Keywords: []string{"栈", "队列"}},
	{Tag: "树", Keywords: []string{"二叉树", "遍历"}},
	{Tag: "排序", Keywords: []string{"排序"}},
	{Tag: "栈和队列", Keywords: []string{"出栈"}},
}

func TestTags_UnionInRuleOrder(t *testing.T) {
	tg := New(dsRules, nil)
	got := tg.Tags("对二叉树进行遍历后，用栈实现排序")
	if strings.Join(got, "|") != "栈和队列|树|排序" {
		t.Fatalf("Tags = %q", got)
	}
}

func TestTags_Other(t *testing.T) {
	tg := New(dsRules, nil)
	if got := tg.Tags("简述冯诺依曼结构"); len(got) != 1 || got[0] != OtherTag {
		t.Fatalf("Tags = %q", got)
	}
	if got := New(nil, nil).Tags("任何内容"); got[0] != OtherTag {
		t.Fatalf("empty rules: %q", got)
	}
}

func TestDifficulty_FirstMatch(t *testing.T) {
	// WHAT: the first rule whose key occurs in the type wins; unknown types
	// default to Medium.
	tg := New(nil, []DifficultyRule{
		{Match: "应用", Level: "Medium"},
		{Match: "综合应用", Level: "Hard"},
	})
	if got := tg.Difficulty("综合应用"); got != "Medium" {
		t.Errorf("Difficulty(综合应用) = %q, want first match Medium", got)
	}

	def := New(nil, nil)
	cases := []struct{ qtype, want string }{
		{"选择", "Simple"},
		{"单项选择", "Simple"},
		{"填空", "Simple"},
		{"算法设计", "Hard"},
		{"Unknown", DefaultDifficulty},
	}
	for _, c := range cases {
		if got := def.Difficulty(c.qtype); got != c.want {
			t.Errorf("Difficulty(%q) = %q, want %q", c.qtype, got, c.want)
		}
	}
}

func TestTagAll(t *testing.T) {
	qs := []examparse.Question{
		{PaperID: "卷一", QuestionType: "选择", Number: "1", Content: "栈的特点是什么"},
		{PaperID: "卷一", QuestionType: "设计", Number: "1", Content: "设计一个排序算法"},
	}
	got := New(dsRules, nil).TagAll(qs)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].TagString() != "栈和队列" || got[0].Difficulty != "Simple" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].TagString() != "排序" || got[1].Difficulty != "Hard" || got[1].Number != "1" {
		t.Errorf("second = %+v", got[1])
	}
}

package docpipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/hazyhaar/exametl/recognize"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// goodPage scores well above the default threshold.
var goodPage = "卷一\n一、选择题\n" + strings.Repeat("下列关于数据结构的叙述中正确的是", 4)

// fakeDoc is an in-memory Document; renderErr pages fail to render.
type fakeDoc struct {
	pages     []string
	renderErr map[int]bool
	rendered  []int
}

func (d *fakeDoc) Path() string       { return "fake.pdf" }
func (d *fakeDoc) PageCount() int     { return len(d.pages) }
func (d *fakeDoc) HasImages(int) bool { return false }
func (d *fakeDoc) Close() error       { return nil }

func (d *fakeDoc) NativeText(i int) (string, error) { return d.pages[i], nil }

func (d *fakeDoc) Render(_ context.Context, i, dpi int) ([]byte, error) {
	d.rendered = append(d.rendered, i)
	if d.renderErr[i] {
		return nil, errors.New("pdftoppm missing")
	}
	return []byte(fmt.Sprintf("png-%d@%d", i, dpi)), nil
}

// fakeRecognizer answers from a map keyed by page index.
type fakeRecognizer struct {
	answers  map[int]string
	err      error
	inputs   []recognize.Input
	useCache bool
	calls    int
}

func (r *fakeRecognizer) RecognizeBatch(_ context.Context, inputs []recognize.Input, useCache bool) ([]string, error) {
	r.calls++
	r.inputs = inputs
	r.useCache = useCache
	if r.err != nil {
		return nil, r.err
	}
	out := make([]string, len(inputs))
	for k, in := range inputs {
		if len(in.Image) > 0 {
			out[k] = r.answers[in.PageIndex]
		}
	}
	return out, nil
}

func TestExtractDocument_TwoPass(t *testing.T) {
	// WHAT: good pages stay native, flagged pages are recognized or fall back.
	// WHY: core hybrid behaviour; the fallback keeps the native text.
	doc := &fakeDoc{pages: []string{goodPage, "", "garbled x", goodPage}}
	rec := &fakeRecognizer{answers: map[int]string{1: "卷二\n二、填空题"}}
	pipe := New(Config{Recognizer: rec, Logger: quietLogger()})

	pages, err := pipe.ExtractDocument(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}

	want := []Provenance{ProvenanceNative, ProvenanceRecognized, ProvenanceFallback, ProvenanceNative}
	for i, p := range pages {
		if p.Index != i {
			t.Errorf("page %d has index %d", i, p.Index)
		}
		if p.Provenance != want[i] {
			t.Errorf("page %d provenance = %q, want %q", i, p.Provenance, want[i])
		}
	}
	if pages[1].Text != "卷二\n二、填空题" {
		t.Errorf("recognized text = %q", pages[1].Text)
	}
	if pages[2].Text != "garbled x" {
		t.Errorf("fallback lost native text: %q", pages[2].Text)
	}

	if rec.calls != 1 || len(rec.inputs) != 2 {
		t.Fatalf("recognizer calls = %d, inputs = %d", rec.calls, len(rec.inputs))
	}
	if rec.inputs[0].PageIndex != 1 || rec.inputs[1].PageIndex != 2 || rec.inputs[0].DPI != 200 {
		t.Fatalf("inputs = %+v", rec.inputs)
	}
	if !rec.useCache {
		t.Error("cache should be used by default")
	}

	c := Summarize(pages)
	if c.Native != 2 || c.Recognized != 1 || c.Fallback != 1 {
		t.Errorf("counts = %+v", c)
	}
}

func TestExtractDocument_AllNativeSkipsPass2(t *testing.T) {
	doc := &fakeDoc{pages: []string{goodPage, goodPage}}
	rec := &fakeRecognizer{}
	pages, err := New(Config{Recognizer: rec, Logger: quietLogger()}).ExtractDocument(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if rec.calls != 0 || len(doc.rendered) != 0 {
		t.Fatalf("pass 2 ran: calls=%d rendered=%v", rec.calls, doc.rendered)
	}
	for _, p := range pages {
		if p.Provenance != ProvenanceNative {
			t.Fatalf("provenance = %q", p.Provenance)
		}
	}
}

func TestExtractDocument_RenderFailure(t *testing.T) {
	// WHAT: a page that fails to render is sent without image and falls back.
	doc := &fakeDoc{pages: []string{"", ""}, renderErr: map[int]bool{0: true}}
	rec := &fakeRecognizer{answers: map[int]string{0: "never", 1: "卷一 ok"}}
	pages, err := New(Config{Recognizer: rec, Logger: quietLogger()}).ExtractDocument(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if rec.inputs[0].Image != nil {
		t.Fatal("failed render should pass a nil image")
	}
	if pages[0].Provenance != ProvenanceFallback || pages[1].Provenance != ProvenanceRecognized {
		t.Fatalf("provenances = %q, %q", pages[0].Provenance, pages[1].Provenance)
	}
}

func TestExtractDocument_InitErrorDegrades(t *testing.T) {
	// WHAT: an engine that cannot start degrades flagged pages to fallback,
	// unless RequireOCR is set.
	doc := &fakeDoc{pages: []string{goodPage, "short"}}
	initErr := &recognize.InitError{Engine: "tesseract", Err: errors.New("no chi_sim")}

	pages, err := New(Config{Recognizer: &fakeRecognizer{err: initErr}, Logger: quietLogger()}).
		ExtractDocument(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if pages[1].Provenance != ProvenanceFallback || pages[1].Text != "short" {
		t.Fatalf("page 1 = %+v", pages[1])
	}

	_, err = New(Config{Recognizer: &fakeRecognizer{err: initErr}, RequireOCR: true, Logger: quietLogger()}).
		ExtractDocument(context.Background(), doc)
	var ierr *recognize.InitError
	if !errors.As(err, &ierr) {
		t.Fatalf("RequireOCR: err = %v, want *InitError", err)
	}
}

func TestExtractDocument_OtherRecognizerErrorIsFatal(t *testing.T) {
	doc := &fakeDoc{pages: []string{""}}
	_, err := New(Config{Recognizer: &fakeRecognizer{err: context.DeadlineExceeded}, Logger: quietLogger()}).
		ExtractDocument(context.Background(), doc)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractDocument_DisableCacheAndThresholds(t *testing.T) {
	// WHAT: thresholds are configurable; DisableCache reaches the recognizer.
	doc := &fakeDoc{pages: []string{strings.Repeat("数", 100)}}
	rec := &fakeRecognizer{answers: map[int]string{0: "ocr"}}
	pages, err := New(Config{Recognizer: rec, QualityThreshold: 0.9, DisableCache: true, Logger: quietLogger()}).
		ExtractDocument(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if pages[0].Provenance != ProvenanceRecognized || rec.useCache {
		t.Fatalf("provenance = %q, useCache = %v", pages[0].Provenance, rec.useCache)
	}
}

func TestExtractDocument_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{Logger: quietLogger()}).ExtractDocument(ctx, &fakeDoc{pages: []string{goodPage}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestExtract_TextFilePages(t *testing.T) {
	// WHAT: a form-feed separated text dump yields one page per segment;
	// flagged pages cannot be rendered and fall back.
	path := filepath.Join(t.TempDir(), "paper.txt")
	content := goodPage + "\f" + "tiny" + "\f"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &fakeRecognizer{answers: map[int]string{1: "never"}}
	pages, err := New(Config{Recognizer: rec, Logger: quietLogger()}).Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if pages[0].Provenance != ProvenanceNative || pages[1].Provenance != ProvenanceFallback {
		t.Fatalf("provenances = %q, %q", pages[0].Provenance, pages[1].Provenance)
	}
}

func TestExtract_Missing(t *testing.T) {
	_, err := New(Config{Logger: quietLogger()}).Extract(context.Background(), "/nonexistent/paper.pdf")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path   string
		format Format
	}{
		{"paper.pdf", FormatPDF},
		{"PAPER.PDF", FormatPDF},
		{"dump.txt", FormatTXT},
		{"dump.text", FormatTXT},
	}
	for _, tt := range tests {
		f, err := DetectFormat(tt.path)
		if err != nil || f != tt.format {
			t.Errorf("DetectFormat(%q) = %q, %v", tt.path, f, err)
		}
	}
	if _, err := DetectFormat("file.xyz"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Error("expected ErrUnsupportedFormat")
	}
}

func TestOpen_TextGB18030(t *testing.T) {
	// WHAT: a GBK-encoded text dump is decoded before paging.
	// WHY: text exports of Chinese papers are often not UTF-8.
	want := "卷一\n一、选择题\f卷二"
	encoded, err := simplifiedchinese.GB18030.NewEncoder().String(want)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "paper.txt")
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Open(path, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	if doc.PageCount() != 2 {
		t.Fatalf("pages = %d", doc.PageCount())
	}
	if text, _ := doc.NativeText(0); text != "卷一\n一、选择题" {
		t.Fatalf("page 0 = %q", text)
	}
}

package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/hazyhaar/exametl/recognize"
)

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestParseLanguages(t *testing.T) {
	got := ParseLanguages(" chi_sim + eng ++")
	if strings.Join(got, ",") != "chi_sim,eng" {
		t.Fatalf("ParseLanguages = %q", got)
	}
}

func TestEngineRecognize(t *testing.T) {
	ensureTesseractAvailable(t)

	img := image.NewRGBA(image.Rect(0, 0, 240, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 50),
	}
	d.DrawString("1. Hello exam")

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	engine, err := Factory(Options{Languages: []string{"eng"}})(context.Background())
	if err != nil {
		t.Skipf("tesseract engine unavailable: %v", err)
	}
	got, err := engine.Recognize(context.Background(), recognize.Input{Image: buf.Bytes(), DPI: 300})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if !strings.Contains(strings.ToLower(got), "hello") {
		t.Fatalf("unexpected OCR output: %q", got)
	}
}

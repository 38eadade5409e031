// Package export writes tagged questions as CSV and renders statistics
// reports over them.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hazyhaar/exametl/tagger"
)

// Header is the CSV column order.
var Header = []string{"Paper_ID", "Question_Type", "Question_Number", "Content", "Tag", "Difficulty"}

// bom makes spreadsheet tools open the file as UTF-8.
const bom = "\ufeff"

// WriteCSV writes the BOM, the header and one row per question.
func WriteCSV(w io.Writer, qs []tagger.Tagged) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, q := range qs {
		row := []string{q.PaperID, q.QuestionType, q.Number, q.Content, q.TagString(), q.Difficulty}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes qs to path, creating the parent directory.
func SaveCSV(path string, qs []tagger.Tagged) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create: %w", err)
	}
	if err := WriteCSV(f, qs); err != nil {
		f.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return f.Close()
}

package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/akarpov/talknotes/internal/domain"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName  = "Calibri"
	fontSize  = 12
	titleSize = 16
	headSize  = 14
)

// SummaryDocx renders a completed recording as a .docx document and
// streams it to w. godocx only saves to a path, so the document goes
// through a temp file.
func SummaryDocx(rec domain.Recording, w io.Writer) error {
	if rec.Status != domain.StatusCompleted || rec.Summary == nil {
		return fmt.Errorf("recording %s has no summary to export", rec.ID)
	}

	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	addHeading(doc, rec.Title, titleSize)

	addHeading(doc, "Summary", headSize)
	addText(doc, rec.Summary.Content)

	if len(rec.Summary.ActionItems) > 0 {
		addHeading(doc, "Action items", headSize)
		for _, item := range rec.Summary.ActionItems {
			addText(doc, "• "+item)
		}
	}

	if len(rec.Summary.KeyPoints) > 0 {
		addHeading(doc, "Key points", headSize)
		for _, point := range rec.Summary.KeyPoints {
			addText(doc, "• "+point)
		}
	}

	if rec.Transcript != "" {
		addHeading(doc, "Transcript", headSize)
		addText(doc, rec.Transcript)
	}

	tmpDir, err := os.MkdirTemp("", "talknotes-export-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, "summary.docx")
	if err := doc.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("stream document: %w", err)
	}
	return nil
}

func addHeading(doc *docx.RootDoc, text string, size uint64) {
	p := doc.AddParagraph("")
	p.AddText(text).Font(fontName).Size(size).Color("000000").Bold(true)
}

func addText(doc *docx.RootDoc, text string) {
	p := doc.AddParagraph("")
	p.AddText(text).Font(fontName).Size(fontSize).Color("000000")
}

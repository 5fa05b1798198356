package pdf

import (
	"fmt"
	"math"
	"os"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/utils"
	"go-pdftools/internal/watermark"
)

// Metadata holds the editable fields of the document information
// dictionary. Empty fields are left as they are. The producer is always
// rewritten by pdfcpu and is not editable.
type Metadata struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	Creator  string `json:"creator,omitempty"`
}

func (m Metadata) properties() map[string]string {
	props := make(map[string]string)
	for key, v := range map[string]string{
		"Title":    m.Title,
		"Author":   m.Author,
		"Subject":  m.Subject,
		"Keywords": m.Keywords,
		"Creator":  m.Creator,
	} {
		if v = strings.TrimSpace(v); v != "" {
			props[key] = v
		}
	}
	return props
}

// TextNote is a line of text drawn at a fixed point. X and Y are the lower
// left corner of the text box in points from the lower left corner of the
// page as displayed.
type TextNote struct {
	Text     string           `json:"text"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
	FontSize float64          `json:"fontSize,omitempty"`
	Color    *watermark.Color `json:"color,omitempty"`
}

// DefaultNoteSize is the font size of a TextNote without one.
const DefaultNoteSize = 14

// Edit applies a text note to the selected pages (0-based; nil means all)
// and then the metadata. A nil note only changes the metadata.
func Edit(pdfPath, outputPath string, meta Metadata, note *TextNote, pages []int) error {
	props := meta.properties()
	if note == nil && len(props) == 0 {
		return apperr.New(apperr.CodeInvalidInput, "nothing to edit")
	}
	if note != nil {
		if err := addText(pdfPath, outputPath, *note, pages); err != nil {
			return err
		}
	} else if err := utils.CopyFile(pdfPath, outputPath); err != nil {
		return fmt.Errorf("failed to copy PDF: %w", err)
	}
	if len(props) == 0 {
		return nil
	}
	if err := pdfapi.AddPropertiesFile(outputPath, outputPath, props, newConfig()); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("failed to set metadata: %w", err)
	}
	return nil
}

func addText(pdfPath, outputPath string, note TextNote, pages []int) error {
	if strings.TrimSpace(note.Text) == "" {
		return apperr.New(apperr.CodeInvalidInput, "empty text")
	}
	if note.FontSize == 0 {
		note.FontSize = DefaultNoteSize
	}
	if !(note.FontSize > 0) || math.IsInf(note.FontSize, 0) {
		return apperr.Newf(apperr.CodeInvalidInput, "font size %g", note.FontSize)
	}
	color := watermark.Black
	if note.Color != nil {
		color = *note.Color
	}

	metrics, err := PageMetrics(pdfPath, 1)
	if err != nil {
		return err
	}
	pages, err = selectPages(pages, len(metrics))
	if err != nil {
		return err
	}
	desc := fmt.Sprintf("fontname:%s, points:%d, scalefactor:1 abs, rotation:0, opacity:1, fillcolor:%s, position:bl, offset:%.2f %.2f",
		WatermarkFont, int(math.Round(note.FontSize)), color.Hex(), note.X, note.Y)

	s := stamps{}
	for _, p := range pages {
		m := metrics[p]
		if note.X < 0 || note.Y < 0 || note.X >= m.DocumentWidth || note.Y >= m.DocumentHeight {
			return apperr.Newf(apperr.CodeOutOfRange, "text position (%g, %g) outside page %d", note.X, note.Y, p+1).
				With("page", p)
		}
		wm, err := pdfapi.TextWatermark(note.Text, desc, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("text on page %d: %w", p+1, err)
		}
		s[p+1] = append(s[p+1], wm)
	}
	if err := s.apply(pdfPath, outputPath); err != nil {
		return fmt.Errorf("failed to add text: %w", err)
	}
	return nil
}

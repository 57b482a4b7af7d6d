package calibrate

import (
	"image"
	"image/color"
	"strings"

	"numcap/pkg/solver"

	"github.com/nfnt/resize"
)

// DigitReader reads a single glyph image. The Tesseract-backed reader is the
// production implementation.
type DigitReader interface {
	ReadDigit(img image.Image) (string, error)
}

// Suggestion describes one closed segment of a CAPTCHA and what is known about it.
type Suggestion struct {
	Segment solver.Segment
	Known   bool // signature already in the table
	Digit   int  // table digit when Known
	OCR     string
	OCRErr  error
}

// GlyphScale is the upscale factor applied before OCR; the raw glyphs are
// only 18 pixels tall.
const GlyphScale = 4

// Analyze lists every closed segment of g and, when reader is non-nil, an
// OCR reading of the glyph for signatures missing from the table.
func Analyze(g *solver.Grid, reader DigitReader) []Suggestion {
	var out []Suggestion
	for _, seg := range solver.Segments(g) {
		s := Suggestion{Segment: seg}
		s.Digit, s.Known = solver.Classify(seg.Signature)
		if !s.Known && reader != nil {
			txt, err := reader.ReadDigit(GlyphImage(g, seg, GlyphScale))
			s.OCR = strings.TrimSpace(txt)
			s.OCRErr = err
		}
		out = append(out, s)
	}
	return out
}

// GlyphImage renders the columns of seg as black-on-white with a white margin,
// scaled by scale using nearest-neighbour so the edges stay hard.
func GlyphImage(g *solver.Grid, seg solver.Segment, scale int) image.Image {
	const margin = 2
	w := seg.End - seg.Start + 2*margin
	h := g.Height() + 2*margin
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	for col := seg.Start; col < seg.End; col++ {
		for row := 0; row < g.Height(); row++ {
			if g.Black(col, row) {
				img.SetGray(col-seg.Start+margin, row+margin, color.Gray{})
			}
		}
	}
	if scale <= 1 {
		return img
	}
	return resize.Resize(uint(w*scale), uint(h*scale), img, resize.NearestNeighbor)
}

// Proposals returns signature -> OCR digit for unknown segments whose reading
// is a single digit. 0 is included: the table has no entry for it yet.
// Conflicting readings for the same signature are dropped.
func Proposals(sugs []Suggestion) map[uint64]int {
	out := map[uint64]int{}
	conflict := map[uint64]bool{}
	for _, s := range sugs {
		if s.Known || s.OCRErr != nil || len(s.OCR) != 1 || s.OCR[0] < '0' || s.OCR[0] > '9' {
			continue
		}
		d := int(s.OCR[0] - '0')
		if prev, ok := out[s.Segment.Signature]; ok && prev != d {
			conflict[s.Segment.Signature] = true
		}
		out[s.Segment.Signature] = d
	}
	for sig := range conflict {
		delete(out, sig)
	}
	return out
}

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDFAssembler lays out one raster per page. Every page is WidthMM wide and
// as tall as the raster's aspect ratio requires.
type PDFAssembler struct {
	WidthMM float64

	pdf *gofpdf.Fpdf
	n   int
}

// NewPDFAssembler returns an empty assembler for pages widthMM wide.
func NewPDFAssembler(widthMM float64) *PDFAssembler {
	if widthMM <= 0 {
		widthMM = DefaultPageWidthMM
	}
	return &PDFAssembler{WidthMM: widthMM}
}

// PageHeight returns the page height in millimetres for a raster of size b.
func (a *PDFAssembler) PageHeight(b image.Rectangle) float64 {
	return a.WidthMM * float64(b.Dy()) / float64(b.Dx())
}

// Append adds img as a new page. The first page starts the document.
func (a *PDFAssembler) Append(img image.Image) error {
	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("empty page image")
	}
	w, h := a.WidthMM, a.PageHeight(b)
	size := gofpdf.SizeType{Wd: w, Ht: h}
	if a.pdf == nil {
		a.pdf = gofpdf.NewCustom(&gofpdf.InitType{OrientationStr: "P", UnitStr: "mm", Size: size})
		a.pdf.SetMargins(0, 0, 0)
		a.pdf.SetAutoPageBreak(false, 0)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	a.n++
	name := fmt.Sprintf("page-%d", a.n)
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	a.pdf.AddPageFormat("P", size)
	a.pdf.RegisterImageOptionsReader(name, opt, &buf)
	a.pdf.ImageOptions(name, 0, 0, w, h, false, opt, 0, "")
	return a.pdf.Error()
}

// Pages returns the number of appended pages.
func (a *PDFAssembler) Pages() int { return a.n }

// Finish writes the document to w.
func (a *PDFAssembler) Finish(w io.Writer) error {
	if a.pdf == nil {
		return fmt.Errorf("no pages")
	}
	return a.pdf.Output(w)
}

// Package pdf renders the invoice view into a printable A4 PDF.
package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

const (
	pageMargin  = 15.0
	lineHeight  = 6.0
	logoHeight  = 18.0
	watermarkPt = 72.0
)

// Column widths of the line item table; they add up to the printable width.
var columns = [4]float64{95, 25, 30, 30}

// Exporter prints an InvoiceView with gofpdf's core fonts. Text is translated
// to cp1252; symbols outside that code page degrade to '.'.
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates an Exporter.
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Print writes the PDF for view to w.
func (e *Exporter) Print(w io.Writer, view domain.InvoiceView) error {
	doc := view.Document

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Invoice "+doc.ProjectInfo.InvoiceNumber, true)
	pdf.SetCreator("invoicer", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	stamp := e.watermark(pdf, tr, doc)
	pdf.SetHeaderFunc(stamp)

	pdf.AddPage()
	e.header(pdf, tr, doc)
	e.parties(pdf, tr, doc)
	e.items(pdf, tr, view.Items)
	e.totals(pdf, tr, doc, view.Totals)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (e *Exporter) header(pdf *gofpdf.Fpdf, tr func(string) string, doc domain.Document) {
	top := pdf.GetY()
	if doc.Logo != nil {
		if name, ok := e.registerImage(pdf, "logo", *doc.Logo); ok {
			pdf.ImageOptions(name, pageMargin, top, 0, logoHeight, false, gofpdf.ImageOptions{}, 0, "")
		}
	}

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(pageMargin, top)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, lineHeight, tr("# "+doc.ProjectInfo.InvoiceNumber), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, lineHeight, tr("Issued: "+doc.IssueDate), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, lineHeight, tr("Due: "+doc.DueDate), "", 1, "R", false, 0, "")

	if y := top + logoHeight + 4; pdf.GetY() < y {
		pdf.SetY(y)
	}
	pdf.Ln(4)
}

func (e *Exporter) parties(pdf *gofpdf.Fpdf, tr func(string) string, doc domain.Document) {
	c, p := doc.ClientInfo, doc.ProjectInfo

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, lineHeight, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{c.CompanyName, c.ContactPerson, c.Address, c.Email} {
		if line != "" {
			pdf.MultiCell(0, lineHeight-1, tr(line), "", "L", false)
		}
	}
	pdf.Ln(3)

	if p.ProjectName != "" || p.Description != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, lineHeight, tr(p.ProjectName), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		if p.Description != "" {
			pdf.MultiCell(0, lineHeight-1, tr(p.Description), "", "L", false)
		}
		pdf.Ln(3)
	}
}

func (e *Exporter) items(pdf *gofpdf.Fpdf, tr func(string) string, items []domain.LineItemView) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, title := range []string{"Description", "Qty", "Rate", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(columns[i], 8, title, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range items {
		pdf.CellFormat(columns[0], 7, tr(item.Description), "", 0, "L", false, 0, "")
		pdf.CellFormat(columns[1], 7, strconv.FormatFloat(item.Quantity, 'f', -1, 64), "", 0, "R", false, 0, "")
		pdf.CellFormat(columns[2], 7, tr(item.RateDisplay), "", 0, "R", false, 0, "")
		pdf.CellFormat(columns[3], 7, tr(item.TotalDisplay), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)
}

func (e *Exporter) totals(pdf *gofpdf.Fpdf, tr func(string) string, doc domain.Document, t domain.TotalsView) {
	label := columns[0] + columns[1] + columns[2]
	row := func(name, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(label, 7, tr(name), "", 0, "R", false, 0, "")
		pdf.CellFormat(columns[3], 7, tr(value), "", 1, "R", false, 0, "")
	}

	row("Subtotal", t.SubtotalDisplay, false)
	row(fmt.Sprintf("Tax (%s%%)", strconv.FormatFloat(doc.TaxRate, 'f', -1, 64)), t.TaxDisplay, false)
	if doc.Discount > 0 {
		row("Discount", t.DiscountDisplay, false)
	}
	row("Total", t.GrandDisplay, true)
}

// watermark returns the page header that stamps the text or image watermark
// across the page centre. The image is registered once and drawn on every
// page, including pages added by automatic page breaks.
func (e *Exporter) watermark(pdf *gofpdf.Fpdf, tr func(string) string, doc domain.Document) func() {
	noop := func() {}
	if doc.WatermarkOpacity <= 0 {
		return noop
	}

	var draw func(w, h float64)
	switch doc.WatermarkType {
	case domain.WatermarkImage:
		if doc.WatermarkImage == nil {
			return noop
		}
		name, ok := e.registerImage(pdf, "watermark", *doc.WatermarkImage)
		if !ok {
			return noop
		}
		draw = func(w, h float64) {
			size := w * 0.6
			pdf.ImageOptions(name, w/2-size/2, h/2-size/2, size, 0, false, gofpdf.ImageOptions{}, 0, "")
		}
	default:
		text := tr(doc.WatermarkText)
		if text == "" {
			return noop
		}
		draw = func(w, h float64) {
			cx, cy := w/2, h/2
			pdf.SetFont("Helvetica", "B", watermarkPt)
			pdf.SetTextColor(150, 150, 150)
			tw := pdf.GetStringWidth(text)
			pdf.TransformBegin()
			pdf.TransformRotate(45, cx, cy)
			pdf.Text(cx-tw/2, cy, text)
			pdf.TransformEnd()
			pdf.SetTextColor(0, 0, 0)
		}
	}

	alpha := float64(doc.WatermarkOpacity) / 100
	return func() {
		w, h := pdf.GetPageSize()
		pdf.SetAlpha(alpha, "Normal")
		draw(w, h)
		pdf.SetAlpha(1, "Normal")
	}
}

// registerImage decodes a base64 data URL and registers it under name. Images
// gofpdf cannot embed are skipped.
func (e *Exporter) registerImage(pdf *gofpdf.Fpdf, name, dataURL string) (string, bool) {
	mime, payload, ok := splitDataURL(dataURL)
	if !ok {
		e.logger.Warn("pdf: skipping malformed data URL", zap.String("image", name))
		return "", false
	}

	var kind string
	switch mime {
	case "image/png":
		kind = "PNG"
	case "image/jpeg":
		kind = "JPG"
	case "image/gif":
		kind = "GIF"
	default:
		e.logger.Info("pdf: skipping unsupported image type", zap.String("image", name), zap.String("mime", mime))
		return "", false
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		e.logger.Warn("pdf: skipping undecodable image", zap.String("image", name), zap.Error(err))
		return "", false
	}

	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: kind}, bytes.NewReader(raw))
	if !pdf.Ok() {
		// gofpdf latches the first error; clear it so the rest still renders.
		e.logger.Warn("pdf: image rejected", zap.String("image", name), zap.Error(pdf.Error()))
		pdf.ClearError()
		return "", false
	}
	return name, true
}

func splitDataURL(s string) (mime, payload string, ok bool) {
	rest, found := strings.CutPrefix(s, "data:")
	if !found {
		return "", "", false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mime, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return "", "", false
	}
	return mime, payload, true
}

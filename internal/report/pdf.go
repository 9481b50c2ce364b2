package report

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const qrImageName = "telegram-qr"

// SavePDF renders doc into a PDF file.
func SavePDF(doc Document, out string, lang Language) error {
	pdf, err := buildPDF(doc, NewTranslator(lang))
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(out)
}

// WritePDF renders doc to w.
func WritePDF(w io.Writer, doc Document, lang Language) error {
	pdf, err := buildPDF(doc, NewTranslator(lang))
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

type pdfWriter struct {
	pdf *gofpdf.Fpdf
	tr  Translator
	// enc maps UTF-8 to the code page of the core fonts.
	enc func(string) string
}

func buildPDF(doc Document, tr Translator) (*gofpdf.Fpdf, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	w := &pdfWriter{pdf: pdf, tr: tr, enc: pdf.UnicodeTranslatorFromDescriptor("")}
	title := tr.T("report.title")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("telegramctl", false)
	pdf.SetCreator("telegramctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	if err := w.addQR(doc.Hex); err != nil {
		return nil, err
	}
	w.addTitle(title)
	w.addSummary(doc)
	if doc.Header != nil {
		w.addPacket(tr.T("header.title"), *doc.Header)
	}
	if len(doc.Packets) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, w.enc(tr.T("packets.none")), "", "L", false)
	}
	for i, p := range doc.Packets {
		w.addPacket(tr.Format("packet.title", i+1, p.Name, p.Tag), p)
	}

	if pdf.Err() {
		return nil, pdf.Error()
	}
	return pdf, nil
}

func (w *pdfWriter) addQR(hex string) error {
	png, err := TelegramQR(hex, 256)
	if err != nil {
		return err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	w.pdf.RegisterImageOptionsReader(qrImageName, opts, bytes.NewReader(png))
	pageW, _ := w.pdf.GetPageSize()
	_, _, right, _ := w.pdf.GetMargins()
	w.pdf.ImageOptions(qrImageName, pageW-right-30, 12, 30, 30, false, opts, 0, "")
	return nil
}

func (w *pdfWriter) addTitle(title string) {
	w.pdf.SetFont("Helvetica", "B", 18)
	w.pdf.Cell(140, 10, w.enc(title))
	w.pdf.Ln(14)
}

func (w *pdfWriter) addSummary(doc Document) {
	pdf := w.pdf
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, w.enc(w.tr.T("summary.title")))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: w.tr.T("summary.version"), value: emptyFallback(doc.Version, "-")},
		{label: w.tr.T("summary.catalog"), value: doc.Catalog},
		{label: w.tr.T("summary.bits"), value: strconv.Itoa(doc.Bits)},
		{label: w.tr.T("summary.packets"), value: strconv.Itoa(len(doc.Packets))},
	}
	if doc.Error != "" {
		items = append(items, struct {
			label string
			value string
		}{label: w.tr.T("summary.error"), value: doc.Error})
	}
	for _, item := range items {
		pdf.CellFormat(50, 6, w.enc(item.label), "", 0, "L", false, 0, "")
		pdf.MultiCell(0, 6, w.enc(item.value), "", "L", false)
	}

	pdf.CellFormat(50, 6, w.enc(w.tr.T("summary.hex")), "", 0, "L", false, 0, "")
	pdf.SetFont("Courier", "", 9)
	pdf.MultiCell(0, 5, doc.Hex, "", "L", false)
	pdf.Ln(4)
}

func (w *pdfWriter) addPacket(title string, p PacketDoc) {
	pdf := w.pdf
	pdf.SetFont("Helvetica", "B", 12)
	pdf.MultiCell(0, 7, w.enc(title), "", "L", false)
	if p.Length != nil {
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, w.enc(w.tr.Format("packet.length", *p.Length)), "", "L", false)
	}
	if p.Unknown {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, w.enc(w.tr.T("packet.unknown")), "", "L", false)
	}
	pdf.Ln(1)

	headers := []string{w.tr.T("table.key"), w.tr.T("table.value"), w.tr.T("table.bits"), w.tr.T("table.meaning")}
	widths := []float64{55, 20, 45, 60}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, w.enc(h), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, f := range p.Fields {
		values := []string{
			f.Key,
			strconv.FormatUint(f.Value, 10),
			f.Bits,
			f.Label,
		}
		renderTableRow(pdf, widths, values, 5, w.enc)
	}
	pdf.Ln(4)
}

// renderTableRow encodes each cell with enc before measuring it. The core
// fonts carry widths for single-byte code points only.
func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64, enc func(string) string) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := enc(emptyFallback(strings.TrimSpace(val), "-"))
		var lines []string
		for _, line := range pdf.SplitLines([]byte(text), widths[i]-2) {
			lines = append(lines, string(line))
		}
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if yStart+rowHeight > pageH-bottom {
		pdf.AddPage()
		xStart, yStart = pdf.GetX(), pdf.GetY()
	}
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		pdf.MultiCell(widths[i], lineHeight, strings.Join(lines, "\n"), "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

// Package render lays out an invoice draft as a single-flow letter-size PDF.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/diewo77/invoicer/internal/currency"
	"github.com/diewo77/invoicer/internal/invoice"
	"github.com/diewo77/invoicer/internal/logo"
)

const (
	inch = 72.0

	marginTop    = 0.7 * inch
	marginSide   = inch
	marginBottom = inch

	logoSize = 80.0
)

type rgb struct{ r, g, b int }

var (
	colorText        = rgb{0, 0, 0}
	colorWhite       = rgb{255, 255, 255}
	colorTitle       = rgb{0x1E, 0x3A, 0x8A}
	colorLabel       = rgb{0x37, 0x41, 0x51}
	colorMuted       = rgb{0x6B, 0x72, 0x80}
	colorGrid        = rgb{211, 211, 211}
	colorHeaderFill  = rgb{0x3B, 0x82, 0xF6}
	colorSummaryFill = rgb{0xF3, 0xF4, 0xF6}
)

// Renderer turns drafts into PDF bytes. It holds no per-invoice state and is
// safe for concurrent use.
type Renderer struct {
	currencies currency.Registry
	created    time.Time
	compress   bool
	creator    string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithCreationDate pins the document creation date, making output reproducible.
func WithCreationDate(t time.Time) Option {
	return func(r *Renderer) { r.created = t }
}

// WithCompression toggles content stream compression (on by default).
func WithCompression(on bool) Option {
	return func(r *Renderer) { r.compress = on }
}

// WithCurrencies replaces the currency registry.
func WithCurrencies(reg currency.Registry) Option {
	return func(r *Renderer) { r.currencies = reg }
}

// New returns a Renderer using the default currency registry.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		currencies: currency.Default,
		compress:   true,
		creator:    "invoicer",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces the PDF for d. logoData may be nil; when present it must be
// a decodable image or Render fails with an invalid-asset error.
func (r *Renderer) Render(d invoice.Draft, logoData []byte) ([]byte, error) {
	cur, err := r.currencies.Lookup(d.Currency)
	if err != nil {
		return nil, err
	}
	totals, err := d.Totals()
	if err != nil {
		return nil, err
	}
	var logoPNG []byte
	if len(logoData) > 0 {
		if logoPNG, err = logo.Normalize(logoData); err != nil {
			return nil, err
		}
	}

	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.SetCompression(r.compress)
	pdf.SetCatalogSort(true)
	if !r.created.IsZero() {
		pdf.SetCreationDate(r.created)
	}
	pdf.SetTitle("Invoice "+d.Number, true)
	pdf.SetAuthor(d.Sender.Name, true)
	pdf.SetCreator(r.creator, true)
	pdf.AddPage()

	doc := &document{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
		cur: cur,
	}
	doc.header(d.Number, logoPNG)
	doc.parties(d.Sender, d.Client)
	doc.metadata(d)
	doc.items(d, totals)
	doc.notes(d.Notes)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", d.Number, err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", d.Number, err)
	}
	return buf.Bytes(), nil
}

// document draws one invoice onto a gofpdf page flow.
type document struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
	cur currency.Currency
}

type line struct {
	text string
	bold bool
}

func (doc *document) font(style string, size float64, c rgb) {
	doc.pdf.SetFont("Helvetica", style, size)
	doc.pdf.SetTextColor(c.r, c.g, c.b)
}

func (doc *document) contentWidth() float64 {
	w, _ := doc.pdf.GetPageSize()
	return w - 2*marginSide
}

// ensure starts a new page when a block of height h would cross the bottom margin.
func (doc *document) ensure(h float64) {
	_, pageH := doc.pdf.GetPageSize()
	if doc.pdf.GetY()+h > pageH-marginBottom {
		doc.pdf.AddPage()
	}
}

func (doc *document) header(number string, logoPNG []byte) {
	p := doc.pdf
	y := p.GetY()
	title := doc.tr("#" + number)
	if logoPNG != nil {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		p.RegisterImageOptionsReader("logo", opts, bytes.NewReader(logoPNG))
		p.ImageOptions("logo", marginSide, y, logoSize, logoSize, false, opts, 0, "")

		x := marginSide + 1.5*inch
		p.SetXY(x, y+(logoSize-44)/2)
		doc.font("B", 24, colorTitle)
		p.CellFormat(4.5*inch, 28, "INVOICE", "", 2, "L", false, 0, "")
		p.SetX(x)
		doc.font("B", 12, colorText)
		p.CellFormat(4.5*inch, 16, title, "", 0, "L", false, 0, "")
		p.SetXY(marginSide, y+logoSize)
	} else {
		p.SetXY(marginSide, y)
		doc.font("B", 24, colorTitle)
		p.CellFormat(4*inch, 30, "INVOICE", "", 0, "LM", false, 0, "")
		doc.font("B", 12, colorText)
		p.CellFormat(doc.contentWidth()-4*inch, 30, title, "", 1, "RM", false, 0, "")
	}
	p.Ln(30)
}

func partyLines(heading string, party invoice.Party) []line {
	lines := []line{{text: heading, bold: true}}
	for _, s := range []string{party.Name, party.Email} {
		if strings.TrimSpace(s) != "" {
			lines = append(lines, line{text: s})
		}
	}
	if party.Address != "" {
		for _, s := range splitLines(party.Address) {
			lines = append(lines, line{text: s})
		}
	}
	return lines
}

// wrap breaks each line to fit width, keeping explicit line boundaries.
func (doc *document) wrap(lines []line, width float64) []line {
	out := make([]line, 0, len(lines))
	for _, ln := range lines {
		style := ""
		if ln.bold {
			style = "B"
		}
		doc.pdf.SetFont("Helvetica", style, 10)
		parts := doc.pdf.SplitLines([]byte(doc.tr(ln.text)), width)
		if len(parts) == 0 {
			out = append(out, line{bold: ln.bold})
			continue
		}
		for _, part := range parts {
			out = append(out, line{text: string(part), bold: ln.bold})
		}
	}
	return out
}

func (doc *document) parties(from, to invoice.Party) {
	const (
		colW = 2.8 * inch
		pad  = 10.0
		lh   = 13.0
	)
	p := doc.pdf
	p.SetCellMargin(0)
	left := doc.wrap(partyLines("From:", from), colW-2*pad)
	right := doc.wrap(partyLines("Bill To:", to), colW-2*pad)
	rows := len(left)
	if len(right) > rows {
		rows = len(right)
	}
	h := float64(rows)*lh + 2*pad
	doc.ensure(h)

	y := p.GetY()
	p.SetDrawColor(colorGrid.r, colorGrid.g, colorGrid.b)
	p.SetLineWidth(1)
	p.Rect(marginSide, y, 2*colW, h, "D")
	for col, lines := range [][]line{left, right} {
		x := marginSide + float64(col)*colW + pad
		for i, ln := range lines {
			style := ""
			if ln.bold {
				style = "B"
			}
			doc.font(style, 10, colorText)
			p.SetXY(x, y+pad+float64(i)*lh)
			p.CellFormat(colW-2*pad, lh, ln.text, "", 0, "L", false, 0, "")
		}
	}
	p.SetXY(marginSide, y+h)
	p.Ln(20)
}

func (doc *document) metadata(d invoice.Draft) {
	const (
		labelW = 1.5 * inch
		valueW = 4 * inch
		rowH   = 16.0
	)
	p := doc.pdf
	rows := [][2]string{
		{"Invoice Date", d.InvoiceDate.Format("2006-01-02")},
		{"Due Date", d.DueDate.Format("2006-01-02")},
		{"Invoice #", d.Number},
		{"Currency", doc.cur.Label()},
	}
	p.SetCellMargin(0)
	doc.ensure(rowH * float64(len(rows)))
	for _, row := range rows {
		doc.font("B", 10, colorLabel)
		p.CellFormat(labelW, rowH, row[0], "", 0, "L", false, 0, "")
		doc.font("", 10, colorText)
		p.CellFormat(valueW, rowH, doc.tr(row[1]), "", 1, "L", false, 0, "")
	}
	p.Ln(30)
}

// cell is one table cell: text lines plus styling.
type cell struct {
	lines []string
	align string
	bold  bool
	fill  *rgb
	color rgb
}

var itemColumns = [4]float64{3.2 * inch, 0.7 * inch, 1 * inch, 1 * inch}

const (
	tablePad = 6.0
	tableLH  = 12.0
)

// row draws one table row whose height fits its tallest cell.
func (doc *document) row(cells [4]cell) {
	p := doc.pdf
	n := 1
	for _, c := range cells {
		if len(c.lines) > n {
			n = len(c.lines)
		}
	}
	h := float64(n)*tableLH + 2*tablePad
	doc.ensure(h)

	x, y := marginSide, p.GetY()
	p.SetDrawColor(colorGrid.r, colorGrid.g, colorGrid.b)
	p.SetLineWidth(1)
	for i, c := range cells {
		w := itemColumns[i]
		style := "D"
		if c.fill != nil {
			p.SetFillColor(c.fill.r, c.fill.g, c.fill.b)
			style = "FD"
		}
		p.Rect(x, y, w, h, style)
		fontStyle := ""
		if c.bold {
			fontStyle = "B"
		}
		doc.font(fontStyle, 10, c.color)
		for j, text := range c.lines {
			p.SetXY(x, y+tablePad+float64(j)*tableLH)
			p.CellFormat(w, tableLH, text, "", 0, c.align, false, 0, "")
		}
		x += w
	}
	p.SetXY(marginSide, y+h)
}

func (doc *document) items(d invoice.Draft, totals invoice.Totals) {
	p := doc.pdf
	p.SetCellMargin(tablePad)

	headerFill := colorHeaderFill
	head := func(text, align string) cell {
		return cell{lines: []string{text}, align: align, bold: true, fill: &headerFill, color: colorWhite}
	}
	doc.row([4]cell{head("Description", "L"), head("Qty", "R"), head("Rate", "R"), head("Amount", "R")})

	for _, it := range d.Billable() {
		p.SetFont("Helvetica", "", 10)
		var desc []string
		for _, part := range p.SplitLines([]byte(doc.tr(it.Description)), itemColumns[0]-2*tablePad) {
			desc = append(desc, string(part))
		}
		if len(desc) == 0 {
			desc = []string{doc.tr(it.Description)}
		}
		doc.row([4]cell{
			{lines: desc, align: "L", color: colorText},
			{lines: []string{fmt.Sprintf("%d", it.Quantity)}, align: "R", color: colorText},
			{lines: []string{doc.tr(doc.cur.Format(it.Rate))}, align: "R", color: colorText},
			{lines: []string{doc.tr(doc.cur.Format(it.Amount()))}, align: "R", color: colorText},
		})
	}

	summaryFill := colorSummaryFill
	summary := func(label, value string, bold bool) {
		doc.row([4]cell{
			{align: "L", color: colorText},
			{align: "R", color: colorText},
			{lines: []string{label}, align: "R", bold: bold, fill: &summaryFill, color: colorText},
			{lines: []string{doc.tr(value)}, align: "R", bold: bold, fill: &summaryFill, color: colorText},
		})
	}
	summary("Subtotal", doc.cur.Format(totals.Subtotal), false)
	summary(fmt.Sprintf("Tax (%d%%)", d.TaxRate), doc.cur.Format(totals.Tax), false)
	summary("Total", doc.cur.Format(totals.Total), true)

	p.SetCellMargin(0)
	p.Ln(30)
}

func (doc *document) notes(notes string) {
	if strings.TrimSpace(notes) == "" {
		return
	}
	p := doc.pdf
	doc.ensure(40)
	doc.font("B", 10, colorText)
	p.CellFormat(0, 14, "Notes", "", 1, "L", false, 0, "")
	p.Ln(5)
	doc.font("", 10, colorMuted)
	p.MultiCell(0, 13, doc.tr(strings.Join(splitLines(notes), "\n")), "", "L", false)
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

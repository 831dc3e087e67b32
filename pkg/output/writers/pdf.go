package writers

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	gofpdf "github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*PDFWriter)(nil)

// PDFConfig configures the PDF writer.
type PDFConfig struct {
	// Title overrides the document title.
	Title string

	// Author is recorded in the document metadata.
	Author string

	// Now stamps the report. Defaults to time.Now.
	Now func() time.Time
}

// pdfCategoryColors colors finding rows by category.
var pdfCategoryColors = map[inputvalidation.Category][]int{
	inputvalidation.CategoryXSS:          {220, 38, 38},
	inputvalidation.CategorySQLi:         {234, 88, 12},
	inputvalidation.CategorySpecialChars: {202, 138, 4},
}

// PDFWriter renders the finished run as a PDF document on Close.
type PDFWriter struct {
	w          io.Writer
	mu         sync.Mutex
	config     PDFConfig
	noCompress bool
	runCollector
}

// NewPDFWriter creates a PDF writer.
func NewPDFWriter(w io.Writer, config PDFConfig) *PDFWriter {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Title == "" {
		config.Title = "Security Test Report"
	}
	if config.Author == "" {
		config.Author = defaults.ToolName
	}
	return &PDFWriter{w: w, config: config}
}

// Write keeps the results of the run.
func (pw *PDFWriter) Write(event events.Event) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.collect(event)
	return nil
}

// Flush is a no-op; the document is rendered on Close.
func (pw *PDFWriter) Flush() error {
	return nil
}

// SupportsEvent returns true for results events.
func (pw *PDFWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType == events.EventTypeResults
}

// Close renders the document. Nothing is written if no run finished.
func (pw *PDFWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.run != nil {
		pdf := pw.render(newReportData(pw.run, pw.config.Now()))
		if err := pdf.Output(pw.w); err != nil {
			return fmt.Errorf("pdf: %w", err)
		}
	}
	if closer, ok := pw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (pw *PDFWriter) render(d *reportData) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(!pw.noCompress)
	pdf.SetCreationDate(d.Generated)
	pdf.SetModificationDate(d.Generated)
	pdf.SetTitle(pw.config.Title, true)
	pdf.SetAuthor(pw.config.Author, true)
	pdf.SetCreator(defaults.ToolName+" "+defaults.Version, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("{nb}")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(pdfSafe(s)) }

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pw.addTitle(pdf, d, text)
	pw.addSummary(pdf, d)
	pw.addVulnerable(pdf, d, text)
	pw.addSafe(pdf, d, text)
	pw.addRecommendations(pdf, d)
	return pdf
}

func (pw *PDFWriter) addTitle(pdf *gofpdf.Fpdf, d *reportData, text func(string) string) {
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 12, text(pw.config.Title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	meta := [][2]string{
		{"URL Tested", d.URL},
		{"Generated", d.Generated.Format(time.RFC1123)},
		{"Run ID", d.RunID},
		{"Duration", d.Duration.Round(time.Millisecond).String()},
		{"Payload Catalog", d.CatalogVersion},
		{"Categories", strings.Join(d.Categories, ", ")},
	}
	for _, m := range meta {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(35, 6, m[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, text(m[1]), "", "L", false)
	}
	pdf.Ln(4)
}

func (pw *PDFWriter) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, title, "B", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (pw *PDFWriter) addSummary(pdf *gofpdf.Fpdf, d *reportData) {
	pw.addSectionHeader(pdf, "Summary")

	rows := [][2]string{
		{"Total Fields Tested", fmt.Sprint(d.Summary.TotalFields)},
		{"Vulnerable Fields", fmt.Sprint(d.Summary.VulnerableFields)},
		{"Safe Fields", fmt.Sprint(d.Summary.SafeFields)},
		{"Total Findings", fmt.Sprint(d.Summary.TotalFindings)},
		{"Failed Probes", fmt.Sprint(d.Summary.FailedProbes)},
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.SetFillColor(241, 245, 249)
	for i, r := range rows {
		fill := i%2 == 0
		pdf.CellFormat(70, 7, r[0], "1", 0, "L", fill, 0, "")
		pdf.CellFormat(30, 7, r[1], "1", 1, "C", fill, 0, "")
	}
	pdf.Ln(6)
}

func (pw *PDFWriter) addVulnerable(pdf *gofpdf.Fpdf, d *reportData, text func(string) string) {
	pw.addSectionHeader(pdf, "Vulnerable Fields")
	if len(d.Vulnerable) == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(80, 80, 80)
		pdf.CellFormat(0, 7, "No vulnerable fields found.", "", 1, "L", false, 0, "")
		pdf.Ln(4)
		return
	}

	titleCase := cases.Title(language.English)
	for _, f := range d.Vulnerable {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(30, 41, 59)
		header := fmt.Sprintf("%s (%s): %d vulnerabilities", f.FieldName, f.FieldType, len(f.Vulnerabilities))
		pdf.CellFormat(0, 8, text(header), "", 1, "L", false, 0, "")

		for _, v := range f.Vulnerabilities {
			c := pdfCategoryColors[v.Category]
			if c == nil {
				c = []int{128, 128, 128}
			}
			pdf.SetFont("Helvetica", "B", 9)
			pdf.SetTextColor(c[0], c[1], c[2])
			pdf.CellFormat(0, 6, text(v.Type), "", 1, "L", false, 0, "")

			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(60, 60, 60)
			info := v.AdditionalInfo
			if info == "" {
				info = "Not provided"
			}
			lines := []string{
				"Description: " + v.Description,
				"Additional Info: " + info,
				fmt.Sprintf("Validation: input type %s, pattern %s, length limit %s",
					titleCase.String(v.ValidationInfo.InputType),
					tmplYesNo(v.ValidationInfo.HasPattern),
					tmplYesNo(v.ValidationInfo.HasLengthLimit)),
			}
			for _, l := range lines {
				pdf.MultiCell(0, 5, text(l), "", "L", false)
			}
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(241, 245, 249)
			pdf.MultiCell(0, 5, text(v.Payload), "", "L", true)
			pdf.Ln(2)
		}
		pdf.Ln(3)
	}
}

func (pw *PDFWriter) addSafe(pdf *gofpdf.Fpdf, d *reportData, text func(string) string) {
	pw.addSectionHeader(pdf, "Safe Fields")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(22, 163, 74)
	if len(d.Safe) == 0 {
		pdf.SetTextColor(80, 80, 80)
		pdf.CellFormat(0, 7, "No safe fields.", "", 1, "L", false, 0, "")
	}
	for _, f := range d.Safe {
		pdf.CellFormat(0, 6, text(fmt.Sprintf("%s (%s)", f.FieldName, f.FieldType)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (pw *PDFWriter) addRecommendations(pdf *gofpdf.Fpdf, d *reportData) {
	pw.addSectionHeader(pdf, "Recommendations")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(60, 60, 60)
	for i, r := range d.Recommendations {
		pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s", i+1, r), "", "L", false)
	}
}

// pdfSafe escapes what the core fonts cannot show: control characters and
// runes beyond Latin-1. Payloads are shown verbatim otherwise.
func pdfSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case unicode.IsControl(r):
			fmt.Fprintf(&b, `\x%02x`, r)
		case r > 0xff:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

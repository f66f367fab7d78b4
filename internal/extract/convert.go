package extract

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	xhtml "golang.org/x/net/html"
)

// Convert turns a raw blob into plain text according to its category.
func Convert(data []byte, format string, category models.FileCategory) (string, error) {
	switch category {
	case models.CategoryText:
		return convertText(data, format)
	case models.CategoryMultimedia:
		return convertMultimedia(format), nil
	case models.CategoryStructured:
		return convertStructured(data, format)
	default:
		return "", fmt.Errorf("unknown category: %s", category)
	}
}

func convertText(data []byte, format string) (string, error) {
	switch format {
	case "txt", "md", "markdown":
		return string(data), nil
	case "html", "htm":
		return stripHTML(data), nil
	case "pdf":
		return pdfText(data)
	case "docx":
		return docxText(data)
	default:
		// rtf, epub, tex, doc, odt: a dedicated converter is not wired up,
		// so surface the raw bytes with a notice instead of failing the file.
		notice := fmt.Sprintf("[%s extraction not fully implemented; raw content follows]\n\n", format)
		return notice + string(data), nil
	}
}

func convertMultimedia(format string) string {
	return fmt.Sprintf("[multimedia file (%s): transcription and vision analysis are not yet available; "+
		"the file was stored but no text content could be extracted]", format)
}

func convertStructured(data []byte, format string) (string, error) {
	switch format {
	case "csv":
		return delimitedTable(data, ',')
	case "tsv":
		return delimitedTable(data, '\t')
	case "xlsx", "xls":
		return spreadsheetText(data)
	case "json":
		return prettyJSON(data)
	case "yaml", "yml", "xml":
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown structured format: %s", format)
	}
}

// stripHTML reduces an HTML document to its text content. Script and style
// bodies are skipped; block boundaries become newlines.
func stripHTML(data []byte) string {
	tokenizer := xhtml.NewTokenizer(bytes.NewReader(data))
	var b strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case xhtml.ErrorToken:
			return strings.TrimSpace(b.String())
		case xhtml.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteByte('\n')
			}
		case xhtml.EndTagToken:
			name, _ := tokenizer.TagName()
			if n := string(name); (n == "script" || n == "style") && skip > 0 {
				skip--
			}
		case xhtml.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

// pdfText extracts text page by page.
func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			fmt.Fprintf(&b, "\n[page %d could not be extracted]\n", i)
			continue
		}
		if i > 1 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// docxText pulls the raw text out of word/document.xml. DOCX is a zip of
// XML; decoding character data in document order yields the document text.
func docxText(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var doc io.ReadCloser
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("open document.xml: %w", err)
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx has no word/document.xml")
	}
	defer doc.Close()

	decoder := xml.NewDecoder(doc)
	var b strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// delimitedTable renders CSV/TSV content as an aligned text table.
func delimitedTable(data []byte, delimiter rune) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1 // tolerate ragged rows
	rows, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse delimited data: %w", err)
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// spreadsheetText converts a workbook sheet by sheet to tab-delimited text.
func spreadsheetText(data []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	var b strings.Builder
	for i, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "=== %s ===\n", sheet)
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func prettyJSON(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}
	return buf.String(), nil
}

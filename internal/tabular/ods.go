package tabular

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	nsOffice = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsTable  = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	nsText   = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"

	odsContentFile = "content.xml"

	// MaxODSCells bounds rows x columns of a decoded sheet, counted after
	// repeated rows and columns are expanded
	MaxODSCells = 5_000_000
)

// ErrSheetTooLarge is returned when a sheet expands beyond MaxODSCells
var ErrSheetTooLarge = errors.New("sheet too large")

// DecodeODS reads the named sheet of an OpenDocument spreadsheet.
// Repeated rows and columns are expanded, covered (merged) cells are empty,
// and trailing empty rows and cells are dropped.
func DecodeODS(data []byte, sheet string) (*Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open ods document: %w", err)
	}

	content, err := zr.Open(odsContentFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open ods %s: %w", odsContentFile, err)
	}
	defer func() {
		_ = content.Close()
	}()

	p := &odsParser{dec: xml.NewDecoder(content), sheet: sheet}
	return p.parse()
}

type odsParser struct {
	dec   *xml.Decoder
	sheet string

	sheets []string
	table  *Table

	// pendingRows holds empty rows not yet known to be followed by data
	pendingRows int
	row         []string
	// pendingCells holds empty cells not yet known to be followed by data
	pendingCells int
	// width is the longest row added so far
	width int
}

func (p *odsParser) parse() (*Table, error) {
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse ods content: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Space != nsTable || start.Name.Local != "table" {
			continue
		}
		name := attr(start, nsTable, "name")
		p.sheets = append(p.sheets, name)
		if name != p.sheet {
			if err := p.dec.Skip(); err != nil {
				return nil, fmt.Errorf("failed to parse ods content: %w", err)
			}
			continue
		}
		p.table = &Table{}
		if err := p.parseTable(); err != nil {
			return nil, fmt.Errorf("failed to parse sheet %q: %w", p.sheet, err)
		}
		return p.table, nil
	}

	return nil, fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, p.sheet, strings.Join(p.sheets, ", "))
}

// parseTable consumes tokens up to the end of the current table:table element
func (p *odsParser) parseTable() error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != nsTable {
				if err := p.dec.Skip(); err != nil {
					return err
				}
				continue
			}
			switch t.Name.Local {
			case "table-row":
				if err := p.parseRow(repeat(t, "number-rows-repeated")); err != nil {
					return err
				}
			case "table-header-rows", "table-rows", "table-row-group":
				// rows nested in groups are read by the next iterations
			default:
				if err := p.dec.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Space == nsTable && t.Name.Local == "table" {
				return nil
			}
		}
	}
}

func (p *odsParser) parseRow(times int) error {
	p.row = nil
	p.pendingCells = 0

	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == nsTable && (t.Name.Local == "table-cell" || t.Name.Local == "covered-table-cell") {
				value, err := p.cellValue(t)
				if err != nil {
					return err
				}
				if err := p.addCell(value, repeat(t, "number-columns-repeated")); err != nil {
					return err
				}
				continue
			}
			if err := p.dec.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Space == nsTable && t.Name.Local == "table-row" {
				return p.addRow(times)
			}
		}
	}
}

func checkODSSize(rows, width int) error {
	if width > 0 && rows > MaxODSCells/width {
		return fmt.Errorf("%w: %d rows x %d columns exceeds %d cells", ErrSheetTooLarge, rows, width, MaxODSCells)
	}
	return nil
}

func (p *odsParser) addCell(value string, times int) error {
	if value == "" {
		p.pendingCells += times
		return nil
	}
	width := len(p.row) + p.pendingCells + times
	if err := checkODSSize(len(p.table.Rows)+p.pendingRows+1, max(width, p.width)); err != nil {
		return err
	}
	for range p.pendingCells {
		p.row = append(p.row, "")
	}
	p.pendingCells = 0
	for range times {
		p.row = append(p.row, value)
	}
	return nil
}

func (p *odsParser) addRow(times int) error {
	if len(p.row) == 0 {
		p.pendingRows += times
		return nil
	}
	width := max(p.width, len(p.row))
	if err := checkODSSize(len(p.table.Rows)+p.pendingRows+times, width); err != nil {
		return err
	}
	p.width = width
	for range p.pendingRows {
		p.table.Rows = append(p.table.Rows, []string{})
	}
	p.pendingRows = 0
	for range times {
		p.table.Rows = append(p.table.Rows, append([]string(nil), p.row...))
	}
	return nil
}

// cellValue returns the displayed text of a cell, falling back to the typed
// office value when the cell has no text paragraphs.
func (p *odsParser) cellValue(start xml.StartElement) (string, error) {
	var paragraphs []string
	var sb strings.Builder
	depth := 0

	for {
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == nsOffice && t.Name.Local == "annotation" {
				if err := p.dec.Skip(); err != nil {
					return "", err
				}
				continue
			}
			depth++
			if t.Name.Space != nsText {
				continue
			}
			switch t.Name.Local {
			case "p", "h":
				sb.Reset()
			case "s":
				n := 1
				if c := attr(t, nsText, "c"); c != "" {
					if v, err := strconv.Atoi(c); err == nil && v > 0 {
						n = v
					}
				}
				sb.WriteString(strings.Repeat(" ", n))
			case "tab":
				sb.WriteByte('\t')
			case "line-break":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if depth > 0 {
				sb.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				text := strings.Join(paragraphs, "\n")
				if text == "" {
					text = typedValue(start)
				}
				return text, nil
			}
			depth--
			if t.Name.Space == nsText && (t.Name.Local == "p" || t.Name.Local == "h") {
				paragraphs = append(paragraphs, sb.String())
				sb.Reset()
			}
		}
	}
}

func typedValue(start xml.StartElement) string {
	switch attr(start, nsOffice, "value-type") {
	case "float", "percentage", "currency":
		return attr(start, nsOffice, "value")
	case "date":
		return attr(start, nsOffice, "date-value")
	case "time":
		return attr(start, nsOffice, "time-value")
	case "boolean":
		return attr(start, nsOffice, "boolean-value")
	case "string":
		return attr(start, nsOffice, "string-value")
	default:
		return ""
	}
}

// repeat reads a repetition count, clamped so sums of counts cannot overflow
func repeat(start xml.StartElement, local string) int {
	n, err := strconv.Atoi(attr(start, nsTable, local))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, MaxODSCells+1)
}

func attr(start xml.StartElement, space, local string) string {
	for _, a := range start.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

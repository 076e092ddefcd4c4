// Package helpers provides fixtures and servers for the integration tests.
package helpers

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"

	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

// Sheet is a named worksheet with its rows
type Sheet struct {
	Name string
	Rows [][]any
}

// BuildXLSX creates a workbook holding the given sheets in order
func BuildXLSX(sheets ...Sheet) []byte {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, sheet := range sheets {
		if i == 0 {
			Expect(f.SetSheetName("Sheet1", sheet.Name)).To(Succeed())
		} else {
			_, err := f.NewSheet(sheet.Name)
			Expect(err).NotTo(HaveOccurred())
		}
		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.SetSheetRow(sheet.Name, cell, &row)).To(Succeed())
		}
	}

	buf, err := f.WriteToBuffer()
	Expect(err).NotTo(HaveOccurred())
	return buf.Bytes()
}

// Member is a file stored in a ZIP archive
type Member struct {
	Name string
	Data []byte
}

// BuildZIP creates an archive with the given members in order
func BuildZIP(members ...Member) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.Create(m.Name)
		Expect(err).NotTo(HaveOccurred())
		_, err = w.Write(m.Data)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(zw.Close()).To(Succeed())
	return buf.Bytes()
}

// BuildODS creates an ODS package with one table per sheet. Every cell is a string.
func BuildODS(sheets ...Sheet) []byte {
	var body bytes.Buffer
	for _, sheet := range sheets {
		body.WriteString(`<table:table table:name="` + html.EscapeString(sheet.Name) + `">`)
		for _, row := range sheet.Rows {
			body.WriteString(`<table:table-row>`)
			for _, cell := range row {
				body.WriteString(`<table:table-cell office:value-type="string"><text:p>`)
				body.WriteString(html.EscapeString(toString(cell)))
				body.WriteString(`</text:p></table:table-cell>`)
			}
			body.WriteString(`</table:table-row>`)
		}
		body.WriteString(`</table:table>`)
	}

	content := `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content
  xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"
  office:version="1.2">
<office:body><office:spreadsheet>` + body.String() + `</office:spreadsheet></office:body>
</office:document-content>`

	return BuildZIP(
		Member{Name: "mimetype", Data: []byte("application/vnd.oasis.opendocument.spreadsheet")},
		Member{Name: "content.xml", Data: []byte(content)},
	)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

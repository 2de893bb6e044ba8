package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadpilot/internal/model"
)

const sheetName = "Leads"

// WriteXLSX writes a single-sheet workbook with a bold header row.
func WriteXLSX(w io.Writer, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	style := xlsx.NewStyle()
	style.Font.Bold = true
	style.ApplyFont = true
	for _, h := range Headers {
		cell := header.AddCell()
		cell.SetString(h)
		cell.SetStyle(style)
	}

	for _, l := range leads {
		r := sheet.AddRow()
		for _, v := range row(l) {
			r.AddCell().SetString(v)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write")
	}
	return nil
}

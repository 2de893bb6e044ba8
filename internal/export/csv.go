package export

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadpilot/internal/model"
)

// utf8BOM makes Excel detect UTF-8 so Turkish characters render.
const utf8BOM = "\uFEFF"

// WriteCSV writes a BOM-prefixed, semicolon-separated CSV with a header row.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return eris.Wrap(err, "export: write bom")
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(Headers); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, l := range leads {
		if err := cw.Write(row(l)); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", l.ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// Package export renders the lead collection as spreadsheet files.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadpilot/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a user-supplied format name to a Format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("export: unsupported format %q", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the download name for an export taken at t.
func Filename(f Format, t time.Time) string {
	return fmt.Sprintf("leadpilot_leads_%s.%s", t.Format("2006-01-02"), f)
}

// Write renders leads to w in format f.
func Write(w io.Writer, f Format, leads []model.Lead) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, leads)
	case FormatCSV:
		return WriteCSV(w, leads)
	default:
		return eris.Errorf("export: unsupported format %q", f)
	}
}

// Headers are the column titles, matching the Turkish spreadsheet layout the
// sales team imports.
var Headers = []string{
	"Firma Adı", "Web Sitesi", "E-Posta", "Telefon", "Sektör", "Konum",
	"LinkedIn", "Instagram", "Twitter", "Buzkıran", "E-Posta Başlığı", "E-Posta Taslağı",
}

// paragraphMarker replaces line breaks in the email draft so each lead stays
// on one spreadsheet row.
const paragraphMarker = " [PARAGRAF] "

func row(l model.Lead) []string {
	draft := strings.ReplaceAll(l.EmailDraft, "\r\n", "\n")
	draft = strings.ReplaceAll(draft, "\n", paragraphMarker)
	return []string{
		l.Name,
		l.Website,
		l.Email,
		l.Phone,
		l.Industry,
		l.Location,
		l.LinkedIn,
		l.Instagram,
		l.Twitter,
		l.Icebreaker,
		l.EmailSubject,
		draft,
	}
}

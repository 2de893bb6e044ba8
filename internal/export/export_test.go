package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadpilot/internal/model"
)

func sampleLeads() []model.Lead {
	return []model.Lead{
		{
			ID:           "a",
			Name:         "Şahin Yazılım",
			Website:      "https://sahin.com.tr",
			Email:        "info@sahin.com.tr",
			Phone:        "+90 212 555 12 34",
			Industry:     "Software / IT",
			Location:     "İstanbul",
			EmailSubject: "Merhaba",
			EmailDraft:   "Line one\nLine \"two\"; with semicolon",
		},
		{ID: "b", Name: "Beta", Email: model.PlaceholderEmail, Phone: model.PlaceholderPhone},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.ErrorContains(t, err, `unsupported format "pdf"`)
}

func TestFilename(t *testing.T) {
	ts := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "leadpilot_leads_2026-03-09.xlsx", Filename(FormatXLSX, ts))
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleLeads()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, utf8BOM))

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, utf8BOM)))
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Headers, records[0])
	assert.Equal(t, "Şahin Yazılım", records[1][0])
	assert.Equal(t, "Line one [PARAGRAF] Line \"two\"; with semicolon", records[1][11])
	assert.Equal(t, model.PlaceholderEmail, records[2][2])
}

func TestWriteCSV_EmptyHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleLeads()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet[sheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Firma Adı", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "info@sahin.com.tr", sheet.Rows[1].Cells[2].String())
	assert.Equal(t, "Line one [PARAGRAF] Line \"two\"; with semicolon", sheet.Rows[1].Cells[11].String())
}

package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterDataset() Dataset {
	return Dataset{
		Headers: []string{"student_id", "name", "phone"},
		Rows: []map[string]string{
			{"student_id": "A12345", "name": "Kim, Minji", "phone": "010-1234-5678"},
			{"student_id": "B54321", "name": "Lee Jun"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(rosterDataset())
	require.NoError(t, err)
	assert.Equal(t, "student_id,name,phone\nA12345,\"Kim, Minji\",010-1234-5678\nB54321,Lee Jun,\n", string(out))
}

func TestCSVExporterBOMAndFormulaCells(t *testing.T) {
	data := Dataset{
		Headers: []string{"name", "note"},
		Rows:    []map[string]string{{"name": "=HYPERLINK(\"x\")", "note": "@cmd"}, {"name": "정민", "note": "010-1234-5678"}},
	}
	out, err := NewCSVExporter(WithBOM()).Render(data)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte(utf8BOM)))
	body := string(out[len(utf8BOM):])
	assert.Equal(t, "name,note\n\"'=HYPERLINK(\"\"x\"\")\",'@cmd\n정민,010-1234-5678\n", body)
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(rosterDataset(), "CS101 roster")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		raw     string
		want    Format
		wantErr bool
	}{
		{raw: "", want: FormatCSV},
		{raw: "CSV", want: FormatCSV},
		{raw: " pdf ", want: FormatPDF},
		{raw: "xlsx", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseFormat(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got)
	}
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "roster.csv", FormatCSV.Filename("roster"))
}

func TestRenderDispatch(t *testing.T) {
	out, err := Render(FormatCSV, rosterDataset(), "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte(utf8BOM)))
	assert.Contains(t, string(out), "A12345")

	_, err = Render(Format("xml"), rosterDataset(), "")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd~", truncate("abcdefgh", 5))
}

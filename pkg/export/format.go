package export

import (
	"fmt"
	"strings"
)

// Format is a supported export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts csv or pdf in any case; empty means csv.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Filename builds a download name with the right extension.
func (f Format) Filename(base string) string {
	return base + "." + string(f)
}

// Render encodes data in format f.
func Render(f Format, data Dataset, title string) ([]byte, error) {
	switch f {
	case FormatCSV:
		return NewCSVExporter(WithBOM()).Render(data)
	case FormatPDF:
		return NewPDFExporter().Render(data, title)
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

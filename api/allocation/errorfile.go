package allocation

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ArtifactStore is the narrow storage surface the pipeline needs for
// generated error reports. The object-storage mechanics live outside the
// core.
type ArtifactStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BuildErrorReport renders the error rows into a downloadable workbook.
// Column order mirrors the template's expanded headers; a trailing Errors
// column carries the accumulated reasons per row.
func BuildErrorReport(tmpl *Template, errorRows []ErrorRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := append(tmpl.ExpandedHeaders(), "Errors")
	headerCells := make([]interface{}, len(headers))
	for i, h := range headers {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
		return nil, fmt.Errorf("error report header write failed: %w", err)
	}

	width := len(headers) - 1
	for i, er := range errorRows {
		cells := make([]interface{}, 0, len(headers))
		for j := 0; j < width; j++ {
			if j < len(er.Row.Raw) {
				cells = append(cells, er.Row.Raw[j])
			} else {
				cells = append(cells, "")
			}
		}
		cells = append(cells, strings.Join(er.Reasons, "; "))
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("error report cell address failed: %w", err)
		}
		if err := f.SetSheetRow(sheet, addr, &cells); err != nil {
			return nil, fmt.Errorf("error report row write failed: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error report serialization failed: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateErrorFile builds the report workbook for a cycle's remaining
// error rows and stores it, returning the artifact URL.
func GenerateErrorFile(ctx context.Context, store ArtifactStore, tmpl *Template, allocationFileID string, errorRows []ErrorRow) (string, error) {
	data, err := BuildErrorReport(tmpl, errorRows)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("allocation/errors/%s_%s.xlsx", allocationFileID, time.Now().Format("20060102_150405"))
	url, err := store.Upload(ctx, key, data, xlsxContentType)
	if err != nil {
		return "", fmt.Errorf("error report upload failed: %w", err)
	}
	return url, nil
}

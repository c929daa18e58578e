package allocation

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

// FileExt derives the extension from the URL path suffix, lower-cased.
func FileExt(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return strings.ToLower(path.Ext(fileURL))
	}
	return strings.ToLower(path.Ext(u.Path))
}

// fetchBytes does the single download attempt. Network failures are
// surfaced, not retried.
func fetchBytes(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFileAccess, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	return data, nil
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	return rows, nil
}

func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	return rows, nil
}

// parseXLS goes through a temp file because the legacy reader only opens
// paths.
func parseXLS(data []byte) ([][]string, error) {
	tmp, err := os.CreateTemp("", "allocfile-*.xls")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	tmp.Close()

	book, err := xls.Open(tmp.Name(), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%w: no sheets in workbook", ErrFileRead)
	}
	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		vals := make([]string, 0, row.LastCol()+1)
		for j := row.FirstCol(); j <= row.LastCol(); j++ {
			vals = append(vals, row.Col(j))
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func parseTable(data []byte, ext string) ([][]string, error) {
	switch ext {
	case ".csv":
		return parseCSV(data)
	case ".xlsx":
		return parseXLSX(data)
	case ".xls":
		return parseXLS(data)
	}
	return nil, ErrUnsupportedFormat
}

// FetchTable downloads the file at fileURL and parses it fully into a
// header row plus data rows. The extension allow-list is checked before
// any network fetch is attempted.
func FetchTable(ctx context.Context, fileURL string) ([][]string, error) {
	ext := FileExt(fileURL)
	if !allowedExtensions[ext] {
		return nil, ErrUnsupportedFormat
	}
	data, err := fetchBytes(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	rows, err := parseTable(data, ext)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

// FetchHeaders parses only the header row; used when the caller needs
// schema validation without loading the full data set.
func FetchHeaders(ctx context.Context, fileURL string) ([]string, error) {
	ext := FileExt(fileURL)
	if !allowedExtensions[ext] {
		return nil, ErrUnsupportedFormat
	}
	data, err := fetchBytes(ctx, fileURL)
	if err != nil {
		return nil, err
	}

	if ext == ".csv" {
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		header, err := r.Read()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
		}
		return trimAll(header), nil
	}

	if ext == ".xlsx" {
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
		}
		defer f.Close()
		it, err := f.Rows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
		}
		defer it.Close()
		if !it.Next() {
			return nil, ErrEmptyFile
		}
		header, err := it.Columns()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
		}
		return trimAll(header), nil
	}

	rows, err := parseXLS(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return trimAll(rows[0]), nil
}

// FetchColumn extracts one column's values by header name, optionally
// dropping empty cells. Used by duplicate-scan helper paths.
func FetchColumn(ctx context.Context, fileURL, header string, dropEmpty bool) ([]string, error) {
	rows, err := FetchTable(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, h := range trimAll(rows[0]) {
		if h == header {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: column %q not found", ErrFileRead, header)
	}
	values := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		v := ""
		if idx < len(row) {
			v = strings.TrimSpace(row[idx])
		}
		if v == "" && dropEmpty {
			continue
		}
		values = append(values, v)
	}
	return values, nil
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

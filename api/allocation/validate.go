package allocation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"SigmaCollect/api/constants"

	"github.com/shopspring/decimal"
)

// HeaderPolicy selects how strictly file headers are checked against the
// template expansion.
type HeaderPolicy int

const (
	// HeaderSetMatch requires every required label to be present; extra
	// headers are tolerated. The baseline for user-authored files.
	HeaderSetMatch HeaderPolicy = iota
	// HeaderStrict additionally rejects headers outside the template.
	HeaderStrict
	// HeaderExactOrder requires the headers to equal the template's
	// expanded list in order; for machine-generated files.
	HeaderExactOrder
)

// ValidateHeaders checks the parsed header row against the template. The
// missing-header failure reports once for the whole validation unit
// rather than enumerating every absent field.
func ValidateHeaders(headers []string, tmpl *Template, policy HeaderPolicy) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.TrimSpace(h)] = true
	}

	for _, required := range tmpl.RequiredHeaders() {
		if !present[required] {
			return ErrMissingRequiredHeaders
		}
	}

	switch policy {
	case HeaderStrict:
		expected := make(map[string]bool)
		for _, h := range tmpl.ExpandedHeaders() {
			expected[h] = true
		}
		for _, h := range headers {
			if !expected[strings.TrimSpace(h)] {
				return ErrUnexpectedHeaders
			}
		}
	case HeaderExactOrder:
		expanded := tmpl.ExpandedHeaders()
		if len(headers) != len(expanded) {
			return ErrHeaderOrderMismatch
		}
		for i, h := range headers {
			if strings.TrimSpace(h) != expanded[i] {
				return ErrHeaderOrderMismatch
			}
		}
	}
	return nil
}

// ParseCell validates one cell against its field's declared data type and
// returns the typed value. Empty cells on non-required fields pass
// through as nil; empty cells on required fields fail.
func ParseCell(field *TemplateField, raw string) (interface{}, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		if field.Required {
			return nil, fmt.Errorf("required field %s is empty", field.Title)
		}
		return nil, nil
	}

	switch field.DataType {
	case constants.TypeString:
		return value, nil

	case constants.TypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not an integer", field.Title, value)
		}
		return n, nil

	case constants.TypeDecimal:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not a decimal amount", field.Title, value)
		}
		return d, nil

	case constants.TypeBoolean:
		switch strings.ToLower(value) {
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0":
			return false, nil
		}
		return nil, fmt.Errorf("field %s: %q is not a boolean", field.Title, value)

	case constants.TypeDate:
		layout := field.Format
		if layout == "" {
			layout = constants.DateFormat
		}
		t, err := time.Parse(layout, value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q does not match date format %s", field.Title, value, layout)
		}
		return t, nil

	case constants.TypeDateTime:
		layout := field.Format
		if layout == "" {
			layout = constants.DateTimeFormat
		}
		t, err := time.Parse(layout, value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q does not match datetime format %s", field.Title, value, layout)
		}
		return t, nil

	case constants.TypeDuration:
		d, err := parseClockDuration(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not a HH:MM:SS duration", field.Title, value)
		}
		return d, nil
	}

	return nil, fmt.Errorf("field %s: unknown data type %q", field.Title, field.DataType)
}

// parseClockDuration reads an HH:MM:SS style value into a time.Duration.
func parseClockDuration(value string) (time.Duration, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM:SS, got %q", value)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("bad hours in %q", value)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minutes in %q", value)
	}
	s, err := strconv.Atoi(parts[2])
	if err != nil || s < 0 || s > 59 {
		return 0, fmt.Errorf("bad seconds in %q", value)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second, nil
}

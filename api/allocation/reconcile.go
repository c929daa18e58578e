package allocation

import (
	"strings"
)

// Mode selects the duplicate-detection predicate for a reconciliation
// pass. The row-type-checking core is shared; only the identifier policy
// differs between a fresh upload and an error-correction cycle.
type Mode int

const (
	// ModeFullUpload rejects identifiers that already have a live case.
	ModeFullUpload Mode = iota
	// ModeCorrection accepts only identifiers previously marked ERROR on
	// the target allocation file, so a re-upload cannot smuggle in
	// never-seen loan accounts.
	ModeCorrection
)

// Engine runs one reconciliation pass over a parsed table.
type Engine struct {
	Template *Template
	Mode     Mode

	// LiveAccounts holds loan account numbers with an existing
	// non-ERROR, non-closed case. Consulted in ModeFullUpload.
	LiveAccounts map[string]bool

	// ErrorAccounts holds the allocation file's known ERROR identifiers.
	// Consulted in ModeCorrection.
	ErrorAccounts map[string]bool
}

// boundColumn ties one physical file column to its declaring template
// field; child is set for multi-reference columns.
type boundColumn struct {
	field *TemplateField
	child *MultiRefLabel
}

// Reconcile validates every data row, detects intra-file and cross-file
// duplicates and folds multi-reference columns, producing the valid/error
// split. Processing is fail-soft: a bad row never aborts the pass, and a
// row with at least one error reason is excluded from the valid set even
// when its other fields parsed cleanly.
func (e *Engine) Reconcile(table [][]string) *ReconcileResult {
	headers := trimAll(table[0])
	dataRows := table[1:]

	columns := make([]boundColumn, len(headers))
	loanAccCol := -1
	for i, h := range headers {
		field, child := e.Template.FieldForHeader(h)
		columns[i] = boundColumn{field: field, child: child}
		if field != nil && field.Label == e.Template.LoanAccountHeader() && child == nil {
			loanAccCol = i
		}
	}

	// Intra-file duplicate scan first: self-inconsistency is cheaper to
	// catch than a database round trip, and every occurrence is flagged,
	// including the first.
	occurrences := make(map[string]int)
	for _, row := range dataRows {
		if acc := cellAt(row, loanAccCol); acc != "" {
			occurrences[acc]++
		}
	}

	// Set-match tolerates files whose columns are ordered differently
	// from the template, so raw cells are laid back out in template
	// order here. The error-report artifact and the stored raw_values
	// both read positionally against the expanded headers.
	expanded := e.Template.ExpandedHeaders()
	slot := make(map[string]int, len(expanded))
	for i, h := range expanded {
		if _, ok := slot[h]; !ok {
			slot[h] = i
		}
	}

	result := &ReconcileResult{}
	for _, raw := range dataRows {
		if isBlankRow(raw) {
			continue
		}
		caseRow := CaseRow{
			Fields: make(map[string]interface{}),
			Raw:    alignRaw(raw, headers, slot, len(expanded)),
		}
		var reasons []string
		duplicate := false

		for i, col := range columns {
			if col.field == nil {
				continue // header outside the template, tolerated
			}
			cell := cellAt(raw, i)
			if col.child != nil {
				if strings.TrimSpace(cell) != "" {
					caseRow.References = append(caseRow.References, CaseReference{
						Title: col.child.Title,
						Label: col.child.Label,
						Value: strings.TrimSpace(cell),
					})
				}
				continue
			}
			value, err := ParseCell(col.field, cell)
			if err != nil {
				reasons = append(reasons, InvalidDataTypeReason(col.field.Title))
				continue
			}
			if value != nil {
				caseRow.Fields[col.field.Title] = value
			}
		}

		acc := cellAt(raw, loanAccCol)
		caseRow.LoanAccountNumber = acc

		if acc != "" && occurrences[acc] > 1 {
			reasons = append(reasons, ReasonDuplicateInFile)
			duplicate = true
		}

		switch e.Mode {
		case ModeFullUpload:
			if acc != "" && !duplicate && e.LiveAccounts[acc] {
				reasons = append(reasons, ReasonDuplicateLoanAcc)
				duplicate = true
			}
		case ModeCorrection:
			if acc == "" || !e.ErrorAccounts[acc] {
				reasons = append(reasons, ReasonUnexpectedOrMissed)
			}
		}

		if len(reasons) > 0 {
			if duplicate {
				result.Duplicates++
			}
			result.ErrorRows = append(result.ErrorRows, ErrorRow{Row: caseRow, Reasons: reasons})
			continue
		}
		result.ValidRows = append(result.ValidRows, caseRow)
	}
	return result
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// alignRaw places each cell under its template column. Cells from
// headers outside the template are dropped; absent columns and ragged
// rows read as empty.
func alignRaw(row []string, headers []string, slot map[string]int, width int) []string {
	out := make([]string, width)
	for i, h := range headers {
		if pos, ok := slot[h]; ok && i < len(row) {
			out[pos] = row[i]
		}
	}
	return out
}

package allocation

import (
	"context"
	"fmt"

	"SigmaCollect/api/constants"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MultiRefLabel is one physical file column contributed by a
// multi-reference field mapping (e.g. "Reference 1 Name").
type MultiRefLabel struct {
	Title string
	Label string
}

// TemplateField is one reserved field declared on a template. For
// multi-reference fields the expected file headers are the child labels,
// not the field's own label.
type TemplateField struct {
	FieldMappingID string
	Title          string
	Label          string
	Required       bool
	Position       int
	DataType       string
	Format         string
	IsMultiRef     bool
	MultiRefLabels []MultiRefLabel
}

// Template is the resolved default layout for one product assignment:
// the ordered field list an allocation file must conform to.
type Template struct {
	TemplateID          string
	Title               string
	ProductAssignmentID string
	Fields              []TemplateField
}

// ExpandedHeaders returns the flat, ordered list of physical file column
// headers, with multi-reference fields fanned out into their child labels.
func (t *Template) ExpandedHeaders() []string {
	headers := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.IsMultiRef {
			for _, m := range f.MultiRefLabels {
				headers = append(headers, m.Label)
			}
			continue
		}
		headers = append(headers, f.Label)
	}
	return headers
}

// RequiredHeaders returns the expanded headers of required fields only. A
// template with zero required fields is a valid edge case, not an error.
func (t *Template) RequiredHeaders() []string {
	var headers []string
	for _, f := range t.Fields {
		if !f.Required {
			continue
		}
		if f.IsMultiRef {
			for _, m := range f.MultiRefLabels {
				headers = append(headers, m.Label)
			}
			continue
		}
		headers = append(headers, f.Label)
	}
	return headers
}

// FieldForHeader maps one physical column header back to its declaring
// field. For multi-reference columns the second return value carries the
// child label so the engine can fold columns into one structured record.
func (t *Template) FieldForHeader(header string) (*TemplateField, *MultiRefLabel) {
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.IsMultiRef {
			for j := range f.MultiRefLabels {
				if f.MultiRefLabels[j].Label == header {
					return f, &f.MultiRefLabels[j]
				}
			}
			continue
		}
		if f.Label == header {
			return f, nil
		}
	}
	return nil, nil
}

// FieldByTitle returns the field declared under a reserved title.
func (t *Template) FieldByTitle(title string) *TemplateField {
	for i := range t.Fields {
		if t.Fields[i].Title == title {
			return &t.Fields[i]
		}
	}
	return nil
}

// Validate checks every declared field title against the reserved
// vocabulary. Templates are configured out of band, so a typo surfaces
// here instead of as silently unmapped columns.
func (t *Template) Validate() error {
	for i := range t.Fields {
		if !constants.IsReservedField(t.Fields[i].Title) {
			return fmt.Errorf("%s: %s", constants.ErrTemplateFieldUnknown, t.Fields[i].Title)
		}
	}
	return nil
}

// LoanAccountHeader returns the file column header mapped to the loan
// account number, the cross-file duplicate-detection key.
func (t *Template) LoanAccountHeader() string {
	if f := t.FieldByTitle(constants.FieldLoanAccountNumber); f != nil {
		return f.Label
	}
	return ""
}

// LoadDefaultTemplate resolves the active default template for a product
// assignment, expanding multi-reference fields into their child labels.
// Returns ErrNoTemplateConfigured when the assignment has no default
// template; a template with no required fields loads normally.
func LoadDefaultTemplate(ctx context.Context, pool *pgxpool.Pool, productAssignmentID string) (*Template, error) {
	tmpl := &Template{ProductAssignmentID: productAssignmentID}

	err := pool.QueryRow(ctx, `
		SELECT template_id, title
		FROM process_template_preference
		WHERE product_assignment_id = $1 AND is_default = TRUE AND status = 'PUBLISHED'
	`, productAssignmentID).Scan(&tmpl.TemplateID, &tmpl.Title)
	if err != nil {
		return nil, ErrNoTemplateConfigured
	}

	rows, err := pool.Query(ctx, `
		SELECT field_mapping_id, title, label, is_required_field, position,
		       data_type, data_format, is_multi_ref_field
		FROM process_template_field_mapping
		WHERE template_id = $1
		ORDER BY position
	`, tmpl.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("template field query failed: %w", err)
	}
	defer rows.Close()

	multiRefIDs := make([]string, 0)
	for rows.Next() {
		var f TemplateField
		var format *string
		if err := rows.Scan(&f.FieldMappingID, &f.Title, &f.Label, &f.Required,
			&f.Position, &f.DataType, &format, &f.IsMultiRef); err != nil {
			return nil, fmt.Errorf("template field scan failed: %w", err)
		}
		if format != nil {
			f.Format = *format
		}
		if f.IsMultiRef {
			multiRefIDs = append(multiRefIDs, f.FieldMappingID)
		}
		tmpl.Fields = append(tmpl.Fields, f)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("template field rows failed: %w", rows.Err())
	}

	if len(multiRefIDs) > 0 {
		mrRows, err := pool.Query(ctx, `
			SELECT field_mapping_id, title, label
			FROM process_template_multi_reference_field
			WHERE field_mapping_id = ANY($1)
			ORDER BY multi_ref_id
		`, multiRefIDs)
		if err != nil {
			return nil, fmt.Errorf("multi-reference field query failed: %w", err)
		}
		defer mrRows.Close()

		children := make(map[string][]MultiRefLabel)
		for mrRows.Next() {
			var parentID string
			var m MultiRefLabel
			if err := mrRows.Scan(&parentID, &m.Title, &m.Label); err != nil {
				return nil, fmt.Errorf("multi-reference field scan failed: %w", err)
			}
			children[parentID] = append(children[parentID], m)
		}
		if mrRows.Err() != nil {
			return nil, fmt.Errorf("multi-reference rows failed: %w", mrRows.Err())
		}
		for i := range tmpl.Fields {
			if tmpl.Fields[i].IsMultiRef {
				tmpl.Fields[i].MultiRefLabels = children[tmpl.Fields[i].FieldMappingID]
			}
		}
	}

	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

package certificate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pramaanvault/certvault/internal/canonical"
)

// ParseCSV reads a delimiter-separated certificate file: a header row naming
// exactly the fixed certificate fields (in any order), then one record per
// data row. Every row must carry the header's field count and no empty
// values. All failures are *ValidationError with row/field context.
func ParseCSV(r io.Reader) ([]canonical.Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ValidationError{Reason: "file is empty"}
	}
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("read header: %v", err)}
	}

	columns, err := matchHeader(header)
	if err != nil {
		return nil, err
	}

	var records []canonical.Record
	row := 0
	for {
		values, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
				return nil, &ValidationError{Row: row, Reason: "field count does not match header"}
			}
			return nil, &ValidationError{Row: row, Reason: err.Error()}
		}

		fields := make(map[string]string, len(canonical.FieldNames))
		for name, idx := range columns {
			value := strings.TrimSpace(values[idx])
			if value == "" {
				return nil, &ValidationError{Row: row, Field: name, Reason: "empty value"}
			}
			fields[name] = value
		}

		record, err := canonical.FromFields(fields)
		if err != nil {
			return nil, &ValidationError{Row: row, Reason: err.Error()}
		}
		records = append(records, record)
	}

	return records, nil
}

// matchHeader maps each fixed field name to its column index. The header must
// contain exactly the fixed field set, order-insensitive.
func matchHeader(header []string) (map[string]int, error) {
	if len(header) != len(canonical.FieldNames) {
		return nil, &ValidationError{Reason: fmt.Sprintf(
			"header must have %d fields (%s), got %d",
			len(canonical.FieldNames), strings.Join(canonical.FieldNames, ","), len(header),
		)}
	}

	columns := make(map[string]int, len(header))
	for idx, raw := range header {
		name := strings.TrimSpace(raw)
		if _, ok := columns[name]; ok {
			return nil, &ValidationError{Field: name, Reason: "duplicate header field"}
		}
		columns[name] = idx
	}

	for _, name := range canonical.FieldNames {
		if _, ok := columns[name]; !ok {
			return nil, &ValidationError{Field: name, Reason: "missing from header"}
		}
	}
	return columns, nil
}

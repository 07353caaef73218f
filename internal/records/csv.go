package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// parseCSV reads a header row plus data rows from src. Header columns are
// matched case-sensitively against the schema; unmatched columns are
// dropped, missing columns default to empty string. With skipBad set, rows
// with the wrong cell count are skipped instead of failing the batch.
func parseCSV(src io.Reader, schema []string, skipBad bool) ([]map[string]string, error) {
	reader := csv.NewReader(src)
	if skipBad {
		reader.FieldsPerRecord = -1
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, parseErrorf("input is empty")
	}
	if err != nil {
		return nil, parseErrorf("failed to read header row: %v", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	// Map each source column to a schema field, or "" for dropped columns.
	targets := make([]string, len(header))
	matched := 0
	for i, col := range header {
		name := strings.TrimSpace(col)
		for _, f := range schema {
			if f == name {
				targets[i] = f
				matched++
				break
			}
		}
	}
	if matched == 0 {
		return nil, parseErrorf("header row matches no schema column")
	}

	var rows []map[string]string
	for line := 2; ; line++ {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseErrorf("row %d: %v", line, err)
		}
		if skipBad && len(cells) != len(header) {
			continue
		}

		row := make(map[string]string, len(schema))
		for _, f := range schema {
			row[f] = ""
		}
		for i, cell := range cells {
			if i < len(targets) && targets[i] != "" {
				row[targets[i]] = strings.TrimSpace(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteCSV writes the collection snapshot as tabular text: schema columns
// in schema order, then the store-stamped metadata columns.
func WriteCSV(w io.Writer, c Collection, recs []*Record) error {
	fields := SchemaFields(c)
	if fields == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	cw := csv.NewWriter(w)
	header := append(fields, keyID, keyCreatedAt, keyCreatedBy, keyUploadedVia)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(header))
	for _, r := range recs {
		for i, f := range fields {
			row[i] = r.Fields[f]
		}
		row[len(fields)] = strconv.FormatInt(r.ID, 10)
		row[len(fields)+1] = r.CreatedAt.Format(time.RFC3339)
		row[len(fields)+2] = r.CreatedBy
		row[len(fields)+3] = r.UploadedVia
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV output: %w", err)
	}
	return nil
}

// templateRows holds the sample rows shipped with each import template.
var templateRows = map[Collection][][]string{
	Maintenance: {
		{"2025-01-15", "AP-BOC", "A-Check", "John Doe", "High", "Pending", "8.0", "Filter, Oil", "Routine check"},
		{"2025-01-20", "AP-BOD", "B-Check", "Jane Smith", "Medium", "In Progress", "12.0", "Brake pads", "Scheduled maintenance"},
	},
	Safety: {
		{"2025-01-10", "PK-300", "Karachi", "Bird Strike", "Low", "ground handling", "Minor bird strike", "Captain Ahmed", "open"},
		{"2025-01-11", "PK-301", "Islamabad", "Technical Failure", "Medium", "security", "Hydraulic issue", "First Officer Ali", "System closed"},
	},
	Flight: {
		{"2025-01-15", "AP-BOC", "PK-300", "KHI", "ISB", "Captain Ahmed", "4", "150", "On-time departure, smooth flight"},
		{"2025-01-15", "AP-BOD", "PK-301", "ISB", "KHI", "Captain Ali", "5", "180", "Special meal request for 5 passengers"},
	},
}

// WriteTemplate writes a downloadable import template: the schema header
// plus two example rows showing the expected formats.
func WriteTemplate(w io.Writer, c Collection) error {
	fields := SchemaFields(c)
	if fields == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(fields); err != nil {
		return fmt.Errorf("failed to write template header: %w", err)
	}
	for _, row := range templateRows[c] {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write template row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush template output: %w", err)
	}
	return nil
}

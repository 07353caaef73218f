package records

// Collection identifies one of the three record sets.
type Collection string

const (
	Maintenance Collection = "maintenance"
	Safety      Collection = "safety"
	Flight      Collection = "flight"
)

// Collections returns the fixed set of collections in display order.
func Collections() []Collection {
	return []Collection{Maintenance, Safety, Flight}
}

// Valid reports whether c names one of the known collections.
func (c Collection) Valid() bool {
	switch c {
	case Maintenance, Safety, Flight:
		return true
	}
	return false
}

// schemaFields holds the fixed column order per collection. Import headers
// are matched case-sensitively against these names, and CSV exports emit
// columns in this order.
var schemaFields = map[Collection][]string{
	Maintenance: {
		"maintenance_date",
		"aircraft",
		"type",
		"engineer",
		"priority",
		"status",
		"estimated_hours",
		"parts_replaced",
		"notes",
	},
	Safety: {
		"date",
		"flight",
		"location",
		"type",
		"severity",
		"department",
		"description",
		"reporter",
		"status",
	},
	Flight: {
		"date",
		"aircraft",
		"flight_number",
		"departure",
		"arrival",
		"pilot",
		"crew_count",
		"passengers",
		"notes",
	},
}

// requiredFields lists the subset of schema fields that must be non-empty
// on a single insert. Bulk import is deliberately looser and lets blank
// cells through.
var requiredFields = map[Collection][]string{
	Maintenance: {"aircraft", "type", "status"},
	Safety:      {"date", "type", "severity"},
	Flight:      {"date", "flight_number", "aircraft"},
}

// SchemaFields returns the ordered field names for a collection, or nil if
// the collection is unknown.
func SchemaFields(c Collection) []string {
	fields, ok := schemaFields[c]
	if !ok {
		return nil
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// RequiredFields returns the field names that must be present and non-empty
// on a single insert.
func RequiredFields(c Collection) []string {
	fields, ok := requiredFields[c]
	if !ok {
		return nil
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// isSchemaField reports whether name is part of the collection's schema.
func isSchemaField(c Collection, name string) bool {
	for _, f := range schemaFields[c] {
		if f == name {
			return true
		}
	}
	return false
}

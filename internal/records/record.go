package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role names recognized by the authorization checks. Stored lowercase.
const (
	RoleAdministrator = "administrator"
	RoleManager       = "manager"
	RoleEngineer      = "engineer"
	RoleViewer        = "viewer"
)

// UploadedViaBulk is the marker stamped on records created by bulk import.
const UploadedViaBulk = "bulk import"

// Caller carries the identity and role of whoever invoked an operation.
// The store never consults ambient state for this.
type Caller struct {
	Name string
	Role string
}

// Metadata keys the store stamps onto every record. Import sources may not
// supply them; matching columns are dropped.
const (
	keyID          = "id"
	keyCreatedAt   = "created_at"
	keyCreatedBy   = "created_by"
	keyUploadedVia = "uploaded_via"
)

// Record is one entity in a collection: the schema fields as strings plus
// the metadata stamped by the store at insertion.
type Record struct {
	ID          int64
	CreatedAt   time.Time
	CreatedBy   string
	UploadedVia string
	Fields      map[string]string
}

// Field returns the named schema field value, or empty string if absent.
func (r *Record) Field(name string) string {
	return r.Fields[name]
}

// Matches reports whether the record satisfies the filter: a field equality
// check, a case-insensitive substring search across all field values, or
// both.
func (r *Record) Matches(f Filter) bool {
	if f.Field != "" && r.Fields[f.Field] != f.Value {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		found := false
		for _, v := range r.Fields {
			if strings.Contains(strings.ToLower(v), needle) {
				found = true
				break
			}
		}
		if !found && !strings.Contains(strings.ToLower(r.CreatedBy), needle) {
			return false
		}
	}
	return true
}

// Filter selects records on Query. Zero value matches everything.
type Filter struct {
	Field  string
	Value  string
	Search string
}

// MarshalJSON flattens the record into a single object: metadata keys plus
// every schema field at the top level, the shape the data files use.
func (r *Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+4)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat[keyID] = r.ID
	flat[keyCreatedAt] = r.CreatedAt.Format(time.RFC3339)
	flat[keyCreatedBy] = r.CreatedBy
	if r.UploadedVia != "" {
		flat[keyUploadedVia] = r.UploadedVia
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat object form. Non-string field values are
// coerced to their text form so hand-edited or legacy files still load.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var flat map[string]any
	if err := dec.Decode(&flat); err != nil {
		return err
	}

	r.Fields = make(map[string]string, len(flat))
	for k, v := range flat {
		switch k {
		case keyID:
			n, ok := v.(json.Number)
			if !ok {
				return fmt.Errorf("record id is not numeric: %v", v)
			}
			id, err := n.Int64()
			if err != nil {
				return fmt.Errorf("record id is not an integer: %w", err)
			}
			r.ID = id
		case keyCreatedAt:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("record created_at is not a string: %v", v)
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("failed to parse created_at: %w", err)
			}
			r.CreatedAt = t
		case keyCreatedBy:
			r.CreatedBy = coerceString(v)
		case keyUploadedVia:
			r.UploadedVia = coerceString(v)
		default:
			r.Fields[k] = coerceString(v)
		}
	}
	return nil
}

// NormalizeFields coerces a decoded JSON object into the string field map
// Insert accepts, using the same scalar rules as record loading. Decode the
// source with json.Decoder.UseNumber so numbers keep their written form.
func NormalizeFields(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = coerceString(v)
	}
	return out
}

// coerceString renders a decoded JSON value as text. Numbers keep their
// source form thanks to json.Number.
func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// clone returns a deep copy so callers can't mutate stored state.
func (r *Record) clone() *Record {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return &Record{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		CreatedBy:   r.CreatedBy,
		UploadedVia: r.UploadedVia,
		Fields:      fields,
	}
}

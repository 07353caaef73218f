package records

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsial/opshub/pkg/logger"
)

func TestParseCSVStripsByteOrderMark(t *testing.T) {
	rows, err := parseCSV(strings.NewReader("\uFEFFdate,type,severity\n2025-01-10,Bird Strike,Low\n"), SchemaFields(Safety), false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-01-10", rows[0]["date"])
}

func TestParseCSVHeaderMatchingIsCaseSensitive(t *testing.T) {
	// "Date" does not match the schema column "date".
	rows, err := parseCSV(strings.NewReader("Date,type,severity\n2025-01-10,Bird Strike,Low\n"), SchemaFields(Safety), false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0]["date"])
	assert.Equal(t, "Bird Strike", rows[0]["type"])
}

func TestParseCSVTrimsCellWhitespace(t *testing.T) {
	rows, err := parseCSV(strings.NewReader("date, type ,severity\n 2025-01-10 , Bird Strike ,Low\n"), SchemaFields(Safety), false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-01-10", rows[0]["date"])
	assert.Equal(t, "Bird Strike", rows[0]["type"])
}

func TestParseCSVInconsistentRowAborts(t *testing.T) {
	src := "date,type,severity\n2025-01-10,Bird Strike\n"
	_, err := parseCSV(strings.NewReader(src), SchemaFields(Safety), false)
	assert.ErrorIs(t, err, ErrParse)
}

func TestImportSkipModeDropsBadRows(t *testing.T) {
	s, err := NewStore(Config{Dir: t.TempDir(), ImportOnError: "skip"}, logger.NewNop())
	require.NoError(t, err)

	src := strings.Join([]string{
		"date,type,severity",
		"2025-01-10,Bird Strike,Low",
		"2025-01-11,Technical Failure", // short row, skipped
		"2025-01-12,Weather,High",
	}, "\n")

	n, err := s.BulkImport(Safety, strings.NewReader(src), admin)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.Query(Safety, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bird Strike", all[0].Field("type"))
	assert.Equal(t, "Weather", all[1].Field("type"))
}

func TestWriteCSVRoundTripColumns(t *testing.T) {
	created, err := time.Parse(time.RFC3339, "2025-03-01T10:00:00Z")
	require.NoError(t, err)

	recs := []*Record{{
		ID:          7,
		CreatedAt:   created,
		CreatedBy:   "engineer1",
		UploadedVia: UploadedViaBulk,
		Fields: map[string]string{
			"maintenance_date": "2025-02-28",
			"aircraft":         "AP-BOC",
			"type":             "A-Check",
			"engineer":         "John Doe",
			"priority":         "High",
			"status":           "Pending",
			"estimated_hours":  "8.0",
			"parts_replaced":   "Filter, Oil",
			"notes":            "Routine",
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Maintenance, recs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"maintenance_date,aircraft,type,engineer,priority,status,estimated_hours,parts_replaced,notes,id,created_at,created_by,uploaded_via",
		lines[0])
	assert.Contains(t, lines[1], "AP-BOC")
	assert.Contains(t, lines[1], "7,2025-03-01T10:00:00Z,engineer1,bulk import")
	assert.Contains(t, lines[1], `"Filter, Oil"`)
}

func TestWriteCSVUnknownCollection(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, Collection("cargo"), nil)
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestTemplateImportsCleanly(t *testing.T) {
	s, _ := newTestStore(t)

	for _, c := range Collections() {
		var buf bytes.Buffer
		require.NoError(t, WriteTemplate(&buf, c))

		firstLine, _, found := strings.Cut(buf.String(), "\n")
		require.True(t, found)
		assert.Equal(t, strings.Join(SchemaFields(c), ","), firstLine)

		n, err := s.BulkImport(c, &buf, admin)
		require.NoError(t, err)
		assert.Equal(t, 2, n, "collection %s template carries two sample rows", c)
	}
}
